package bracket

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Engine builds brackets and applies match results. It holds no bracket state, only the clock
// used for timestamps and the id source, so one Engine can be shared by every request.
type Engine struct {
	clock clockwork.Clock
	newID func() uuid.UUID
}

func NewEngine(clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{clock: clock, newID: uuid.New}
}

// Generate builds the full bracket for the given teams. Byes are resolved right away.
func (e *Engine) Generate(tournamentID string, teams []string, settings Settings) (*Structure, error) {
	settings = settings.withDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := validateTeams(teams); err != nil {
		return nil, err
	}

	bracketSize := NextPowerOfTwo(len(teams))
	seeded := SeedTeams(teams, settings.Seeding)
	slots := slotTeams(seeded, bracketSize, settings.Seeding)

	now := e.clock.Now().UTC()
	b := &Structure{
		ID:           e.newID(),
		TournamentID: tournamentID,
		Format:       settings.format(),
		Settings:     settings,
		Nodes:        make([]Node, 0, 2*bracketSize),
		Metadata: Metadata{
			TeamsCount: len(teams),
			Status:     BracketSetup,
		},
		CreatedAt: now,
	}

	switch settings.Type {
	case SingleElimination:
		e.buildSingleElimination(b, slots)
	case DoubleElimination:
		e.buildDoubleElimination(b, slots, settings.GrandFinalReset)
	}

	if err := settle(b, now); err != nil {
		return nil, err
	}
	b.refreshMetadata(now, false)

	return b, nil
}

func validateTeams(teams []string) error {
	if len(teams) < 2 {
		return fmt.Errorf("%w: at least 2 teams are required, got %d", ErrInvalidInput, len(teams))
	}

	seen := make(map[string]struct{}, len(teams))
	for i, team := range teams {
		if strings.TrimSpace(team) == "" {
			return fmt.Errorf("%w: team %d has an empty id", ErrInvalidInput, i)
		}
		if _, dup := seen[team]; dup {
			return fmt.Errorf("%w: team %q is listed twice", ErrInvalidInput, team)
		}
		seen[team] = struct{}{}
	}
	return nil
}

// addRound appends count empty nodes for one round and returns their indexes in position order.
func (e *Engine) addRound(b *Structure, bracketType BracketType, round, count int) []int {
	idx := make([]int, count)
	for p := 0; p < count; p++ {
		b.Nodes = append(b.Nodes, Node{
			ID:          e.newID(),
			BracketType: bracketType,
			Round:       round,
			Position:    p,
			Status:      MatchPending,
		})
		idx[p] = len(b.Nodes) - 1
	}
	return idx
}

func link(b *Structure, from, to int) {
	id := b.Nodes[to].ID
	b.Nodes[from].NextMatchID = &id
}

func linkLoser(b *Structure, from, to int) {
	id := b.Nodes[to].ID
	b.Nodes[from].LoserNextMatchID = &id
}
