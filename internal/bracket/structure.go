package bracket

import (
	"fmt"
	"time"

	"github.com/AdamBeresnev/esports-bracket/internal/utils"
	"github.com/google/uuid"
)

type TournamentType string

const (
	SingleElimination TournamentType = "single"
	DoubleElimination TournamentType = "double"
)

type SeedingMode string

const (
	SeedManual SeedingMode = "manual"
	SeedRandom SeedingMode = "random"
	// Teams are given best first and placed with standard seeding (1 v N, 2 v N-1, ...)
	SeedRanked SeedingMode = "ranked"
)

type Format string

const (
	FormatSingleElimination Format = "single-elimination"
	FormatDoubleElimination Format = "double-elimination"
)

type BracketStatus string

const (
	BracketSetup     BracketStatus = "setup"
	BracketActive    BracketStatus = "active"
	BracketCompleted BracketStatus = "completed"
)

type Settings struct {
	Type            TournamentType `json:"type" yaml:"type"`
	Seeding         SeedingMode    `json:"seeding" yaml:"seeding"`
	GrandFinalReset bool           `json:"grandFinalReset" yaml:"grand_final_reset"`
	// Accepted and persisted, the engine does not act on them. Byes always auto advance.
	ThirdPlaceMatch   bool   `json:"thirdPlaceMatch" yaml:"third_place_match"`
	AutoAdvancement   bool   `json:"autoAdvancement" yaml:"auto_advancement"`
	BracketVisibility string `json:"bracketVisibility" yaml:"bracket_visibility"`
}

// DefaultSettings mirrors what organizers get when they don't pick anything.
func DefaultSettings() Settings {
	return Settings{
		Type:              SingleElimination,
		Seeding:           SeedManual,
		AutoAdvancement:   true,
		BracketVisibility: "public",
	}
}

func (s Settings) withDefaults() Settings {
	if s.Type == "" {
		s.Type = SingleElimination
	}
	if s.Seeding == "" {
		s.Seeding = SeedManual
	}
	return s
}

func (s Settings) Validate() error {
	switch s.Type {
	case SingleElimination, DoubleElimination:
	default:
		return fmt.Errorf("%w: unknown bracket type %q", ErrInvalidInput, s.Type)
	}
	switch s.Seeding {
	case SeedManual, SeedRandom, SeedRanked:
	default:
		return fmt.Errorf("%w: unknown seeding mode %q", ErrInvalidInput, s.Seeding)
	}
	return nil
}

func (s Settings) format() Format {
	if s.Type == DoubleElimination {
		return FormatDoubleElimination
	}
	return FormatSingleElimination
}

type Metadata struct {
	TotalRounds  int           `json:"totalRounds"`
	TeamsCount   int           `json:"teamsCount"`
	CurrentRound int           `json:"currentRound"`
	Status       BracketStatus `json:"status"`
}

// Structure is the whole bracket of one tournament. It is persisted as a single document.
type Structure struct {
	ID           uuid.UUID `json:"id"`
	TournamentID string    `json:"tournamentId"`
	Format       Format    `json:"format"`
	Settings     Settings  `json:"settings"`
	Nodes        []Node    `json:"nodes"`
	Metadata     Metadata  `json:"metadata"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Clone returns a deep copy that shares no memory with s.
func (s *Structure) Clone() *Structure {
	c := *s
	c.Nodes = make([]Node, len(s.Nodes))
	for i := range s.Nodes {
		c.Nodes[i] = s.Nodes[i].clone()
	}
	return &c
}

func (s *Structure) index() map[uuid.UUID]int {
	idx := make(map[uuid.UUID]int, len(s.Nodes))
	for i := range s.Nodes {
		idx[s.Nodes[i].ID] = i
	}
	return idx
}

// feeders maps every node to the nodes that send it a team, through either link.
func (s *Structure) feeders() map[uuid.UUID][]int {
	in := make(map[uuid.UUID][]int)
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.NextMatchID != nil {
			in[*n.NextMatchID] = append(in[*n.NextMatchID], i)
		}
		if n.LoserNextMatchID != nil && !sameTarget(n.NextMatchID, n.LoserNextMatchID) {
			in[*n.LoserNextMatchID] = append(in[*n.LoserNextMatchID], i)
		}
	}
	return in
}

func sameTarget(a, b *uuid.UUID) bool {
	return a != nil && utils.Equal(a, b)
}

func (s *Structure) refreshMetadata(now time.Time, started bool) {
	s.UpdatedAt = now

	current := 0
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.Status == MatchPending && (current == 0 || n.Round < current) {
			current = n.Round
		}
	}

	switch {
	case IsComplete(s):
		s.Metadata.Status = BracketCompleted
	case started:
		s.Metadata.Status = BracketActive
	}

	if current == 0 {
		current = s.Metadata.TotalRounds
	}
	s.Metadata.CurrentRound = current
}
