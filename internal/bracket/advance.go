package bracket

import (
	"fmt"
	"time"

	"github.com/AdamBeresnev/esports-bracket/internal/utils"
	"github.com/google/uuid"
)

// Result is a reported match outcome. Loser is optional and derived from the match when empty.
type Result struct {
	MatchID uuid.UUID
	Winner  string
	Loser   string
	Score1  *int
	Score2  *int
}

// Advance applies a match result and returns the updated bracket. The input bracket is never
// modified, so a failed call leaves the caller's copy exactly as it was.
func (e *Engine) Advance(b *Structure, result Result) (*Structure, error) {
	idx := b.index()
	i, ok := idx[result.MatchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, result.MatchID)
	}

	match := &b.Nodes[i]
	if match.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrMatchClosed, match.ID)
	}
	if match.Team1 == nil || match.Team2 == nil {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotReady, match.ID)
	}

	loser, ok := match.Opponent(result.Winner)
	if !ok {
		return nil, fmt.Errorf("%w: winner %q is not part of match %s", ErrInvalidResult, result.Winner, match.ID)
	}
	if result.Loser != "" && result.Loser != loser {
		return nil, fmt.Errorf("%w: loser %q is not the opponent of %q", ErrInvalidResult, result.Loser, result.Winner)
	}

	out := b.Clone()
	now := e.clock.Now().UTC()

	m := &out.Nodes[i]
	m.Winner = utils.Ptr(result.Winner)
	m.Status = MatchCompleted
	m.CompletedAt = &now
	m.Score1 = utils.Clone(result.Score1)
	m.Score2 = utils.Clone(result.Score2)

	if reset, ok := resetMatch(out, idx, m); ok {
		// The winner bracket champion has not lost yet, a win in the first grand final ends it
		if champ := winnerBracketChampion(out, m); champ != nil && *champ == result.Winner {
			reset.Status = MatchSkipped
			reset.CompletedAt = &now
		} else if !reset.fill(loser) || !reset.fill(result.Winner) {
			return nil, fmt.Errorf("%w: reset match %s has no free slot", ErrInconsistentState, reset.ID)
		}
	} else {
		if err := deliver(out, idx, m.NextMatchID, result.Winner); err != nil {
			return nil, err
		}
		if err := deliver(out, idx, m.LoserNextMatchID, loser); err != nil {
			return nil, err
		}
	}

	if err := settle(out, now); err != nil {
		return nil, err
	}
	out.refreshMetadata(now, true)

	return out, nil
}

// resetMatch returns the grand final reset that follows m, if there is one.
func resetMatch(b *Structure, idx map[uuid.UUID]int, m *Node) (*Node, bool) {
	if m.BracketType != GrandFinal || !sameTarget(m.NextMatchID, m.LoserNextMatchID) {
		return nil, false
	}
	j, ok := idx[*m.NextMatchID]
	if !ok || b.Nodes[j].BracketType != GrandFinal {
		return nil, false
	}
	return &b.Nodes[j], true
}

// winnerBracketChampion is the winner of the winner bracket match that feeds the grand final.
func winnerBracketChampion(b *Structure, grandFinal *Node) *string {
	for i := range b.Nodes {
		n := &b.Nodes[i]
		if n.BracketType == WinnerBracket && n.NextMatchID != nil && *n.NextMatchID == grandFinal.ID {
			return n.Winner
		}
	}
	return nil
}

func deliver(b *Structure, idx map[uuid.UUID]int, to *uuid.UUID, team string) error {
	if to == nil {
		return nil
	}
	j, ok := idx[*to]
	if !ok {
		return fmt.Errorf("%w: link to unknown match %s", ErrInconsistentState, *to)
	}
	target := &b.Nodes[j]
	if target.Status != MatchPending {
		return fmt.Errorf("%w: match %s is already closed", ErrInconsistentState, target.ID)
	}
	if !target.fill(team) {
		return fmt.Errorf("%w: match %s has no free slot", ErrInconsistentState, target.ID)
	}
	return nil
}

// settle resolves every pending match that can no longer receive a second team: all of its
// feeders are finished and it holds one team (a bye, auto-completed with that team as winner) or
// none (skipped). Resolving a match can settle the matches it feeds, so it repeats until nothing
// changes. Round 1 matches have no feeders and are settled on the first pass.
func settle(b *Structure, now time.Time) error {
	idx := b.index()
	feeders := b.feeders()

	for changed := true; changed; {
		changed = false
		for i := range b.Nodes {
			n := &b.Nodes[i]
			if n.Status != MatchPending || n.teamCount() == 2 || !allTerminal(b, feeders[n.ID]) {
				continue
			}

			changed = true
			n.CompletedAt = utils.Ptr(now)
			if n.teamCount() == 0 {
				n.Status = MatchSkipped
				continue
			}

			winner := n.Team1
			if winner == nil {
				winner = n.Team2
			}
			n.Winner = utils.Clone(winner)
			n.Status = MatchCompleted
			if err := deliver(b, idx, n.NextMatchID, *winner); err != nil {
				return err
			}
		}
	}
	return nil
}

func allTerminal(b *Structure, nodes []int) bool {
	for _, i := range nodes {
		if !b.Nodes[i].IsTerminal() {
			return false
		}
	}
	return true
}
