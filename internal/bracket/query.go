package bracket

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ReadyMatches returns every match that has both teams and no result yet.
func ReadyMatches(b *Structure) []Node {
	ready := make([]Node, 0)
	for i := range b.Nodes {
		if b.Nodes[i].IsReady() {
			ready = append(ready, b.Nodes[i])
		}
	}
	return ready
}

func CompletedMatches(b *Structure) []Node {
	completed := make([]Node, 0)
	for i := range b.Nodes {
		if b.Nodes[i].Status == MatchCompleted {
			completed = append(completed, b.Nodes[i])
		}
	}
	return completed
}

// IsComplete reports whether the deciding grand final has a winner. The deciding match is the
// highest round grand final that was not skipped, so an unneeded reset does not hold it open.
func IsComplete(b *Structure) bool {
	final := decidingMatch(b)
	return final != nil && final.Status == MatchCompleted && final.Winner != nil
}

// Champion returns the tournament winner once the bracket is complete.
func Champion(b *Structure) (string, bool) {
	if !IsComplete(b) {
		return "", false
	}
	return *decidingMatch(b).Winner, true
}

func decidingMatch(b *Structure) *Node {
	var final *Node
	for i := range b.Nodes {
		n := &b.Nodes[i]
		if n.BracketType != GrandFinal || n.Status == MatchSkipped {
			continue
		}
		if final == nil || n.Round > final.Round {
			final = n
		}
	}
	return final
}

func FindNode(b *Structure, id uuid.UUID) (*Node, bool) {
	for i := range b.Nodes {
		if b.Nodes[i].ID == id {
			return &b.Nodes[i], true
		}
	}
	return nil, false
}

// RoundView is one column of the bracket as it is drawn.
type RoundView struct {
	BracketType BracketType `json:"bracketType"`
	Round       int         `json:"round"`
	Nodes       []Node      `json:"nodes"`
}

var bracketOrder = map[BracketType]int{
	WinnerBracket: 0,
	LoserBracket:  1,
	GrandFinal:    2,
}

// Layout groups the nodes by bracket and round, each round sorted by position.
func Layout(b *Structure) []RoundView {
	type key struct {
		bracketType BracketType
		round       int
	}

	grouped := make(map[key][]Node)
	var keys []key
	for _, n := range b.Nodes {
		k := key{n.BracketType, n.Round}
		if _, exists := grouped[k]; !exists {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], n)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].bracketType != keys[j].bracketType {
			return bracketOrder[keys[i].bracketType] < bracketOrder[keys[j].bracketType]
		}
		return keys[i].round < keys[j].round
	})

	views := make([]RoundView, 0, len(keys))
	for _, k := range keys {
		nodes := grouped[k]
		sort.Slice(nodes, func(i, j int) bool {
			return nodes[i].Position < nodes[j].Position
		})
		views = append(views, RoundView{BracketType: k.bracketType, Round: k.round, Nodes: nodes})
	}
	return views
}

// Validate checks the structural invariants of a bracket, typically one loaded from storage.
func Validate(b *Structure) error {
	idx := b.index()
	if len(idx) != len(b.Nodes) {
		return fmt.Errorf("%w: duplicate match ids", ErrInconsistentState)
	}

	for i := range b.Nodes {
		n := &b.Nodes[i]
		if n.Winner != nil && !n.HasTeam(*n.Winner) {
			return fmt.Errorf("%w: winner of match %s is not one of its teams", ErrInconsistentState, n.ID)
		}
		if n.Status == MatchCompleted && n.Winner == nil {
			return fmt.Errorf("%w: completed match %s has no winner", ErrInconsistentState, n.ID)
		}

		for _, to := range []*uuid.UUID{n.NextMatchID, n.LoserNextMatchID} {
			if to == nil {
				continue
			}
			j, ok := idx[*to]
			if !ok {
				return fmt.Errorf("%w: match %s links to unknown match %s", ErrInconsistentState, n.ID, *to)
			}
			target := &b.Nodes[j]
			// Links into the grand final come from a different tree and are not comparable by round
			if target.BracketType == n.BracketType && target.Round <= n.Round {
				return fmt.Errorf("%w: match %s links backwards to round %d", ErrInconsistentState, n.ID, target.Round)
			}
		}
	}
	return nil
}
