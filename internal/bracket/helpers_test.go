package bracket

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() (*Engine, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(testStart)
	return NewEngine(clock), clock
}

func teamNames(n int) []string {
	teams := make([]string, n)
	for i := range teams {
		teams[i] = fmt.Sprintf("T%d", i+1)
	}
	return teams
}

func singleSettings() Settings {
	return Settings{Type: SingleElimination, Seeding: SeedManual}
}

func doubleSettings(reset bool) Settings {
	return Settings{Type: DoubleElimination, Seeding: SeedManual, GrandFinalReset: reset}
}

func roundNodes(b *Structure, bracketType BracketType, round int) []Node {
	var nodes []Node
	for _, n := range b.Nodes {
		if n.BracketType == bracketType && n.Round == round {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Position < nodes[j].Position })
	return nodes
}

func findAt(t *testing.T, b *Structure, bracketType BracketType, round, position int) Node {
	t.Helper()
	for _, n := range b.Nodes {
		if n.BracketType == bracketType && n.Round == round && n.Position == position {
			return n
		}
	}
	t.Fatalf("no %s match at round %d position %d", bracketType, round, position)
	return Node{}
}

func countByType(b *Structure) map[BracketType]int {
	counts := make(map[BracketType]int)
	for _, n := range b.Nodes {
		counts[n.BracketType]++
	}
	return counts
}

func team1Wins(n Node) string {
	return *n.Team1
}

// playOut reports results for ready matches until there are none left.
func playOut(t *testing.T, e *Engine, b *Structure, pick func(Node) string) *Structure {
	t.Helper()
	for i := 0; i <= len(b.Nodes); i++ {
		ready := ReadyMatches(b)
		if len(ready) == 0 {
			return b
		}
		next, err := e.Advance(b, Result{MatchID: ready[0].ID, Winner: pick(ready[0])})
		require.NoError(t, err)
		b = next
	}
	t.Fatal("bracket still has ready matches after every node was played")
	return nil
}

// losses counts the played matches each team lost.
func losses(b *Structure) map[string]int {
	lost := make(map[string]int)
	for i := range b.Nodes {
		if loser := b.Nodes[i].Loser(); loser != nil {
			lost[*loser]++
		}
	}
	return lost
}
