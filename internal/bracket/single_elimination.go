package bracket

import "github.com/AdamBeresnev/esports-bracket/internal/utils"

func (e *Engine) buildSingleElimination(b *Structure, slots []*string) {
	rounds := e.buildWinnerBracket(b, slots, GrandFinal)
	b.Metadata.TotalRounds = len(rounds)
}

// buildWinnerBracket creates every round of the main tree and links node 2k and 2k+1 of a round
// to node k of the next one. The last round is tagged lastRound.
//
// Returns node indexes per round, rounds[0] being round 1.
func (e *Engine) buildWinnerBracket(b *Structure, slots []*string, lastRound BracketType) [][]int {
	bracketSize := len(slots)
	totalRounds := roundsFor(bracketSize)

	rounds := make([][]int, 0, totalRounds)
	for r := 1; r <= totalRounds; r++ {
		bracketType := WinnerBracket
		if r == totalRounds {
			bracketType = lastRound
		}
		rounds = append(rounds, e.addRound(b, bracketType, r, bracketSize>>r))
	}

	for p, i := range rounds[0] {
		b.Nodes[i].Team1 = utils.Clone(slots[2*p])
		b.Nodes[i].Team2 = utils.Clone(slots[2*p+1])
	}

	for r := 0; r < totalRounds-1; r++ {
		for p, i := range rounds[r] {
			link(b, i, rounds[r+1][p/2])
		}
	}

	return rounds
}
