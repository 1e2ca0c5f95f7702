package bracket

// buildDoubleElimination lays out the winner bracket, the loser bracket and the grand final(s)
// in one node list.
//
// For a bracket of size N = 2^k the loser bracket has 2(k-1) rounds. Round r has
// N / 2^(ceil(r/2)+1) matches, so rounds come in pairs of equal size: the odd round of a pair
// plays loser bracket survivors (round 1: the winner bracket round 1 losers) and the even round
// lets the losers of winner bracket round r/2+1 drop in against those survivors.
func (e *Engine) buildDoubleElimination(b *Structure, slots []*string, grandFinalReset bool) {
	bracketSize := len(slots)

	wb := e.buildWinnerBracket(b, slots, WinnerBracket)
	winnerRounds := len(wb)

	loserRounds := 2 * (winnerRounds - 1)
	lb := make([][]int, 0, loserRounds)
	for r := 1; r <= loserRounds; r++ {
		lb = append(lb, e.addRound(b, LoserBracket, r, bracketSize>>((r+1)/2+1)))
	}

	grandFinal := e.addRound(b, GrandFinal, winnerRounds+1, 1)[0]

	// Winner bracket losers drop down
	if loserRounds == 0 {
		// Two teams: the loser of the only match gets their second life in the grand final
		linkLoser(b, wb[0][0], grandFinal)
	} else {
		for j, i := range wb[0] {
			linkLoser(b, i, lb[0][j/2])
		}
	}
	for m := 1; m < winnerRounds; m++ {
		target := lb[2*m-1]
		// Reversed so teams don't immediately meet someone from their own side of the tree
		for j, i := range wb[m] {
			linkLoser(b, i, target[len(target)-1-j])
		}
	}

	for r := 1; r <= loserRounds; r++ {
		current := lb[r-1]
		if r == loserRounds {
			link(b, current[0], grandFinal)
			continue
		}
		next := lb[r]
		for p, i := range current {
			if r%2 == 1 {
				link(b, i, next[p])
			} else {
				link(b, i, next[p/2])
			}
		}
	}

	link(b, wb[winnerRounds-1][0], grandFinal)

	b.Metadata.TotalRounds = winnerRounds + 1
	if grandFinalReset {
		reset := e.addRound(b, GrandFinal, winnerRounds+2, 1)[0]
		link(b, grandFinal, reset)
		linkLoser(b, grandFinal, reset)
		b.Metadata.TotalRounds++
	}
}
