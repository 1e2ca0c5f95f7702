package bracket

import (
	"math/bits"
	"math/rand/v2"
)

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func NextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// roundsFor returns log2 of a power of two bracket size.
func roundsFor(bracketSize int) int {
	return bits.TrailingZeros(uint(bracketSize))
}

// SeedTeams orders the teams before they are slotted. The input is never modified.
//
// Ranked keeps the given order too: for ranked brackets the order is the ranking and the
// slotting step spreads it with standardSeedPairs.
func SeedTeams(teams []string, mode SeedingMode) []string {
	seeded := make([]string, len(teams))
	copy(seeded, teams)

	if mode == SeedRandom {
		rand.Shuffle(len(seeded), func(i, j int) {
			seeded[i], seeded[j] = seeded[j], seeded[i]
		})
	}
	return seeded
}

// standardSeedPairs returns round 1 seed index pairs so the top seeds meet as late as possible.
// For 8 slots: {0,7} {3,4} {1,6} {2,5}.
func standardSeedPairs(bracketSize int) [][2]int {
	if bracketSize < 2 {
		return [][2]int{}
	}

	order := []int{0}
	for len(order) < bracketSize {
		next := make([]int, 0, len(order)*2)
		count := len(order) * 2

		for _, seed := range order {
			next = append(next, seed, (count-1)-seed)
		}
		order = next
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(order); i += 2 {
		pairs = append(pairs, [2]int{order[i], order[i+1]})
	}
	return pairs
}

// slotTeams lays the seeded teams over the bracket slots. Slot 2i and 2i+1 meet in round 1
// match i. Empty slots are nil.
func slotTeams(teams []string, bracketSize int, mode SeedingMode) []*string {
	slots := make([]*string, bracketSize)

	if mode == SeedRanked {
		for i, pair := range standardSeedPairs(bracketSize) {
			for side, seed := range pair {
				if seed < len(teams) {
					slots[2*i+side] = &teams[seed]
				}
			}
		}
		return slots
	}

	for i := range teams {
		slots[i] = &teams[i]
	}
	return slots
}
