package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextPowerOfTwo(t *testing.T) {
	for n := 2; n <= 256; n++ {
		p := NextPowerOfTwo(n)
		assert.GreaterOrEqual(t, p, n)
		assert.Zero(t, p&(p-1), "%d is not a power of two", p)
		assert.Less(t, p/2, n, "%d is not the smallest power of two for %d", p, n)
	}

	testCases := map[int]int{2: 2, 3: 4, 5: 8, 8: 8, 9: 16, 129: 256, 256: 256}
	for n, expected := range testCases {
		assert.Equal(t, expected, NextPowerOfTwo(n), "n=%d", n)
	}
}

func TestSeedTeams(t *testing.T) {
	teams := teamNames(8)
	original := append([]string(nil), teams...)

	assert.Equal(t, teams, SeedTeams(teams, SeedManual))
	assert.Equal(t, teams, SeedTeams(teams, SeedRanked))

	shuffled := SeedTeams(teams, SeedRandom)
	assert.ElementsMatch(t, teams, shuffled)
	assert.Equal(t, original, teams, "input must not be reordered")
}

func TestStandardSeedPairs(t *testing.T) {
	testCases := []struct {
		name        string
		bracketSize int
		expected    [][2]int
	}{
		{
			name:        "2 slots",
			bracketSize: 2,
			expected:    [][2]int{{0, 1}},
		},
		{
			name:        "4 slots",
			bracketSize: 4,
			expected:    [][2]int{{0, 3}, {1, 2}},
		},
		{
			name:        "8 slots",
			bracketSize: 8,
			expected:    [][2]int{{0, 7}, {3, 4}, {1, 6}, {2, 5}},
		},
		{
			name:        "no slots",
			bracketSize: 0,
			expected:    [][2]int{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, standardSeedPairs(tc.bracketSize))
		})
	}
}

func TestSlotTeams(t *testing.T) {
	teams := teamNames(5)

	t.Run("manual fills slots in order", func(t *testing.T) {
		slots := slotTeams(teams, 8, SeedManual)
		for i := 0; i < 5; i++ {
			assert.Equal(t, teams[i], *slots[i])
		}
		for i := 5; i < 8; i++ {
			assert.Nil(t, slots[i])
		}
	})

	t.Run("ranked gives the top seeds the byes", func(t *testing.T) {
		slots := slotTeams(teams, 8, SeedRanked)
		expected := []string{"T1", "", "T4", "T5", "T2", "", "T3", ""}
		for i, name := range expected {
			if name == "" {
				assert.Nil(t, slots[i], "slot %d", i)
				continue
			}
			if assert.NotNil(t, slots[i], "slot %d", i) {
				assert.Equal(t, name, *slots[i])
			}
		}
	})
}
