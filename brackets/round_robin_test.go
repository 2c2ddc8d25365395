package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketforge/tournament-engine/models"
)

func TestRoundRobinGenerate(t *testing.T) {
	testCases := []struct {
		name           string
		entrants       int
		expectedRounds int
		expectedNodes  int
	}{
		{"two entrants", 2, 1, 1},
		{"three entrants", 3, 3, 3},
		{"four entrants", 4, 3, 6},
		{"five entrants", 5, 5, 10},
		{"six entrants", 6, 5, 15},
		{"eight entrants", 8, 7, 28},
	}

	gen := NewRoundRobinGenerator()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := gen.Generate(tc.entrants)
			require.NoError(t, err)

			assert.Equal(t, models.FormatRoundRobin, plan.Format)
			assert.Equal(t, tc.entrants, plan.Capacity)
			assert.Equal(t, tc.expectedRounds, plan.Rounds)
			assert.Len(t, plan.Nodes, tc.expectedNodes)
			assert.Zero(t, plan.ByeCount())
			assert.Nil(t, plan.Root())
		})
	}
}

func TestRoundRobinEveryPairMeetsOnce(t *testing.T) {
	gen := NewRoundRobinGenerator()
	for _, entrants := range []int{3, 5, 6, 9} {
		plan, err := gen.Generate(entrants)
		require.NoError(t, err)

		met := make(map[[2]int]bool)
		games := make(map[int]int)
		for _, n := range plan.Nodes {
			require.NotZero(t, n.Slot1Seed)
			require.NotZero(t, n.Slot2Seed)
			assert.Empty(t, n.ParentKey, "node %s", n.Key)

			lo, hi := n.Slot1Seed, n.Slot2Seed
			if lo > hi {
				lo, hi = hi, lo
			}
			pair := [2]int{lo, hi}
			assert.False(t, met[pair], "entrants=%d pair %v meets twice", entrants, pair)
			met[pair] = true
			games[n.Slot1Seed]++
			games[n.Slot2Seed]++
		}

		assert.Len(t, met, entrants*(entrants-1)/2, "entrants=%d", entrants)
		for seed := 1; seed <= entrants; seed++ {
			assert.Equal(t, entrants-1, games[seed], "entrants=%d seed=%d", entrants, seed)
		}
	}
}

func TestRoundRobinNoSeedPlaysTwicePerRound(t *testing.T) {
	gen := NewRoundRobinGenerator()
	plan, err := gen.Generate(7)
	require.NoError(t, err)

	perRound := make(map[int]map[int]bool)
	for _, n := range plan.Nodes {
		if perRound[n.Round] == nil {
			perRound[n.Round] = make(map[int]bool)
		}
		for _, seed := range []int{n.Slot1Seed, n.Slot2Seed} {
			assert.False(t, perRound[n.Round][seed], "seed %d plays twice in round %d", seed, n.Round)
			perRound[n.Round][seed] = true
		}
	}

	// Odd field: exactly one entrant rests each round.
	for round, seeds := range perRound {
		assert.Len(t, seeds, 6, "round %d", round)
	}
}

func TestForFormat(t *testing.T) {
	testCases := []struct {
		format       models.TournamentFormat
		expectedName string
	}{
		{models.FormatSingleElimination, "SingleElimination"},
		{models.FormatDoubleElimination, "DoubleElimination"},
		{models.FormatRoundRobin, "RoundRobin"},
	}
	for _, tc := range testCases {
		gen, err := ForFormat(tc.format)
		require.NoError(t, err)
		assert.Equal(t, tc.expectedName, gen.Name())
	}

	_, err := ForFormat(models.TournamentFormat("swiss"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
