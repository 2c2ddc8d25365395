package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBracketSize(t *testing.T) {
	testCases := []struct {
		entrants int
		expected int
	}{
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{8, 8},
		{9, 16},
		{16, 16},
		{17, 32},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, BracketSize(tc.entrants), "entrants=%d", tc.entrants)
	}
}

func TestRoundCount(t *testing.T) {
	assert.Equal(t, 1, RoundCount(2))
	assert.Equal(t, 2, RoundCount(4))
	assert.Equal(t, 3, RoundCount(8))
	assert.Equal(t, 4, RoundCount(16))
}

func TestSeedOrder(t *testing.T) {
	testCases := []struct {
		name     string
		size     int
		expected []int
	}{
		{"size 2", 2, []int{1, 2}},
		{"size 4", 4, []int{1, 4, 2, 3}},
		{"size 8", 8, []int{1, 8, 4, 5, 2, 7, 3, 6}},
		{"size 16", 16, []int{1, 16, 8, 9, 4, 13, 5, 12, 2, 15, 7, 10, 3, 14, 6, 11}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SeedOrder(tc.size))
		})
	}
}

// Every seed pair must sum to size+1, so each first-round pairing is a
// seed and its mirror.
func TestSeedPairsMirror(t *testing.T) {
	for _, size := range []int{2, 4, 8, 16, 32, 64} {
		pairs := SeedPairs(size)
		assert.Len(t, pairs, size/2)
		for _, pair := range pairs {
			assert.Equal(t, size+1, pair[0]+pair[1], "size=%d pair=%v", size, pair)
		}
	}
}

func TestSeedOrderContainsEverySeedOnce(t *testing.T) {
	for _, size := range []int{2, 4, 8, 16, 32} {
		order := SeedOrder(size)
		seen := make(map[int]bool, size)
		for _, s := range order {
			assert.False(t, seen[s], "seed %d appears twice for size %d", s, size)
			seen[s] = true
			assert.GreaterOrEqual(t, s, 1)
			assert.LessOrEqual(t, s, size)
		}
		assert.Len(t, seen, size)
	}
}
