package brackets

import "math"

// BracketSize rounds an entrant count up to the nearest power of two.
func BracketSize(entrants int) int {
	if entrants <= 1 {
		return entrants
	}
	return 1 << uint(math.Ceil(math.Log2(float64(entrants))))
}

// RoundCount is the depth of an elimination tree over size leaves.
func RoundCount(size int) int {
	if size <= 1 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(size))))
}

// SeedOrder returns the seed occupying each leaf slot of a bracket of
// the given power-of-two size, using the standard recursive halving
// placement: the list doubles by pairing each seed s with its mirror
// 2n+1-s, so seeds 1 and 2 land in opposite halves, seeds 3 and 4 in
// opposite quarters, and so on. Seed 1 and seed 2 can only meet at the
// root; seed 1 and seeds {3,4} no earlier than the semifinal.
func SeedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		next := make([]int, 0, len(order)*2)
		mirror := len(order)*2 + 1
		for _, s := range order {
			next = append(next, s, mirror-s)
		}
		order = next
	}
	return order
}

// SeedPairs groups the seed order into first-round pairings.
func SeedPairs(size int) [][2]int {
	order := SeedOrder(size)
	pairs := make([][2]int, 0, size/2)
	for i := 0; i+1 < len(order); i += 2 {
		pairs = append(pairs, [2]int{order[i], order[i+1]})
	}
	return pairs
}
