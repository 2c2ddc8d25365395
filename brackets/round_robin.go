package brackets

import (
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() string { return "RoundRobin" }

// Generate pairs every entrant against every other entrant once, using
// the circle method to spread a participant's matches across rounds.
// Round robin nodes have no parents: there is no winner propagation,
// the tournament concludes when the last match completes.
func (g *RoundRobinGenerator) Generate(entrants int) (*Plan, error) {
	if entrants < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughEntrants, entrants)
	}

	// The circle method needs an even count; a phantom seed sits out
	// each round when the field is odd.
	field := entrants
	if field%2 == 1 {
		field++
	}
	rounds := field - 1

	plan := &Plan{
		Format:   models.FormatRoundRobin,
		Entrants: entrants,
		Capacity: entrants,
		Rounds:   rounds,
	}

	// Seed 1 stays fixed; the rest rotate around the circle.
	ring := make([]int, field)
	for i := range ring {
		ring[i] = i + 1
	}

	for r := 1; r <= rounds; r++ {
		position := 0
		for i := 0; i < field/2; i++ {
			s1, s2 := ring[i], ring[field-1-i]
			if s1 > entrants || s2 > entrants {
				continue // phantom seed: this entrant rests
			}
			position++
			plan.Nodes = append(plan.Nodes, &NodePlan{
				Key:       fmt.Sprintf("RR-R%dM%d", r, position),
				Side:      models.SideWinners,
				Round:     r,
				Position:  position,
				Slot1Seed: s1,
				Slot2Seed: s2,
			})
		}
		// Rotate all but the first seed.
		last := ring[field-1]
		copy(ring[2:], ring[1:field-1])
		ring[1] = last
	}

	return plan, nil
}
