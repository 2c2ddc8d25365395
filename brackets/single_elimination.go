package brackets

import (
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string { return "SingleElimination" }

// Generate lays out a complete winners tree sized to the next power of
// two. Leaf slots carry seed numbers in recursive-halving order; seeds
// beyond the entrant count are byes for the lowest seeds.
func (g *SingleEliminationGenerator) Generate(entrants int) (*Plan, error) {
	if entrants < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughEntrants, entrants)
	}

	capacity := BracketSize(entrants)
	rounds := RoundCount(capacity)

	plan := &Plan{
		Format:   models.FormatSingleElimination,
		Entrants: entrants,
		Capacity: capacity,
		Rounds:   rounds,
		Nodes:    make([]*NodePlan, 0, capacity-1),
	}

	order := SeedOrder(capacity)
	for r := 1; r <= rounds; r++ {
		matches := capacity >> uint(r)
		for m := 1; m <= matches; m++ {
			n := &NodePlan{
				Key:      winnersKey(r, m),
				Side:     models.SideWinners,
				Round:    r,
				Position: m,
			}
			if r < rounds {
				n.ParentKey = winnersKey(r+1, (m+1)/2)
				n.ParentSlot = slotForChild(m)
			}
			if r == 1 {
				n.Slot1Seed = order[2*(m-1)]
				n.Slot2Seed = order[2*m-1]
			}
			plan.Nodes = append(plan.Nodes, n)
		}
	}

	return plan, nil
}

func winnersKey(round, match int) string {
	return fmt.Sprintf("W-R%dM%d", round, match)
}

// slotForChild maps a child's position in its round to the parent slot
// its winner feeds: odd positions feed slot 1, even positions slot 2.
func slotForChild(position int) int {
	if position%2 == 1 {
		return 1
	}
	return 2
}
