package brackets

import (
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
)

// DropMapVersion identifies the loser drop-in mapping baked into this
// generator. Bump it whenever the routing below changes so persisted
// brackets stay interpretable.
const DropMapVersion = 1

// Mapping version 1:
//   - losers of winners round 1 fill losers round 1 in pair order
//     (WB R1 M(2i-1) to slot 1, WB R1 M(2i) to slot 2 of LB R1 Mi);
//   - the loser of winners round r >= 2 match m drops into the
//     winners-fed slot of losers round 2(r-1); on even winners rounds
//     the drop order is reversed (match c+1-m of c) to delay rematches
//     between players who already met in the winners bracket.
type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() Generator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) Name() string { return "DoubleElimination" }

func (g *DoubleEliminationGenerator) Generate(entrants int) (*Plan, error) {
	if entrants < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrNotEnoughEntrants, entrants)
	}

	capacity := BracketSize(entrants)
	wbRounds := RoundCount(capacity)

	plan := &Plan{
		Format:         models.FormatDoubleElimination,
		Entrants:       entrants,
		Capacity:       capacity,
		Rounds:         wbRounds,
		DropMapVersion: DropMapVersion,
	}

	const gfKey = "GF"

	// Winners tree, identical shape to single elimination except the
	// final's winner feeds the grand final instead of ending the run.
	order := SeedOrder(capacity)
	for r := 1; r <= wbRounds; r++ {
		matches := capacity >> uint(r)
		for m := 1; m <= matches; m++ {
			n := &NodePlan{
				Key:      winnersKey(r, m),
				Side:     models.SideWinners,
				Round:    r,
				Position: m,
			}
			if r < wbRounds {
				n.ParentKey = winnersKey(r+1, (m+1)/2)
				n.ParentSlot = slotForChild(m)
			} else {
				n.ParentKey = gfKey
				n.ParentSlot = 1
			}
			if r == 1 {
				n.Slot1Seed = order[2*(m-1)]
				n.Slot2Seed = order[2*m-1]
			}
			n.LoserKey, n.LoserSlot = dropTarget(capacity, r, m)
			plan.Nodes = append(plan.Nodes, n)
		}
	}

	// Losers tree. Rounds alternate: odd rounds pair losers-bracket
	// survivors, even rounds pit a survivor against a fresh winners
	// dropper. Capacity 2 has no losers tree at all; the single
	// winners match feeds both grand final slots.
	if capacity >= 4 {
		lbRounds := 2 * (wbRounds - 1)
		for l := 1; l <= lbRounds; l++ {
			matches := lbMatchCount(capacity, l)
			for m := 1; m <= matches; m++ {
				n := &NodePlan{
					Key:      losersKey(l, m),
					Side:     models.SideLosers,
					Round:    l,
					Position: m,
				}
				switch {
				case l == lbRounds:
					n.ParentKey = gfKey
					n.ParentSlot = 2
				case l%2 == 1:
					// Odd rounds feed the winners-fed slot 2 of the
					// next even round at the same index.
					n.ParentKey = losersKey(l+1, m)
					n.ParentSlot = 2
				default:
					n.ParentKey = losersKey(l+1, (m+1)/2)
					n.ParentSlot = slotForChild(m)
				}
				plan.Nodes = append(plan.Nodes, n)
			}
		}
	}

	plan.Nodes = append(plan.Nodes, &NodePlan{
		Key:      gfKey,
		Side:     models.SideGrandFinal,
		Round:    wbRounds + 1,
		Position: 1,
	})

	return plan, nil
}

// dropTarget resolves where the loser of winners round r match m goes.
func dropTarget(capacity, r, m int) (key string, slot int) {
	if capacity == 2 {
		// Degenerate bracket: the loser's second life is the grand
		// final itself.
		return "GF", 2
	}
	if r == 1 {
		if m%2 == 1 {
			return losersKey(1, (m+1)/2), 1
		}
		return losersKey(1, m/2), 2
	}
	targetRound := 2 * (r - 1)
	count := lbMatchCount(capacity, targetRound)
	target := m
	if r%2 == 0 {
		target = count + 1 - m
	}
	return losersKey(targetRound, target), 1
}

// lbMatchCount is the match count of losers round l: rounds 2j-1 and
// 2j both hold capacity/2^(j+1) matches.
func lbMatchCount(capacity, l int) int {
	j := (l + 1) / 2
	return capacity >> uint(j+1)
}

func losersKey(round, match int) string {
	return fmt.Sprintf("L-R%dM%d", round, match)
}
