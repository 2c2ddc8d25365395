package brackets

import (
	"errors"
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
)

var (
	ErrNotEnoughEntrants = errors.New("not enough entrants to generate a bracket (minimum 2)")
	ErrUnsupportedFormat = errors.New("unsupported bracket format")
)

// NodePlan is one node of a generated bracket, addressed by a
// format-local key until the persistence layer assigns database ids.
//
// Slot seeds are 1-based positions into the ordered entrant list; a
// seed greater than the entrant count is a bye. Seed 0 means the slot
// is fed by another node's winner or loser.
type NodePlan struct {
	Key      string
	Side     models.BracketSide
	Round    int
	Position int

	// ParentKey/ParentSlot route this node's winner. Empty ParentKey
	// marks the root.
	ParentKey  string
	ParentSlot int

	// LoserKey/LoserSlot route this node's loser (double elimination).
	LoserKey  string
	LoserSlot int

	Slot1Seed int
	Slot2Seed int
}

// Plan is a complete generated bracket, ready to persist.
type Plan struct {
	Format   models.TournamentFormat
	Entrants int
	Capacity int
	Rounds   int

	// DropMapVersion identifies the loser drop-in mapping used; zero
	// for formats without a losers bracket.
	DropMapVersion int

	Nodes []*NodePlan
}

// Root returns the node whose winner decides the tournament. Round
// robin has no such node.
func (p *Plan) Root() *NodePlan {
	if p.Format == models.FormatRoundRobin {
		return nil
	}
	for _, n := range p.Nodes {
		if n.ParentKey == "" {
			return n
		}
	}
	return nil
}

// ByeCount is the number of unfilled leaf slots.
func (p *Plan) ByeCount() int {
	if p.Format == models.FormatRoundRobin {
		return 0
	}
	return p.Capacity - p.Entrants
}

// Generator produces a bracket plan for a given entrant count. The
// entrant list itself is resolved by the caller; generators only deal
// in seed numbers.
type Generator interface {
	Generate(entrants int) (*Plan, error)
	Name() string
}

// ForFormat returns the generator for a tournament format.
func ForFormat(format models.TournamentFormat) (Generator, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.FormatDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
