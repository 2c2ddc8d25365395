package models

import "time"

// BracketSide places a node in the winners tree, the losers tree, or
// the grand final. Single elimination and round robin only use the
// winners side.
type BracketSide string

const (
	SideWinners    BracketSide = "winners"
	SideLosers     BracketSide = "losers"
	SideGrandFinal BracketSide = "grand_final"
)

// Bracket is the one-per-tournament progression structure. Capacity is
// the smallest power of two covering the confirmed entrant count.
// DropMapVersion records which loser drop-in mapping was used for
// double elimination; nil for other formats.
type Bracket struct {
	ID             int              `json:"id" db:"id"`
	TournamentID   int              `json:"tournament_id" db:"tournament_id"`
	Format         TournamentFormat `json:"format" db:"format"`
	Capacity       int              `json:"capacity" db:"capacity"`
	DropMapVersion *int             `json:"drop_map_version,omitempty" db:"drop_map_version"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

// BracketNode is one slot of the persisted progression tree. Nodes
// reference each other by id, never by pointer: the tree is shared
// mutable state and lives in the database.
//
// ParentID/ParentSlot say where this node's winner goes. LoserNodeID/
// LoserSlot do the same for the loser in double elimination. Slot
// participants stay nil until fed by a seeded registration, a bye, or
// a child's winner.
type BracketNode struct {
	ID        int         `json:"id" db:"id"`
	BracketID int         `json:"bracket_id" db:"bracket_id"`
	Side      BracketSide `json:"side" db:"side"`
	Round     int         `json:"round" db:"round"`
	Position  int         `json:"position" db:"position"`

	ParentID   *int `json:"parent_id,omitempty" db:"parent_id"`
	ParentSlot *int `json:"parent_slot,omitempty" db:"parent_slot"`
	LoserNodeID *int `json:"loser_node_id,omitempty" db:"loser_node_id"`
	LoserSlot   *int `json:"loser_slot,omitempty" db:"loser_slot"`

	Slot1RegistrationID  *int `json:"slot1_registration_id,omitempty" db:"slot1_registration_id"`
	Slot2RegistrationID  *int `json:"slot2_registration_id,omitempty" db:"slot2_registration_id"`
	WinnerRegistrationID *int `json:"winner_registration_id,omitempty" db:"winner_registration_id"`

	// A vacant slot will never receive a participant: it was a bye seed
	// or its feeder completed without producing a loser. A node with one
	// occupied and one vacant slot bye-completes.
	Slot1Vacant bool `json:"slot1_vacant,omitempty" db:"slot1_vacant"`
	Slot2Vacant bool `json:"slot2_vacant,omitempty" db:"slot2_vacant"`
}

// SlotSettled reports whether the given slot needs no further input:
// either occupied or permanently vacant.
func (n *BracketNode) SlotSettled(slot int) bool {
	if slot == 1 {
		return n.Slot1RegistrationID != nil || n.Slot1Vacant
	}
	return n.Slot2RegistrationID != nil || n.Slot2Vacant
}

// BothSlotsFilled reports whether the node is ready to have a playable
// match instantiated.
func (n *BracketNode) BothSlotsFilled() bool {
	return n.Slot1RegistrationID != nil && n.Slot2RegistrationID != nil
}
