package models

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventBracketGenerated    EventType = "bracket_generated"
	EventMatchCompleted      EventType = "match_completed"
	EventDisputeOpened       EventType = "dispute_opened"
	EventDisputeResolved     EventType = "dispute_resolved"
	EventTournamentConcluded EventType = "tournament_concluded"
	EventTournamentCancelled EventType = "tournament_cancelled"
)

// EventPayload is implemented by one typed struct per known event kind.
// GenericPayload carries unknown kinds forward without losing fields.
type EventPayload interface {
	EventType() EventType
}

// Event is the envelope emitted to the analytics sink and the live
// update hub after a core transaction commits.
type Event struct {
	ID           string       `json:"id"`
	Type         EventType    `json:"type"`
	TournamentID int          `json:"tournament_id"`
	MatchID      *int         `json:"match_id,omitempty"`
	OccurredAt   time.Time    `json:"timestamp"`
	Payload      EventPayload `json:"payload"`
}

type BracketGeneratedPayload struct {
	BracketID int              `json:"bracket_id"`
	Format    TournamentFormat `json:"format"`
	Capacity  int              `json:"capacity"`
	Entrants  int              `json:"entrants"`
	Byes      int              `json:"byes"`
}

func (BracketGeneratedPayload) EventType() EventType { return EventBracketGenerated }

type MatchCompletedPayload struct {
	NodeID               int    `json:"node_id"`
	WinnerRegistrationID int    `json:"winner_registration_id"`
	Score1               *int   `json:"score1,omitempty"`
	Score2               *int   `json:"score2,omitempty"`
	Cause                string `json:"cause"` // reconciled, forfeit, bye, default_win, dispute
}

func (MatchCompletedPayload) EventType() EventType { return EventMatchCompleted }

type DisputeOpenedPayload struct {
	DisputeID int `json:"dispute_id"`
}

func (DisputeOpenedPayload) EventType() EventType { return EventDisputeOpened }

type DisputeResolvedPayload struct {
	DisputeID            int    `json:"dispute_id"`
	WinnerRegistrationID int    `json:"winner_registration_id"`
	ResolvedBy           int    `json:"resolved_by"`
	Rationale            string `json:"rationale"`
}

func (DisputeResolvedPayload) EventType() EventType { return EventDisputeResolved }

type TournamentConcludedPayload struct {
	Standings []Standing `json:"standings"`
}

func (TournamentConcludedPayload) EventType() EventType { return EventTournamentConcluded }

type TournamentCancelledPayload struct {
	Reason           string `json:"reason"`
	CancelledMatches int    `json:"cancelled_matches"`
	VoidedDisputes   int    `json:"voided_disputes"`
}

func (TournamentCancelledPayload) EventType() EventType { return EventTournamentCancelled }

// GenericPayload is the forward-compatibility fallback for event kinds
// this build does not know.
type GenericPayload struct {
	Kind   EventType                  `json:"kind"`
	Fields map[string]json.RawMessage `json:"fields,omitempty"`
}

func (p GenericPayload) EventType() EventType { return p.Kind }
