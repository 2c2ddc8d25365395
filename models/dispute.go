package models

import "time"

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
	// DisputeVoided marks disputes discarded by tournament cancellation.
	DisputeVoided DisputeStatus = "voided"
)

// Dispute records conflicting result claims for one match. At most one
// open dispute exists per match; resolution is terminal.
type Dispute struct {
	ID       int           `json:"id" db:"id"`
	MatchID  int           `json:"match_id" db:"match_id"`
	Status   DisputeStatus `json:"status" db:"status"`
	OpenedAt time.Time     `json:"opened_at" db:"opened_at"`

	// Resolution fields, nil until resolved.
	WinnerRegistrationID *int       `json:"winner_registration_id,omitempty" db:"winner_registration_id"`
	Score1               *int       `json:"score1,omitempty" db:"score1"`
	Score2               *int       `json:"score2,omitempty" db:"score2"`
	Rationale            *string    `json:"rationale,omitempty" db:"rationale"`
	ResolvedBy           *int       `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt           *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// DisputeDecision is the organizer's terminal verdict on a dispute.
type DisputeDecision struct {
	WinnerRegistrationID int    `json:"winner_registration_id"`
	Score1               int    `json:"score1"`
	Score2               int    `json:"score2"`
	Rationale            string `json:"rationale"`
}
