package models

import "time"

// TournamentTransition is one row of the append-only status audit log.
// TriggeredBy names the actor: "organizer:<id>", "scheduler", or
// "engine" for transitions raised by match completion.
type TournamentTransition struct {
	ID           int              `json:"id" db:"id"`
	TournamentID int              `json:"tournament_id" db:"tournament_id"`
	FromStatus   TournamentStatus `json:"from_status" db:"from_status"`
	ToStatus     TournamentStatus `json:"to_status" db:"to_status"`
	TriggeredBy  string           `json:"triggered_by" db:"triggered_by"`
	Reason       *string          `json:"reason,omitempty" db:"reason"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}
