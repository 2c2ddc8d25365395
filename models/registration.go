package models

import "time"

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// ParticipantKind distinguishes the two mutually exclusive participant
// references a registration can carry.
type ParticipantKind string

const (
	ParticipantUser ParticipantKind = "user"
	ParticipantTeam ParticipantKind = "team"
)

// ParticipantRef is the resolved user-or-team reference behind a
// registration. Exactly one of the two ids is meaningful.
type ParticipantRef struct {
	Kind   ParticipantKind `json:"kind"`
	UserID *int            `json:"user_id,omitempty"`
	TeamID *int            `json:"team_id,omitempty"`
}

// Registration is one entrant in one tournament. Seed stays nil until
// the bracket is built.
type Registration struct {
	ID           int                `json:"id" db:"id"`
	TournamentID int                `json:"tournament_id" db:"tournament_id"`
	UserID       *int               `json:"user_id,omitempty" db:"user_id"`
	TeamID       *int               `json:"team_id,omitempty" db:"team_id"`
	Status       RegistrationStatus `json:"status" db:"status"`
	Seed         *int               `json:"seed,omitempty" db:"seed"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
}

func (r *Registration) Ref() ParticipantRef {
	if r.TeamID != nil {
		return ParticipantRef{Kind: ParticipantTeam, TeamID: r.TeamID}
	}
	return ParticipantRef{Kind: ParticipantUser, UserID: r.UserID}
}
