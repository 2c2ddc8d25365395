package models

import "time"

// TournamentStatus enumerates the lifecycle phases stored in
// tournaments.status, constrained by a CHECK in the schema.
type TournamentStatus string

const (
	StatusDraft              TournamentStatus = "draft"
	StatusPublished          TournamentStatus = "published"
	StatusRegistrationOpen   TournamentStatus = "registration_open"
	StatusRegistrationClosed TournamentStatus = "registration_closed"
	StatusCheckIn            TournamentStatus = "check_in"
	StatusLive               TournamentStatus = "live"
	StatusCompleted          TournamentStatus = "completed"
	StatusConcluded          TournamentStatus = "concluded"
	StatusArchived           TournamentStatus = "archived"
	StatusCancelled          TournamentStatus = "cancelled"
)

// IsTerminal reports whether no further transition out of s is allowed.
func (s TournamentStatus) IsTerminal() bool {
	return s == StatusArchived || s == StatusCancelled
}

type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatSingleElimination, FormatDoubleElimination, FormatRoundRobin:
		return true
	}
	return false
}

type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description *string          `json:"description,omitempty" db:"description"`
	OrganizerID int              `json:"organizer_id" db:"organizer_id"`
	Format      TournamentFormat `json:"format" db:"format"`
	Status      TournamentStatus `json:"status" db:"status"`
	RegOpensAt  time.Time        `json:"reg_opens_at" db:"reg_opens_at"`
	RegClosesAt time.Time        `json:"reg_closes_at" db:"reg_closes_at"`
	StartsAt    time.Time        `json:"starts_at" db:"starts_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}
