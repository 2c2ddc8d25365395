package models

// Standing is one row of the final placement table, in the shape the
// certificate collaborator consumes.
type Standing struct {
	TournamentID   int            `json:"tournament_id"`
	Placement      int            `json:"placement"`
	RegistrationID int            `json:"registration_id"`
	Recipient      ParticipantRef `json:"recipient_ref"`
}
