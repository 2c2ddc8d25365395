package models

import "time"

// Organizer is the only authenticated actor the engine knows about.
// Player identity lives with the registration collaborator.
type Organizer struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
