package services

import (
	"errors"
	"fmt"
)

// The four error families every core operation reports through. All
// specific errors below wrap one of these, so callers can match either
// the family or the exact case with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("operation not allowed in the current state")
	ErrNotFound     = errors.New("requested resource not found")
)

// Validation
var (
	ErrNotEnoughEntrants      = fmt.Errorf("%w: at least 2 confirmed registrations are required", ErrValidation)
	ErrUnsupportedFormat      = fmt.Errorf("%w: unsupported tournament format", ErrValidation)
	ErrInvalidSide            = fmt.Errorf("%w: side must be 1 or 2", ErrValidation)
	ErrNotMatchParticipant    = fmt.Errorf("%w: submitter is not a participant of this match", ErrValidation)
	ErrWinnerNotInMatch       = fmt.Errorf("%w: claimed winner is not a participant of this match", ErrValidation)
	ErrInvalidCredentials     = fmt.Errorf("%w: invalid email or password", ErrValidation)
	ErrTournamentDatesInvalid = fmt.Errorf("%w: registration window must precede the scheduled start", ErrValidation)
)

// Conflicts
var (
	ErrBracketAlreadyBuilt = fmt.Errorf("%w: bracket already exists for this tournament", ErrConflict)
	ErrStaleMatchState     = fmt.Errorf("%w: match state changed concurrently", ErrConflict)
	ErrDuplicateDispute    = fmt.Errorf("%w: an open dispute already exists for this match", ErrConflict)
)

// State
var (
	ErrTournamentNotActionable = fmt.Errorf("%w: tournament does not allow this operation", ErrInvalidState)
	ErrInvalidStatusTransition = fmt.Errorf("%w: invalid tournament status transition", ErrInvalidState)
	ErrMatchNotActionable      = fmt.Errorf("%w: match does not allow this operation", ErrInvalidState)
	ErrDisputeAlreadyResolved  = fmt.Errorf("%w: dispute is already resolved", ErrInvalidState)
	ErrMatchNotDisputed        = fmt.Errorf("%w: match is not currently disputed", ErrInvalidState)
)

// Not found
var (
	ErrTournamentNotFound = fmt.Errorf("%w: tournament", ErrNotFound)
	ErrBracketNotFound    = fmt.Errorf("%w: bracket", ErrNotFound)
	ErrMatchNotFound      = fmt.Errorf("%w: match", ErrNotFound)
	ErrDisputeNotFound    = fmt.Errorf("%w: dispute", ErrNotFound)
	ErrOrganizerNotFound  = fmt.Errorf("%w: organizer", ErrNotFound)
)
