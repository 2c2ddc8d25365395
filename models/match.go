package models

import "time"

type MatchStatus string

const (
	MatchScheduled     MatchStatus = "scheduled"
	MatchCheckIn       MatchStatus = "check_in"
	MatchReady         MatchStatus = "ready"
	MatchLive          MatchStatus = "live"
	MatchPendingResult MatchStatus = "pending_result"
	MatchCompleted     MatchStatus = "completed"
	MatchDisputed      MatchStatus = "disputed"
	MatchCancelled     MatchStatus = "cancelled"
)

func (s MatchStatus) IsTerminal() bool {
	return s == MatchCompleted || s == MatchCancelled
}

// MatchSide identifies one of the two slots of a match.
type MatchSide int

const (
	Side1 MatchSide = 1
	Side2 MatchSide = 2
)

func (s MatchSide) Valid() bool { return s == Side1 || s == Side2 }

func (s MatchSide) Opponent() MatchSide {
	if s == Side1 {
		return Side2
	}
	return Side1
}

// Match is the playable unit attached one-to-one to a bracket node.
// P2RegistrationID is nil for a bye. Matches for interior nodes are
// created lazily, once both child winners are known.
type Match struct {
	ID           int  `json:"id" db:"id"`
	TournamentID int  `json:"tournament_id" db:"tournament_id"`
	NodeID       int  `json:"node_id" db:"node_id"`
	Round        int  `json:"round" db:"round"`

	P1RegistrationID *int `json:"p1_registration_id,omitempty" db:"p1_registration_id"`
	P2RegistrationID *int `json:"p2_registration_id,omitempty" db:"p2_registration_id"`

	Status               MatchStatus `json:"status" db:"status"`
	WinnerRegistrationID *int        `json:"winner_registration_id,omitempty" db:"winner_registration_id"`
	Score1               *int        `json:"score1,omitempty" db:"score1"`
	Score2               *int        `json:"score2,omitempty" db:"score2"`

	ScheduledAt     time.Time  `json:"scheduled_at" db:"scheduled_at"`
	CheckInOpensAt  *time.Time `json:"check_in_opens_at,omitempty" db:"check_in_opens_at"`
	CheckInDeadline *time.Time `json:"check_in_deadline,omitempty" db:"check_in_deadline"`
	P1CheckedIn     bool       `json:"p1_checked_in" db:"p1_checked_in"`
	P2CheckedIn     bool       `json:"p2_checked_in" db:"p2_checked_in"`

	// FirstResultAt starts the clock for the unchallenged-claim timeout.
	FirstResultAt *time.Time `json:"first_result_at,omitempty" db:"first_result_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsBye reports whether the match only ever had one participant.
func (m *Match) IsBye() bool {
	return m.P1RegistrationID != nil && m.P2RegistrationID == nil
}

// SideOf returns which slot the registration occupies, if any.
func (m *Match) SideOf(registrationID int) (MatchSide, bool) {
	if m.P1RegistrationID != nil && *m.P1RegistrationID == registrationID {
		return Side1, true
	}
	if m.P2RegistrationID != nil && *m.P2RegistrationID == registrationID {
		return Side2, true
	}
	return 0, false
}

// MatchResult is one side's claim about the outcome. Rows are append
// only; a newer claim from the same side supersedes the older one.
type MatchResult struct {
	ID                         int       `json:"id" db:"id"`
	MatchID                    int       `json:"match_id" db:"match_id"`
	Side                       MatchSide `json:"side" db:"side"`
	ClaimedWinnerRegistrationID int      `json:"claimed_winner_registration_id" db:"claimed_winner_registration_id"`
	Score1                     int       `json:"score1" db:"score1"`
	Score2                     int       `json:"score2" db:"score2"`
	Superseded                 bool      `json:"superseded" db:"superseded"`
	SubmittedAt                time.Time `json:"submitted_at" db:"submitted_at"`
}

// Agrees reports whether two claims name the same winner and score.
func (r *MatchResult) Agrees(other *MatchResult) bool {
	return r.ClaimedWinnerRegistrationID == other.ClaimedWinnerRegistrationID &&
		r.Score1 == other.Score1 && r.Score2 == other.Score2
}
