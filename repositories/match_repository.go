package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bracketforge/tournament-engine/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, m *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row for the duration of the
	// enclosing transaction. Every reconciliation step starts here.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByNode(ctx context.Context, exec SQLExecutor, nodeID int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, status *models.MatchStatus) ([]*models.Match, error)
	// ListDueForCheckIn returns SCHEDULED matches whose check-in window
	// should be open by now.
	ListDueForCheckIn(ctx context.Context, exec SQLExecutor, now time.Time) ([]*models.Match, error)
	// ListPastCheckInDeadline returns CHECK_IN matches whose deadline
	// has elapsed.
	ListPastCheckInDeadline(ctx context.Context, exec SQLExecutor, now time.Time) ([]*models.Match, error)
	// ListPendingResultSince returns PENDING_RESULT matches whose first
	// submission is older than the cutoff.
	ListPendingResultSince(ctx context.Context, exec SQLExecutor, cutoff time.Time) ([]*models.Match, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	UpdateCheckIn(ctx context.Context, exec SQLExecutor, id int, side models.MatchSide, checkedIn bool) error
	SetCheckInWindow(ctx context.Context, exec SQLExecutor, id int, opensAt, deadline time.Time) error
	SetFirstResultAt(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
	Complete(ctx context.Context, exec SQLExecutor, id int, winnerRegistrationID int, score1, score2 *int) error
	// CancelAllNonTerminal force-cancels every match of a tournament
	// that is not COMPLETED or already CANCELLED; returns how many rows
	// moved.
	CancelAllNonTerminal(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresMatchRepository struct{}

func NewPostgresMatchRepository() MatchRepository {
	return &postgresMatchRepository{}
}

const matchColumns = `id, tournament_id, node_id, round, p1_registration_id, p2_registration_id,
	status, winner_registration_id, score1, score2, scheduled_at, check_in_opens_at,
	check_in_deadline, p1_checked_in, p2_checked_in, first_result_at, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, node_id, round, p1_registration_id, p2_registration_id, status,
			 winner_registration_id, score1, score2, scheduled_at, check_in_opens_at, check_in_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		m.TournamentID, m.NodeID, m.Round, m.P1RegistrationID, m.P2RegistrationID, m.Status,
		m.WinnerRegistrationID, m.Score1, m.Score2, m.ScheduledAt, m.CheckInOpensAt, m.CheckInDeadline,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanOne(exec.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return r.scanOne(exec.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByNode(ctx context.Context, exec SQLExecutor, nodeID int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE node_id = $1`
	return r.scanOne(exec.QueryRowContext(ctx, query, nodeID))
}

func (r *postgresMatchRepository) scanOne(row *sql.Row) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.NodeID, &m.Round, &m.P1RegistrationID, &m.P2RegistrationID,
		&m.Status, &m.WinnerRegistrationID, &m.Score1, &m.Score2, &m.ScheduledAt, &m.CheckInOpensAt,
		&m.CheckInDeadline, &m.P1CheckedIn, &m.P2CheckedIn, &m.FirstResultAt, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	return m, nil
}

func (r *postgresMatchRepository) scanMany(rows *sql.Rows) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		if err := rows.Scan(
			&m.ID, &m.TournamentID, &m.NodeID, &m.Round, &m.P1RegistrationID, &m.P2RegistrationID,
			&m.Status, &m.WinnerRegistrationID, &m.Score1, &m.Score2, &m.ScheduledAt, &m.CheckInOpensAt,
			&m.CheckInDeadline, &m.P1CheckedIn, &m.P2CheckedIn, &m.FirstResultAt, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, status *models.MatchStatus) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY round ASC, id ASC`

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *postgresMatchRepository) ListDueForCheckIn(ctx context.Context, exec SQLExecutor, now time.Time) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE status = $1 AND check_in_opens_at IS NOT NULL AND check_in_opens_at <= $2
		ORDER BY id ASC`
	rows, err := exec.QueryContext(ctx, query, models.MatchScheduled, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches due for check-in: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *postgresMatchRepository) ListPastCheckInDeadline(ctx context.Context, exec SQLExecutor, now time.Time) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE status = $1 AND check_in_deadline IS NOT NULL AND check_in_deadline <= $2
		ORDER BY id ASC`
	rows, err := exec.QueryContext(ctx, query, models.MatchCheckIn, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches past check-in deadline: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *postgresMatchRepository) ListPendingResultSince(ctx context.Context, exec SQLExecutor, cutoff time.Time) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE status = $1 AND first_result_at IS NOT NULL AND first_result_at <= $2
		ORDER BY id ASC`
	rows, err := exec.QueryContext(ctx, query, models.MatchPendingResult, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches pending result: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	result, err := exec.ExecContext(ctx, `UPDATE matches SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateCheckIn(ctx context.Context, exec SQLExecutor, id int, side models.MatchSide, checkedIn bool) error {
	var query string
	if side == models.Side1 {
		query = `UPDATE matches SET p1_checked_in = $1 WHERE id = $2`
	} else {
		query = `UPDATE matches SET p2_checked_in = $1 WHERE id = $2`
	}
	result, err := exec.ExecContext(ctx, query, checkedIn, id)
	if err != nil {
		return fmt.Errorf("failed to update check-in for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetCheckInWindow(ctx context.Context, exec SQLExecutor, id int, opensAt, deadline time.Time) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET check_in_opens_at = $1, check_in_deadline = $2 WHERE id = $3`,
		opensAt, deadline, id)
	if err != nil {
		return fmt.Errorf("failed to set check-in window for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetFirstResultAt(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET first_result_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to set first result time for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Complete(ctx context.Context, exec SQLExecutor, id int, winnerRegistrationID int, score1, score2 *int) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET status = $1, winner_registration_id = $2, score1 = $3, score2 = $4 WHERE id = $5`,
		models.MatchCompleted, winnerRegistrationID, score1, score2, id)
	if err != nil {
		return fmt.Errorf("failed to complete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CancelAllNonTerminal(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET status = $1 WHERE tournament_id = $2 AND status NOT IN ($3, $4)`,
		models.MatchCancelled, tournamentID, models.MatchCompleted, models.MatchCancelled)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel matches for tournament %d: %w", tournamentID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(affected), nil
}
