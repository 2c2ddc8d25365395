package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/lib/pq"
)

var (
	ErrDisputeNotFound = errors.New("dispute not found")
	// ErrDisputeExists covers the partial unique index enforcing at
	// most one open dispute per match.
	ErrDisputeExists = errors.New("an open dispute already exists for this match")
)

type DisputeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, d *models.Dispute) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error)
	ListOpenByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Dispute, error)
	Resolve(ctx context.Context, exec SQLExecutor, id int, decision models.DisputeDecision, resolvedBy int, at time.Time) error
	// VoidOpenByTournament discards all open disputes of a tournament,
	// part of the cancellation cascade. Returns how many rows moved.
	VoidOpenByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresDisputeRepository struct{}

func NewPostgresDisputeRepository() DisputeRepository {
	return &postgresDisputeRepository{}
}

const disputeColumns = `id, match_id, status, opened_at, winner_registration_id, score1, score2,
	rationale, resolved_by, resolved_at`

func (r *postgresDisputeRepository) Create(ctx context.Context, exec SQLExecutor, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (match_id, status)
		VALUES ($1, $2)
		RETURNING id, opened_at`

	err := exec.QueryRowContext(ctx, query, d.MatchID, models.DisputeOpen).Scan(&d.ID, &d.OpenedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "disputes_one_open_per_match" {
			return ErrDisputeExists
		}
		return fmt.Errorf("failed to insert dispute: %w", err)
	}
	d.Status = models.DisputeOpen
	return nil
}

func (r *postgresDisputeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`
	return r.scanOne(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresDisputeRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1 FOR UPDATE`
	return r.scanOne(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresDisputeRepository) scanOne(row *sql.Row, id int) (*models.Dispute, error) {
	d := &models.Dispute{}
	err := row.Scan(
		&d.ID, &d.MatchID, &d.Status, &d.OpenedAt, &d.WinnerRegistrationID,
		&d.Score1, &d.Score2, &d.Rationale, &d.ResolvedBy, &d.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to scan dispute %d: %w", id, err)
	}
	return d, nil
}

func (r *postgresDisputeRepository) ListOpenByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Dispute, error) {
	query := `
		SELECT ` + disputeColumns + `
		FROM disputes
		JOIN matches ON matches.id = disputes.match_id
		WHERE matches.tournament_id = $1 AND disputes.status = $2
		ORDER BY disputes.opened_at ASC`

	rows, err := exec.QueryContext(ctx, query, tournamentID, models.DisputeOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query open disputes for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	disputes := make([]*models.Dispute, 0)
	for rows.Next() {
		d := &models.Dispute{}
		if err := rows.Scan(
			&d.ID, &d.MatchID, &d.Status, &d.OpenedAt, &d.WinnerRegistrationID,
			&d.Score1, &d.Score2, &d.Rationale, &d.ResolvedBy, &d.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dispute row: %w", err)
		}
		disputes = append(disputes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during dispute rows iteration: %w", err)
	}
	return disputes, nil
}

func (r *postgresDisputeRepository) Resolve(ctx context.Context, exec SQLExecutor, id int, decision models.DisputeDecision, resolvedBy int, at time.Time) error {
	query := `
		UPDATE disputes
		SET status = $1, winner_registration_id = $2, score1 = $3, score2 = $4,
		    rationale = $5, resolved_by = $6, resolved_at = $7
		WHERE id = $8 AND status = $9`

	result, err := exec.ExecContext(ctx, query,
		models.DisputeResolved, decision.WinnerRegistrationID, decision.Score1, decision.Score2,
		decision.Rationale, resolvedBy, at, id, models.DisputeOpen)
	if err != nil {
		return fmt.Errorf("failed to resolve dispute %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrDisputeNotFound)
}

func (r *postgresDisputeRepository) VoidOpenByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	query := `
		UPDATE disputes SET status = $1
		WHERE status = $2 AND match_id IN (SELECT id FROM matches WHERE tournament_id = $3)`

	result, err := exec.ExecContext(ctx, query, models.DisputeVoided, models.DisputeOpen, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to void disputes for tournament %d: %w", tournamentID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(affected), nil
}
