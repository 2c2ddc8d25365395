package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	// ErrTournamentStatusStale is returned when a guarded status update
	// finds the row no longer in the expected status.
	ErrTournamentStatusStale = errors.New("tournament status changed concurrently")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor, limit, offset int) ([]*models.Tournament, error)
	ListByStatus(ctx context.Context, exec SQLExecutor, status models.TournamentStatus) ([]*models.Tournament, error)
	// UpdateStatusGuarded moves the tournament from expected to next and
	// fails with ErrTournamentStatusStale if the row moved on meanwhile.
	UpdateStatusGuarded(ctx context.Context, exec SQLExecutor, id int, expected, next models.TournamentStatus) error
}

type postgresTournamentRepository struct{}

func NewPostgresTournamentRepository() TournamentRepository {
	return &postgresTournamentRepository{}
}

const tournamentColumns = `id, name, description, organizer_id, format, status, reg_opens_at, reg_closes_at, starts_at, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, description, organizer_id, format, status, reg_opens_at, reg_closes_at, starts_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		t.Name, t.Description, t.OrganizerID, t.Format, t.Status,
		t.RegOpensAt, t.RegClosesAt, t.StartsAt,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "tournaments_name_key" {
			return ErrTournamentNameConflict
		}
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanOne(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return r.scanOne(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresTournamentRepository) scanOne(row *sql.Row, id int) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.OrganizerID, &t.Format, &t.Status,
		&t.RegOpensAt, &t.RegClosesAt, &t.StartsAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor, limit, offset int) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments ORDER BY starts_at DESC LIMIT $1 OFFSET $2`
	rows, err := exec.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *postgresTournamentRepository) ListByStatus(ctx context.Context, exec SQLExecutor, status models.TournamentStatus) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE status = $1 ORDER BY starts_at ASC`
	rows, err := exec.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments by status %s: %w", status, err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *postgresTournamentRepository) scanMany(rows *sql.Rows) ([]*models.Tournament, error) {
	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t := &models.Tournament{}
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Description, &t.OrganizerID, &t.Format, &t.Status,
			&t.RegOpensAt, &t.RegClosesAt, &t.StartsAt, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatusGuarded(ctx context.Context, exec SQLExecutor, id int, expected, next models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1 WHERE id = $2 AND status = $3`
	result, err := exec.ExecContext(ctx, query, next, id, expected)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentStatusStale)
}
