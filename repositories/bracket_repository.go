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
	ErrBracketNotFound = errors.New("bracket not found")
	// ErrBracketExists backs build idempotency: exactly one bracket may
	// ever exist per tournament.
	ErrBracketExists = errors.New("bracket already exists for this tournament")
)

type BracketRepository interface {
	// AcquireBuildLock takes a transaction-scoped advisory lock keyed by
	// tournament id, serializing concurrent build attempts before the
	// unique constraint ever fires.
	AcquireBuildLock(ctx context.Context, exec SQLExecutor, tournamentID int) error
	Create(ctx context.Context, exec SQLExecutor, b *models.Bracket) error
	GetByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.Bracket, error)
}

type postgresBracketRepository struct{}

func NewPostgresBracketRepository() BracketRepository {
	return &postgresBracketRepository{}
}

// bracketLockClass namespaces this lock against other advisory locks
// sharing the database.
const bracketLockClass = 0x42524B // "BRK"

func (r *postgresBracketRepository) AcquireBuildLock(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, bracketLockClass, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to acquire bracket build lock for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, b *models.Bracket) error {
	query := `
		INSERT INTO brackets (tournament_id, format, capacity, drop_map_version)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		b.TournamentID, b.Format, b.Capacity, b.DropMapVersion,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "brackets_tournament_id_key" {
			return ErrBracketExists
		}
		return fmt.Errorf("failed to insert bracket: %w", err)
	}
	return nil
}

func (r *postgresBracketRepository) GetByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.Bracket, error) {
	query := `
		SELECT id, tournament_id, format, capacity, drop_map_version, created_at
		FROM brackets
		WHERE tournament_id = $1`

	b := &models.Bracket{}
	err := exec.QueryRowContext(ctx, query, tournamentID).Scan(
		&b.ID, &b.TournamentID, &b.Format, &b.Capacity, &b.DropMapVersion, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to scan bracket for tournament %d: %w", tournamentID, err)
	}
	return b, nil
}
