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
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrRegistrationConflict covers the unique constraint on one
	// confirmed registration per (tournament, participant).
	ErrRegistrationConflict = errors.New("participant is already registered for this tournament")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error)
	// ListConfirmedByTournament returns confirmed registrations ordered
	// by pre-assigned seed first, then registration order.
	ListConfirmedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Registration, error)
	UpdateSeed(ctx context.Context, exec SQLExecutor, id int, seed int) error
}

type postgresRegistrationRepository struct{}

func NewPostgresRegistrationRepository() RegistrationRepository {
	return &postgresRegistrationRepository{}
}

const registrationColumns = `id, tournament_id, user_id, team_id, status, seed, created_at`

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (tournament_id, user_id, team_id, status, seed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		reg.TournamentID, reg.UserID, reg.TeamID, reg.Status, reg.Seed,
	).Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrRegistrationConflict
		}
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg := &models.Registration{}
	err := exec.QueryRowContext(ctx, query, id).Scan(
		&reg.ID, &reg.TournamentID, &reg.UserID, &reg.TeamID, &reg.Status, &reg.Seed, &reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to scan registration %d: %w", id, err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) ListConfirmedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE tournament_id = $1 AND status = $2
		ORDER BY seed ASC NULLS LAST, id ASC`

	rows, err := exec.QueryContext(ctx, query, tournamentID, models.RegistrationConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	regs := make([]*models.Registration, 0)
	for rows.Next() {
		reg := &models.Registration{}
		if err := rows.Scan(
			&reg.ID, &reg.TournamentID, &reg.UserID, &reg.TeamID, &reg.Status, &reg.Seed, &reg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during registration rows iteration: %w", err)
	}
	return regs, nil
}

func (r *postgresRegistrationRepository) UpdateSeed(ctx context.Context, exec SQLExecutor, id int, seed int) error {
	result, err := exec.ExecContext(ctx, `UPDATE registrations SET seed = $1 WHERE id = $2`, seed, id)
	if err != nil {
		return fmt.Errorf("failed to update seed for registration %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}
