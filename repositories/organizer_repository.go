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
	ErrOrganizerNotFound      = errors.New("organizer not found")
	ErrOrganizerEmailConflict = errors.New("organizer email is already in use")
)

type OrganizerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, o *models.Organizer) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Organizer, error)
	GetByEmail(ctx context.Context, exec SQLExecutor, email string) (*models.Organizer, error)
}

type postgresOrganizerRepository struct{}

func NewPostgresOrganizerRepository() OrganizerRepository {
	return &postgresOrganizerRepository{}
}

func (r *postgresOrganizerRepository) Create(ctx context.Context, exec SQLExecutor, o *models.Organizer) error {
	query := `INSERT INTO organizers (email, password_hash) VALUES ($1, $2) RETURNING id, created_at`
	err := exec.QueryRowContext(ctx, query, o.Email, o.PasswordHash).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "organizers_email_key" {
			return ErrOrganizerEmailConflict
		}
		return fmt.Errorf("failed to insert organizer: %w", err)
	}
	return nil
}

func (r *postgresOrganizerRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Organizer, error) {
	query := `SELECT id, email, password_hash, created_at FROM organizers WHERE id = $1`
	return r.scanOne(exec.QueryRowContext(ctx, query, id))
}

func (r *postgresOrganizerRepository) GetByEmail(ctx context.Context, exec SQLExecutor, email string) (*models.Organizer, error) {
	query := `SELECT id, email, password_hash, created_at FROM organizers WHERE email = $1`
	return r.scanOne(exec.QueryRowContext(ctx, query, email))
}

func (r *postgresOrganizerRepository) scanOne(row *sql.Row) (*models.Organizer, error) {
	o := &models.Organizer{}
	err := row.Scan(&o.ID, &o.Email, &o.PasswordHash, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizerNotFound
		}
		return nil, fmt.Errorf("failed to scan organizer: %w", err)
	}
	return o, nil
}
