package repositories

import (
	"context"
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
)

// TransitionRepository persists the append-only tournament status
// audit log. Rows are never updated or deleted.
type TransitionRepository interface {
	Append(ctx context.Context, exec SQLExecutor, t *models.TournamentTransition) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.TournamentTransition, error)
}

type postgresTransitionRepository struct{}

func NewPostgresTransitionRepository() TransitionRepository {
	return &postgresTransitionRepository{}
}

func (r *postgresTransitionRepository) Append(ctx context.Context, exec SQLExecutor, t *models.TournamentTransition) error {
	query := `
		INSERT INTO tournament_transitions (tournament_id, from_status, to_status, triggered_by, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		t.TournamentID, t.FromStatus, t.ToStatus, t.TriggeredBy, t.Reason,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append tournament transition: %w", err)
	}
	return nil
}

func (r *postgresTransitionRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.TournamentTransition, error) {
	query := `
		SELECT id, tournament_id, from_status, to_status, triggered_by, reason, created_at
		FROM tournament_transitions
		WHERE tournament_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	transitions := make([]*models.TournamentTransition, 0)
	for rows.Next() {
		t := &models.TournamentTransition{}
		if err := rows.Scan(
			&t.ID, &t.TournamentID, &t.FromStatus, &t.ToStatus, &t.TriggeredBy, &t.Reason, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transition row: %w", err)
		}
		transitions = append(transitions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during transition rows iteration: %w", err)
	}
	return transitions, nil
}
