package repositories

import (
	"context"
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
)

type MatchResultRepository interface {
	// Insert appends a claim. Prior claims are never updated in place;
	// call SupersedeBySide first to retire the old one.
	Insert(ctx context.Context, exec SQLExecutor, res *models.MatchResult) error
	// SupersedeBySide retires the active claim of one side, if any.
	SupersedeBySide(ctx context.Context, exec SQLExecutor, matchID int, side models.MatchSide) error
	// ListActiveByMatch returns the non-superseded claims, at most one
	// per side, ordered by side.
	ListActiveByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.MatchResult, error)
}

type postgresMatchResultRepository struct{}

func NewPostgresMatchResultRepository() MatchResultRepository {
	return &postgresMatchResultRepository{}
}

func (r *postgresMatchResultRepository) Insert(ctx context.Context, exec SQLExecutor, res *models.MatchResult) error {
	query := `
		INSERT INTO match_results (match_id, side, claimed_winner_registration_id, score1, score2)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, submitted_at`

	err := exec.QueryRowContext(ctx, query,
		res.MatchID, res.Side, res.ClaimedWinnerRegistrationID, res.Score1, res.Score2,
	).Scan(&res.ID, &res.SubmittedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match result: %w", err)
	}
	return nil
}

func (r *postgresMatchResultRepository) SupersedeBySide(ctx context.Context, exec SQLExecutor, matchID int, side models.MatchSide) error {
	_, err := exec.ExecContext(ctx,
		`UPDATE match_results SET superseded = TRUE WHERE match_id = $1 AND side = $2 AND NOT superseded`,
		matchID, side)
	if err != nil {
		return fmt.Errorf("failed to supersede results for match %d side %d: %w", matchID, side, err)
	}
	return nil
}

func (r *postgresMatchResultRepository) ListActiveByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.MatchResult, error) {
	query := `
		SELECT id, match_id, side, claimed_winner_registration_id, score1, score2, superseded, submitted_at
		FROM match_results
		WHERE match_id = $1 AND NOT superseded
		ORDER BY side ASC`

	rows, err := exec.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for match %d: %w", matchID, err)
	}
	defer rows.Close()

	results := make([]*models.MatchResult, 0, 2)
	for rows.Next() {
		res := &models.MatchResult{}
		if err := rows.Scan(
			&res.ID, &res.MatchID, &res.Side, &res.ClaimedWinnerRegistrationID,
			&res.Score1, &res.Score2, &res.Superseded, &res.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match result row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match result rows iteration: %w", err)
	}
	return results, nil
}
