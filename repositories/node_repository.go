package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
)

var ErrNodeNotFound = errors.New("bracket node not found")

type BracketNodeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, n *models.BracketNode) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.BracketNode, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.BracketNode, error)
	ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.BracketNode, error)
	UpdateLinks(ctx context.Context, exec SQLExecutor, id int, parentID, parentSlot, loserNodeID, loserSlot *int) error
	SetSlot(ctx context.Context, exec SQLExecutor, id int, slot int, registrationID *int, vacant bool) error
	SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerRegistrationID int) error
	// CountUndecidedByBracket counts nodes that still lack a winner,
	// used for round robin conclusion.
	CountUndecidedByBracket(ctx context.Context, exec SQLExecutor, bracketID int) (int, error)
}

type postgresBracketNodeRepository struct{}

func NewPostgresBracketNodeRepository() BracketNodeRepository {
	return &postgresBracketNodeRepository{}
}

const nodeColumns = `id, bracket_id, side, round, position, parent_id, parent_slot,
	loser_node_id, loser_slot, slot1_registration_id, slot2_registration_id,
	winner_registration_id, slot1_vacant, slot2_vacant`

func (r *postgresBracketNodeRepository) Create(ctx context.Context, exec SQLExecutor, n *models.BracketNode) error {
	query := `
		INSERT INTO bracket_nodes
			(bracket_id, side, round, position, parent_id, parent_slot, loser_node_id, loser_slot,
			 slot1_registration_id, slot2_registration_id, slot1_vacant, slot2_vacant)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	err := exec.QueryRowContext(ctx, query,
		n.BracketID, n.Side, n.Round, n.Position, n.ParentID, n.ParentSlot,
		n.LoserNodeID, n.LoserSlot, n.Slot1RegistrationID, n.Slot2RegistrationID,
		n.Slot1Vacant, n.Slot2Vacant,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to insert bracket node: %w", err)
	}
	return nil
}

func (r *postgresBracketNodeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.BracketNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM bracket_nodes WHERE id = $1`
	return r.scanOne(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresBracketNodeRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.BracketNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM bracket_nodes WHERE id = $1 FOR UPDATE`
	return r.scanOne(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresBracketNodeRepository) scanOne(row *sql.Row, id int) (*models.BracketNode, error) {
	n := &models.BracketNode{}
	err := row.Scan(
		&n.ID, &n.BracketID, &n.Side, &n.Round, &n.Position, &n.ParentID, &n.ParentSlot,
		&n.LoserNodeID, &n.LoserSlot, &n.Slot1RegistrationID, &n.Slot2RegistrationID,
		&n.WinnerRegistrationID, &n.Slot1Vacant, &n.Slot2Vacant,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNodeNotFound
		}
		return nil, fmt.Errorf("failed to scan bracket node %d: %w", id, err)
	}
	return n, nil
}

func (r *postgresBracketNodeRepository) ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.BracketNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM bracket_nodes WHERE bracket_id = $1 ORDER BY side, round, position`
	rows, err := exec.QueryContext(ctx, query, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes for bracket %d: %w", bracketID, err)
	}
	defer rows.Close()

	nodes := make([]*models.BracketNode, 0)
	for rows.Next() {
		n := &models.BracketNode{}
		if err := rows.Scan(
			&n.ID, &n.BracketID, &n.Side, &n.Round, &n.Position, &n.ParentID, &n.ParentSlot,
			&n.LoserNodeID, &n.LoserSlot, &n.Slot1RegistrationID, &n.Slot2RegistrationID,
			&n.WinnerRegistrationID, &n.Slot1Vacant, &n.Slot2Vacant,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bracket node row: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during bracket node rows iteration: %w", err)
	}
	return nodes, nil
}

func (r *postgresBracketNodeRepository) UpdateLinks(ctx context.Context, exec SQLExecutor, id int, parentID, parentSlot, loserNodeID, loserSlot *int) error {
	query := `
		UPDATE bracket_nodes
		SET parent_id = $1, parent_slot = $2, loser_node_id = $3, loser_slot = $4
		WHERE id = $5`
	result, err := exec.ExecContext(ctx, query, parentID, parentSlot, loserNodeID, loserSlot, id)
	if err != nil {
		return fmt.Errorf("failed to update links for node %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrNodeNotFound)
}

func (r *postgresBracketNodeRepository) SetSlot(ctx context.Context, exec SQLExecutor, id int, slot int, registrationID *int, vacant bool) error {
	var query string
	if slot == 1 {
		query = `UPDATE bracket_nodes SET slot1_registration_id = $1, slot1_vacant = $2 WHERE id = $3`
	} else {
		query = `UPDATE bracket_nodes SET slot2_registration_id = $1, slot2_vacant = $2 WHERE id = $3`
	}
	result, err := exec.ExecContext(ctx, query, registrationID, vacant, id)
	if err != nil {
		return fmt.Errorf("failed to set slot %d of node %d: %w", slot, id, err)
	}
	return checkAffectedRows(result, ErrNodeNotFound)
}

func (r *postgresBracketNodeRepository) SetWinner(ctx context.Context, exec SQLExecutor, id int, winnerRegistrationID int) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE bracket_nodes SET winner_registration_id = $1 WHERE id = $2`, winnerRegistrationID, id)
	if err != nil {
		return fmt.Errorf("failed to set winner for node %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrNodeNotFound)
}

func (r *postgresBracketNodeRepository) CountUndecidedByBracket(ctx context.Context, exec SQLExecutor, bracketID int) (int, error) {
	// Nodes whose match was force-cancelled will never get a winner and
	// must not block conclusion.
	query := `
		SELECT COUNT(*) FROM bracket_nodes n
		WHERE n.bracket_id = $1 AND n.winner_registration_id IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM matches m WHERE m.node_id = n.id AND m.status = $2
		  )`
	var count int
	err := exec.QueryRowContext(ctx, query, bracketID, models.MatchCancelled).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count undecided nodes for bracket %d: %w", bracketID, err)
	}
	return count, nil
}
