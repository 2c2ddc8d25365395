package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bracketforge/tournament-engine/brackets"
	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
)

// BracketSnapshot is the full read model of a tournament's bracket.
type BracketSnapshot struct {
	Bracket *models.Bracket       `json:"bracket"`
	Nodes   []*models.BracketNode `json:"nodes"`
	Matches []*models.Match       `json:"matches"`
}

type BracketService interface {
	// BuildForTournament generates and persists the bracket inside the
	// caller's transaction. Exactly one build can ever succeed per
	// tournament; later attempts fail with ErrBracketAlreadyBuilt.
	BuildForTournament(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, batch *eventBatch) (*models.Bracket, error)
	GetSnapshot(ctx context.Context, tournamentID int) (*BracketSnapshot, error)
}

type bracketService struct {
	db          repositories.SQLExecutor
	bracketRepo repositories.BracketRepository
	nodeRepo    repositories.BracketNodeRepository
	matchRepo   repositories.MatchRepository
	regRepo     repositories.RegistrationRepository
	progression *Progression
}

func NewBracketService(
	db repositories.SQLExecutor,
	bracketRepo repositories.BracketRepository,
	nodeRepo repositories.BracketNodeRepository,
	matchRepo repositories.MatchRepository,
	regRepo repositories.RegistrationRepository,
	prog *Progression,
) BracketService {
	return &bracketService{
		db:          db,
		bracketRepo: bracketRepo,
		nodeRepo:    nodeRepo,
		matchRepo:   matchRepo,
		regRepo:     regRepo,
		progression: prog,
	}
}

func (s *bracketService) BuildForTournament(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, batch *eventBatch) (*models.Bracket, error) {
	if err := s.bracketRepo.AcquireBuildLock(ctx, exec, tournament.ID); err != nil {
		return nil, err
	}

	_, err := s.bracketRepo.GetByTournament(ctx, exec, tournament.ID)
	if err == nil {
		return nil, ErrBracketAlreadyBuilt
	}
	if !errors.Is(err, repositories.ErrBracketNotFound) {
		return nil, err
	}

	entrants, err := s.regRepo.ListConfirmedByTournament(ctx, exec, tournament.ID)
	if err != nil {
		return nil, err
	}
	if len(entrants) < 2 {
		return nil, ErrNotEnoughEntrants
	}

	generator, err := brackets.ForFormat(tournament.Format)
	if err != nil {
		return nil, ErrUnsupportedFormat
	}
	plan, err := generator.Generate(len(entrants))
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughEntrants) {
			return nil, ErrNotEnoughEntrants
		}
		return nil, err
	}

	// Entrants arrive ordered by pre-assigned seed, then registration
	// order; the final 1..n seeding is persisted so the order is frozen.
	for i, reg := range entrants {
		seed := i + 1
		if reg.Seed == nil || *reg.Seed != seed {
			if err := s.regRepo.UpdateSeed(ctx, exec, reg.ID, seed); err != nil {
				return nil, err
			}
			reg.Seed = &seed
		}
	}

	bracket := &models.Bracket{
		TournamentID: tournament.ID,
		Format:       plan.Format,
		Capacity:     plan.Capacity,
	}
	if plan.DropMapVersion > 0 {
		v := plan.DropMapVersion
		bracket.DropMapVersion = &v
	}
	if err := s.bracketRepo.Create(ctx, exec, bracket); err != nil {
		if errors.Is(err, repositories.ErrBracketExists) {
			return nil, ErrBracketAlreadyBuilt
		}
		return nil, err
	}

	nodes, err := s.persistPlan(ctx, exec, bracket, plan, entrants)
	if err != nil {
		return nil, err
	}

	batch.add(tournament.ID, nil, models.BracketGeneratedPayload{
		BracketID: bracket.ID,
		Format:    plan.Format,
		Capacity:  plan.Capacity,
		Entrants:  plan.Entrants,
		Byes:      plan.ByeCount(),
	})

	// Settling the leaves instantiates round one matches and cascades
	// byes as far as they reach.
	for _, node := range nodes {
		if err := s.progression.settleNode(ctx, exec, tournament.ID, node, batch); err != nil {
			return nil, err
		}
	}
	return bracket, nil
}

// persistPlan writes the plan's nodes in two passes: insert them all to
// obtain ids, then wire parent and loser links between them.
func (s *bracketService) persistPlan(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, plan *brackets.Plan, entrants []*models.Registration) ([]*models.BracketNode, error) {
	byKey := make(map[string]*models.BracketNode, len(plan.Nodes))
	nodes := make([]*models.BracketNode, 0, len(plan.Nodes))

	for _, np := range plan.Nodes {
		node := &models.BracketNode{
			BracketID: bracket.ID,
			Side:      np.Side,
			Round:     np.Round,
			Position:  np.Position,
		}
		s.assignSlot(node, 1, np.Slot1Seed, entrants)
		s.assignSlot(node, 2, np.Slot2Seed, entrants)

		if err := s.nodeRepo.Create(ctx, exec, node); err != nil {
			return nil, err
		}
		byKey[np.Key] = node
		nodes = append(nodes, node)
	}

	for _, np := range plan.Nodes {
		if np.ParentKey == "" && np.LoserKey == "" {
			continue
		}
		node := byKey[np.Key]
		if np.ParentKey != "" {
			parent, ok := byKey[np.ParentKey]
			if !ok {
				return nil, fmt.Errorf("bracket plan references unknown parent %q", np.ParentKey)
			}
			node.ParentID = &parent.ID
			slot := np.ParentSlot
			node.ParentSlot = &slot
		}
		if np.LoserKey != "" {
			target, ok := byKey[np.LoserKey]
			if !ok {
				return nil, fmt.Errorf("bracket plan references unknown loser target %q", np.LoserKey)
			}
			node.LoserNodeID = &target.ID
			slot := np.LoserSlot
			node.LoserSlot = &slot
		}
		if err := s.nodeRepo.UpdateLinks(ctx, exec, node.ID, node.ParentID, node.ParentSlot, node.LoserNodeID, node.LoserSlot); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

// assignSlot maps a plan seed onto a registration or a bye. Seed zero
// means the slot waits for another node's output.
func (s *bracketService) assignSlot(node *models.BracketNode, slot, seed int, entrants []*models.Registration) {
	if seed == 0 {
		return
	}
	if seed > len(entrants) {
		if slot == 1 {
			node.Slot1Vacant = true
		} else {
			node.Slot2Vacant = true
		}
		return
	}
	id := entrants[seed-1].ID
	if slot == 1 {
		node.Slot1RegistrationID = &id
	} else {
		node.Slot2RegistrationID = &id
	}
}

func (s *bracketService) GetSnapshot(ctx context.Context, tournamentID int) (*BracketSnapshot, error) {
	bracket, err := s.bracketRepo.GetByTournament(ctx, s.db, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}

	snapshot := &BracketSnapshot{Bracket: bracket}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		nodes, err := s.nodeRepo.ListByBracket(gCtx, s.db, bracket.ID)
		if err != nil {
			return err
		}
		snapshot.Nodes = nodes
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, s.db, tournamentID, nil)
		if err != nil {
			return err
		}
		snapshot.Matches = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshot, nil
}
