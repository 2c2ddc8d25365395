package services

import (
	"context"
	"errors"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
)

type DisputeService interface {
	// Resolve applies an organizer's verdict to an open dispute and
	// completes the underlying match with the ruled outcome.
	Resolve(ctx context.Context, disputeID, organizerID int, decision models.DisputeDecision) (*models.Dispute, error)
	ListOpen(ctx context.Context, tournamentID int) ([]*models.Dispute, error)
}

type disputeService struct {
	txManager      repositories.TxManager
	db             repositories.SQLExecutor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	disputeRepo    repositories.DisputeRepository
	progression    *Progression
	publisher      *EventPublisher
}

func NewDisputeService(
	txManager repositories.TxManager,
	db repositories.SQLExecutor,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	disputeRepo repositories.DisputeRepository,
	prog *Progression,
	publisher *EventPublisher,
) DisputeService {
	return &disputeService{
		txManager:      txManager,
		db:             db,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		disputeRepo:    disputeRepo,
		progression:    prog,
		publisher:      publisher,
	}
}

func (s *disputeService) Resolve(ctx context.Context, disputeID, organizerID int, decision models.DisputeDecision) (*models.Dispute, error) {
	var dispute *models.Dispute
	batch := &eventBatch{}

	err := s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var err error
		dispute, err = s.disputeRepo.GetByIDForUpdate(ctx, tx, disputeID)
		if err != nil {
			if errors.Is(err, repositories.ErrDisputeNotFound) {
				return ErrDisputeNotFound
			}
			return err
		}
		if dispute.Status != models.DisputeOpen {
			return ErrDisputeAlreadyResolved
		}

		match, err := lockActionableMatch(ctx, tx, s.matchRepo, s.tournamentRepo, dispute.MatchID)
		if err != nil {
			return err
		}
		if match.Status != models.MatchDisputed {
			return ErrMatchNotDisputed
		}
		if _, ok := match.SideOf(decision.WinnerRegistrationID); !ok {
			return ErrWinnerNotInMatch
		}

		resolvedAt := s.progression.now()
		if err := s.disputeRepo.Resolve(ctx, tx, disputeID, decision, organizerID, resolvedAt); err != nil {
			if errors.Is(err, repositories.ErrDisputeNotFound) {
				// The guarded update found the dispute no longer open.
				return ErrDisputeAlreadyResolved
			}
			return err
		}
		dispute.Status = models.DisputeResolved
		dispute.WinnerRegistrationID = &decision.WinnerRegistrationID
		dispute.Score1 = &decision.Score1
		dispute.Score2 = &decision.Score2
		dispute.Rationale = &decision.Rationale
		dispute.ResolvedBy = &organizerID
		dispute.ResolvedAt = &resolvedAt

		batch.add(match.TournamentID, &match.ID, models.DisputeResolvedPayload{
			DisputeID:            disputeID,
			WinnerRegistrationID: decision.WinnerRegistrationID,
			ResolvedBy:           organizerID,
			Rationale:            decision.Rationale,
		})

		score1, score2 := decision.Score1, decision.Score2
		return s.progression.completeMatch(ctx, tx, match, decision.WinnerRegistrationID, &score1, &score2, "dispute", batch)
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Emit(batch.events)
	return dispute, nil
}

func (s *disputeService) ListOpen(ctx context.Context, tournamentID int) ([]*models.Dispute, error) {
	return s.disputeRepo.ListOpenByTournament(ctx, s.db, tournamentID)
}
