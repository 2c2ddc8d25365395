package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
)

// ResultClaim is one side's account of how a match ended.
type ResultClaim struct {
	WinnerRegistrationID int `json:"winner_registration_id"`
	Score1               int `json:"score1"`
	Score2               int `json:"score2"`
}

type ResultService interface {
	// SubmitResult records a participant's claim. The first claim moves
	// the match to PENDING_RESULT; a matching counterclaim completes it,
	// a contradicting one opens a dispute. Resubmitting supersedes the
	// caller's earlier claim.
	SubmitResult(ctx context.Context, matchID, submitterRegistrationID int, claim ResultClaim) (*models.Match, error)
	// ProcessResultDeadlines completes matches whose single claim went
	// unchallenged for the configured timeout. Driven by the scheduler.
	ProcessResultDeadlines(ctx context.Context, now time.Time) error
}

type resultService struct {
	txManager      repositories.TxManager
	db             repositories.SQLExecutor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	resultRepo     repositories.MatchResultRepository
	disputeRepo    repositories.DisputeRepository
	progression    *Progression
	publisher      *EventPublisher
	resultTimeout  time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

func NewResultService(
	txManager repositories.TxManager,
	db repositories.SQLExecutor,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	resultRepo repositories.MatchResultRepository,
	disputeRepo repositories.DisputeRepository,
	prog *Progression,
	publisher *EventPublisher,
	resultTimeout time.Duration,
	logger *slog.Logger,
) ResultService {
	return &resultService{
		txManager:      txManager,
		db:             db,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		resultRepo:     resultRepo,
		disputeRepo:    disputeRepo,
		progression:    prog,
		publisher:      publisher,
		resultTimeout:  resultTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *resultService) SubmitResult(ctx context.Context, matchID, submitterRegistrationID int, claim ResultClaim) (*models.Match, error) {
	var match *models.Match
	batch := &eventBatch{}

	err := s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var err error
		match, err = lockActionableMatch(ctx, tx, s.matchRepo, s.tournamentRepo, matchID)
		if err != nil {
			return err
		}

		side, ok := match.SideOf(submitterRegistrationID)
		if !ok {
			return ErrNotMatchParticipant
		}
		if _, ok := match.SideOf(claim.WinnerRegistrationID); !ok {
			return ErrWinnerNotInMatch
		}

		switch match.Status {
		case models.MatchLive:
			if err := s.matchRepo.UpdateStatus(ctx, tx, matchID, models.MatchPendingResult); err != nil {
				return err
			}
			firstAt := s.now()
			if err := s.matchRepo.SetFirstResultAt(ctx, tx, matchID, firstAt); err != nil {
				return err
			}
			match.Status = models.MatchPendingResult
			match.FirstResultAt = &firstAt
		case models.MatchPendingResult:
			// Counterclaim or resubmission.
		default:
			return ErrMatchNotActionable
		}

		if err := s.resultRepo.SupersedeBySide(ctx, tx, matchID, side); err != nil {
			return err
		}
		result := &models.MatchResult{
			MatchID:                     matchID,
			Side:                        side,
			ClaimedWinnerRegistrationID: claim.WinnerRegistrationID,
			Score1:                      claim.Score1,
			Score2:                      claim.Score2,
		}
		if err := s.resultRepo.Insert(ctx, tx, result); err != nil {
			return err
		}

		active, err := s.resultRepo.ListActiveByMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if len(active) < 2 {
			return nil
		}
		return s.reconcile(ctx, tx, match, active[0], active[1], batch)
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Emit(batch.events)
	return match, nil
}

// reconcile compares the two active claims. Agreement completes the
// match; disagreement freezes it behind a dispute.
func (s *resultService) reconcile(ctx context.Context, tx repositories.SQLExecutor, match *models.Match, a, b *models.MatchResult, batch *eventBatch) error {
	if a.Agrees(b) {
		score1, score2 := a.Score1, a.Score2
		return s.progression.completeMatch(ctx, tx, match, a.ClaimedWinnerRegistrationID, &score1, &score2, "reconciled", batch)
	}

	if err := s.matchRepo.UpdateStatus(ctx, tx, match.ID, models.MatchDisputed); err != nil {
		return err
	}
	match.Status = models.MatchDisputed

	dispute := &models.Dispute{MatchID: match.ID, Status: models.DisputeOpen}
	if err := s.disputeRepo.Create(ctx, tx, dispute); err != nil {
		if errors.Is(err, repositories.ErrDisputeExists) {
			return ErrDuplicateDispute
		}
		return err
	}
	batch.add(match.TournamentID, &match.ID, models.DisputeOpenedPayload{DisputeID: dispute.ID})
	return nil
}

func (s *resultService) ProcessResultDeadlines(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-s.resultTimeout)
	stale, err := s.matchRepo.ListPendingResultSince(ctx, s.db, cutoff)
	if err != nil {
		return err
	}
	for _, candidate := range stale {
		matchID := candidate.ID
		batch := &eventBatch{}
		err := s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
			match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
			if err != nil {
				return err
			}
			if match.Status != models.MatchPendingResult {
				return nil
			}
			active, err := s.resultRepo.ListActiveByMatch(ctx, tx, matchID)
			if err != nil {
				return err
			}
			if len(active) != 1 {
				// Two claims would already have reconciled; zero should
				// not happen for a PENDING_RESULT match.
				return nil
			}
			claim := active[0]
			score1, score2 := claim.Score1, claim.Score2
			return s.progression.completeMatch(ctx, tx, match, claim.ClaimedWinnerRegistrationID, &score1, &score2, "default_win", batch)
		})
		if err != nil {
			s.logger.Error("failed to apply default win",
				slog.Int("match_id", matchID), slog.Any("error", err))
			continue
		}
		s.publisher.Emit(batch.events)
	}
	return nil
}
