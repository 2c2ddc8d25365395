package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
)

type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	// CheckIn records a participant's presence for an upcoming match.
	// When both sides have checked in the match becomes READY.
	CheckIn(ctx context.Context, matchID, registrationID int) (*models.Match, error)
	// StartMatch moves a READY match to LIVE.
	StartMatch(ctx context.Context, matchID int) (*models.Match, error)
	// OpenCheckInWindows flips SCHEDULED matches whose window has opened
	// to CHECK_IN. Driven by the scheduler.
	OpenCheckInWindows(ctx context.Context, now time.Time) error
	// ProcessCheckInDeadlines forfeits the absent side of matches whose
	// check-in deadline passed. With both sides absent the match is
	// cancelled and a vacancy propagates through the bracket.
	ProcessCheckInDeadlines(ctx context.Context, now time.Time) error
}

type matchService struct {
	txManager      repositories.TxManager
	db             repositories.SQLExecutor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	progression    *Progression
	publisher      *EventPublisher
	logger         *slog.Logger
}

func NewMatchService(
	txManager repositories.TxManager,
	db repositories.SQLExecutor,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	prog *Progression,
	publisher *EventPublisher,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		txManager:      txManager,
		db:             db,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		progression:    prog,
		publisher:      publisher,
		logger:         logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, s.db, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) CheckIn(ctx context.Context, matchID, registrationID int) (*models.Match, error) {
	var match *models.Match
	err := s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var err error
		match, err = lockActionableMatch(ctx, tx, s.matchRepo, s.tournamentRepo, matchID)
		if err != nil {
			return err
		}
		if match.Status != models.MatchCheckIn {
			return ErrMatchNotActionable
		}

		side, ok := match.SideOf(registrationID)
		if !ok {
			return ErrWinnerNotInMatch
		}
		if err := s.matchRepo.UpdateCheckIn(ctx, tx, matchID, side, true); err != nil {
			return err
		}
		if side == models.Side1 {
			match.P1CheckedIn = true
		} else {
			match.P2CheckedIn = true
		}

		if match.P1CheckedIn && match.P2CheckedIn {
			if err := s.matchRepo.UpdateStatus(ctx, tx, matchID, models.MatchReady); err != nil {
				return err
			}
			match.Status = models.MatchReady
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) StartMatch(ctx context.Context, matchID int) (*models.Match, error) {
	var match *models.Match
	err := s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var err error
		match, err = lockActionableMatch(ctx, tx, s.matchRepo, s.tournamentRepo, matchID)
		if err != nil {
			return err
		}
		if !isValidMatchTransition(match.Status, models.MatchLive) || match.Status != models.MatchReady {
			return ErrMatchNotActionable
		}
		if err := s.matchRepo.UpdateStatus(ctx, tx, matchID, models.MatchLive); err != nil {
			return err
		}
		match.Status = models.MatchLive
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) OpenCheckInWindows(ctx context.Context, now time.Time) error {
	due, err := s.matchRepo.ListDueForCheckIn(ctx, s.db, now)
	if err != nil {
		return err
	}
	for _, candidate := range due {
		matchID := candidate.ID
		err := s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
			match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
			if err != nil {
				return err
			}
			if match.Status != models.MatchScheduled {
				return nil
			}
			tournament, err := s.tournamentRepo.GetByID(ctx, tx, match.TournamentID)
			if err != nil {
				return err
			}
			if !matchPlayAllowed(tournament.Status) {
				return nil
			}
			return s.matchRepo.UpdateStatus(ctx, tx, matchID, models.MatchCheckIn)
		})
		if err != nil {
			s.logger.Error("failed to open check-in window",
				slog.Int("match_id", matchID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *matchService) ProcessCheckInDeadlines(ctx context.Context, now time.Time) error {
	expired, err := s.matchRepo.ListPastCheckInDeadline(ctx, s.db, now)
	if err != nil {
		return err
	}
	for _, candidate := range expired {
		matchID := candidate.ID
		batch := &eventBatch{}
		err := s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
			match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
			if err != nil {
				return err
			}
			if match.Status != models.MatchCheckIn {
				return nil
			}
			tournament, err := s.tournamentRepo.GetByID(ctx, tx, match.TournamentID)
			if err != nil {
				return err
			}
			if !matchPlayAllowed(tournament.Status) {
				return nil
			}

			switch {
			case match.P1CheckedIn && !match.P2CheckedIn:
				return s.progression.completeMatch(ctx, tx, match, *match.P1RegistrationID, nil, nil, "forfeit", batch)
			case match.P2CheckedIn && !match.P1CheckedIn:
				return s.progression.completeMatch(ctx, tx, match, *match.P2RegistrationID, nil, nil, "forfeit", batch)
			default:
				return s.progression.cancelWithVacancy(ctx, tx, match, batch)
			}
		})
		if err != nil {
			s.logger.Error("failed to process check-in deadline",
				slog.Int("match_id", matchID), slog.Any("error", err))
			continue
		}
		s.publisher.Emit(batch.events)
	}
	return nil
}
