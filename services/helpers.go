package services

import (
	"context"
	"errors"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
)

var tournamentTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusDraft:              {models.StatusPublished, models.StatusCancelled},
	models.StatusPublished:          {models.StatusRegistrationOpen, models.StatusCancelled},
	models.StatusRegistrationOpen:   {models.StatusRegistrationClosed, models.StatusCancelled},
	models.StatusRegistrationClosed: {models.StatusCheckIn, models.StatusLive, models.StatusCancelled},
	models.StatusCheckIn:            {models.StatusLive, models.StatusCompleted, models.StatusCancelled},
	models.StatusLive:               {models.StatusCompleted, models.StatusCancelled},
	models.StatusCompleted:          {models.StatusConcluded, models.StatusCancelled},
	models.StatusConcluded:          {models.StatusArchived},
	models.StatusArchived:           {},
	models.StatusCancelled:          {},
}

var matchTransitions = map[models.MatchStatus][]models.MatchStatus{
	models.MatchScheduled:     {models.MatchCheckIn, models.MatchCancelled},
	models.MatchCheckIn:       {models.MatchReady, models.MatchCompleted, models.MatchCancelled},
	models.MatchReady:         {models.MatchLive, models.MatchCancelled},
	models.MatchLive:          {models.MatchPendingResult, models.MatchCancelled},
	models.MatchPendingResult: {models.MatchCompleted, models.MatchDisputed, models.MatchCancelled},
	models.MatchDisputed:      {models.MatchCompleted, models.MatchCancelled},
	models.MatchCompleted:     {},
	models.MatchCancelled:     {},
}

func isValidTournamentTransition(from, to models.TournamentStatus) bool {
	for _, allowed := range tournamentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func isValidMatchTransition(from, to models.MatchStatus) bool {
	for _, allowed := range matchTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// lockActionableMatch locks the match row for the transaction and
// verifies its tournament is in a phase where play operations are
// allowed. Shared by the check-in, result, and dispute paths.
func lockActionableMatch(
	ctx context.Context,
	tx repositories.SQLExecutor,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	matchID int,
) (*models.Match, error) {
	match, err := matchRepo.GetByIDForUpdate(ctx, tx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	tournament, err := tournamentRepo.GetByID(ctx, tx, match.TournamentID)
	if err != nil {
		return nil, err
	}
	if !matchPlayAllowed(tournament.Status) {
		return nil, ErrTournamentNotActionable
	}
	return match, nil
}

// matchPlayAllowed reports whether matches may advance while the
// tournament is in the given phase. The scheduler passes observe the
// same gate as the interactive paths.
func matchPlayAllowed(status models.TournamentStatus) bool {
	return status == models.StatusCheckIn || status == models.StatusLive
}
