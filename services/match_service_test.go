package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketforge/tournament-engine/models"
)

func TestCheckInFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament, regs := f.liveTournament(t, "checkin cup", models.FormatSingleElimination, 2)

	match := f.scheduledMatches(t, tournament.ID)[0]

	// Check-in is rejected while the window is still closed.
	_, err := f.matchSvc.CheckIn(ctx, match.ID, regs[0].ID)
	assert.ErrorIs(t, err, ErrMatchNotActionable)

	require.NoError(t, f.matchSvc.OpenCheckInWindows(ctx, f.open))

	updated, err := f.matchSvc.CheckIn(ctx, match.ID, regs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCheckIn, updated.Status)
	assert.True(t, updated.P1CheckedIn)
	assert.False(t, updated.P2CheckedIn)

	// Starting before both sides are in is rejected.
	_, err = f.matchSvc.StartMatch(ctx, match.ID)
	assert.ErrorIs(t, err, ErrMatchNotActionable)

	updated, err = f.matchSvc.CheckIn(ctx, match.ID, regs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchReady, updated.Status)

	updated, err = f.matchSvc.StartMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchLive, updated.Status)

	_, err = f.matchSvc.StartMatch(ctx, match.ID)
	assert.ErrorIs(t, err, ErrMatchNotActionable)
}

func TestCheckInRejectsOutsiders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament, _ := f.liveTournament(t, "outsider cup", models.FormatSingleElimination, 2)

	match := f.scheduledMatches(t, tournament.ID)[0]
	require.NoError(t, f.matchSvc.OpenCheckInWindows(ctx, f.open))

	_, err := f.matchSvc.CheckIn(ctx, match.ID, 424242)
	assert.ErrorIs(t, err, ErrWinnerNotInMatch)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckInDeadlineForfeitsAbsentSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament, regs := f.liveTournament(t, "forfeit cup", models.FormatSingleElimination, 2)

	match := f.scheduledMatches(t, tournament.ID)[0]
	require.NoError(t, f.matchSvc.OpenCheckInWindows(ctx, f.open))
	_, err := f.matchSvc.CheckIn(ctx, match.ID, regs[0].ID)
	require.NoError(t, err)

	// Before the deadline nothing happens.
	require.NoError(t, f.matchSvc.ProcessCheckInDeadlines(ctx, f.open.Add(10*time.Minute)))
	current, err := f.matches.GetByID(ctx, nil, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCheckIn, current.Status)

	require.NoError(t, f.matchSvc.ProcessCheckInDeadlines(ctx, f.open.Add(16*time.Minute)))
	current, err = f.matches.GetByID(ctx, nil, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, current.Status)
	require.NotNil(t, current.WinnerRegistrationID)
	assert.Equal(t, regs[0].ID, *current.WinnerRegistrationID)
	assert.Nil(t, current.Score1)

	// The sole match was the final; the walkover decides the title.
	tournament, err = f.tournamentSvc.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConcluded, tournament.Status)
}

func TestDoubleForfeitPropagatesVacancy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament, regs := f.liveTournament(t, "no-show cup", models.FormatSingleElimination, 4)

	scheduled := f.scheduledMatches(t, tournament.ID)
	require.Len(t, scheduled, 2)
	first, second := scheduled[0], scheduled[1]

	// Seeds 2 and 3 play their match out; seeds 1 and 4 never show up.
	f.playOut(t, second, regs[2].ID)

	require.NoError(t, f.matchSvc.ProcessCheckInDeadlines(ctx, f.open.Add(16*time.Minute)))

	cancelled, err := f.matches.GetByID(ctx, nil, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCancelled, cancelled.Status)
	assert.Nil(t, cancelled.WinnerRegistrationID)

	// The final's other slot went vacant, so the survivor wins the
	// bracket by walkover and the tournament concludes.
	tournament, err = f.tournamentSvc.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConcluded, tournament.Status)

	standings, err := f.tournamentSvc.GetStandings(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, 1, standings[0].Placement)
	assert.Equal(t, regs[2].ID, standings[0].RegistrationID)
	assert.Equal(t, 3, standings[1].Placement)
	assert.Equal(t, regs[1].ID, standings[1].RegistrationID)
}

func TestSchedulerWaitsForCheckInPhase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament := f.createTournament(t, "early close cup", models.FormatSingleElimination)
	actor := ActorOrganizer(1)

	require.NoError(t, f.tournamentSvc.Publish(ctx, tournament.ID, actor))
	require.NoError(t, f.tournamentSvc.OpenRegistration(ctx, tournament.ID, actor))
	for i := 1; i <= 2; i++ {
		userID := 100 + i
		_, err := f.tournamentSvc.RegisterParticipant(ctx, tournament.ID, &userID, nil)
		require.NoError(t, err)
	}
	_, err := f.tournamentSvc.CloseRegistration(ctx, tournament.ID, actor)
	require.NoError(t, err)

	// The bracket is built at registration close, long before the
	// start, and the match windows are anchored to the start time.
	match := f.scheduledMatches(t, tournament.ID)[0]
	assert.Equal(t, tournament.StartsAt, match.ScheduledAt)

	// While the tournament sits in REGISTRATION_CLOSED the scheduler
	// leaves the match alone, even long past its window.
	late := f.open.Add(time.Hour)
	require.NoError(t, f.matchSvc.OpenCheckInWindows(ctx, late))
	require.NoError(t, f.matchSvc.ProcessCheckInDeadlines(ctx, late))

	current, err := f.matches.GetByID(ctx, nil, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchScheduled, current.Status)

	refreshed, err := f.tournamentSvc.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistrationClosed, refreshed.Status)

	// Once check-in starts the same pass opens the window.
	require.NoError(t, f.tournamentSvc.StartCheckIn(ctx, tournament.ID, actor))
	require.NoError(t, f.matchSvc.OpenCheckInWindows(ctx, late))

	current, err = f.matches.GetByID(ctx, nil, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCheckIn, current.Status)
}
