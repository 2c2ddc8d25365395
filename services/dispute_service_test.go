package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketforge/tournament-engine/models"
)

// disputedMatch drives one round 1 match into a dispute and returns it
// with its open dispute.
func disputedMatch(t *testing.T, f *fixture, tournamentID int) (*models.Match, *models.Dispute) {
	t.Helper()
	ctx := context.Background()

	match := f.scheduledMatches(t, tournamentID)[0]
	f.toLive(t, match)

	_, err := f.resultSvc.SubmitResult(ctx, match.ID, *match.P1RegistrationID,
		ResultClaim{WinnerRegistrationID: *match.P1RegistrationID, Score1: 2, Score2: 0})
	require.NoError(t, err)
	_, err = f.resultSvc.SubmitResult(ctx, match.ID, *match.P2RegistrationID,
		ResultClaim{WinnerRegistrationID: *match.P2RegistrationID, Score1: 0, Score2: 2})
	require.NoError(t, err)

	open, err := f.disputeSvc.ListOpen(ctx, tournamentID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	return match, open[0]
}

func TestResolveDisputeCompletesMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament, _ := f.liveTournament(t, "ruling cup", models.FormatSingleElimination, 4)
	match, dispute := disputedMatch(t, f, tournament.ID)

	decision := models.DisputeDecision{
		WinnerRegistrationID: *match.P1RegistrationID,
		Score1:               2,
		Score2:               1,
		Rationale:            "screenshot evidence favors player one",
	}
	resolved, err := f.disputeSvc.Resolve(ctx, dispute.ID, 7, decision)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, 7, *resolved.ResolvedBy)
	require.NotNil(t, resolved.WinnerRegistrationID)
	assert.Equal(t, *match.P1RegistrationID, *resolved.WinnerRegistrationID)

	completed, err := f.matches.GetByID(ctx, nil, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, completed.Status)
	require.NotNil(t, completed.WinnerRegistrationID)
	assert.Equal(t, *match.P1RegistrationID, *completed.WinnerRegistrationID)

	// The ruled winner advanced into the next round.
	node, err := f.nodes.GetByID(ctx, nil, match.NodeID)
	require.NoError(t, err)
	require.NotNil(t, node.ParentID)
	parent, err := f.nodes.GetByID(ctx, nil, *node.ParentID)
	require.NoError(t, err)
	require.NotNil(t, parent.Slot1RegistrationID)
	assert.Equal(t, *match.P1RegistrationID, *parent.Slot1RegistrationID)

	open, err := f.disputeSvc.ListOpen(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestResolveDisputeIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament, _ := f.liveTournament(t, "double ruling cup", models.FormatSingleElimination, 4)
	match, dispute := disputedMatch(t, f, tournament.ID)

	decision := models.DisputeDecision{WinnerRegistrationID: *match.P1RegistrationID, Score1: 1}
	_, err := f.disputeSvc.Resolve(ctx, dispute.ID, 7, decision)
	require.NoError(t, err)

	_, err = f.disputeSvc.Resolve(ctx, dispute.ID, 7, decision)
	assert.ErrorIs(t, err, ErrDisputeAlreadyResolved)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestResolveDisputeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tournament, _ := f.liveTournament(t, "bad ruling cup", models.FormatSingleElimination, 4)
	_, dispute := disputedMatch(t, f, tournament.ID)

	_, err := f.disputeSvc.Resolve(ctx, 9999, 7, models.DisputeDecision{})
	assert.ErrorIs(t, err, ErrDisputeNotFound)

	// The ruled winner must be one of the match participants.
	_, err = f.disputeSvc.Resolve(ctx, dispute.ID, 7, models.DisputeDecision{WinnerRegistrationID: 424242})
	assert.ErrorIs(t, err, ErrWinnerNotInMatch)

	// The rejected ruling left the dispute open.
	open, err := f.disputeSvc.ListOpen(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)

}
