package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
)

// MatchTiming controls when a freshly instantiated match is scheduled
// and when its check-in window opens and closes.
type MatchTiming struct {
	LeadTime      time.Duration
	CheckInOffset time.Duration
	CheckInWindow time.Duration
}

// TournamentFinalizer is notified, inside the same transaction, when a
// bracket produces its champion or when a round robin runs out of
// undecided matches. Implemented by TournamentService; wired through a
// setter to break the construction cycle with the match side.
type TournamentFinalizer interface {
	OnFinalMatchCompleted(ctx context.Context, exec repositories.SQLExecutor, tournamentID, winnerRegistrationID int, batch *eventBatch) error
	OnAllMatchesCompleted(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, batch *eventBatch) error
}

// Progression owns the slot-filling and winner-routing machinery that
// every completion path funnels through: reconciled results, forfeits,
// byes, default wins, and dispute rulings all end in completeMatch.
type Progression struct {
	tournamentRepo repositories.TournamentRepository
	bracketRepo    repositories.BracketRepository
	nodeRepo       repositories.BracketNodeRepository
	matchRepo      repositories.MatchRepository

	timing    MatchTiming
	finalizer TournamentFinalizer
	now       func() time.Time
}

func NewProgression(
	tournamentRepo repositories.TournamentRepository,
	bracketRepo repositories.BracketRepository,
	nodeRepo repositories.BracketNodeRepository,
	matchRepo repositories.MatchRepository,
	timing MatchTiming,
) *Progression {
	return &Progression{
		tournamentRepo: tournamentRepo,
		bracketRepo:    bracketRepo,
		nodeRepo:       nodeRepo,
		matchRepo:      matchRepo,
		timing:         timing,
		now:            time.Now,
	}
}

func (p *Progression) SetFinalizer(f TournamentFinalizer) { p.finalizer = f }

// fillSlot places a participant, or a permanent vacancy, into one slot
// of a node and settles the node if that input was the last one it was
// waiting for. registrationID is nil when vacant is true.
func (p *Progression) fillSlot(ctx context.Context, exec repositories.SQLExecutor, tournamentID, nodeID, slot int, registrationID *int, vacant bool, batch *eventBatch) error {
	node, err := p.nodeRepo.GetByIDForUpdate(ctx, exec, nodeID)
	if err != nil {
		return fmt.Errorf("failed to lock node %d: %w", nodeID, err)
	}
	if node.SlotSettled(slot) {
		// Idempotent re-delivery; the slot already has its input.
		return nil
	}
	if err := p.nodeRepo.SetSlot(ctx, exec, nodeID, slot, registrationID, vacant); err != nil {
		return err
	}
	if slot == 1 {
		node.Slot1RegistrationID = registrationID
		node.Slot1Vacant = vacant
	} else {
		node.Slot2RegistrationID = registrationID
		node.Slot2Vacant = vacant
	}
	return p.settleNode(ctx, exec, tournamentID, node, batch)
}

// settleNode inspects a node after a slot change and either
// instantiates a playable match, bye-completes, or propagates vacancy.
// Called again for the same settled node it does nothing.
func (p *Progression) settleNode(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, node *models.BracketNode, batch *eventBatch) error {
	if !node.SlotSettled(1) || !node.SlotSettled(2) {
		return nil
	}

	switch {
	case node.BothSlotsFilled():
		return p.ensureMatch(ctx, exec, tournamentID, node)

	case node.Slot1Vacant && node.Slot2Vacant:
		// Nothing will ever reach this node. Pass the hole upward.
		return p.propagate(ctx, exec, tournamentID, node, nil, nil, batch)

	default:
		occupied := node.Slot1RegistrationID
		if occupied == nil {
			occupied = node.Slot2RegistrationID
		}
		return p.byeComplete(ctx, exec, tournamentID, node, *occupied, batch)
	}
}

// ensureMatch creates the SCHEDULED match for a node with two real
// participants, unless one already exists.
func (p *Progression) ensureMatch(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, node *models.BracketNode) error {
	_, err := p.matchRepo.GetByNode(ctx, exec, node.ID)
	if err == nil {
		return nil
	}
	if err != repositories.ErrMatchNotFound {
		return err
	}

	tournament, err := p.tournamentRepo.GetByID(ctx, exec, tournamentID)
	if err != nil {
		return err
	}

	// A match is never scheduled before the tournament's start time.
	// Brackets are built at registration close, which can be well ahead
	// of the start; later-round matches fall back to the lead time.
	scheduledAt := p.now().Add(p.timing.LeadTime)
	if tournament.StartsAt.After(scheduledAt) {
		scheduledAt = tournament.StartsAt
	}
	opensAt := scheduledAt.Add(-p.timing.CheckInOffset)
	deadline := opensAt.Add(p.timing.CheckInWindow)

	match := &models.Match{
		TournamentID:     tournamentID,
		NodeID:           node.ID,
		Round:            node.Round,
		P1RegistrationID: node.Slot1RegistrationID,
		P2RegistrationID: node.Slot2RegistrationID,
		Status:           models.MatchScheduled,
		ScheduledAt:      scheduledAt,
		CheckInOpensAt:   &opensAt,
		CheckInDeadline:  &deadline,
	}
	return p.matchRepo.Create(ctx, exec, match)
}

// byeComplete decides a node with a single participant without play. A
// completed bye match is recorded so the walkover shows up in history.
func (p *Progression) byeComplete(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, node *models.BracketNode, winnerRegistrationID int, batch *eventBatch) error {
	if _, err := p.matchRepo.GetByNode(ctx, exec, node.ID); err == nil {
		return nil
	} else if err != repositories.ErrMatchNotFound {
		return err
	}

	match := &models.Match{
		TournamentID:         tournamentID,
		NodeID:               node.ID,
		Round:                node.Round,
		P1RegistrationID:     &winnerRegistrationID,
		Status:               models.MatchCompleted,
		WinnerRegistrationID: &winnerRegistrationID,
		ScheduledAt:          p.now(),
	}
	if err := p.matchRepo.Create(ctx, exec, match); err != nil {
		return err
	}
	if err := p.nodeRepo.SetWinner(ctx, exec, node.ID, winnerRegistrationID); err != nil {
		return err
	}
	node.WinnerRegistrationID = &winnerRegistrationID

	batch.add(tournamentID, &match.ID, models.MatchCompletedPayload{
		NodeID:               node.ID,
		WinnerRegistrationID: winnerRegistrationID,
		Cause:                "bye",
	})

	// A bye produces no loser; the loser link, if any, goes vacant.
	return p.propagate(ctx, exec, tournamentID, node, &winnerRegistrationID, nil, batch)
}

// completeMatch finalizes a decided match: persists winner and scores,
// marks the node, and routes winner and loser onward. The caller has
// already locked the match row and validated the transition.
func (p *Progression) completeMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, winnerRegistrationID int, score1, score2 *int, cause string, batch *eventBatch) error {
	if err := p.matchRepo.Complete(ctx, exec, match.ID, winnerRegistrationID, score1, score2); err != nil {
		return err
	}
	match.Status = models.MatchCompleted
	match.WinnerRegistrationID = &winnerRegistrationID

	node, err := p.nodeRepo.GetByIDForUpdate(ctx, exec, match.NodeID)
	if err != nil {
		return fmt.Errorf("failed to lock node %d: %w", match.NodeID, err)
	}
	if err := p.nodeRepo.SetWinner(ctx, exec, node.ID, winnerRegistrationID); err != nil {
		return err
	}
	node.WinnerRegistrationID = &winnerRegistrationID

	batch.add(match.TournamentID, &match.ID, models.MatchCompletedPayload{
		NodeID:               node.ID,
		WinnerRegistrationID: winnerRegistrationID,
		Score1:               score1,
		Score2:               score2,
		Cause:                cause,
	})

	var loser *int
	if side, ok := match.SideOf(winnerRegistrationID); ok {
		switch side.Opponent() {
		case models.Side1:
			loser = match.P1RegistrationID
		case models.Side2:
			loser = match.P2RegistrationID
		}
	}
	return p.propagate(ctx, exec, match.TournamentID, node, &winnerRegistrationID, loser, batch)
}

// cancelWithVacancy handles a match both of whose participants are
// gone, such as a double forfeit. The match is cancelled, the node
// never gets a winner, and both outgoing links go vacant.
func (p *Progression) cancelWithVacancy(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, batch *eventBatch) error {
	if err := p.matchRepo.UpdateStatus(ctx, exec, match.ID, models.MatchCancelled); err != nil {
		return err
	}
	match.Status = models.MatchCancelled

	node, err := p.nodeRepo.GetByIDForUpdate(ctx, exec, match.NodeID)
	if err != nil {
		return fmt.Errorf("failed to lock node %d: %w", match.NodeID, err)
	}
	return p.propagate(ctx, exec, match.TournamentID, node, nil, nil, batch)
}

// propagate routes a decided node's outputs along its links and, at the
// edge of the bracket, hands control to the finalizer. A nil winner or
// loser turns the corresponding link into a vacancy.
func (p *Progression) propagate(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, node *models.BracketNode, winner, loser *int, batch *eventBatch) error {
	if node.LoserNodeID != nil {
		if err := p.fillSlot(ctx, exec, tournamentID, *node.LoserNodeID, *node.LoserSlot, loser, loser == nil, batch); err != nil {
			return err
		}
	}
	if node.ParentID != nil {
		return p.fillSlot(ctx, exec, tournamentID, *node.ParentID, *node.ParentSlot, winner, winner == nil, batch)
	}
	return p.checkConclusion(ctx, exec, tournamentID, node, winner, batch)
}

// checkConclusion runs once a parentless node is decided. Elimination
// formats conclude on their root node; round robin concludes when no
// undecided nodes remain.
func (p *Progression) checkConclusion(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, node *models.BracketNode, winner *int, batch *eventBatch) error {
	if p.finalizer == nil {
		return nil
	}
	bracket, err := p.bracketRepo.GetByTournament(ctx, exec, tournamentID)
	if err != nil {
		return err
	}

	if bracket.Format == models.FormatRoundRobin {
		undecided, err := p.nodeRepo.CountUndecidedByBracket(ctx, exec, bracket.ID)
		if err != nil {
			return err
		}
		if undecided == 0 {
			return p.finalizer.OnAllMatchesCompleted(ctx, exec, tournamentID, batch)
		}
		return nil
	}

	if winner != nil {
		return p.finalizer.OnFinalMatchCompleted(ctx, exec, tournamentID, *winner, batch)
	}
	// A fully vacant root cannot happen with two or more entrants; if it
	// does, leave the tournament for the organizer to cancel.
	return nil
}
