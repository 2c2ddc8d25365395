package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
)

// Actor strings recorded in the transition audit log.
const (
	ActorScheduler = "scheduler"
	ActorEngine    = "engine"
)

func ActorOrganizer(organizerID int) string {
	return fmt.Sprintf("organizer:%d", organizerID)
}

type CreateTournamentInput struct {
	Name        string                  `json:"name"`
	Description *string                 `json:"description,omitempty"`
	OrganizerID int                     `json:"-"`
	Format      models.TournamentFormat `json:"format"`
	RegOpensAt  time.Time               `json:"reg_opens_at"`
	RegClosesAt time.Time               `json:"reg_closes_at"`
	StartsAt    time.Time               `json:"starts_at"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, limit, offset int) ([]*models.Tournament, error)
	ListTransitions(ctx context.Context, tournamentID int) ([]*models.TournamentTransition, error)

	// RegisterParticipant adds a confirmed entrant while registration is
	// open. Exactly one of userID and teamID must be set.
	RegisterParticipant(ctx context.Context, tournamentID int, userID, teamID *int) (*models.Registration, error)

	Publish(ctx context.Context, tournamentID int, actor string) error
	OpenRegistration(ctx context.Context, tournamentID int, actor string) error
	// CloseRegistration freezes the entrant list and builds the bracket
	// in the same transaction. Calling it again is a conflict, never a
	// second bracket.
	CloseRegistration(ctx context.Context, tournamentID int, actor string) (*models.Bracket, error)
	StartCheckIn(ctx context.Context, tournamentID int, actor string) error
	GoLive(ctx context.Context, tournamentID int, actor string) error
	Archive(ctx context.Context, tournamentID int, actor string) error
	// Cancel aborts a non-terminal tournament, force-cancelling its
	// remaining matches and voiding open disputes.
	Cancel(ctx context.Context, tournamentID int, actor, reason string) error

	// GetStandings computes the final placement table of a concluded
	// tournament.
	GetStandings(ctx context.Context, tournamentID int) ([]models.Standing, error)

	// AutoUpdateStatusesByDates advances date-driven phases. Driven by
	// the scheduler.
	AutoUpdateStatusesByDates(ctx context.Context, now time.Time) error
}

type tournamentService struct {
	txManager      repositories.TxManager
	db             repositories.SQLExecutor
	tournamentRepo repositories.TournamentRepository
	regRepo        repositories.RegistrationRepository
	bracketRepo    repositories.BracketRepository
	nodeRepo       repositories.BracketNodeRepository
	matchRepo      repositories.MatchRepository
	disputeRepo    repositories.DisputeRepository
	transitionRepo repositories.TransitionRepository
	bracketService BracketService
	publisher      *EventPublisher
	timing         MatchTiming
	logger         *slog.Logger
	now            func() time.Time
}

func NewTournamentService(
	txManager repositories.TxManager,
	db repositories.SQLExecutor,
	tournamentRepo repositories.TournamentRepository,
	regRepo repositories.RegistrationRepository,
	bracketRepo repositories.BracketRepository,
	nodeRepo repositories.BracketNodeRepository,
	matchRepo repositories.MatchRepository,
	disputeRepo repositories.DisputeRepository,
	transitionRepo repositories.TransitionRepository,
	bracketService BracketService,
	publisher *EventPublisher,
	timing MatchTiming,
	logger *slog.Logger,
) *tournamentService {
	return &tournamentService{
		txManager:      txManager,
		db:             db,
		tournamentRepo: tournamentRepo,
		regRepo:        regRepo,
		bracketRepo:    bracketRepo,
		nodeRepo:       nodeRepo,
		matchRepo:      matchRepo,
		disputeRepo:    disputeRepo,
		transitionRepo: transitionRepo,
		bracketService: bracketService,
		publisher:      publisher,
		timing:         timing,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if !input.Format.Valid() {
		return nil, ErrUnsupportedFormat
	}
	if !input.RegOpensAt.Before(input.RegClosesAt) || input.StartsAt.Before(input.RegClosesAt) {
		return nil, ErrTournamentDatesInvalid
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		Description: input.Description,
		OrganizerID: input.OrganizerID,
		Format:      input.Format,
		Status:      models.StatusDraft,
		RegOpensAt:  input.RegOpensAt,
		RegClosesAt: input.RegClosesAt,
		StartsAt:    input.StartsAt,
	}
	err := s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.tournamentRepo.Create(ctx, tx, tournament); err != nil {
			if errors.Is(err, repositories.ErrTournamentNameConflict) {
				return fmt.Errorf("%w: tournament name already in use", ErrConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, limit, offset int) ([]*models.Tournament, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.tournamentRepo.List(ctx, s.db, limit, offset)
}

func (s *tournamentService) ListTransitions(ctx context.Context, tournamentID int) ([]*models.TournamentTransition, error) {
	if _, err := s.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.transitionRepo.ListByTournament(ctx, s.db, tournamentID)
}

func (s *tournamentService) RegisterParticipant(ctx context.Context, tournamentID int, userID, teamID *int) (*models.Registration, error) {
	if (userID == nil) == (teamID == nil) {
		return nil, fmt.Errorf("%w: exactly one of user_id and team_id must be set", ErrValidation)
	}

	reg := &models.Registration{
		TournamentID: tournamentID,
		UserID:       userID,
		TeamID:       teamID,
		Status:       models.RegistrationConfirmed,
	}
	err := s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		tournament, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Status != models.StatusRegistrationOpen {
			return ErrTournamentNotActionable
		}
		if err := s.regRepo.Create(ctx, tx, reg); err != nil {
			if errors.Is(err, repositories.ErrRegistrationConflict) {
				return fmt.Errorf("%w: participant already registered", ErrConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *tournamentService) Publish(ctx context.Context, tournamentID int, actor string) error {
	return s.transition(ctx, tournamentID, models.StatusPublished, actor, nil)
}

func (s *tournamentService) OpenRegistration(ctx context.Context, tournamentID int, actor string) error {
	return s.transition(ctx, tournamentID, models.StatusRegistrationOpen, actor, nil)
}

func (s *tournamentService) StartCheckIn(ctx context.Context, tournamentID int, actor string) error {
	return s.transition(ctx, tournamentID, models.StatusCheckIn, actor, nil)
}

func (s *tournamentService) GoLive(ctx context.Context, tournamentID int, actor string) error {
	return s.transition(ctx, tournamentID, models.StatusLive, actor, nil)
}

func (s *tournamentService) Archive(ctx context.Context, tournamentID int, actor string) error {
	return s.transition(ctx, tournamentID, models.StatusArchived, actor, nil)
}

// transition performs one guarded status move and records it.
func (s *tournamentService) transition(ctx context.Context, tournamentID int, to models.TournamentStatus, actor string, reason *string) error {
	return s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		tournament, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		return s.applyTransition(ctx, tx, tournament, to, actor, reason)
	})
}

// applyTransition moves an already locked tournament to a new status
// and appends the audit row. The caller holds the row lock.
func (s *tournamentService) applyTransition(ctx context.Context, tx repositories.SQLExecutor, tournament *models.Tournament, to models.TournamentStatus, actor string, reason *string) error {
	if !isValidTournamentTransition(tournament.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tournament.Status, to)
	}
	if err := s.tournamentRepo.UpdateStatusGuarded(ctx, tx, tournament.ID, tournament.Status, to); err != nil {
		if errors.Is(err, repositories.ErrTournamentStatusStale) {
			return fmt.Errorf("%w: tournament status changed concurrently", ErrConflict)
		}
		return err
	}
	if err := s.transitionRepo.Append(ctx, tx, &models.TournamentTransition{
		TournamentID: tournament.ID,
		FromStatus:   tournament.Status,
		ToStatus:     to,
		TriggeredBy:  actor,
		Reason:       reason,
	}); err != nil {
		return err
	}
	tournament.Status = to
	return nil
}

func (s *tournamentService) lockTournament(ctx context.Context, tx repositories.SQLExecutor, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) CloseRegistration(ctx context.Context, tournamentID int, actor string) (*models.Bracket, error) {
	var bracket *models.Bracket
	batch := &eventBatch{}

	err := s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		tournament, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Status != models.StatusRegistrationOpen {
			// A repeat close is reported as the bracket conflict, not a
			// state error, so retrying callers can tell the two apart.
			if _, bErr := s.bracketRepo.GetByTournament(ctx, tx, tournamentID); bErr == nil {
				return ErrBracketAlreadyBuilt
			}
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tournament.Status, models.StatusRegistrationClosed)
		}

		bracket, err = s.bracketService.BuildForTournament(ctx, tx, tournament, batch)
		if err != nil {
			return err
		}
		return s.applyTransition(ctx, tx, tournament, models.StatusRegistrationClosed, actor, nil)
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Emit(batch.events)
	return bracket, nil
}

func (s *tournamentService) Cancel(ctx context.Context, tournamentID int, actor, reason string) error {
	batch := &eventBatch{}
	err := s.txManager.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		tournament, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.Status.IsTerminal() {
			return fmt.Errorf("%w: tournament is already %s", ErrInvalidState, tournament.Status)
		}

		cancelledMatches, err := s.matchRepo.CancelAllNonTerminal(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		voidedDisputes, err := s.disputeRepo.VoidOpenByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if err := s.applyTransition(ctx, tx, tournament, models.StatusCancelled, actor, &reason); err != nil {
			return err
		}

		batch.add(tournamentID, nil, models.TournamentCancelledPayload{
			Reason:           reason,
			CancelledMatches: cancelledMatches,
			VoidedDisputes:   voidedDisputes,
		})
		return nil
	})
	if err != nil {
		return err
	}
	s.publisher.Emit(batch.events)
	return nil
}

// OnFinalMatchCompleted concludes an elimination tournament inside the
// transaction that decided its root node.
func (s *tournamentService) OnFinalMatchCompleted(ctx context.Context, exec repositories.SQLExecutor, tournamentID, winnerRegistrationID int, batch *eventBatch) error {
	return s.conclude(ctx, exec, tournamentID, batch)
}

// OnAllMatchesCompleted concludes a round robin once its last node is
// decided.
func (s *tournamentService) OnAllMatchesCompleted(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, batch *eventBatch) error {
	return s.conclude(ctx, exec, tournamentID, batch)
}

func (s *tournamentService) conclude(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, batch *eventBatch) error {
	tournament, err := s.lockTournament(ctx, exec, tournamentID)
	if err != nil {
		return err
	}
	if err := s.applyTransition(ctx, exec, tournament, models.StatusCompleted, ActorEngine, nil); err != nil {
		return err
	}

	standings, err := s.computeStandings(ctx, exec, tournamentID)
	if err != nil {
		return err
	}
	if err := s.applyTransition(ctx, exec, tournament, models.StatusConcluded, ActorEngine, nil); err != nil {
		return err
	}
	batch.add(tournamentID, nil, models.TournamentConcludedPayload{Standings: standings})
	return nil
}

func (s *tournamentService) GetStandings(ctx context.Context, tournamentID int) ([]models.Standing, error) {
	tournament, err := s.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusConcluded && tournament.Status != models.StatusArchived {
		return nil, fmt.Errorf("%w: standings are available once the tournament concludes", ErrInvalidState)
	}
	return s.computeStandings(ctx, s.db, tournamentID)
}

// computeStandings derives the placement table from the decided
// bracket. Participants removed by vacancy (double forfeits) receive
// no row.
func (s *tournamentService) computeStandings(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.Standing, error) {
	bracket, err := s.bracketRepo.GetByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.nodeRepo.ListByBracket(ctx, exec, bracket.ID)
	if err != nil {
		return nil, err
	}
	regs, err := s.regRepo.ListConfirmedByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, err
	}
	refs := make(map[int]models.ParticipantRef, len(regs))
	for _, reg := range regs {
		refs[reg.ID] = reg.Ref()
	}

	var placements map[int]int
	switch bracket.Format {
	case models.FormatSingleElimination:
		placements = singleEliminationPlacements(bracket, nodes)
	case models.FormatDoubleElimination:
		placements = doubleEliminationPlacements(nodes)
	case models.FormatRoundRobin:
		placements = roundRobinPlacements(nodes, regs)
	default:
		return nil, ErrUnsupportedFormat
	}

	standings := make([]models.Standing, 0, len(placements))
	for registrationID, placement := range placements {
		standings = append(standings, models.Standing{
			TournamentID:   tournamentID,
			Placement:      placement,
			RegistrationID: registrationID,
			Recipient:      refs[registrationID],
		})
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Placement != standings[j].Placement {
			return standings[i].Placement < standings[j].Placement
		}
		return standings[i].RegistrationID < standings[j].RegistrationID
	})
	return standings, nil
}

// nodeLoser returns the occupant who lost a decided node, if both a
// winner and a second occupant exist.
func nodeLoser(n *models.BracketNode) (int, bool) {
	if n.WinnerRegistrationID == nil {
		return 0, false
	}
	winner := *n.WinnerRegistrationID
	if n.Slot1RegistrationID != nil && *n.Slot1RegistrationID != winner {
		return *n.Slot1RegistrationID, true
	}
	if n.Slot2RegistrationID != nil && *n.Slot2RegistrationID != winner {
		return *n.Slot2RegistrationID, true
	}
	return 0, false
}

// singleEliminationPlacements ties losers of the same round: losing in
// round r of a capacity-C bracket places you C/2^r + 1.
func singleEliminationPlacements(bracket *models.Bracket, nodes []*models.BracketNode) map[int]int {
	placements := make(map[int]int)
	for _, n := range nodes {
		if n.ParentID == nil && n.WinnerRegistrationID != nil {
			placements[*n.WinnerRegistrationID] = 1
		}
		if loser, ok := nodeLoser(n); ok {
			matchesInRound := bracket.Capacity >> n.Round
			placements[loser] = matchesInRound + 1
		}
	}
	return placements
}

// doubleEliminationPlacements ranks by elimination point: grand final
// decides first and second, and losers-bracket exits tie per round.
func doubleEliminationPlacements(nodes []*models.BracketNode) map[int]int {
	placements := make(map[int]int)
	lbMatchesPerRound := make(map[int]int)
	maxLBRound := 0
	for _, n := range nodes {
		if n.Side == models.SideLosers {
			lbMatchesPerRound[n.Round]++
			if n.Round > maxLBRound {
				maxLBRound = n.Round
			}
		}
	}

	for _, n := range nodes {
		switch n.Side {
		case models.SideGrandFinal:
			if n.WinnerRegistrationID != nil {
				placements[*n.WinnerRegistrationID] = 1
			}
			if loser, ok := nodeLoser(n); ok {
				placements[loser] = 2
			}
		case models.SideLosers:
			if loser, ok := nodeLoser(n); ok {
				place := 3
				for round := n.Round + 1; round <= maxLBRound; round++ {
					place += lbMatchesPerRound[round]
				}
				placements[loser] = place
			}
		}
	}
	return placements
}

// roundRobinPlacements ranks by decided wins with standard competition
// ranking: tied participants share a place and the next rank skips.
func roundRobinPlacements(nodes []*models.BracketNode, regs []*models.Registration) map[int]int {
	wins := make(map[int]int, len(regs))
	for _, reg := range regs {
		wins[reg.ID] = 0
	}
	for _, n := range nodes {
		if n.WinnerRegistrationID != nil {
			wins[*n.WinnerRegistrationID]++
		}
	}

	type entry struct {
		registrationID int
		wins           int
	}
	table := make([]entry, 0, len(wins))
	for registrationID, w := range wins {
		table = append(table, entry{registrationID, w})
	}
	sort.Slice(table, func(i, j int) bool {
		if table[i].wins != table[j].wins {
			return table[i].wins > table[j].wins
		}
		return table[i].registrationID < table[j].registrationID
	})

	placements := make(map[int]int, len(table))
	for i, e := range table {
		if i > 0 && e.wins == table[i-1].wins {
			placements[e.registrationID] = placements[table[i-1].registrationID]
			continue
		}
		placements[e.registrationID] = i + 1
	}
	return placements
}

// AutoUpdateStatusesByDates walks date-driven phases forward: opening
// and closing registration and starting check-in and play on schedule.
func (s *tournamentService) AutoUpdateStatusesByDates(ctx context.Context, now time.Time) error {
	steps := []struct {
		from    models.TournamentStatus
		advance func(t *models.Tournament) error
	}{
		{models.StatusPublished, func(t *models.Tournament) error {
			if now.Before(t.RegOpensAt) {
				return nil
			}
			return s.OpenRegistration(ctx, t.ID, ActorScheduler)
		}},
		{models.StatusRegistrationOpen, func(t *models.Tournament) error {
			if now.Before(t.RegClosesAt) {
				return nil
			}
			_, err := s.CloseRegistration(ctx, t.ID, ActorScheduler)
			if errors.Is(err, ErrNotEnoughEntrants) {
				// Not enough entrants by the deadline; the tournament
				// cannot proceed.
				return s.Cancel(ctx, t.ID, ActorScheduler, "not enough entrants at registration close")
			}
			return err
		}},
		{models.StatusRegistrationClosed, func(t *models.Tournament) error {
			if now.Before(t.StartsAt.Add(-s.timing.CheckInWindow)) {
				return nil
			}
			return s.StartCheckIn(ctx, t.ID, ActorScheduler)
		}},
		{models.StatusCheckIn, func(t *models.Tournament) error {
			if now.Before(t.StartsAt) {
				return nil
			}
			return s.GoLive(ctx, t.ID, ActorScheduler)
		}},
	}

	for _, step := range steps {
		tournaments, err := s.tournamentRepo.ListByStatus(ctx, s.db, step.from)
		if err != nil {
			return err
		}
		for _, t := range tournaments {
			if err := step.advance(t); err != nil {
				// Concurrent moves are expected; log and keep going.
				s.logger.Error("scheduled status update failed",
					slog.Int("tournament_id", t.ID),
					slog.String("from", string(step.from)),
					slog.Any("error", err))
			}
		}
	}
	return nil
}
