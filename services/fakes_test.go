package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
)

// In-memory repository fakes. They ignore the executor argument; the
// pass-through transaction manager below never produces a real one.

type fakeTxManager struct{}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(tx repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeTournamentRepo struct {
	nextID int
	rows   map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{nextID: 1, rows: map[int]*models.Tournament{}}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	for _, existing := range r.rows {
		if existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	t.ID = r.nextID
	r.nextID++
	t.CreatedAt = time.Now()
	stored := *t
	r.rows[t.ID] = &stored
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeTournamentRepo) List(ctx context.Context, exec repositories.SQLExecutor, limit, offset int) ([]*models.Tournament, error) {
	ids := make([]int, 0, len(r.rows))
	for id := range r.rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []*models.Tournament
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(out) == limit {
			break
		}
		copied := *r.rows[id]
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeTournamentRepo) ListByStatus(ctx context.Context, exec repositories.SQLExecutor, status models.TournamentStatus) ([]*models.Tournament, error) {
	ids := make([]int, 0, len(r.rows))
	for id := range r.rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []*models.Tournament
	for _, id := range ids {
		if r.rows[id].Status == status {
			copied := *r.rows[id]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) UpdateStatusGuarded(ctx context.Context, exec repositories.SQLExecutor, id int, expected, next models.TournamentStatus) error {
	row, ok := r.rows[id]
	if !ok || row.Status != expected {
		return repositories.ErrTournamentStatusStale
	}
	row.Status = next
	return nil
}

type fakeRegistrationRepo struct {
	nextID int
	rows   map[int]*models.Registration
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{nextID: 1, rows: map[int]*models.Registration{}}
}

func (r *fakeRegistrationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	for _, existing := range r.rows {
		if existing.TournamentID != reg.TournamentID || existing.Status != models.RegistrationConfirmed {
			continue
		}
		sameUser := existing.UserID != nil && reg.UserID != nil && *existing.UserID == *reg.UserID
		sameTeam := existing.TeamID != nil && reg.TeamID != nil && *existing.TeamID == *reg.TeamID
		if sameUser || sameTeam {
			return repositories.ErrRegistrationConflict
		}
	}
	reg.ID = r.nextID
	r.nextID++
	reg.CreatedAt = time.Now()
	stored := *reg
	r.rows[reg.ID] = &stored
	return nil
}

func (r *fakeRegistrationRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Registration, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *fakeRegistrationRepo) ListConfirmedByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Registration, error) {
	var out []*models.Registration
	for _, row := range r.rows {
		if row.TournamentID == tournamentID && row.Status == models.RegistrationConfirmed {
			copied := *row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Seed, out[j].Seed
		switch {
		case si != nil && sj != nil && *si != *sj:
			return *si < *sj
		case si != nil && sj == nil:
			return true
		case si == nil && sj != nil:
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeRegistrationRepo) UpdateSeed(ctx context.Context, exec repositories.SQLExecutor, id int, seed int) error {
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	row.Seed = &seed
	return nil
}

type fakeBracketRepo struct {
	nextID int
	rows   map[int]*models.Bracket
}

func newFakeBracketRepo() *fakeBracketRepo {
	return &fakeBracketRepo{nextID: 1, rows: map[int]*models.Bracket{}}
}

func (r *fakeBracketRepo) AcquireBuildLock(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	return nil
}

func (r *fakeBracketRepo) Create(ctx context.Context, exec repositories.SQLExecutor, b *models.Bracket) error {
	for _, existing := range r.rows {
		if existing.TournamentID == b.TournamentID {
			return repositories.ErrBracketExists
		}
	}
	b.ID = r.nextID
	r.nextID++
	b.CreatedAt = time.Now()
	stored := *b
	r.rows[b.ID] = &stored
	return nil
}

func (r *fakeBracketRepo) GetByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*models.Bracket, error) {
	for _, row := range r.rows {
		if row.TournamentID == tournamentID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, repositories.ErrBracketNotFound
}

type fakeNodeRepo struct {
	nextID  int
	rows    map[int]*models.BracketNode
	matches *fakeMatchRepo
}

func newFakeNodeRepo(matches *fakeMatchRepo) *fakeNodeRepo {
	return &fakeNodeRepo{nextID: 1, rows: map[int]*models.BracketNode{}, matches: matches}
}

func (r *fakeNodeRepo) Create(ctx context.Context, exec repositories.SQLExecutor, n *models.BracketNode) error {
	n.ID = r.nextID
	r.nextID++
	stored := *n
	r.rows[n.ID] = &stored
	return nil
}

func (r *fakeNodeRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.BracketNode, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrNodeNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *fakeNodeRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.BracketNode, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeNodeRepo) ListByBracket(ctx context.Context, exec repositories.SQLExecutor, bracketID int) ([]*models.BracketNode, error) {
	var out []*models.BracketNode
	for _, row := range r.rows {
		if row.BracketID == bracketID {
			copied := *row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeNodeRepo) UpdateLinks(ctx context.Context, exec repositories.SQLExecutor, id int, parentID, parentSlot, loserNodeID, loserSlot *int) error {
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrNodeNotFound
	}
	row.ParentID = parentID
	row.ParentSlot = parentSlot
	row.LoserNodeID = loserNodeID
	row.LoserSlot = loserSlot
	return nil
}

func (r *fakeNodeRepo) SetSlot(ctx context.Context, exec repositories.SQLExecutor, id int, slot int, registrationID *int, vacant bool) error {
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrNodeNotFound
	}
	if slot == 1 {
		row.Slot1RegistrationID = registrationID
		row.Slot1Vacant = vacant
	} else {
		row.Slot2RegistrationID = registrationID
		row.Slot2Vacant = vacant
	}
	return nil
}

func (r *fakeNodeRepo) SetWinner(ctx context.Context, exec repositories.SQLExecutor, id int, winnerRegistrationID int) error {
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrNodeNotFound
	}
	row.WinnerRegistrationID = &winnerRegistrationID
	return nil
}

func (r *fakeNodeRepo) CountUndecidedByBracket(ctx context.Context, exec repositories.SQLExecutor, bracketID int) (int, error) {
	count := 0
	for _, row := range r.rows {
		if row.BracketID != bracketID || row.WinnerRegistrationID != nil {
			continue
		}
		cancelled := false
		for _, m := range r.matches.rows {
			if m.NodeID == row.ID && m.Status == models.MatchCancelled {
				cancelled = true
				break
			}
		}
		if !cancelled {
			count++
		}
	}
	return count, nil
}

type fakeMatchRepo struct {
	nextID int
	rows   map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1, rows: map[int]*models.Match{}}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	m.ID = r.nextID
	r.nextID++
	m.CreatedAt = time.Now()
	stored := *m
	r.rows[m.ID] = &stored
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeMatchRepo) GetByNode(ctx context.Context, exec repositories.SQLExecutor, nodeID int) (*models.Match, error) {
	for _, row := range r.rows {
		if row.NodeID == nodeID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, status *models.MatchStatus) ([]*models.Match, error) {
	var out []*models.Match
	for _, row := range r.rows {
		if row.TournamentID != tournamentID {
			continue
		}
		if status != nil && row.Status != *status {
			continue
		}
		copied := *row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) ListDueForCheckIn(ctx context.Context, exec repositories.SQLExecutor, now time.Time) ([]*models.Match, error) {
	var out []*models.Match
	for _, row := range r.rows {
		if row.Status == models.MatchScheduled && row.CheckInOpensAt != nil && !row.CheckInOpensAt.After(now) {
			copied := *row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) ListPastCheckInDeadline(ctx context.Context, exec repositories.SQLExecutor, now time.Time) ([]*models.Match, error) {
	var out []*models.Match
	for _, row := range r.rows {
		if row.Status == models.MatchCheckIn && row.CheckInDeadline != nil && row.CheckInDeadline.Before(now) {
			copied := *row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) ListPendingResultSince(ctx context.Context, exec repositories.SQLExecutor, cutoff time.Time) ([]*models.Match, error) {
	var out []*models.Match
	for _, row := range r.rows {
		if row.Status == models.MatchPendingResult && row.FirstResultAt != nil && !row.FirstResultAt.After(cutoff) {
			copied := *row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.MatchStatus) error {
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	row.Status = status
	return nil
}

func (r *fakeMatchRepo) UpdateCheckIn(ctx context.Context, exec repositories.SQLExecutor, id int, side models.MatchSide, checkedIn bool) error {
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if side == models.Side1 {
		row.P1CheckedIn = checkedIn
	} else {
		row.P2CheckedIn = checkedIn
	}
	return nil
}

func (r *fakeMatchRepo) SetCheckInWindow(ctx context.Context, exec repositories.SQLExecutor, id int, opensAt, deadline time.Time) error {
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	row.CheckInOpensAt = &opensAt
	row.CheckInDeadline = &deadline
	return nil
}

func (r *fakeMatchRepo) SetFirstResultAt(ctx context.Context, exec repositories.SQLExecutor, id int, at time.Time) error {
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	row.FirstResultAt = &at
	return nil
}

func (r *fakeMatchRepo) Complete(ctx context.Context, exec repositories.SQLExecutor, id int, winnerRegistrationID int, score1, score2 *int) error {
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	row.Status = models.MatchCompleted
	row.WinnerRegistrationID = &winnerRegistrationID
	row.Score1 = score1
	row.Score2 = score2
	return nil
}

func (r *fakeMatchRepo) CancelAllNonTerminal(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	count := 0
	for _, row := range r.rows {
		if row.TournamentID == tournamentID && !row.Status.IsTerminal() {
			row.Status = models.MatchCancelled
			count++
		}
	}
	return count, nil
}

type fakeResultRepo struct {
	nextID int
	rows   []*models.MatchResult
}

func newFakeResultRepo() *fakeResultRepo { return &fakeResultRepo{nextID: 1} }

func (r *fakeResultRepo) Insert(ctx context.Context, exec repositories.SQLExecutor, res *models.MatchResult) error {
	res.ID = r.nextID
	r.nextID++
	res.SubmittedAt = time.Now()
	stored := *res
	r.rows = append(r.rows, &stored)
	return nil
}

func (r *fakeResultRepo) SupersedeBySide(ctx context.Context, exec repositories.SQLExecutor, matchID int, side models.MatchSide) error {
	for _, row := range r.rows {
		if row.MatchID == matchID && row.Side == side && !row.Superseded {
			row.Superseded = true
		}
	}
	return nil
}

func (r *fakeResultRepo) ListActiveByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.MatchResult, error) {
	var out []*models.MatchResult
	for _, row := range r.rows {
		if row.MatchID == matchID && !row.Superseded {
			copied := *row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Side < out[j].Side })
	return out, nil
}

type fakeDisputeRepo struct {
	nextID  int
	rows    map[int]*models.Dispute
	matches *fakeMatchRepo
}

func newFakeDisputeRepo(matches *fakeMatchRepo) *fakeDisputeRepo {
	return &fakeDisputeRepo{nextID: 1, rows: map[int]*models.Dispute{}, matches: matches}
}

func (r *fakeDisputeRepo) Create(ctx context.Context, exec repositories.SQLExecutor, d *models.Dispute) error {
	for _, existing := range r.rows {
		if existing.MatchID == d.MatchID && existing.Status == models.DisputeOpen {
			return repositories.ErrDisputeExists
		}
	}
	d.ID = r.nextID
	r.nextID++
	d.Status = models.DisputeOpen
	d.OpenedAt = time.Now()
	stored := *d
	r.rows[d.ID] = &stored
	return nil
}

func (r *fakeDisputeRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Dispute, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrDisputeNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *fakeDisputeRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Dispute, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeDisputeRepo) ListOpenByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Dispute, error) {
	var out []*models.Dispute
	for _, row := range r.rows {
		if row.Status != models.DisputeOpen {
			continue
		}
		match, ok := r.matches.rows[row.MatchID]
		if !ok || match.TournamentID != tournamentID {
			continue
		}
		copied := *row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeDisputeRepo) Resolve(ctx context.Context, exec repositories.SQLExecutor, id int, decision models.DisputeDecision, resolvedBy int, at time.Time) error {
	row, ok := r.rows[id]
	if !ok || row.Status != models.DisputeOpen {
		return repositories.ErrDisputeNotFound
	}
	row.Status = models.DisputeResolved
	row.WinnerRegistrationID = &decision.WinnerRegistrationID
	row.Score1 = &decision.Score1
	row.Score2 = &decision.Score2
	row.Rationale = &decision.Rationale
	row.ResolvedBy = &resolvedBy
	row.ResolvedAt = &at
	return nil
}

func (r *fakeDisputeRepo) VoidOpenByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	count := 0
	for _, row := range r.rows {
		if row.Status != models.DisputeOpen {
			continue
		}
		match, ok := r.matches.rows[row.MatchID]
		if !ok || match.TournamentID != tournamentID {
			continue
		}
		row.Status = models.DisputeVoided
		count++
	}
	return count, nil
}

type fakeTransitionRepo struct {
	nextID int
	rows   []*models.TournamentTransition
}

func newFakeTransitionRepo() *fakeTransitionRepo { return &fakeTransitionRepo{nextID: 1} }

func (r *fakeTransitionRepo) Append(ctx context.Context, exec repositories.SQLExecutor, t *models.TournamentTransition) error {
	t.ID = r.nextID
	r.nextID++
	t.CreatedAt = time.Now()
	stored := *t
	r.rows = append(r.rows, &stored)
	return nil
}

func (r *fakeTransitionRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.TournamentTransition, error) {
	var out []*models.TournamentTransition
	for _, row := range r.rows {
		if row.TournamentID == tournamentID {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeOrganizerRepo struct {
	nextID int
	rows   map[int]*models.Organizer
}

func newFakeOrganizerRepo() *fakeOrganizerRepo {
	return &fakeOrganizerRepo{nextID: 1, rows: map[int]*models.Organizer{}}
}

func (r *fakeOrganizerRepo) Create(ctx context.Context, exec repositories.SQLExecutor, o *models.Organizer) error {
	for _, existing := range r.rows {
		if existing.Email == o.Email {
			return repositories.ErrOrganizerEmailConflict
		}
	}
	o.ID = r.nextID
	r.nextID++
	o.CreatedAt = time.Now()
	stored := *o
	r.rows[o.ID] = &stored
	return nil
}

func (r *fakeOrganizerRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Organizer, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrOrganizerNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *fakeOrganizerRepo) GetByEmail(ctx context.Context, exec repositories.SQLExecutor, email string) (*models.Organizer, error) {
	for _, row := range r.rows {
		if row.Email == email {
			copied := *row
			return &copied, nil
		}
	}
	return nil, repositories.ErrOrganizerNotFound
}

// fixture wires the whole service layer over the fakes with a frozen
// clock, so tests can drive a tournament end to end deterministically.
type fixture struct {
	base time.Time
	// open is when the check-in windows of matches built by the
	// standard fixture tournament open: its StartsAt, since the timing
	// uses no check-in offset.
	open time.Time

	tournaments *fakeTournamentRepo
	regs        *fakeRegistrationRepo
	bracketRepo *fakeBracketRepo
	nodes       *fakeNodeRepo
	matches     *fakeMatchRepo
	results     *fakeResultRepo
	disputes    *fakeDisputeRepo
	transitions *fakeTransitionRepo
	organizers  *fakeOrganizerRepo

	prog          *Progression
	tournamentSvc *tournamentService
	bracketSvc    BracketService
	matchSvc      MatchService
	resultSvc     ResultService
	disputeSvc    DisputeService
	authSvc       AuthService
}

const testResultTimeout = 10 * time.Minute

func newFixture(t *testing.T) *fixture {
	t.Helper()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	timing := MatchTiming{CheckInWindow: 15 * time.Minute}
	tx := &fakeTxManager{}

	tournaments := newFakeTournamentRepo()
	regs := newFakeRegistrationRepo()
	bracketRepo := newFakeBracketRepo()
	matches := newFakeMatchRepo()
	nodes := newFakeNodeRepo(matches)
	results := newFakeResultRepo()
	disputes := newFakeDisputeRepo(matches)
	transitions := newFakeTransitionRepo()
	organizers := newFakeOrganizerRepo()

	prog := NewProgression(tournaments, bracketRepo, nodes, matches, timing)
	prog.now = func() time.Time { return base }

	publisher := NewEventPublisher(nil, logger)
	bracketSvc := NewBracketService(nil, bracketRepo, nodes, matches, regs, prog)
	tournamentSvc := NewTournamentService(tx, nil, tournaments, regs, bracketRepo, nodes, matches,
		disputes, transitions, bracketSvc, publisher, timing, logger)
	prog.SetFinalizer(tournamentSvc)

	resultSvc := NewResultService(tx, nil, tournaments, matches, results, disputes, prog, publisher,
		testResultTimeout, logger)
	resultSvc.(*resultService).now = func() time.Time { return base }

	return &fixture{
		base:          base,
		open:          base.Add(2 * time.Hour),
		tournaments:   tournaments,
		regs:          regs,
		bracketRepo:   bracketRepo,
		nodes:         nodes,
		matches:       matches,
		results:       results,
		disputes:      disputes,
		transitions:   transitions,
		organizers:    organizers,
		prog:          prog,
		tournamentSvc: tournamentSvc,
		bracketSvc:    bracketSvc,
		matchSvc:      NewMatchService(tx, nil, tournaments, matches, prog, publisher, logger),
		resultSvc:     resultSvc,
		disputeSvc:    NewDisputeService(tx, nil, tournaments, matches, disputes, prog, publisher),
		authSvc:       NewAuthService(tx, nil, organizers, "test-secret"),
	}
}

// createTournament builds a draft tournament with a consistent date
// window relative to the frozen clock.
func (f *fixture) createTournament(t *testing.T, name string, format models.TournamentFormat) *models.Tournament {
	t.Helper()
	tournament, err := f.tournamentSvc.CreateTournament(context.Background(), CreateTournamentInput{
		Name:        name,
		OrganizerID: 1,
		Format:      format,
		RegOpensAt:  f.base,
		RegClosesAt: f.base.Add(time.Hour),
		StartsAt:    f.base.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	return tournament
}

// liveTournament walks a fresh tournament through registration of n
// entrants all the way to LIVE and returns it with its registrations,
// already seeded 1..n.
func (f *fixture) liveTournament(t *testing.T, name string, format models.TournamentFormat, n int) (*models.Tournament, []*models.Registration) {
	t.Helper()
	ctx := context.Background()
	tournament := f.createTournament(t, name, format)
	actor := ActorOrganizer(1)

	require.NoError(t, f.tournamentSvc.Publish(ctx, tournament.ID, actor))
	require.NoError(t, f.tournamentSvc.OpenRegistration(ctx, tournament.ID, actor))
	for i := 1; i <= n; i++ {
		userID := 100 + i
		_, err := f.tournamentSvc.RegisterParticipant(ctx, tournament.ID, &userID, nil)
		require.NoError(t, err)
	}
	_, err := f.tournamentSvc.CloseRegistration(ctx, tournament.ID, actor)
	require.NoError(t, err)
	require.NoError(t, f.tournamentSvc.StartCheckIn(ctx, tournament.ID, actor))
	require.NoError(t, f.tournamentSvc.GoLive(ctx, tournament.ID, actor))

	regs, err := f.regs.ListConfirmedByTournament(ctx, nil, tournament.ID)
	require.NoError(t, err)
	tournament, err = f.tournamentSvc.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	return tournament, regs
}

// scheduledMatches returns the tournament's still-playable SCHEDULED
// matches in creation order.
func (f *fixture) scheduledMatches(t *testing.T, tournamentID int) []*models.Match {
	t.Helper()
	status := models.MatchScheduled
	out, err := f.matches.ListByTournament(context.Background(), nil, tournamentID, &status)
	require.NoError(t, err)
	return out
}

// toLive pushes one scheduled match through check-in to LIVE.
func (f *fixture) toLive(t *testing.T, match *models.Match) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.matchSvc.OpenCheckInWindows(ctx, f.open))
	_, err := f.matchSvc.CheckIn(ctx, match.ID, *match.P1RegistrationID)
	require.NoError(t, err)
	_, err = f.matchSvc.CheckIn(ctx, match.ID, *match.P2RegistrationID)
	require.NoError(t, err)
	_, err = f.matchSvc.StartMatch(ctx, match.ID)
	require.NoError(t, err)
}

// playOut takes a scheduled match live and completes it by agreement.
func (f *fixture) playOut(t *testing.T, match *models.Match, winnerRegistrationID int) {
	t.Helper()
	ctx := context.Background()
	f.toLive(t, match)

	claim := ResultClaim{WinnerRegistrationID: winnerRegistrationID, Score1: 2, Score2: 1}
	_, err := f.resultSvc.SubmitResult(ctx, match.ID, *match.P1RegistrationID, claim)
	require.NoError(t, err)
	_, err = f.resultSvc.SubmitResult(ctx, match.ID, *match.P2RegistrationID, claim)
	require.NoError(t, err)

	final, err := f.matches.GetByID(ctx, nil, match.ID)
	require.NoError(t, err)
	require.Equal(t, models.MatchCompleted, final.Status)
}
