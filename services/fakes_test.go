package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/matchday-system/models"
	"github.com/Dosada05/matchday-system/repositories"
)

// fakeStore держит всё состояние в памяти и отдаёт его сервисам через
// адаптеры с интерфейсами репозиториев. Транзакции эмулируются
// снапшотом: ошибка внутри WithinTransaction откатывает стор к
// состоянию на момент входа.
type fakeStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	teams       map[int]models.Team
	fixtures    map[int]models.Fixture
	tournaments map[int]models.Tournament
	entries     map[int]models.Entry
	matches     map[int]models.BracketMatch

	nextTeamID       int
	nextFixtureID    int
	nextTournamentID int
	nextEntryID      int
	nextMatchID      int

	// Коммиты конкурирующих воркеров, имитированные во время открытой
	// транзакции. Откат текущей транзакции не должен их отменять, как
	// не отменял бы в Postgres.
	concurrentCommits []func(*fakeStore)

	// Хуки для имитации сбоев хранилища.
	failBulkInsert  error
	failMatchCreate map[int]error // tournamentID -> error

	// beforeClaim выполняется один раз перед захватом статуса
	// из состояния "open", что позволяет тестам вклинить
	// конкурирующего воркера ровно в окно гонки.
	beforeClaim func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		teams:            make(map[int]models.Team),
		fixtures:         make(map[int]models.Fixture),
		tournaments:      make(map[int]models.Tournament),
		entries:          make(map[int]models.Entry),
		matches:          make(map[int]models.BracketMatch),
		nextTeamID:       1,
		nextFixtureID:    1,
		nextTournamentID: 1,
		nextEntryID:      1,
		nextMatchID:      1,
		failMatchCreate:  make(map[int]error),
	}
}

type storeSnapshot struct {
	teams       map[int]models.Team
	fixtures    map[int]models.Fixture
	tournaments map[int]models.Tournament
	entries     map[int]models.Entry
	matches     map[int]models.BracketMatch

	nextTeamID       int
	nextFixtureID    int
	nextTournamentID int
	nextEntryID      int
	nextMatchID      int
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (s *fakeStore) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storeSnapshot{
		teams:            copyMap(s.teams),
		fixtures:         copyMap(s.fixtures),
		tournaments:      copyMap(s.tournaments),
		entries:          copyMap(s.entries),
		matches:          copyMap(s.matches),
		nextTeamID:       s.nextTeamID,
		nextFixtureID:    s.nextFixtureID,
		nextTournamentID: s.nextTournamentID,
		nextEntryID:      s.nextEntryID,
		nextMatchID:      s.nextMatchID,
	}
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams = copyMap(snap.teams)
	s.fixtures = copyMap(snap.fixtures)
	s.tournaments = copyMap(snap.tournaments)
	s.entries = copyMap(snap.entries)
	s.matches = copyMap(snap.matches)
	s.nextTeamID = snap.nextTeamID
	s.nextFixtureID = snap.nextFixtureID
	s.nextTournamentID = snap.nextTournamentID
	s.nextEntryID = snap.nextEntryID
	s.nextMatchID = snap.nextMatchID
}

// commitConcurrent применяет мутацию немедленно и запоминает её, чтобы
// повторить поверх отката текущей транзакции. mutate работает с уже
// захваченным s.mu и не должен брать его сам.
func (s *fakeStore) commitConcurrent(mutate func(*fakeStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concurrentCommits = append(s.concurrentCommits, mutate)
	mutate(s)
}

func (s *fakeStore) replayConcurrentCommits() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, mutate := range s.concurrentCommits {
		mutate(s)
	}
	s.concurrentCommits = nil
}

func (s *fakeStore) clearConcurrentCommits() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concurrentCommits = nil
}

// seedTeam вставляет команду напрямую, минуя сервисный слой.
func (s *fakeStore) seedTeam(division int, subdivision, name string) models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	team := models.Team{
		ID:          s.nextTeamID,
		Division:    division,
		Subdivision: subdivision,
		Name:        name,
		CreatedAt:   time.Now().UTC(),
	}
	s.teams[team.ID] = team
	s.nextTeamID++
	return team
}

func (s *fakeStore) seedTeams(division int, subdivision string, names ...string) []models.Team {
	teams := make([]models.Team, 0, len(names))
	for _, name := range names {
		teams = append(teams, s.seedTeam(division, subdivision, name))
	}
	return teams
}

func (s *fakeStore) seedTournament(name string, capacity int, deadline time.Time, status models.TournamentFillStatus) models.Tournament {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := models.Tournament{
		ID:                   s.nextTournamentID,
		Name:                 name,
		Capacity:             capacity,
		RegistrationDeadline: deadline,
		FillStatus:           status,
		CreatedAt:            time.Now().UTC(),
	}
	s.tournaments[t.ID] = t
	s.nextTournamentID++
	return t
}

// seedEntry регистрирует команду напрямую, минуя проверки дедлайна.
func (s *fakeStore) seedEntry(tournamentID int, team models.Team) models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	teamID := team.ID
	entry := models.Entry{
		ID:            s.nextEntryID,
		TournamentID:  tournamentID,
		TeamID:        &teamID,
		DisplayName:   team.Name,
		IsPlaceholder: false,
		CreatedAt:     time.Now().UTC(),
	}
	s.entries[entry.ID] = entry
	s.nextEntryID++
	return entry
}

func (s *fakeStore) tournamentStatus(id int) models.TournamentFillStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tournaments[id].FillStatus
}

func (s *fakeStore) entriesOf(tournamentID int) []models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]models.Entry, 0)
	for _, e := range s.entries {
		if e.TournamentID == tournamentID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

func (s *fakeStore) matchCount(tournamentID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, m := range s.matches {
		if m.TournamentID == tournamentID {
			count++
		}
	}
	return count
}

// --- TxRunner ---

type fakeTxRunner struct {
	store *fakeStore
}

func (r *fakeTxRunner) WithinTransaction(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	snap := r.store.snapshot()
	if err := fn(nil); err != nil {
		r.store.restore(snap)
		r.store.replayConcurrentCommits()
		return err
	}
	r.store.clearConcurrentCommits()
	return nil
}

// gatedTxRunner задерживает первую транзакцию до явного release, чтобы
// тест мог наблюдать второго вызывающего, пока первый ещё держит ключ
// регенерации. Последующие транзакции проходят без задержки.
type gatedTxRunner struct {
	inner    TxRunner
	gateOnce sync.Once
	entered  chan struct{}
	release  chan struct{}
}

func newGatedTxRunner(inner TxRunner) *gatedTxRunner {
	return &gatedTxRunner{
		inner:   inner,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *gatedTxRunner) WithinTransaction(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	gated := false
	r.gateOnce.Do(func() { gated = true })
	if gated {
		close(r.entered)
		<-r.release
	}
	return r.inner.WithinTransaction(ctx, fn)
}

// --- TeamRepository ---

type fakeTeamRepo struct {
	store *fakeStore
}

func (r *fakeTeamRepo) Create(ctx context.Context, team *models.Team) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.teams {
		if existing.Division == team.Division && existing.Subdivision == team.Subdivision && existing.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	team.ID = s.nextTeamID
	team.CreatedAt = time.Now().UTC()
	s.teams[team.ID] = *team
	s.nextTeamID++
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return &team, nil
}

func (r *fakeTeamRepo) ListBySubdivision(ctx context.Context, division int, subdivision string) ([]models.Team, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	teams := make([]models.Team, 0)
	for _, team := range s.teams {
		if team.Division == division && team.Subdivision == subdivision {
			teams = append(teams, team)
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}

func (r *fakeTeamRepo) Delete(ctx context.Context, id int) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(s.teams, id)
	return nil
}

// --- FixtureRepository ---

type fakeFixtureRepo struct {
	store *fakeStore
}

func containsTeam(ids []int, id int) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (r *fakeFixtureRepo) BulkInsert(ctx context.Context, exec repositories.SQLExecutor, fixtures []*models.Fixture) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failBulkInsert != nil {
		return s.failBulkInsert
	}
	for _, f := range fixtures {
		f.ID = s.nextFixtureID
		f.CreatedAt = time.Now().UTC()
		s.fixtures[f.ID] = *f
		s.nextFixtureID++
	}
	return nil
}

func (r *fakeFixtureRepo) DeleteByTeams(ctx context.Context, exec repositories.SQLExecutor, competitionType models.CompetitionType, teamIDs []int) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, f := range s.fixtures {
		if f.CompetitionType != competitionType {
			continue
		}
		if containsTeam(teamIDs, f.HomeTeamID) || containsTeam(teamIDs, f.AwayTeamID) {
			delete(s.fixtures, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeFixtureRepo) ListByTeams(ctx context.Context, competitionType models.CompetitionType, teamIDs []int, fromDay, toDay *int) ([]*models.Fixture, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	fixtures := make([]*models.Fixture, 0)
	for _, f := range s.fixtures {
		if f.CompetitionType != competitionType {
			continue
		}
		if !containsTeam(teamIDs, f.HomeTeamID) && !containsTeam(teamIDs, f.AwayTeamID) {
			continue
		}
		if fromDay != nil && f.Day < *fromDay {
			continue
		}
		if toDay != nil && f.Day > *toDay {
			continue
		}
		fixture := f
		fixtures = append(fixtures, &fixture)
	}
	sort.Slice(fixtures, func(i, j int) bool {
		if fixtures[i].Day != fixtures[j].Day {
			return fixtures[i].Day < fixtures[j].Day
		}
		return fixtures[i].ID < fixtures[j].ID
	})
	return fixtures, nil
}

func (r *fakeFixtureRepo) CountPerDay(ctx context.Context, competitionType models.CompetitionType, teamIDs []int) ([]models.ScheduleDayCount, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	byDay := make(map[int]int)
	for _, f := range s.fixtures {
		if f.CompetitionType != competitionType {
			continue
		}
		if containsTeam(teamIDs, f.HomeTeamID) || containsTeam(teamIDs, f.AwayTeamID) {
			byDay[f.Day]++
		}
	}
	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)
	counts := make([]models.ScheduleDayCount, 0, len(days))
	for _, day := range days {
		counts = append(counts, models.ScheduleDayCount{Day: day, Fixtures: byDay[day]})
	}
	return counts, nil
}

// --- TournamentRepository ---

type fakeTournamentRepo struct {
	store *fakeStore
}

func (r *fakeTournamentRepo) Create(ctx context.Context, tournament *models.Tournament) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tournaments {
		if existing.Name == tournament.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	tournament.ID = s.nextTournamentID
	tournament.CreatedAt = time.Now().UTC()
	if tournament.FillStatus == "" {
		tournament.FillStatus = models.FillStatusOpen
	}
	s.tournaments[tournament.ID] = *tournament
	s.nextTournamentID++
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	tournaments := make([]models.Tournament, 0)
	for _, t := range s.tournaments {
		if filter.FillStatus != nil && t.FillStatus != *filter.FillStatus {
			continue
		}
		tournaments = append(tournaments, t)
	}
	sort.Slice(tournaments, func(i, j int) bool {
		return tournaments[i].RegistrationDeadline.After(tournaments[j].RegistrationDeadline)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(tournaments) {
			return []models.Tournament{}, nil
		}
		tournaments = tournaments[filter.Offset:]
	}
	if filter.Limit > 0 && len(tournaments) > filter.Limit {
		tournaments = tournaments[:filter.Limit]
	}
	return tournaments, nil
}

func (r *fakeTournamentRepo) UpdateFillStatus(ctx context.Context, exec repositories.SQLExecutor, id int, from, to models.TournamentFillStatus) error {
	s := r.store
	if from == models.FillStatusOpen {
		s.mu.Lock()
		hook := s.beforeClaim
		s.beforeClaim = nil
		s.mu.Unlock()
		if hook != nil {
			hook()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok || t.FillStatus != from {
		return repositories.ErrTournamentFillConflict
	}
	t.FillStatus = to
	s.tournaments[id] = t
	return nil
}

func (r *fakeTournamentRepo) ListDueForFill(ctx context.Context, currentTime time.Time) ([]*models.Tournament, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	due := make([]*models.Tournament, 0)
	for _, t := range s.tournaments {
		if t.FillStatus == models.FillStatusOpen && !t.RegistrationDeadline.After(currentTime) {
			tournament := t
			due = append(due, &tournament)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].RegistrationDeadline.Equal(due[j].RegistrationDeadline) {
			return due[i].RegistrationDeadline.Before(due[j].RegistrationDeadline)
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(s.tournaments, id)
	return nil
}

// --- EntryRepository ---

type fakeEntryRepo struct {
	store *fakeStore
}

func (r *fakeEntryRepo) Create(ctx context.Context, exec repositories.SQLExecutor, entry *models.Entry) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.TournamentID != entry.TournamentID {
			continue
		}
		if entry.TeamID != nil && existing.TeamID != nil && *existing.TeamID == *entry.TeamID {
			return repositories.ErrEntryAlreadyRegistered
		}
		if entry.PlaceholderUID != nil && existing.PlaceholderUID != nil && *existing.PlaceholderUID == *entry.PlaceholderUID {
			return repositories.ErrEntryAlreadyRegistered
		}
	}
	entry.ID = s.nextEntryID
	entry.CreatedAt = time.Now().UTC()
	s.entries[entry.ID] = *entry
	s.nextEntryID++
	return nil
}

func (r *fakeEntryRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Entry, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]*models.Entry, 0)
	for _, e := range s.entries {
		if e.TournamentID == tournamentID {
			entry := e
			entries = append(entries, &entry)
		}
	}
	// Порядок регистрации: ID растут монотонно вместе с created_at.
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (r *fakeEntryRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.entries {
		if e.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

// --- BracketMatchRepository ---

type fakeBracketMatchRepo struct {
	store *fakeStore
}

func (r *fakeBracketMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.BracketMatch) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failMatchCreate[match.TournamentID]; ok {
		return err
	}
	for _, existing := range s.matches {
		if existing.TournamentID == match.TournamentID && existing.BracketUID == match.BracketUID {
			return repositories.ErrBracketMatchUIDConflict
		}
	}
	match.ID = s.nextMatchID
	match.CreatedAt = time.Now().UTC()
	s.matches[match.ID] = *match
	s.nextMatchID++
	return nil
}

func (r *fakeBracketMatchRepo) UpdateNextMatchInfo(ctx context.Context, exec repositories.SQLExecutor, matchID int, nextMatchID *int, winnerToSlot *int) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return repositories.ErrBracketMatchNotFound
	}
	m.NextMatchID = nextMatchID
	m.WinnerToSlot = winnerToSlot
	s.matches[matchID] = m
	return nil
}

func (r *fakeBracketMatchRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.BracketMatch, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := make([]*models.BracketMatch, 0)
	for _, m := range s.matches {
		if m.TournamentID == tournamentID {
			match := m
			matches = append(matches, &match)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].OrderInRound < matches[j].OrderInRound
	})
	return matches, nil
}

func (r *fakeBracketMatchRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, m := range s.matches {
		if m.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

// --- Broadcaster и архиваторы ---

type broadcastRecord struct {
	Room    string
	Message interface{}
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []broadcastRecord
}

func (b *fakeBroadcaster) BroadcastToRoom(roomID string, message interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, broadcastRecord{Room: roomID, Message: message})
}

func (b *fakeBroadcaster) records() []broadcastRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broadcastRecord, len(b.messages))
	copy(out, b.messages)
	return out
}

type fakeArchiver struct {
	mu        sync.Mutex
	summaries []*models.ScheduleSummary
	reports   []*models.AutoFillReport
	err       error
}

func (a *fakeArchiver) ArchiveScheduleSummary(ctx context.Context, summary *models.ScheduleSummary) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.summaries = append(a.summaries, summary)
	return "fake://schedules", nil
}

func (a *fakeArchiver) ArchiveAutoFillReport(ctx context.Context, report *models.AutoFillReport) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.reports = append(a.reports, report)
	return "fake://tournaments", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
