package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/matchday-system/brackets"
	"github.com/Dosada05/matchday-system/live"
	"github.com/Dosada05/matchday-system/metrics"
	"github.com/Dosada05/matchday-system/models"
)

var fillTime = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

type tournamentEnv struct {
	store    *fakeStore
	hub      *fakeBroadcaster
	archiver *fakeArchiver
	metrics  *metrics.Metrics
	svc      TournamentService
}

func newTournamentEnv(store *fakeStore) *tournamentEnv {
	hub := &fakeBroadcaster{}
	archiver := &fakeArchiver{}
	m := metrics.New()
	svc := NewTournamentService(
		&fakeTournamentRepo{store: store},
		&fakeEntryRepo{store: store},
		&fakeTeamRepo{store: store},
		&fakeBracketMatchRepo{store: store},
		brackets.NewSingleEliminationGenerator(),
		&fakeTxRunner{store: store},
		hub,
		archiver,
		m,
		testLogger(),
	)
	return &tournamentEnv{store: store, hub: hub, archiver: archiver, metrics: m, svc: svc}
}

func TestCreateTournament(t *testing.T) {
	ctx := context.Background()
	env := newTournamentEnv(newFakeStore())

	deadline := time.Now().UTC().Add(48 * time.Hour)
	tournament, err := env.svc.Create(ctx, CreateTournamentParams{
		Name:                 "  Summer Cup  ",
		Capacity:             8,
		RegistrationDeadline: deadline,
	})
	require.NoError(t, err)

	assert.NotZero(t, tournament.ID)
	assert.Equal(t, "Summer Cup", tournament.Name)
	assert.Equal(t, 8, tournament.Capacity)
	assert.Equal(t, models.FillStatusOpen, tournament.FillStatus)
	assert.True(t, tournament.RegistrationDeadline.Equal(deadline))
}

func TestCreateTournamentValidation(t *testing.T) {
	ctx := context.Background()
	deadline := time.Now().UTC().Add(48 * time.Hour)

	testCases := []struct {
		name    string
		params  CreateTournamentParams
		wantErr error
	}{
		{
			name:    "blank name",
			params:  CreateTournamentParams{Name: "   ", Capacity: 8, RegistrationDeadline: deadline},
			wantErr: ErrTournamentNameRequired,
		},
		{
			name:    "capacity below two",
			params:  CreateTournamentParams{Name: "Summer Cup", Capacity: 1, RegistrationDeadline: deadline},
			wantErr: ErrTournamentInvalidCapacity,
		},
		{
			name:    "missing deadline",
			params:  CreateTournamentParams{Name: "Summer Cup", Capacity: 8},
			wantErr: ErrTournamentDeadlineRequired,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTournamentEnv(newFakeStore())
			_, err := env.svc.Create(ctx, tc.params)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateTournamentNameConflict(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.seedTournament("Summer Cup", 8, time.Now().UTC().Add(time.Hour), models.FillStatusOpen)
	env := newTournamentEnv(store)

	_, err := env.svc.Create(ctx, CreateTournamentParams{
		Name:                 "Summer Cup",
		Capacity:             4,
		RegistrationDeadline: time.Now().UTC().Add(time.Hour),
	})
	require.ErrorIs(t, err, ErrTournamentNameConflict)
}

func TestGetTournamentByIDIncludesEntries(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	teams := store.seedTeams(1, "A", "Dynamo", "Spartak")
	tournament := store.seedTournament("Summer Cup", 8, time.Now().UTC().Add(time.Hour), models.FillStatusOpen)
	store.seedEntry(tournament.ID, teams[0])
	store.seedEntry(tournament.ID, teams[1])
	env := newTournamentEnv(store)

	got, err := env.svc.GetByID(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.ID, got.ID)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "Dynamo", got.Entries[0].DisplayName)
	assert.Equal(t, "Spartak", got.Entries[1].DisplayName)

	_, err = env.svc.GetByID(ctx, 999)
	require.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestRegisterEntry(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	team := store.seedTeam(1, "A", "Dynamo")
	tournament := store.seedTournament("Summer Cup", 4, time.Now().UTC().Add(time.Hour), models.FillStatusOpen)
	env := newTournamentEnv(store)

	entry, err := env.svc.RegisterEntry(ctx, tournament.ID, team.ID)
	require.NoError(t, err)

	assert.NotZero(t, entry.ID)
	assert.Equal(t, tournament.ID, entry.TournamentID)
	require.NotNil(t, entry.TeamID)
	assert.Equal(t, team.ID, *entry.TeamID)
	assert.Equal(t, "Dynamo", entry.DisplayName)
	assert.False(t, entry.IsPlaceholder)
	assert.Nil(t, entry.PlaceholderUID)
}

func TestRegisterEntryRejections(t *testing.T) {
	ctx := context.Background()
	futureDeadline := time.Now().UTC().Add(time.Hour)

	testCases := []struct {
		name    string
		setup   func(store *fakeStore) (tournamentID, teamID int)
		wantErr error
	}{
		{
			name: "unknown tournament",
			setup: func(store *fakeStore) (int, int) {
				team := store.seedTeam(1, "A", "Dynamo")
				return 999, team.ID
			},
			wantErr: ErrTournamentNotFound,
		},
		{
			name: "locked tournament",
			setup: func(store *fakeStore) (int, int) {
				team := store.seedTeam(1, "A", "Dynamo")
				tournament := store.seedTournament("Summer Cup", 4, futureDeadline, models.FillStatusLocked)
				return tournament.ID, team.ID
			},
			wantErr: ErrRegistrationClosed,
		},
		{
			name: "deadline passed",
			setup: func(store *fakeStore) (int, int) {
				team := store.seedTeam(1, "A", "Dynamo")
				tournament := store.seedTournament("Summer Cup", 4, time.Now().UTC().Add(-time.Hour), models.FillStatusOpen)
				return tournament.ID, team.ID
			},
			wantErr: ErrRegistrationClosed,
		},
		{
			name: "unknown team",
			setup: func(store *fakeStore) (int, int) {
				tournament := store.seedTournament("Summer Cup", 4, futureDeadline, models.FillStatusOpen)
				return tournament.ID, 999
			},
			wantErr: ErrTeamNotFound,
		},
		{
			name: "field already full",
			setup: func(store *fakeStore) (int, int) {
				teams := store.seedTeams(1, "A", "Dynamo", "Spartak", "Zenit")
				tournament := store.seedTournament("Summer Cup", 2, futureDeadline, models.FillStatusOpen)
				store.seedEntry(tournament.ID, teams[0])
				store.seedEntry(tournament.ID, teams[1])
				return tournament.ID, teams[2].ID
			},
			wantErr: ErrTournamentFull,
		},
		{
			name: "team already registered",
			setup: func(store *fakeStore) (int, int) {
				team := store.seedTeam(1, "A", "Dynamo")
				tournament := store.seedTournament("Summer Cup", 4, futureDeadline, models.FillStatusOpen)
				store.seedEntry(tournament.ID, team)
				return tournament.ID, team.ID
			},
			wantErr: ErrRegistrationConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			env := newTournamentEnv(store)
			tournamentID, teamID := tc.setup(store)

			entry, err := env.svc.RegisterEntry(ctx, tournamentID, teamID)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, entry)
		})
	}
}

func TestTriggerAutoFillPadsShortField(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	teams := store.seedTeams(1, "A", "Dynamo", "Spartak", "Zenit", "Torpedo", "Rotor")
	tournament := store.seedTournament("Summer Cup", 8, fillTime.Add(-time.Hour), models.FillStatusOpen)
	for _, team := range teams {
		store.seedEntry(tournament.ID, team)
	}
	env := newTournamentEnv(store)

	report, err := env.svc.TriggerAutoFill(ctx, tournament.ID, fillTime)
	require.NoError(t, err)

	assert.Equal(t, tournament.ID, report.TournamentID)
	assert.Equal(t, models.FillStatusLocked, report.Status)
	assert.Equal(t, 5, report.EntryCount)
	assert.Equal(t, 3, report.PlaceholdersAdded)
	assert.Equal(t, 7, report.BracketMatches)
	assert.True(t, report.CompletedAt.Equal(fillTime))
	assert.Equal(t, models.FillStatusLocked, store.tournamentStatus(tournament.ID))

	// Поле дополнено до вместимости: пять живых заявок и три
	// детерминированных заглушки со слотами 6..8.
	entries := store.entriesOf(tournament.ID)
	require.Len(t, entries, 8)
	for i, entry := range entries[:5] {
		assert.False(t, entry.IsPlaceholder)
		require.NotNil(t, entry.TeamID)
		assert.Equal(t, teams[i].ID, *entry.TeamID)
	}
	for i, entry := range entries[5:] {
		slot := 6 + i
		assert.True(t, entry.IsPlaceholder)
		assert.Nil(t, entry.TeamID)
		assert.Equal(t, fmt.Sprintf("AI Team %d", slot), entry.DisplayName)
		require.NotNil(t, entry.PlaceholderUID)
		assert.Equal(t, placeholderUID(tournament.ID, slot), *entry.PlaceholderUID)
		parsed, parseErr := uuid.Parse(*entry.PlaceholderUID)
		require.NoError(t, parseErr)
		assert.Equal(t, uuid.Version(5), parsed.Version())
	}

	matches, err := env.svc.ListBracket(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 7)

	r1 := matches[:4]
	semi1, semi2, final := matches[4], matches[5], matches[6]

	// Посев первого раунда идёт в порядке регистрации.
	for i, m := range r1 {
		assert.Equal(t, 1, m.Round)
		assert.Equal(t, i+1, m.OrderInRound)
		require.NotNil(t, m.Entry1ID)
		require.NotNil(t, m.Entry2ID)
		assert.Equal(t, entries[2*i].ID, *m.Entry1ID)
		assert.Equal(t, entries[2*i+1].ID, *m.Entry2ID)
		assert.False(t, m.IsBye)
	}

	expectedLinks := []struct {
		next *models.BracketMatch
		slot int
	}{
		{next: semi1, slot: 1},
		{next: semi1, slot: 2},
		{next: semi2, slot: 1},
		{next: semi2, slot: 2},
	}
	for i, m := range r1 {
		require.NotNil(t, m.NextMatchID, "round 1 match %d", i+1)
		assert.Equal(t, expectedLinks[i].next.ID, *m.NextMatchID)
		require.NotNil(t, m.WinnerToSlot)
		assert.Equal(t, expectedLinks[i].slot, *m.WinnerToSlot)
	}

	assert.Equal(t, 2, semi1.Round)
	assert.Nil(t, semi1.Entry1ID)
	assert.Nil(t, semi1.Entry2ID)
	require.NotNil(t, semi1.NextMatchID)
	assert.Equal(t, final.ID, *semi1.NextMatchID)
	require.NotNil(t, semi2.NextMatchID)
	assert.Equal(t, final.ID, *semi2.NextMatchID)

	assert.Equal(t, 3, final.Round)
	assert.Nil(t, final.NextMatchID)
	assert.Nil(t, final.WinnerToSlot)

	records := env.hub.records()
	require.Len(t, records, 1)
	assert.Equal(t, live.TournamentRoom(tournament.ID), records[0].Room)
	msg, ok := records[0].Message.(live.WebSocketMessage)
	require.True(t, ok)
	assert.Equal(t, live.MessageTournamentAutoFilled, msg.Type)
	assert.Equal(t, report, msg.Payload)

	require.Len(t, env.archiver.reports, 1)
	assert.Equal(t, report, env.archiver.reports[0])

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.AutoFillRuns.WithLabelValues("locked")))
	assert.Equal(t, float64(3), testutil.ToFloat64(env.metrics.AutoFillPlaceholders))
}

func TestTriggerAutoFillFullField(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	teams := store.seedTeams(1, "A", "Dynamo", "Spartak", "Zenit", "Torpedo")
	tournament := store.seedTournament("Summer Cup", 4, fillTime.Add(-time.Hour), models.FillStatusOpen)
	for _, team := range teams {
		store.seedEntry(tournament.ID, team)
	}
	env := newTournamentEnv(store)

	report, err := env.svc.TriggerAutoFill(ctx, tournament.ID, fillTime)
	require.NoError(t, err)

	assert.Equal(t, 4, report.EntryCount)
	assert.Equal(t, 0, report.PlaceholdersAdded)
	assert.Equal(t, 3, report.BracketMatches)
	assert.Len(t, store.entriesOf(tournament.ID), 4)

	// Без заглушек рассылается просто факт блокировки.
	records := env.hub.records()
	require.Len(t, records, 1)
	msg, ok := records[0].Message.(live.WebSocketMessage)
	require.True(t, ok)
	assert.Equal(t, live.MessageTournamentLocked, msg.Type)

	assert.Equal(t, float64(0), testutil.ToFloat64(env.metrics.AutoFillPlaceholders))
}

func TestTriggerAutoFillSeedsFirstCapacityEntries(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	teams := store.seedTeams(1, "A", "Dynamo", "Spartak", "Zenit", "Torpedo", "Rotor")
	tournament := store.seedTournament("Summer Cup", 4, fillTime.Add(-time.Hour), models.FillStatusOpen)
	for _, team := range teams {
		store.seedEntry(tournament.ID, team)
	}
	env := newTournamentEnv(store)

	report, err := env.svc.TriggerAutoFill(ctx, tournament.ID, fillTime)
	require.NoError(t, err)

	assert.Equal(t, 5, report.EntryCount)
	assert.Equal(t, 0, report.PlaceholdersAdded)
	assert.Equal(t, 3, report.BracketMatches)

	// В сетку попадают только первые Capacity заявок по порядку
	// регистрации, пятая остаётся за бортом.
	entries := store.entriesOf(tournament.ID)
	require.Len(t, entries, 5)
	lateEntryID := entries[4].ID

	matches, err := env.svc.ListBracket(ctx, tournament.ID)
	require.NoError(t, err)
	for _, m := range matches {
		if m.Entry1ID != nil {
			assert.NotEqual(t, lateEntryID, *m.Entry1ID)
		}
		if m.Entry2ID != nil {
			assert.NotEqual(t, lateEntryID, *m.Entry2ID)
		}
	}
}

func TestTriggerAutoFillAlreadyLocked(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	tournament := store.seedTournament("Summer Cup", 4, fillTime.Add(-time.Hour), models.FillStatusLocked)
	env := newTournamentEnv(store)

	report, err := env.svc.TriggerAutoFill(ctx, tournament.ID, fillTime)
	require.ErrorIs(t, err, ErrTournamentAlreadyLocked)
	assert.Nil(t, report)

	assert.Empty(t, store.entriesOf(tournament.ID))
	assert.Zero(t, store.matchCount(tournament.ID))
	assert.Empty(t, env.hub.records())
	assert.Empty(t, env.archiver.reports)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.AutoFillRuns.WithLabelValues("already_locked")))
}

func TestTriggerAutoFillRepeatIsRejected(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	tournament := store.seedTournament("Summer Cup", 4, fillTime.Add(-time.Hour), models.FillStatusOpen)
	env := newTournamentEnv(store)

	first, err := env.svc.TriggerAutoFill(ctx, tournament.ID, fillTime)
	require.NoError(t, err)
	assert.Equal(t, 4, first.PlaceholdersAdded)

	// Повторный запуск не плодит ни заявок, ни матчей.
	_, err = env.svc.TriggerAutoFill(ctx, tournament.ID, fillTime)
	require.ErrorIs(t, err, ErrTournamentAlreadyLocked)

	assert.Len(t, store.entriesOf(tournament.ID), 4)
	assert.Equal(t, 3, store.matchCount(tournament.ID))
}

func TestTriggerAutoFillStuckInAutoFilled(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	tournament := store.seedTournament("Summer Cup", 4, fillTime.Add(-time.Hour), models.FillStatusAutoFilled)
	env := newTournamentEnv(store)

	_, err := env.svc.TriggerAutoFill(ctx, tournament.ID, fillTime)
	require.ErrorIs(t, err, ErrAutoFillConflict)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.AutoFillRuns.WithLabelValues("conflict")))
}

func TestTriggerAutoFillClaimRace(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	tournament := store.seedTournament("Summer Cup", 4, fillTime.Add(-time.Hour), models.FillStatusOpen)
	env := newTournamentEnv(store)

	// Конкурент блокирует турнир ровно между чтением и захватом
	// статуса. Проигравший должен увидеть это как благополучный отказ.
	store.beforeClaim = func() {
		store.commitConcurrent(func(s *fakeStore) {
			current := s.tournaments[tournament.ID]
			current.FillStatus = models.FillStatusLocked
			s.tournaments[tournament.ID] = current
		})
	}

	report, err := env.svc.TriggerAutoFill(ctx, tournament.ID, fillTime)
	require.ErrorIs(t, err, ErrTournamentAlreadyLocked)
	assert.Nil(t, report)

	assert.Equal(t, models.FillStatusLocked, store.tournamentStatus(tournament.ID))
	assert.Empty(t, store.entriesOf(tournament.ID))
	assert.Zero(t, store.matchCount(tournament.ID))
	assert.Empty(t, env.hub.records())
	assert.Empty(t, env.archiver.reports)
}

func TestTriggerAutoFillBracketFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	teams := store.seedTeams(1, "A", "Dynamo", "Spartak")
	tournament := store.seedTournament("Summer Cup", 4, fillTime.Add(-time.Hour), models.FillStatusOpen)
	for _, team := range teams {
		store.seedEntry(tournament.ID, team)
	}
	store.failMatchCreate[tournament.ID] = errors.New("bracket storage offline")
	env := newTournamentEnv(store)

	_, err := env.svc.TriggerAutoFill(ctx, tournament.ID, fillTime)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create bracket match")

	// Транзакция откатила и заглушки, и смену статуса.
	assert.Equal(t, models.FillStatusOpen, store.tournamentStatus(tournament.ID))
	assert.Len(t, store.entriesOf(tournament.ID), 2)
	assert.Zero(t, store.matchCount(tournament.ID))
	assert.Empty(t, env.hub.records())
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.AutoFillRuns.WithLabelValues("error")))
}

func TestTriggerAutoFillUnknownTournament(t *testing.T) {
	ctx := context.Background()
	env := newTournamentEnv(newFakeStore())

	_, err := env.svc.TriggerAutoFill(ctx, 999, fillTime)
	require.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestSweepDueTournaments(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	teams := store.seedTeams(1, "A", "Dynamo", "Spartak")

	base := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	sweepNow := base.Add(time.Hour)

	dueEmpty := store.seedTournament("Summer Cup", 2, base.Add(30*time.Minute), models.FillStatusOpen)
	dueFull := store.seedTournament("Autumn Cup", 2, base.Add(45*time.Minute), models.FillStatusOpen)
	notDue := store.seedTournament("Winter Cup", 2, base.Add(2*time.Hour), models.FillStatusOpen)
	alreadyLocked := store.seedTournament("Spring Cup", 2, base.Add(-time.Hour), models.FillStatusLocked)

	store.seedEntry(dueFull.ID, teams[0])
	store.seedEntry(dueFull.ID, teams[1])
	env := newTournamentEnv(store)

	reports, err := env.svc.SweepDueTournaments(ctx, sweepNow)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, dueEmpty.ID, reports[0].TournamentID)
	assert.Equal(t, 2, reports[0].PlaceholdersAdded)
	assert.Equal(t, dueFull.ID, reports[1].TournamentID)
	assert.Equal(t, 0, reports[1].PlaceholdersAdded)

	assert.Equal(t, models.FillStatusLocked, store.tournamentStatus(dueEmpty.ID))
	assert.Equal(t, models.FillStatusLocked, store.tournamentStatus(dueFull.ID))
	assert.Equal(t, models.FillStatusOpen, store.tournamentStatus(notDue.ID))

	assert.Equal(t, 1, store.matchCount(dueEmpty.ID))
	assert.Equal(t, 1, store.matchCount(dueFull.ID))
	assert.Zero(t, store.matchCount(notDue.ID))
	assert.Zero(t, store.matchCount(alreadyLocked.ID))

	assert.Equal(t, float64(2), testutil.ToFloat64(env.metrics.SweepBatchSize))
}

func TestSweepContinuesAfterSingleFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()

	base := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	broken := store.seedTournament("Summer Cup", 2, base.Add(-time.Hour), models.FillStatusOpen)
	healthy := store.seedTournament("Autumn Cup", 2, base.Add(-time.Hour), models.FillStatusOpen)
	store.failMatchCreate[broken.ID] = errors.New("bracket storage offline")
	env := newTournamentEnv(store)

	reports, err := env.svc.SweepDueTournaments(ctx, base)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, healthy.ID, reports[0].TournamentID)

	// Сломанный турнир остался открытым и будет подхвачен следующим
	// проходом, успешный заблокирован.
	assert.Equal(t, models.FillStatusOpen, store.tournamentStatus(broken.ID))
	assert.Equal(t, models.FillStatusLocked, store.tournamentStatus(healthy.ID))
}

func TestSweepNothingDue(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.seedTournament("Summer Cup", 2, time.Now().UTC().Add(time.Hour), models.FillStatusOpen)
	env := newTournamentEnv(store)

	reports, err := env.svc.SweepDueTournaments(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Equal(t, float64(0), testutil.ToFloat64(env.metrics.SweepBatchSize))
}

func TestListBracketUnknownTournament(t *testing.T) {
	ctx := context.Background()
	env := newTournamentEnv(newFakeStore())

	_, err := env.svc.ListBracket(ctx, 999)
	require.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestPlaceholderUIDDeterministic(t *testing.T) {
	assert.Equal(t, placeholderUID(7, 3), placeholderUID(7, 3))
	assert.NotEqual(t, placeholderUID(7, 3), placeholderUID(7, 4))
	assert.NotEqual(t, placeholderUID(7, 3), placeholderUID(8, 3))

	parsed, err := uuid.Parse(placeholderUID(7, 3))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}
