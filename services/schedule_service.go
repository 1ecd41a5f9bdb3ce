package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/matchday-system/live"
	"github.com/Dosada05/matchday-system/metrics"
	"github.com/Dosada05/matchday-system/models"
	"github.com/Dosada05/matchday-system/repositories"
	"github.com/Dosada05/matchday-system/schedule"
)

// ScheduleArchiver stores a JSON snapshot of a regenerated schedule.
type ScheduleArchiver interface {
	ArchiveScheduleSummary(ctx context.Context, summary *models.ScheduleSummary) (string, error)
}

type RegenerateScheduleParams struct {
	Division        int                    `json:"division"`
	Subdivision     string                 `json:"subdivision"`
	CompetitionType models.CompetitionType `json:"competition_type"`

	// Now pins the regeneration to a moment in time. Zero means the
	// current wall clock; tests and backfills pass an explicit value.
	Now time.Time `json:"-"`
}

type ScheduleService interface {
	Regenerate(ctx context.Context, params RegenerateScheduleParams) (*models.ScheduleSummary, error)
	GetSummary(ctx context.Context, division int, subdivision string, competitionType models.CompetitionType) (*models.ScheduleSummary, error)
	ListFixtures(ctx context.Context, division int, subdivision string, competitionType models.CompetitionType, fromDay, toDay *int) ([]*models.Fixture, error)
}

type scheduleService struct {
	teamRepo    repositories.TeamRepository
	fixtureRepo repositories.FixtureRepository
	txRunner    TxRunner
	season      schedule.Season
	hub         Broadcaster
	archiver    ScheduleArchiver
	metrics     *metrics.Metrics
	logger      *slog.Logger
	locks       *scheduleKeyLocks
}

func NewScheduleService(
	teamRepo repositories.TeamRepository,
	fixtureRepo repositories.FixtureRepository,
	txRunner TxRunner,
	season schedule.Season,
	hub Broadcaster,
	archiver ScheduleArchiver,
	m *metrics.Metrics,
	logger *slog.Logger,
) ScheduleService {
	return &scheduleService{
		teamRepo:    teamRepo,
		fixtureRepo: fixtureRepo,
		txRunner:    txRunner,
		season:      season,
		hub:         hub,
		archiver:    archiver,
		metrics:     m,
		logger:      logger,
		locks:       newScheduleKeyLocks(),
	}
}

func (s *scheduleService) Regenerate(ctx context.Context, params RegenerateScheduleParams) (*models.ScheduleSummary, error) {
	if !params.CompetitionType.Valid() {
		return nil, fmt.Errorf("%w: unknown competition type %q", ErrValidationFailed, params.CompetitionType)
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Одна регенерация на подразделение за раз: первый вошедший
	// выигрывает, остальные получают отказ сразу.
	key := regenerationKey(params.Division, params.Subdivision, params.CompetitionType)
	if !s.locks.tryAcquire(key) {
		s.metrics.ScheduleRegenerations.WithLabelValues(string(params.CompetitionType), "in_progress").Inc()
		return nil, ErrRegenerationInProgress
	}
	defer s.locks.release(key)

	start := time.Now()
	summary, err := s.regenerateLocked(ctx, params, now)
	s.metrics.ScheduleDuration.Observe(time.Since(start).Seconds())
	s.metrics.ScheduleRegenerations.WithLabelValues(string(params.CompetitionType), regenerationOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	s.metrics.ScheduleFixtures.WithLabelValues(string(params.CompetitionType)).Add(float64(summary.TotalFixtures))

	if s.archiver != nil {
		if location, archiveErr := s.archiver.ArchiveScheduleSummary(ctx, summary); archiveErr != nil {
			// Снапшот не критичен для результата регенерации.
			s.logger.Warn("failed to archive schedule snapshot",
				"division", params.Division, "subdivision", params.Subdivision, "error", archiveErr)
		} else {
			s.logger.Info("schedule snapshot archived", "location", location)
		}
	}

	if s.hub != nil {
		room := live.LeagueRoom(params.Division, params.Subdivision)
		s.hub.BroadcastToRoom(room, live.WebSocketMessage{
			Type:    live.MessageScheduleRegenerated,
			Payload: summary,
			RoomID:  room,
		})
	}

	s.logger.Info("schedule regenerated",
		"division", params.Division,
		"subdivision", params.Subdivision,
		"competition_type", params.CompetitionType,
		"fixtures", summary.TotalFixtures,
		"deleted", summary.DeletedFixtures,
		"shortened", summary.Shortened,
	)

	return summary, nil
}

func (s *scheduleService) regenerateLocked(ctx context.Context, params RegenerateScheduleParams, now time.Time) (*models.ScheduleSummary, error) {
	teams, err := s.teamRepo.ListBySubdivision(ctx, params.Division, params.Subdivision)
	if err != nil {
		return nil, fmt.Errorf("failed to load subdivision roster: %w", err)
	}
	if len(teams) < 2 {
		return nil, schedule.ErrRosterTooSmall
	}

	currentDay := s.season.DayOn(now)
	plans, shortened, err := s.planSeason(teams, currentDay)
	if err != nil {
		return nil, err
	}

	fixtures := make([]*models.Fixture, 0)
	for _, plan := range plans {
		for _, p := range plan.Pairings {
			fixtures = append(fixtures, &models.Fixture{
				CompetitionType: params.CompetitionType,
				HomeTeamID:      p.Home.ID,
				AwayTeamID:      p.Away.ID,
				Day:             plan.Day,
				ScheduledAt:     s.season.DateOf(plan.Day),
			})
		}
	}

	teamIDs := make([]int, 0, len(teams))
	for _, team := range teams {
		teamIDs = append(teamIDs, team.ID)
	}

	var deleted int64
	txErr := s.txRunner.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		deleted, err = s.fixtureRepo.DeleteByTeams(ctx, exec, params.CompetitionType, teamIDs)
		if err != nil {
			return err
		}
		return s.fixtureRepo.BulkInsert(ctx, exec, fixtures)
	})
	if txErr != nil {
		return nil, fmt.Errorf("failed to persist schedule: %w", txErr)
	}

	counts, err := s.fixtureRepo.CountPerDay(ctx, params.CompetitionType, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to read back schedule distribution: %w", err)
	}
	for i := range counts {
		counts[i].Date = s.season.DateOf(counts[i].Day)
	}

	return &models.ScheduleSummary{
		Division:        params.Division,
		Subdivision:     params.Subdivision,
		CompetitionType: params.CompetitionType,
		Shortened:       shortened,
		FirstDay:        plans[0].Day,
		LastDay:         plans[len(plans)-1].Day,
		DeletedFixtures: deleted,
		TotalFixtures:   len(fixtures),
		Days:            counts,
		GeneratedAt:     now,
	}, nil
}

// planSeason picks between the full double cycle and the compacted
// single cycle. On day one or earlier the full plan applies; once the
// season is underway only the remaining window is available and a
// single cycle is packed into it.
func (s *scheduleService) planSeason(teams []models.Team, currentDay int) ([]schedule.DayPlan, bool, error) {
	if currentDay <= 1 {
		plans, err := schedule.PlanFullSeason(teams)
		return plans, false, err
	}

	remaining := schedule.FullSeasonLength(len(teams)) - currentDay + 1
	plans, err := schedule.CompactCycle(teams, remaining)
	if err != nil {
		return nil, true, err
	}
	for i := range plans {
		plans[i].Day += currentDay - 1
	}
	return plans, true, nil
}

func (s *scheduleService) GetSummary(ctx context.Context, division int, subdivision string, competitionType models.CompetitionType) (*models.ScheduleSummary, error) {
	if !competitionType.Valid() {
		return nil, fmt.Errorf("%w: unknown competition type %q", ErrValidationFailed, competitionType)
	}

	teams, err := s.teamRepo.ListBySubdivision(ctx, division, subdivision)
	if err != nil {
		return nil, fmt.Errorf("failed to load subdivision roster: %w", err)
	}

	teamIDs := make([]int, 0, len(teams))
	for _, team := range teams {
		teamIDs = append(teamIDs, team.ID)
	}

	counts, err := s.fixtureRepo.CountPerDay(ctx, competitionType, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule distribution: %w", err)
	}
	if len(counts) == 0 {
		return nil, ErrScheduleNotFound
	}

	total := 0
	for i := range counts {
		counts[i].Date = s.season.DateOf(counts[i].Day)
		total += counts[i].Fixtures
	}

	// Полный сезон содержит n*(n-1) матчей; всё, что меньше, означает
	// сокращённое расписание.
	shortened := total < len(teams)*(len(teams)-1)

	return &models.ScheduleSummary{
		Division:        division,
		Subdivision:     subdivision,
		CompetitionType: competitionType,
		Shortened:       shortened,
		FirstDay:        counts[0].Day,
		LastDay:         counts[len(counts)-1].Day,
		TotalFixtures:   total,
		Days:            counts,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

func (s *scheduleService) ListFixtures(ctx context.Context, division int, subdivision string, competitionType models.CompetitionType, fromDay, toDay *int) ([]*models.Fixture, error) {
	if !competitionType.Valid() {
		return nil, fmt.Errorf("%w: unknown competition type %q", ErrValidationFailed, competitionType)
	}

	teams, err := s.teamRepo.ListBySubdivision(ctx, division, subdivision)
	if err != nil {
		return nil, fmt.Errorf("failed to load subdivision roster: %w", err)
	}

	teamsByID := make(map[int]models.Team, len(teams))
	teamIDs := make([]int, 0, len(teams))
	for _, team := range teams {
		teamsByID[team.ID] = team
		teamIDs = append(teamIDs, team.ID)
	}

	fixtures, err := s.fixtureRepo.ListByTeams(ctx, competitionType, teamIDs, fromDay, toDay)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixtures: %w", err)
	}

	for _, f := range fixtures {
		if home, ok := teamsByID[f.HomeTeamID]; ok {
			homeCopy := home
			f.HomeTeam = &homeCopy
		}
		if away, ok := teamsByID[f.AwayTeamID]; ok {
			awayCopy := away
			f.AwayTeam = &awayCopy
		}
	}

	return fixtures, nil
}

func regenerationKey(division int, subdivision string, competitionType models.CompetitionType) string {
	return fmt.Sprintf("%d:%s:%s", division, subdivision, competitionType)
}

func regenerationOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, schedule.ErrRosterTooSmall):
		return "roster_too_small"
	case errors.Is(err, schedule.ErrInsufficientDays):
		return "insufficient_days"
	default:
		return "error"
	}
}

type scheduleKeyLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newScheduleKeyLocks() *scheduleKeyLocks {
	return &scheduleKeyLocks{held: make(map[string]bool)}
}

func (l *scheduleKeyLocks) tryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false
	}
	l.held[key] = true
	return true
}

func (l *scheduleKeyLocks) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}
