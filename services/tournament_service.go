package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/matchday-system/brackets"
	"github.com/Dosada05/matchday-system/live"
	"github.com/Dosada05/matchday-system/metrics"
	"github.com/Dosada05/matchday-system/models"
	"github.com/Dosada05/matchday-system/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Сколько просроченных турниров обрабатывается параллельно за один
// проход свипера.
const sweepConcurrency = 4

// AutoFillArchiver stores a JSON snapshot of a finished auto-fill.
type AutoFillArchiver interface {
	ArchiveAutoFillReport(ctx context.Context, report *models.AutoFillReport) (string, error)
}

type CreateTournamentParams struct {
	Name                 string    `json:"name"`
	Capacity             int       `json:"capacity"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
}

type TournamentService interface {
	Create(ctx context.Context, params CreateTournamentParams) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	RegisterEntry(ctx context.Context, tournamentID, teamID int) (*models.Entry, error)
	ListBracket(ctx context.Context, tournamentID int) ([]*models.BracketMatch, error)
	TriggerAutoFill(ctx context.Context, tournamentID int, now time.Time) (*models.AutoFillReport, error)
	SweepDueTournaments(ctx context.Context, now time.Time) ([]*models.AutoFillReport, error)
}

type tournamentService struct {
	tournamentRepo   repositories.TournamentRepository
	entryRepo        repositories.EntryRepository
	teamRepo         repositories.TeamRepository
	bracketMatchRepo repositories.BracketMatchRepository
	bracketGen       brackets.BracketGenerator
	txRunner         TxRunner
	hub              Broadcaster
	archiver         AutoFillArchiver
	metrics          *metrics.Metrics
	logger           *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.EntryRepository,
	teamRepo repositories.TeamRepository,
	bracketMatchRepo repositories.BracketMatchRepository,
	bracketGen brackets.BracketGenerator,
	txRunner TxRunner,
	hub Broadcaster,
	archiver AutoFillArchiver,
	m *metrics.Metrics,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:   tournamentRepo,
		entryRepo:        entryRepo,
		teamRepo:         teamRepo,
		bracketMatchRepo: bracketMatchRepo,
		bracketGen:       bracketGen,
		txRunner:         txRunner,
		hub:              hub,
		archiver:         archiver,
		metrics:          m,
		logger:           logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, params CreateTournamentParams) (*models.Tournament, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, ErrTournamentNameRequired
	}
	if params.Capacity < 2 {
		return nil, ErrTournamentInvalidCapacity
	}
	if params.RegistrationDeadline.IsZero() {
		return nil, ErrTournamentDeadlineRequired
	}

	tournament := &models.Tournament{
		Name:                 strings.TrimSpace(params.Name),
		Capacity:             params.Capacity,
		RegistrationDeadline: params.RegistrationDeadline,
		FillStatus:           models.FillStatusOpen,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	entries, err := s.entryRepo.ListByTournament(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament entries: %w", err)
	}
	tournament.Entries = EntriesToInterface(entries)

	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

func (s *tournamentService) RegisterEntry(ctx context.Context, tournamentID, teamID int) (*models.Entry, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.FillStatus != models.FillStatusOpen {
		return nil, ErrRegistrationClosed
	}
	if !time.Now().UTC().Before(tournament.RegistrationDeadline) {
		return nil, ErrRegistrationClosed
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	count, err := s.entryRepo.CountByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tournament entries: %w", err)
	}
	if count >= tournament.Capacity {
		return nil, ErrTournamentFull
	}

	entry := &models.Entry{
		TournamentID:  tournamentID,
		TeamID:        &team.ID,
		DisplayName:   team.Name,
		IsPlaceholder: false,
	}
	if err := s.entryRepo.Create(ctx, nil, entry); err != nil {
		if errors.Is(err, repositories.ErrEntryAlreadyRegistered) {
			return nil, ErrRegistrationConflict
		}
		return nil, fmt.Errorf("failed to register entry: %w", err)
	}

	return entry, nil
}

func (s *tournamentService) ListBracket(ctx context.Context, tournamentID int) ([]*models.BracketMatch, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return s.bracketMatchRepo.ListByTournament(ctx, tournamentID)
}

// TriggerAutoFill locks a tournament whose registration deadline has
// passed. Short fields are padded with deterministic placeholder
// entries, a single elimination bracket is generated and persisted, and
// the tournament ends up locked. Everything happens in one transaction:
// a failure leaves the tournament open with no partial entries or
// bracket rows behind.
func (s *tournamentService) TriggerAutoFill(ctx context.Context, tournamentID int, now time.Time) (*models.AutoFillReport, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	report := &models.AutoFillReport{TournamentID: tournamentID}

	txErr := s.txRunner.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		switch tournament.FillStatus {
		case models.FillStatusLocked:
			return ErrTournamentAlreadyLocked
		case models.FillStatusAutoFilled:
			return ErrAutoFillConflict
		}

		// Захват: из "open" турнир может увести только один воркер,
		// остальных отсекает условие на текущий статус.
		if err := s.transitionFillStatus(ctx, exec, tournament, models.FillStatusAutoFilled); err != nil {
			if errors.Is(err, repositories.ErrTournamentFillConflict) {
				current, readErr := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
				if readErr != nil {
					return readErr
				}
				if current.FillStatus == models.FillStatusLocked {
					return ErrTournamentAlreadyLocked
				}
				return ErrAutoFillConflict
			}
			return err
		}

		entries, err := s.entryRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to list tournament entries: %w", err)
		}

		realCount := len(entries)
		report.EntryCount = realCount

		seeds := entries
		if realCount >= tournament.Capacity {
			// Поле уже заполнено: сетка строится по первым Capacity
			// заявкам в порядке регистрации.
			seeds = entries[:tournament.Capacity]
		} else {
			for slot := realCount + 1; slot <= tournament.Capacity; slot++ {
				uid := placeholderUID(tournamentID, slot)
				placeholder := &models.Entry{
					TournamentID:   tournamentID,
					PlaceholderUID: &uid,
					DisplayName:    fmt.Sprintf("AI Team %d", slot),
					IsPlaceholder:  true,
				}
				if err := s.entryRepo.Create(ctx, exec, placeholder); err != nil {
					return fmt.Errorf("failed to create placeholder entry for slot %d: %w", slot, err)
				}
				seeds = append(seeds, placeholder)
			}
			report.PlaceholdersAdded = tournament.Capacity - realCount
		}

		generated, err := s.bracketGen.GenerateBracket(ctx, brackets.GenerateBracketParams{
			Tournament: tournament,
			Entries:    seeds,
		})
		if err != nil {
			return fmt.Errorf("failed to generate bracket: %w", err)
		}

		mapBracketUIDToDBMatchID := make(map[string]int, len(generated))
		for _, bm := range generated {
			dbMatch := &models.BracketMatch{
				TournamentID: tournamentID,
				BracketUID:   bm.UID,
				Round:        bm.Round,
				OrderInRound: bm.OrderInRound,
				Entry1ID:     bm.Entry1ID,
				Entry2ID:     bm.Entry2ID,
				IsBye:        bm.IsBye,
				ByeEntryID:   bm.ByeEntryID,
			}
			if err := s.bracketMatchRepo.Create(ctx, exec, dbMatch); err != nil {
				return fmt.Errorf("failed to create bracket match %s: %w", bm.UID, err)
			}
			mapBracketUIDToDBMatchID[bm.UID] = dbMatch.ID
		}

		// Второй проход: проставляем ссылки "победитель идёт в матч N".
		for _, bm := range generated {
			matchDBID := mapBracketUIDToDBMatchID[bm.UID]
			if bm.SourceMatch1UID != nil {
				if sourceDBID, ok := mapBracketUIDToDBMatchID[*bm.SourceMatch1UID]; ok {
					slot := 1
					if err := s.bracketMatchRepo.UpdateNextMatchInfo(ctx, exec, sourceDBID, &matchDBID, &slot); err != nil {
						return fmt.Errorf("failed to link bracket match %s: %w", *bm.SourceMatch1UID, err)
					}
				}
			}
			if bm.SourceMatch2UID != nil {
				if sourceDBID, ok := mapBracketUIDToDBMatchID[*bm.SourceMatch2UID]; ok {
					slot := 2
					if err := s.bracketMatchRepo.UpdateNextMatchInfo(ctx, exec, sourceDBID, &matchDBID, &slot); err != nil {
						return fmt.Errorf("failed to link bracket match %s: %w", *bm.SourceMatch2UID, err)
					}
				}
			}
		}
		report.BracketMatches = len(generated)

		return s.transitionFillStatus(ctx, exec, tournament, models.FillStatusLocked)
	})

	switch {
	case txErr == nil:
	case errors.Is(txErr, ErrTournamentAlreadyLocked):
		s.metrics.AutoFillRuns.WithLabelValues("already_locked").Inc()
		return nil, txErr
	case errors.Is(txErr, ErrAutoFillConflict):
		s.metrics.AutoFillRuns.WithLabelValues("conflict").Inc()
		return nil, txErr
	default:
		s.metrics.AutoFillRuns.WithLabelValues("error").Inc()
		return nil, txErr
	}

	report.Status = models.FillStatusLocked
	report.CompletedAt = now

	s.metrics.AutoFillRuns.WithLabelValues("locked").Inc()
	s.metrics.AutoFillPlaceholders.Add(float64(report.PlaceholdersAdded))

	if s.archiver != nil {
		if location, archiveErr := s.archiver.ArchiveAutoFillReport(ctx, report); archiveErr != nil {
			s.logger.Warn("failed to archive auto-fill report",
				"tournament_id", tournamentID, "error", archiveErr)
		} else {
			s.logger.Info("auto-fill report archived", "location", location)
		}
	}

	if s.hub != nil {
		room := live.TournamentRoom(tournamentID)
		messageType := live.MessageTournamentLocked
		if report.PlaceholdersAdded > 0 {
			messageType = live.MessageTournamentAutoFilled
		}
		s.hub.BroadcastToRoom(room, live.WebSocketMessage{
			Type:    messageType,
			Payload: report,
			RoomID:  room,
		})
	}

	s.logger.Info("tournament auto-filled and locked",
		"tournament_id", tournamentID,
		"format", s.bracketGen.GetName(),
		"entries", report.EntryCount,
		"placeholders_added", report.PlaceholdersAdded,
		"bracket_matches", report.BracketMatches,
	)

	return report, nil
}

// SweepDueTournaments finds every open tournament whose registration
// deadline has passed and auto-fills each one. A failure on one
// tournament never aborts the sweep, and races with concurrent workers
// are treated as benign skips.
func (s *tournamentService) SweepDueTournaments(ctx context.Context, now time.Time) ([]*models.AutoFillReport, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	due, err := s.tournamentRepo.ListDueForFill(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments due for fill: %w", err)
	}
	s.metrics.SweepBatchSize.Set(float64(len(due)))
	if len(due) == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		reports []*models.AutoFillReport
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, tournament := range due {
		tournament := tournament
		g.Go(func() error {
			report, fillErr := s.TriggerAutoFill(gctx, tournament.ID, now)
			if fillErr != nil {
				if errors.Is(fillErr, ErrTournamentAlreadyLocked) || errors.Is(fillErr, ErrAutoFillConflict) {
					s.logger.Debug("tournament already handled by another worker",
						"tournament_id", tournament.ID)
					return nil
				}
				// Неудача одного турнира не должна останавливать
				// обработку остальных.
				s.logger.Error("tournament auto-fill failed",
					"tournament_id", tournament.ID, "error", fillErr)
				return nil
			}
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].TournamentID < reports[j].TournamentID
	})

	return reports, nil
}

func (s *tournamentService) transitionFillStatus(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, to models.TournamentFillStatus) error {
	if !isValidFillTransition(tournament.FillStatus, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidFillStatusTransition, tournament.FillStatus, to)
	}
	if err := s.tournamentRepo.UpdateFillStatus(ctx, exec, tournament.ID, tournament.FillStatus, to); err != nil {
		return err
	}
	tournament.FillStatus = to
	return nil
}

// placeholderUID derives a stable identifier for the placeholder that
// fills one slot of one tournament. The same tournament and slot always
// map to the same UID, so a retried fill can never mint a second
// placeholder for a slot.
func placeholderUID(tournamentID, slot int) string {
	name := fmt.Sprintf("matchday://tournaments/%d/slots/%d", tournamentID, slot)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
