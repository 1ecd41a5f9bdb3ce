package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Dosada05/matchday-system/brackets"
	"github.com/Dosada05/matchday-system/config"
	"github.com/Dosada05/matchday-system/db"
	"github.com/Dosada05/matchday-system/metrics"
	"github.com/Dosada05/matchday-system/models"
	"github.com/Dosada05/matchday-system/repositories"
	"github.com/Dosada05/matchday-system/schedule"
	"github.com/Dosada05/matchday-system/services"
	"github.com/Dosada05/matchday-system/storage"
	"github.com/Dosada05/matchday-system/utils"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "schedctl",
		Usage: "operations toolbox: schedules, tournaments, seeding",
		Commands: []*cli.Command{
			newRegenerateCommand(),
			newAutofillCommand(),
			newSweepCommand(),
			newTeamsCommand(),
			newAdminCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// deps связывает конфигурацию, базу и сервисы для одной команды CLI.
type deps struct {
	cfg               *config.Config
	dbConn            *sql.DB
	teamService       services.TeamService
	scheduleService   services.ScheduleService
	tournamentService services.TournamentService
	adminRepo         repositories.AdminRepository
}

func openDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Для разового запуска из консоли шумят только предупреждения.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var scheduleArchiver services.ScheduleArchiver
	var autoFillArchiver services.AutoFillArchiver
	if cfg.R2Enabled() {
		uploader, upErr := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if upErr != nil {
			dbConn.Close()
			return nil, fmt.Errorf("failed to initialize R2 uploader: %w", upErr)
		}
		archiver := storage.NewSnapshotArchiver(uploader)
		scheduleArchiver = archiver
		autoFillArchiver = archiver
	}

	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	fixtureRepo := repositories.NewPostgresFixtureRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	entryRepo := repositories.NewPostgresEntryRepository(dbConn)
	bracketMatchRepo := repositories.NewPostgresBracketMatchRepository(dbConn)
	adminRepo := repositories.NewPostgresAdminRepository(dbConn)

	txRunner := repositories.NewTxRunner(dbConn)
	season := schedule.NewSeason(cfg.SeasonEpoch)
	m := metrics.New()

	return &deps{
		cfg:         cfg,
		dbConn:      dbConn,
		teamService: services.NewTeamService(teamRepo),
		scheduleService: services.NewScheduleService(
			teamRepo, fixtureRepo, txRunner, season, nil, scheduleArchiver, m, logger,
		),
		tournamentService: services.NewTournamentService(
			tournamentRepo, entryRepo, teamRepo, bracketMatchRepo,
			brackets.NewSingleEliminationGenerator(), txRunner, nil, autoFillArchiver, m, logger,
		),
		adminRepo: adminRepo,
	}, nil
}

func (d *deps) close() {
	if err := d.dbConn.Close(); err != nil {
		log.Printf("failed to close database connection: %v", err)
	}
}

func newRegenerateCommand() *cli.Command {
	return &cli.Command{
		Name:  "regenerate",
		Usage: "drop and rebuild the schedule of one subdivision",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "division", Usage: "division number", Required: true},
			&cli.StringFlag{Name: "subdivision", Usage: "subdivision label", Required: true},
			&cli.StringFlag{Name: "type", Usage: "competition type", Value: string(models.CompetitionLeague)},
		},
		Action: func(c *cli.Context) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			summary, err := d.scheduleService.Regenerate(c.Context, services.RegenerateScheduleParams{
				Division:        c.Int("division"),
				Subdivision:     c.String("subdivision"),
				CompetitionType: models.CompetitionType(c.String("type")),
			})
			if err != nil {
				return err
			}

			mode := "full season"
			if summary.Shortened {
				mode = "shortened season"
			}
			fmt.Printf("Regenerated %s schedule for division %d subdivision %s (%s)\n",
				summary.CompetitionType, summary.Division, summary.Subdivision, mode)
			fmt.Printf("  deleted fixtures: %d\n", summary.DeletedFixtures)
			fmt.Printf("  new fixtures:     %d over days %d..%d\n", summary.TotalFixtures, summary.FirstDay, summary.LastDay)
			for _, day := range summary.Days {
				fmt.Printf("  day %3d (%s): %d fixtures\n", day.Day, day.Date.Format("2006-01-02"), day.Fixtures)
			}
			return nil
		},
	}
}

func newAutofillCommand() *cli.Command {
	return &cli.Command{
		Name:  "autofill",
		Usage: "fill a tournament with placeholders and lock its bracket",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "tournament", Usage: "tournament ID", Required: true},
		},
		Action: func(c *cli.Context) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			report, err := d.tournamentService.TriggerAutoFill(c.Context, c.Int("tournament"), time.Now().UTC())
			if err != nil {
				// Уже обработанный турнир не считается ошибкой запуска.
				if errors.Is(err, services.ErrTournamentAlreadyLocked) {
					fmt.Printf("Tournament %d is already locked, nothing to do\n", c.Int("tournament"))
					return nil
				}
				return err
			}

			fmt.Printf("Tournament %d locked\n", report.TournamentID)
			fmt.Printf("  real entries:       %d\n", report.EntryCount)
			fmt.Printf("  placeholders added: %d\n", report.PlaceholdersAdded)
			fmt.Printf("  bracket matches:    %d\n", report.BracketMatches)
			return nil
		},
	}
}

func newSweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "run one pass over tournaments whose registration deadline has passed",
		Action: func(c *cli.Context) error {
			d, err := openDeps()
			if err != nil {
				return err
			}
			defer d.close()

			reports, err := d.tournamentService.SweepDueTournaments(c.Context, time.Now().UTC())
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				fmt.Println("No tournaments were due")
				return nil
			}
			for _, report := range reports {
				fmt.Printf("Tournament %d locked: %d entries, %d placeholders, %d bracket matches\n",
					report.TournamentID, report.EntryCount, report.PlaceholdersAdded, report.BracketMatches)
			}
			return nil
		},
	}
}

func newTeamsCommand() *cli.Command {
	return &cli.Command{
		Name:  "teams",
		Usage: "team management",
		Subcommands: []*cli.Command{
			{
				Name:  "seed",
				Usage: "create several teams in one subdivision",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "division", Usage: "division number", Required: true},
					&cli.StringFlag{Name: "subdivision", Usage: "subdivision label", Required: true},
					&cli.StringFlag{Name: "names", Usage: "comma-separated team names", Required: true},
				},
				Action: func(c *cli.Context) error {
					d, err := openDeps()
					if err != nil {
						return err
					}
					defer d.close()

					for _, name := range strings.Split(c.String("names"), ",") {
						name = strings.TrimSpace(name)
						if name == "" {
							continue
						}
						team, createErr := d.teamService.Create(c.Context, services.CreateTeamParams{
							Division:    c.Int("division"),
							Subdivision: c.String("subdivision"),
							Name:        name,
						})
						if createErr != nil {
							if errors.Is(createErr, services.ErrTeamNameConflict) {
								fmt.Printf("Team %q already exists, skipping\n", name)
								continue
							}
							return createErr
						}
						fmt.Printf("Created team %d: %s\n", team.ID, team.Name)
					}
					return nil
				},
			},
		},
	}
}

func newAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "administrator accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create an administrator (bootstrap for the HTTP API)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "admin email", Required: true},
					&cli.StringFlag{Name: "password", Usage: "admin password", Required: true},
				},
				Action: func(c *cli.Context) error {
					d, err := openDeps()
					if err != nil {
						return err
					}
					defer d.close()

					email := strings.TrimSpace(c.String("email"))
					if !utils.IsValidEmail(email) {
						return fmt.Errorf("invalid email address: %q", email)
					}

					hash, err := utils.HashPassword(c.String("password"))
					if err != nil {
						return fmt.Errorf("failed to hash password: %w", err)
					}

					admin := &models.Admin{
						Email:        email,
						PasswordHash: hash,
						Role:         models.RoleAdmin,
					}
					if err := d.adminRepo.Create(c.Context, admin); err != nil {
						if errors.Is(err, repositories.ErrAdminEmailConflict) {
							return fmt.Errorf("admin with email %q already exists", email)
						}
						return err
					}

					fmt.Printf("Created admin %d (%s)\n", admin.ID, admin.Email)
					return nil
				},
			},
		},
	}
}
