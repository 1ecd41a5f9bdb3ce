package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/matchday-system/brackets"
	"github.com/Dosada05/matchday-system/config"
	"github.com/Dosada05/matchday-system/db"
	_ "github.com/Dosada05/matchday-system/docs"
	"github.com/Dosada05/matchday-system/handlers"
	"github.com/Dosada05/matchday-system/live"
	"github.com/Dosada05/matchday-system/metrics"
	"github.com/Dosada05/matchday-system/repositories"
	api "github.com/Dosada05/matchday-system/routes"
	"github.com/Dosada05/matchday-system/schedule"
	"github.com/Dosada05/matchday-system/scheduler"
	"github.com/Dosada05/matchday-system/services"
	"github.com/Dosada05/matchday-system/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

// @title Matchday System API
// @version 1.0
// @description Генерация расписаний, сокращённые сезоны и автозаполнение турниров.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})) // Default to Info level

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Time("season_epoch", cfg.SeasonEpoch),
	)

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация архиватора снапшотов (Cloudflare R2). Без учётных
	// данных R2 приложение работает, снапшоты просто не пишутся.
	var scheduleArchiver services.ScheduleArchiver
	var autoFillArchiver services.AutoFillArchiver
	if cfg.R2Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver := storage.NewSnapshotArchiver(uploader)
		scheduleArchiver = archiver
		autoFillArchiver = archiver
		logger.Info("Cloudflare R2 snapshot archiver initialized")
	} else {
		logger.Info("R2 credentials absent, snapshot archiving disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Prometheus метрики на собственном реестре
	m := metrics.New()

	// Инициализация репозиториев
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	fixtureRepo := repositories.NewPostgresFixtureRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	entryRepo := repositories.NewPostgresEntryRepository(dbConn)
	bracketMatchRepo := repositories.NewPostgresBracketMatchRepository(dbConn)
	adminRepo := repositories.NewPostgresAdminRepository(dbConn)
	txRunner := repositories.NewTxRunner(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	season := schedule.NewSeason(cfg.SeasonEpoch)

	authService := services.NewAuthService(adminRepo)
	teamService := services.NewTeamService(teamRepo)
	scheduleService := services.NewScheduleService(
		teamRepo,
		fixtureRepo,
		txRunner,
		season,
		wsHub,
		scheduleArchiver,
		m,
		logger,
	)
	tournamentService := services.NewTournamentService(
		tournamentRepo,
		entryRepo,
		teamRepo,
		bracketMatchRepo,
		brackets.NewSingleEliminationGenerator(),
		txRunner,
		wsHub,
		autoFillArchiver,
		m,
		logger,
	)
	logger.Info("Services initialized")

	// Планировщик: периодическая проверка дедлайнов регистрации турниров
	sched, err := scheduler.New(logger)
	if err != nil {
		logger.Error("failed to initialize scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := sched.AddCronJob("tournament-autofill-sweep", cfg.AutoFillSweepCron, func() {
		if _, sweepErr := tournamentService.SweepDueTournaments(context.Background(), time.Now().UTC()); sweepErr != nil {
			logger.Error("tournament auto-fill sweep failed", slog.Any("error", sweepErr))
		}
	}); err != nil {
		logger.Error("failed to register auto-fill sweep job", slog.Any("error", err))
		os.Exit(1)
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			logger.Error("failed to stop scheduler", slog.Any("error", err))
		}
	}()
	logger.Info("auto-fill sweep scheduled", slog.String("cron", cfg.AutoFillSweepCron))

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	teamHandler := handlers.NewTeamHandler(teamService)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		authHandler,
		teamHandler,
		scheduleHandler,
		tournamentHandler,
		webSocketHandler,
		m,
		cfg.JWTSecretKey,
		cfg.CORSAllowedOrigins,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		// Create a context with timeout for shutdown.
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			// If shutdown fails, force close.
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
