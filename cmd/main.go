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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/bracketforge/tournament-engine/brackets"
	"github.com/bracketforge/tournament-engine/config"
	"github.com/bracketforge/tournament-engine/db"
	"github.com/bracketforge/tournament-engine/handlers"
	"github.com/bracketforge/tournament-engine/repositories"
	"github.com/bracketforge/tournament-engine/routes"
	"github.com/bracketforge/tournament-engine/services"
	"github.com/bracketforge/tournament-engine/storage"
)

const (
	schedulerInterval = 30 * time.Second
	migrationsPath    = "migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.RunMigrations(dbConn, migrationsPath); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()

	var sinks []services.EventSink
	if cfg.R2Enabled() {
		store, err := storage.NewCloudflareR2Store(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		sinks = append(sinks, storage.NewEventArchive(store), storage.NewCertificateSink(store))
		logger.Info("object storage sinks initialized", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Warn("object storage not configured, events are broadcast only")
	}

	txManager := repositories.NewTxManager(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository()
	regRepo := repositories.NewPostgresRegistrationRepository()
	bracketRepo := repositories.NewPostgresBracketRepository()
	nodeRepo := repositories.NewPostgresBracketNodeRepository()
	matchRepo := repositories.NewPostgresMatchRepository()
	resultRepo := repositories.NewPostgresMatchResultRepository()
	disputeRepo := repositories.NewPostgresDisputeRepository()
	transitionRepo := repositories.NewPostgresTransitionRepository()
	organizerRepo := repositories.NewPostgresOrganizerRepository()

	timing := services.MatchTiming{
		LeadTime:      cfg.MatchLeadTime,
		CheckInOffset: cfg.CheckInOffset,
		CheckInWindow: cfg.CheckInWindow,
	}

	publisher := services.NewEventPublisher(wsHub, logger, sinks...)
	prog := services.NewProgression(tournamentRepo, bracketRepo, nodeRepo, matchRepo, timing)

	bracketService := services.NewBracketService(dbConn, bracketRepo, nodeRepo, matchRepo, regRepo, prog)
	tournamentService := services.NewTournamentService(
		txManager, dbConn,
		tournamentRepo, regRepo, bracketRepo, nodeRepo, matchRepo, disputeRepo, transitionRepo,
		bracketService, publisher, timing, logger,
	)
	prog.SetFinalizer(tournamentService)

	matchService := services.NewMatchService(txManager, dbConn, tournamentRepo, matchRepo, prog, publisher, logger)
	resultService := services.NewResultService(
		txManager, dbConn,
		tournamentRepo, matchRepo, resultRepo, disputeRepo,
		prog, publisher, cfg.ResultSubmissionTimeout, logger,
	)
	disputeService := services.NewDisputeService(txManager, dbConn, tournamentRepo, matchRepo, disputeRepo, prog, publisher)
	authService := services.NewAuthService(txManager, dbConn, organizerRepo, cfg.JWTSecretKey)
	logger.Info("services initialized")

	go runScheduler(logger, tournamentService, matchService, resultService)

	authHandler := handlers.NewAuthHandler(authService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, bracketService)
	matchHandler := handlers.NewMatchHandler(matchService, resultService)
	disputeHandler := handlers.NewDisputeHandler(disputeService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, tournamentService, logger)

	router := chi.NewRouter()
	routes.SetupRoutes(router, authHandler, tournamentHandler, matchHandler, disputeHandler, webSocketHandler, cfg.JWTSecretKey)
	logger.Info("routes configured")

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("application exited")
}

// runScheduler drives the time-based parts of the engine: date-driven
// tournament phases, check-in windows and deadlines, and unchallenged
// result timeouts.
func runScheduler(
	logger *slog.Logger,
	tournamentService services.TournamentService,
	matchService services.MatchService,
	resultService services.ResultService,
) {
	ticker := time.NewTicker(schedulerInterval)
	defer ticker.Stop()
	logger.Info("scheduler started", slog.Duration("interval", schedulerInterval))

	tick := func() {
		ctx, cancel := context.WithTimeout(context.Background(), schedulerInterval)
		defer cancel()
		now := time.Now()

		if err := tournamentService.AutoUpdateStatusesByDates(ctx, now); err != nil {
			logger.Error("scheduler: tournament status pass failed", slog.Any("error", err))
		}
		if err := matchService.OpenCheckInWindows(ctx, now); err != nil {
			logger.Error("scheduler: check-in window pass failed", slog.Any("error", err))
		}
		if err := matchService.ProcessCheckInDeadlines(ctx, now); err != nil {
			logger.Error("scheduler: check-in deadline pass failed", slog.Any("error", err))
		}
		if err := resultService.ProcessResultDeadlines(ctx, now); err != nil {
			logger.Error("scheduler: result deadline pass failed", slog.Any("error", err))
		}
	}

	tick()
	for range ticker.C {
		tick()
	}
}
