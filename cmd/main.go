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

	"github.com/bekzhan-dev/tournament-platform/brackets"
	"github.com/bekzhan-dev/tournament-platform/config"
	"github.com/bekzhan-dev/tournament-platform/db"
	"github.com/bekzhan-dev/tournament-platform/handlers"
	"github.com/bekzhan-dev/tournament-platform/middleware"
	"github.com/bekzhan-dev/tournament-platform/repositories"
	"github.com/bekzhan-dev/tournament-platform/routes"
	"github.com/bekzhan-dev/tournament-platform/services"
	"github.com/bekzhan-dev/tournament-platform/storage"
)

// @title Tournament Platform API
// @version 1.0
// @description Tournament management with bracket generation, live updates, and group stages.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

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

	var uploader storage.FileUploader
	if cfg.R2.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage not configured, logo uploads are disabled")
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	standingRepo := repositories.NewPostgresGroupStandingRepository(dbConn)

	authService := services.NewAuthService(userRepo)
	bracketService := services.NewBracketService(dbConn, participantRepo, matchRepo, standingRepo, logger)
	matchService := services.NewMatchService(dbConn, matchRepo, wsHub, logger)
	standingService := services.NewStandingService(dbConn, matchRepo, participantRepo, standingRepo, wsHub, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, userRepo, bracketService, uploader, wsHub, logger)
	participantService := services.NewParticipantService(dbConn, participantRepo, tournamentRepo, userRepo, logger)

	// Scheduler advancing tournament statuses when their dates pass. The move
	// into active also generates the bracket.
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go func() {
		ticker := time.NewTicker(cfg.SchedulerInterval)
		defer ticker.Stop()
		logger.Info("status scheduler started", slog.Duration("interval", cfg.SchedulerInterval))

		if err := tournamentService.AutoUpdateStatusesByDates(schedulerCtx, time.Now()); err != nil {
			logger.Error("scheduler initial run failed", slog.Any("error", err))
		}
		for {
			select {
			case <-schedulerCtx.Done():
				return
			case now := <-ticker.C:
				if err := tournamentService.AutoUpdateStatusesByDates(schedulerCtx, now); err != nil {
					logger.Error("scheduler run failed", slog.Any("error", err))
				}
			}
		}
	}()

	authLimiter := middleware.NewAttemptStore(cfg.RateLimitAttempts, cfg.RateLimitWindow)

	router := routes.InitRoutes(cfg, routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Tournament:  handlers.NewTournamentHandler(tournamentService, standingService),
		Participant: handlers.NewParticipantHandler(participantService, tournamentService),
		Match:       handlers.NewMatchHandler(matchService, tournamentService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, tournamentService, logger),
	}, authLimiter)

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
		stopScheduler()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
}
