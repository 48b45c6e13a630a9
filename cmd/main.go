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

	"github.com/Dosada05/match-arena/config"
	"github.com/Dosada05/match-arena/db"
	"github.com/Dosada05/match-arena/handlers"
	"github.com/Dosada05/match-arena/live"
	"github.com/Dosada05/match-arena/notify"
	"github.com/Dosada05/match-arena/repositories"
	api "github.com/Dosada05/match-arena/routes"
	"github.com/Dosada05/match-arena/scheduler"
	"github.com/Dosada05/match-arena/services"
	"github.com/Dosada05/match-arena/storage"
	"github.com/Dosada05/match-arena/vision"
	"github.com/Dosada05/match-arena/wallet"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

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

	if err := db.Migrate(dbConn); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database schema up to date")

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
	logger.Info("Cloudflare R2 uploader initialized")

	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("websocket hub started")

	// Repositories
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	memberRepo := repositories.NewPostgresMemberRepository(dbConn)
	screenshotRepo := repositories.NewPostgresScreenshotRepository(dbConn)
	disputeRepo := repositories.NewPostgresDisputeRepository(dbConn)
	resultRepo := repositories.NewPostgresResultRepository(dbConn)

	ledger := wallet.NewPostgresGateway(dbConn)

	// Evidence classification
	var classifier vision.Classifier
	if cfg.OCREndpoint != "" {
		classifier, err = vision.NewOCRClient(vision.OCRClientConfig{
			Endpoint: cfg.OCREndpoint,
			APIKey:   cfg.OCRAPIKey,
		})
		if err != nil {
			logger.Error("failed to initialize OCR client", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("OCR evidence classifier enabled")
	} else {
		classifier = vision.NewDisabledClassifier()
		logger.Warn("no OCR endpoint configured, evidence verdicts will stay pending")
	}
	verdictMapper := vision.NewKeywordMapper(vision.DefaultVerdictKeywords())

	// Notifications
	sinks := []notify.Sink{notify.NewSlogSink(logger)}
	if cfg.TelegramBotToken != "" {
		telegramSink, tgErr := notify.NewTelegramSink(cfg.TelegramBotToken, userRepo)
		if tgErr != nil {
			logger.Error("failed to initialize telegram sink", slog.Any("error", tgErr))
			os.Exit(1)
		}
		sinks = append(sinks, telegramSink)
		logger.Info("telegram notifications enabled")
	}
	notifier := services.NewNotifier(notify.NewMultiSink(sinks...), wsHub, logger)

	// Services
	authService := services.NewAuthService(userRepo)
	accountService := services.NewAccountService(userRepo, ledger)
	formationService := services.NewFormationService(
		dbConn, matchRepo, teamRepo, memberRepo, userRepo,
		cfg.PlatformMarginPercent, notifier, logger,
	)
	lifecycleService := services.NewLifecycleService(
		dbConn, matchRepo, teamRepo, memberRepo, ledger, notifier, logger,
	)
	escrowService := services.NewEscrowService(
		dbConn, matchRepo, teamRepo, memberRepo, ledger, lifecycleService, notifier, logger,
	)
	settlementService := services.NewSettlementService(
		dbConn, matchRepo, teamRepo, memberRepo, resultRepo, userRepo, ledger, notifier, logger,
	)
	adjudicationService := services.NewAdjudicationService(
		dbConn, matchRepo, teamRepo, memberRepo, screenshotRepo, disputeRepo,
		settlementService, uploader, classifier, verdictMapper, notifier, logger,
	)
	disputeService := services.NewDisputeService(
		dbConn, matchRepo, teamRepo, memberRepo, disputeRepo, settlementService, notifier, logger,
	)
	queryService := services.NewMatchQueryService(matchRepo, teamRepo, memberRepo, screenshotRepo, uploader)
	logger.Info("services initialized")

	// Stale match reaper
	if cfg.MatchReaperMaxAge > 0 {
		reaper := scheduler.NewReaper(matchRepo, lifecycleService, cfg.MatchReaperMaxAge, logger)
		if err := reaper.Start(); err != nil {
			logger.Error("failed to start match reaper", slog.Any("error", err))
			os.Exit(1)
		}
		defer reaper.Stop()
	} else {
		logger.Info("match reaper disabled, MATCH_REAPER_MAX_AGE not set")
	}

	// HTTP handlers
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	accountHandler := handlers.NewAccountHandler(accountService)
	matchHandler := handlers.NewMatchHandler(formationService, escrowService, lifecycleService, queryService)
	evidenceHandler := handlers.NewEvidenceHandler(adjudicationService, queryService)
	disputeHandler := handlers.NewDisputeHandler(disputeService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		accountHandler,
		matchHandler,
		evidenceHandler,
		disputeHandler,
		webSocketHandler,
	)
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
		logger.Info("server stopped gracefully")
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
		logger.Info("server shutdown complete")
	}
}
