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

	"github.com/Dosada05/tournament-registry/config"
	"github.com/Dosada05/tournament-registry/db"
	"github.com/Dosada05/tournament-registry/handlers"
	"github.com/Dosada05/tournament-registry/middleware"
	"github.com/Dosada05/tournament-registry/realtime"
	"github.com/Dosada05/tournament-registry/repositories"
	api "github.com/Dosada05/tournament-registry/routes"
	"github.com/Dosada05/tournament-registry/services"
	"github.com/Dosada05/tournament-registry/storage"
)

const requestTimeout = 30 * time.Second

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("timezone", cfg.Location.String()),
		slog.String("duplicate_policy", string(cfg.DuplicatePolicy)),
		slog.String("counter_mode", string(cfg.CounterMode)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
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
	if err := db.EnsureSchema(ctx, dbConn); err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2); без него экспорт недоступен
	var uploader storage.FileUploader
	if cfg.R2.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2Config{
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
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2.BucketName))
	} else {
		logger.Warn("R2 is not configured, roster export disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	txRunner := repositories.NewPostgresTxRunner(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn, cfg.QueryBatchSize)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn, cfg.QueryBatchSize)
	practiceRepo := repositories.NewPostgresPracticeRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	clock := services.SystemClock(cfg.Location)
	tournamentService := services.NewTournamentService(tournamentRepo, wsHub, clock, logger)
	registrationService := services.NewRegistrationService(
		txRunner,
		tournamentRepo,
		registrationRepo,
		uploader,
		wsHub,
		services.RegistrationOptions{
			DuplicatePolicy: cfg.DuplicatePolicy,
			CounterMode:     cfg.CounterMode,
			Clock:           clock,
		},
		logger,
	)
	matchService := services.NewMatchService(matchRepo, tournamentRepo, wsHub, logger)
	practiceService := services.NewPracticeService(practiceRepo, logger)
	statsService := services.NewStatsService(tournamentRepo, registrationRepo, matchRepo, cfg.ActivityFeedLimit, logger)
	logger.Info("Services initialized")

	// Периодическая синхронизация информационных статусов турниров
	if cfg.StatusSyncInterval > 0 {
		go runStatusSync(ctx, tournamentService, cfg.StatusSyncInterval, logger)
	}

	// Инициализация обработчиков HTTP
	authenticator := middleware.NewAuthenticator(cfg.JWTSecretKey, logger)
	h := api.Handlers{
		Health:       handlers.NewHealthHandler(dbConn, logger),
		Tournament:   handlers.NewTournamentHandler(tournamentService, matchService, logger),
		Registration: handlers.NewRegistrationHandler(registrationService, logger),
		Match:        handlers.NewMatchHandler(matchService, logger),
		Team:         handlers.NewTeamHandler(practiceService, matchService, logger),
		Dashboard:    handlers.NewDashboardHandler(statsService, logger),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, tournamentService, cfg.CORSAllowedOrigins, logger),
	}
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, authenticator, h, api.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: requestTimeout,
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

// runStatusSync пересчитывает метки статусов сразу и затем на каждом тике.
func runStatusSync(ctx context.Context, svc *services.TournamentService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("tournament status sync started", slog.Duration("interval", interval))

	sync := func() {
		n, err := svc.SyncStatusLabels(ctx)
		if err != nil {
			logger.Error("status sync failed", slog.Any("error", err))
			return
		}
		if n > 0 {
			logger.Info("status labels updated", slog.Int("count", n))
		}
	}

	sync()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sync()
		}
	}
}
