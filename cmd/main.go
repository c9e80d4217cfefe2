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

	"github.com/Dosada05/federation-system/cache"
	"github.com/Dosada05/federation-system/config"
	"github.com/Dosada05/federation-system/db"
	"github.com/Dosada05/federation-system/events"
	"github.com/Dosada05/federation-system/handlers"
	"github.com/Dosada05/federation-system/realtime"
	"github.com/Dosada05/federation-system/repositories"
	api "github.com/Dosada05/federation-system/routes"
	"github.com/Dosada05/federation-system/services"
	"github.com/Dosada05/federation-system/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
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

	// Optional subsystems: each one is disabled by leaving its config empty.
	var occupancyCache cache.OccupancyCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		occupancyCache = cache.NewRedisOccupancyCache(redisClient, cfg.OccupancyCacheTTL)
		logger.Info("redis occupancy cache enabled", slog.String("addr", cfg.RedisAddr))
	}

	var publisher events.Publisher
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("failed to initialize event publisher", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := amqpPublisher.Close(); err != nil {
				logger.Error("failed to close event publisher", slog.Any("error", err))
			}
		}()
		publisher = amqpPublisher
		logger.Info("registration event publisher enabled", slog.String("exchange", cfg.AMQPExchange))
	}

	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
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
	}

	wsHub := realtime.NewHub(logger)
	go wsHub.Run()

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	categoryRepo := repositories.NewPostgresCategoryRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	slotRepo := repositories.NewPostgresSlotRepository(dbConn)
	statusChangeRepo := repositories.NewPostgresStatusChangeRepository(dbConn)

	allocator := services.NewCapacityAllocator(slotRepo, registrationRepo)
	ledger := services.NewLedgerService(registrationRepo, statusChangeRepo)
	pairing := services.NewPairingService(playerRepo, registrationRepo)

	registrationService := services.NewRegistrationService(
		tournamentRepo,
		categoryRepo,
		playerRepo,
		registrationRepo,
		allocator,
		ledger,
		pairing,
		occupancyCache,
		publisher,
		wsHub,
		uploader,
		logger,
	)
	playerService := services.NewPlayerService(playerRepo, categoryRepo, registrationRepo, uploader, logger)
	archiveService := services.NewArchiveService(categoryRepo, registrationRepo, statusChangeRepo, uploader, logger)
	logger.Info("services initialized")

	registrationHandler := handlers.NewRegistrationHandler(registrationService)
	playerHandler := handlers.NewPlayerHandler(playerService)
	adminHandler := handlers.NewAdminHandler(registrationService, archiveService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, cfg.JWTSecretKey, registrationHandler, playerHandler, adminHandler, webSocketHandler)
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
	logger.Info("application exited")
}
