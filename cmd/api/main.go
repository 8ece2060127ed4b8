package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexo-studio/agency-api/docs"
	"github.com/nexo-studio/agency-api/internal/auth"
	"github.com/nexo-studio/agency-api/internal/cache"
	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/database"
	"github.com/nexo-studio/agency-api/internal/http/handler"
	"github.com/nexo-studio/agency-api/internal/http/middleware"
	"github.com/nexo-studio/agency-api/internal/http/router"
	"github.com/nexo-studio/agency-api/internal/jobs"
	"github.com/nexo-studio/agency-api/internal/logger"
	"github.com/nexo-studio/agency-api/internal/notify"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/nexo-studio/agency-api/internal/service"
	"github.com/nexo-studio/agency-api/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title Nexo Agency API
// @version 1.0
// @description Quotation, CRM and content API for the agency website and back office
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email soporte@nexo.studio

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API Key for system integrations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.String("version", basicCfg.App.Version),
		zap.Int("port", basicCfg.App.Port),
	)

	if basicCfg.App.Environment == "development" || basicCfg.App.Environment == "local" {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	} else {
		docs.SwaggerInfo.Host = ""
	}

	// In staging and production secrets may come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("Error closing database", zap.Error(err))
		}
	}()

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Redis is optional: without it previews are kept in memory and notifications are sent inline
	var redisClient *redis.Client
	var previews service.PreviewStore
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.New(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
		previews = cache.NewRedisPreviewStore(redisClient)
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		previews = cache.NewMemoryPreviewStore()
		log.Warn("Redis not configured, quotation previews are kept in process memory")
	}

	notifier, err := notify.New(&cfg.Notify, log)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}
	if cfg.Queue.Enabled {
		enqueuer := jobs.NewEnqueuer(jobs.RedisOpt(&cfg.Redis), log)
		defer func() { _ = enqueuer.Close() }()
		notifier = enqueuer
		log.Info("Notifications are delivered by the background worker")
	}

	// Initialize repositories
	serviceRepo := repository.NewServiceRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	techRepo := repository.NewTechnologyRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	contactRepo := repository.NewContactRepository(db)
	dealRepo := repository.NewDealRepository(db)
	dealStageHistoryRepo := repository.NewDealStageHistoryRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	postRepo := repository.NewPostRepository(db)
	fileRepo := repository.NewFileRepository(db)

	// Initialize services
	activityService := service.NewActivityService(activityRepo, log)
	catalogService := service.NewCatalogService(serviceRepo, questionRepo, techRepo, log)
	quotationService := service.NewQuotationService(
		quotationRepo, contactRepo, dealRepo, techRepo,
		catalogService, activityService, previews, notifier,
		cfg.Quotation, log, db,
	)
	contactService := service.NewContactService(contactRepo, activityService, log)
	dealService := service.NewDealService(dealRepo, dealStageHistoryRepo, contactRepo, activityService, log, db)
	fileService := service.NewFileService(fileRepo, fileStorage, log)
	postService := service.NewPostService(postRepo, fileService, activityService, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(cfg, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(cfg.App.Version, func(ctx context.Context) error {
		return database.HealthCheck(ctx, db)
	}, log)
	if redisClient != nil {
		healthHandler.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	rt := router.NewRouter(cfg, log, authMiddleware, rateLimiter, router.Handlers{
		Health:    healthHandler,
		Auth:      handler.NewAuthHandler(log),
		Catalog:   handler.NewCatalogHandler(catalogService, log),
		Quotation: handler.NewQuotationHandler(quotationService, log),
		Contact:   handler.NewContactHandler(contactService, log),
		Deal:      handler.NewDealHandler(dealService, log),
		Activity:  handler.NewActivityHandler(activityService, log),
		Post:      handler.NewPostHandler(postService, cfg.Storage.MaxUploadSizeMB, log),
		File:      handler.NewFileHandler(fileService, log),
	})

	// Scheduler for the pending quotation reminder
	scheduler := jobs.NewScheduler(log, 5*time.Minute)
	if cfg.Quotation.ReminderSchedule != "" {
		reminder := jobs.NewQuotationReminderJob(quotationRepo, notifier,
			cfg.Quotation.ReminderAfter(), cfg.Quotation.ReminderBatchSize, log)
		if err := scheduler.Add(cfg.Quotation.ReminderSchedule, reminder); err != nil {
			return fmt.Errorf("failed to schedule quotation reminder: %w", err)
		}
	}
	scheduler.Start()
	log.Info("Scheduler started", zap.Strings("jobs", scheduler.Jobs()))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		scheduler.Stop(ctx)
		log.Info("Scheduler stopped")

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}
		log.Info("Server stopped gracefully")
	}

	return nil
}
