package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tripexl/service-dispatch/internal/application"
	"github.com/tripexl/service-dispatch/internal/config"
	"github.com/tripexl/service-dispatch/internal/database"
	jobDomain "github.com/tripexl/service-dispatch/internal/domain/job"
	"github.com/tripexl/service-dispatch/internal/events"
	"github.com/tripexl/service-dispatch/internal/handler"
	"github.com/tripexl/service-dispatch/internal/health"
	"github.com/tripexl/service-dispatch/internal/logger"
	"github.com/tripexl/service-dispatch/internal/middleware"
	"github.com/tripexl/service-dispatch/internal/notify"
	"github.com/tripexl/service-dispatch/internal/repository"
	"github.com/tripexl/service-dispatch/internal/routing"
)

const serviceName = "service-dispatch"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreBackend),
		zap.String("routing", cfg.RoutingConfig.Provider),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := health.NewHandler(serviceName)

	// Initialize job store
	jobRepo, closeStore := openJobStore(ctx, cfg, healthHandler, log)
	defer closeStore()

	// Initialize Kafka producer
	var publisher events.Publisher = events.NopPublisher{}
	notifier := notify.Fanout{notify.NewLogNotifier(log)}
	if cfg.KafkaConfig.Enabled {
		producer := events.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = producer.Close() }()
		publisher = producer
		notifier = append(notifier, notify.NewKafkaNotifier(producer, log))
	}

	// Initialize routing provider
	router, geocoder := routing.New(cfg.RoutingConfig, log)

	// Initialize application services
	planner := application.NewPlannerService(
		router,
		geocoder,
		jobDomain.NewStandardPricingStrategy(cfg.PricingConfig.BaseFare),
		jobRepo,
		publisher,
		notifier,
		application.PlannerConfig{
			Currency:   cfg.PricingConfig.Currency,
			FitPadding: cfg.FitPadding,
		},
		log,
	)
	jobService := application.NewJobService(jobRepo, planner, publisher, notifier, cfg.FitPadding, log)

	// Start the job command consumer in a goroutine
	if cfg.KafkaConfig.Enabled {
		groupID := cfg.KafkaConfig.GroupPrefix + "dispatch-service"
		commandConsumer := events.NewJobCommandConsumer(cfg.KafkaConfig.Brokers, groupID, jobService, log)
		defer func() { _ = commandConsumer.Close() }()

		go func() {
			log.Info("starting job command consumer")
			if err := commandConsumer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("job command consumer error", zap.Error(err))
			}
		}()
	}

	// Evict idle planning sessions and dashboards
	go func() {
		ticker := time.NewTicker(cfg.SessionTTL / 4)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				planner.EvictIdle(cfg.SessionTTL)
				jobService.EvictIdleDashboards(cfg.SessionTTL)
			}
		}
	}()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Apply global middleware
	engine.Use(middleware.RecoveryMiddleware(log))
	engine.Use(middleware.LoggerMiddleware(log))
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	engine.Use(middleware.SecurityHeadersMiddleware())

	// Register routes
	healthHandler.RegisterRoutes(engine)
	handler.NewSessionHandler(planner).RegisterRoutes(&engine.RouterGroup)
	handler.NewJobHandler(jobService).RegisterRoutes(&engine.RouterGroup)
	handler.NewAdminJobHandler(jobService).RegisterRoutes(&engine.RouterGroup)
	handler.NewStreamHandler(planner, jobService, cfg.CORSOrigins, log).RegisterRoutes(&engine.RouterGroup)

	// Create HTTP server. No write timeout: scene streams are long-lived.
	srv := &http.Server{
		Addr:        cfg.Port,
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer and eviction context
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}

// openJobStore connects the configured job store backend and registers its readiness check.
func openJobStore(ctx context.Context, cfg *config.ServiceConfig, hh *health.Handler, log *zap.Logger) (jobDomain.Repository, func()) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		log.Warn("using in-memory job store, jobs are lost on restart")
		return repository.NewMemoryJobRepository(), func() {}

	case config.StoreMongo:
		client, err := repository.NewMongoClient(ctx, cfg.MongoConfig.URI)
		if err != nil {
			log.Fatal("failed to connect to mongodb", zap.Error(err))
		}
		repo := repository.NewMongoJobRepository(client.Database(cfg.MongoConfig.Database))
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Fatal("failed to create mongodb indexes", zap.Error(err))
		}
		hh.AddCheck("mongodb", func(ctx context.Context) error { return client.Ping(ctx, nil) })
		return repo, func() { disconnectMongo(client, log) }

	default:
		db := connectPostgres(cfg, log)
		hh.AddCheck("postgres", func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
		return repository.NewGormJobRepository(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	}
}

func connectPostgres(cfg *config.ServiceConfig, log *zap.Logger) *gorm.DB {
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.JobModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	return db
}

func disconnectMongo(client *mongo.Client, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Warn("mongodb disconnect failed", zap.Error(err))
	}
}
