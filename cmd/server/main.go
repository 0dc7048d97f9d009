package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shard-legends/hatchery-service/internal/adapters"
	"github.com/shard-legends/hatchery-service/internal/config"
	"github.com/shard-legends/hatchery-service/internal/database"
	"github.com/shard-legends/hatchery-service/internal/handlers"
	"github.com/shard-legends/hatchery-service/internal/identity"
	customMiddleware "github.com/shard-legends/hatchery-service/internal/middleware"
	"github.com/shard-legends/hatchery-service/internal/service"
	"github.com/shard-legends/hatchery-service/internal/storage"
	"github.com/shard-legends/hatchery-service/pkg/jwt"
	"github.com/shard-legends/hatchery-service/pkg/logger"
	"github.com/shard-legends/hatchery-service/pkg/metrics"
)

const serviceVersion = "1.0.0"

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded", zap.String("config", cfg.String()))

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(cfg.Metrics.UpdateInterval)
		defer ticker.Stop()
		for {
			metrics.ServiceUptime.Set(time.Since(startTime).Seconds())
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	metrics.ServiceInfo.WithLabelValues(serviceVersion, startTime.Format(time.RFC3339)).Set(1)

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redis, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	jwtValidator := jwt.NewValidator(cfg.Auth.PublicKeyURL, redis, cfg.Timeouts.JWTValidatorClient)
	initCtx, initCancel := context.WithTimeout(rootCtx, cfg.Timeouts.JWTValidatorClient)
	err = jwtValidator.Initialize(initCtx)
	initCancel()
	if err != nil {
		logger.Fatal("Failed to initialize JWT validator", zap.Error(err))
	}
	jwtValidator.StartKeyRefresh(rootCtx, cfg.Auth.RefreshInterval)

	dbAdapter := adapters.NewDatabaseAdapter(db)
	cacheAdapter := adapters.NewCacheAdapter(redis, cfg.Redis.KeyPrefix)
	metricsAdapter := adapters.NewMetricsAdapter()

	repository := storage.NewTrainerRepository(&storage.RepositoryDependencies{
		DB:               dbAdapter,
		Cache:            cacheAdapter,
		MetricsCollector: metricsAdapter,
		Logger:           logger.Named("storage"),
		CacheTTL:         cfg.Cache.TrainerTTL,
	})

	schemaCtx, schemaCancel := context.WithTimeout(rootCtx, cfg.Timeouts.SchemaSetup)
	err = repository.EnsureSchema(schemaCtx)
	schemaCancel()
	if err != nil {
		logger.Fatal("Failed to prepare trainer_data table", zap.Error(err))
	}

	identities := identity.NewRedisProvider(cacheAdapter, logger.Named("identity"))

	generator := service.NewHTTPGenerationClient(
		cfg.Generator.Endpoint,
		cfg.Generator.APIToken,
		cfg.Generator.Timeout,
		logger.Named("generator"),
	)

	trainerService := service.NewTrainerService(repository, generator, service.EconomyConfig{
		InitialTokens:      cfg.Economy.InitialTokens,
		GenerateCost:       cfg.Economy.GenerateCost,
		MaxBatchSize:       cfg.Economy.MaxBatchSize,
		DefaultResellValue: cfg.Economy.DefaultResellValue,
		DefaultPrompt:      cfg.Generator.DefaultPrompt,
	}, logger.Named("trainer"), service.WithPersistTimeout(cfg.Timeouts.Persistence))

	cleanupService := service.NewSessionCleanupService(trainerService, logger.Named("session_cleanup"), service.SessionCleanupConfig{
		IdleTimeout:     cfg.Sessions.IdleTimeout,
		CleanupInterval: cfg.Sessions.CleanupInterval,
	})
	go cleanupService.Start(rootCtx)

	allHandlers := handlers.NewHandlers(&handlers.HandlerDependencies{
		TrainerService: trainerService,
		DB:             db,
		Redis:          redis,
		Logger:         logger.Named("handlers"),
	})

	httpLogger := logger.Named("http")
	publicRouter := newPublicRouter(cfg, httpLogger, jwtValidator, identities, allHandlers.Trainer.RegisterRoutes)
	internalRouter := newInternalRouter(cfg, httpLogger, allHandlers.Health)

	publicServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      publicRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	internalServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.InternalPort),
		Handler:      internalRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting Hatchery Service public server",
			zap.String("host", cfg.Server.Host),
			zap.String("port", cfg.Server.Port),
		)

		if err := publicServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start public server", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Starting Hatchery Service internal server",
			zap.String("host", cfg.Server.Host),
			zap.String("port", cfg.Server.InternalPort),
		)

		if err := internalServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start internal server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop background workers before draining HTTP
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.GracefulShutdown)
	defer shutdownCancel()

	shutdownErr := make(chan error, 2)

	go func() {
		if err := publicServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr <- fmt.Errorf("public server shutdown error: %w", err)
		} else {
			shutdownErr <- nil
		}
	}()

	go func() {
		if err := internalServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr <- fmt.Errorf("internal server shutdown error: %w", err)
		} else {
			shutdownErr <- nil
		}
	}()

	for i := 0; i < 2; i++ {
		if err := <-shutdownErr; err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
	}

	logger.Info("Servers exited")
}

// newPublicRouter serves the authenticated /hatchery API only
func newPublicRouter(cfg *config.Config, log *zap.Logger, validator customMiddleware.TokenValidator, identities identity.Provider, registerRoutes func(chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logging(log))
	r.Use(customMiddleware.Recovery(log))
	r.Use(customMiddleware.Metrics())
	r.Use(middleware.Timeout(cfg.Timeouts.HTTPMiddleware))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/hatchery", func(r chi.Router) {
		r.Use(customMiddleware.Auth(validator, identities))
		registerRoutes(r)
	})

	return r
}

// newInternalRouter serves probes and metrics; it must never be exposed publicly
func newInternalRouter(cfg *config.Config, log *zap.Logger, health *handlers.HealthHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logging(log))
	r.Use(customMiddleware.Recovery(log))
	r.Use(customMiddleware.Metrics())
	r.Use(middleware.Timeout(cfg.Timeouts.HTTPMiddleware))

	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
