package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/admin-console/internal/auth"
	"github.com/SAP-F-2025/admin-console/internal/auth/casdoor"
	"github.com/SAP-F-2025/admin-console/internal/cache"
	"github.com/SAP-F-2025/admin-console/internal/config"
	"github.com/SAP-F-2025/admin-console/internal/events"
	"github.com/SAP-F-2025/admin-console/internal/handlers"
	"github.com/SAP-F-2025/admin-console/internal/repositories/postgres"
	"github.com/SAP-F-2025/admin-console/internal/services"
	"github.com/SAP-F-2025/admin-console/internal/session"
	"github.com/SAP-F-2025/admin-console/internal/utils"
	"github.com/SAP-F-2025/admin-console/internal/validator"
	"github.com/SAP-F-2025/admin-console/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(slogLogger)
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis holds console artifacts, so an embedded instance stands in when
	// none is configured
	var redisClient *redis.Client
	stopRedis := func() {}
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Redis: %v", err)
		}
		stopRedis = func() { redisClient.Close() }
	} else {
		redisClient, stopRedis, err = pkg.NewEmbeddedRedis()
		if err != nil {
			log.Fatalf("Failed to start embedded Redis: %v", err)
		}
		logger.Warn("REDIS_URL not set, console artifacts are kept in memory")
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()

	// Auth lifecycle events
	publisher, err := events.NewPublisherFromConfig(cfg.Events, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	// Upstream auth provider, one per console
	artifacts := cache.NewArtifactStore(redisClient)
	providers := func(string) auth.Provider { return auth.Disabled{} }
	if cfg.Casdoor.Configured() {
		client := casdoor.NewClient(casdoor.Options{
			Config:        cfg.Casdoor,
			RefreshLeeway: cfg.Session.RefreshLeeway,
			Redis:         redisClient,
			Artifacts:     artifacts,
			Logger:        slogLogger,
		})
		providers = func(consoleID string) auth.Provider { return client.ForConsole(consoleID) }
	} else {
		logger.Warn("Casdoor is not configured, consoles will show the setup view")
	}

	registry := session.NewRegistry(session.RegistryOptions{
		Providers: providers,
		Artifacts: func(consoleID string) session.Artifacts {
			return artifacts.ForConsole(consoleID)
		},
		Resolver:      session.NewResolver(repo.Profile(), publisher, slogLogger),
		Publisher:     publisher,
		Logger:        slogLogger,
		RedirectDelay: cfg.Session.RedirectDelay,
		IdleTTL:       cfg.Session.IdleTTL,
	})
	runCtx, stopRegistry := context.WithCancel(context.Background())
	go registry.Run(runCtx)

	// Initialize validator
	validator := validator.New()

	// Initialize services
	serviceManager := services.NewServiceManager(repo, slogLogger, validator, publisher)
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, registry, validator, logger, cfg.Session.CookieSecure)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Event streams end when their controllers stop, so the registry goes
	// down while the server drains
	stopRegistry()
	if err := registry.Shutdown(ctx); err != nil {
		logger.Error("Failed to stop session controllers", "error", err)
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Closes the publisher shared with the registry
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close database", "error", err)
	}
	stopRedis()

	logger.Info("Server exited")
}
