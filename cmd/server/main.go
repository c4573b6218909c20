package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/api"
	"github.com/Ayash-Bera/device-advisor/internal/api/handlers"
	"github.com/Ayash-Bera/device-advisor/internal/config"
	"github.com/Ayash-Bera/device-advisor/internal/database"
	"github.com/Ayash-Bera/device-advisor/internal/generator"
	"github.com/Ayash-Bera/device-advisor/internal/health"
	"github.com/Ayash-Bera/device-advisor/internal/middleware"
	"github.com/Ayash-Bera/device-advisor/internal/migration"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/Ayash-Bera/device-advisor/internal/repository"
	"github.com/Ayash-Bera/device-advisor/internal/retriever"
	"github.com/Ayash-Bera/device-advisor/internal/services"
	"github.com/Ayash-Bera/device-advisor/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.NewLogger(cfg.Log.Level)
	logger.WithFields(logrus.Fields{
		"environment": cfg.Server.Environment,
		"provider":    cfg.Search.Provider,
		"model":       cfg.LLM.Model,
	}).Info("Starting device advisor...")

	if err := cfg.ValidateLLM(); err != nil {
		logger.WithError(err).Fatal("Language model configuration validation failed")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Analytics storage is optional; the API serves recommendations without it.
	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    cfg.Log.Level,
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("Storage unavailable, continuing without analytics")
		dbManager, _ = database.NewManager(&database.Config{}, logger)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	if dbManager.AnalyticsEnabled() {
		if _, err := migration.NewRunner(dbManager.DB, migration.Embedded(), logger).Run(context.Background()); err != nil {
			logger.WithError(err).Fatal("Failed to run SQL migrations")
		}
	}

	var repos *repository.RepositoryManager
	var queries models.RecommendationQueryRepository
	if dbManager.AnalyticsEnabled() {
		repos = repository.NewRepositoryManager(dbManager.DB)
		queries = repos.Query
	}

	searcher, err := retriever.New(cfg.Search, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize retriever")
	}

	gen, err := generator.New(cfg.LLM, nil, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize generator")
	}

	advisor := services.NewAdvisorService(searcher, gen, cfg.Pipeline, logger)

	var limiter middleware.Limiter
	if dbManager.Redis != nil {
		limiter = middleware.NewRedisLimiter(dbManager.Redis, cfg.Server.RateLimitPerMinute)
	} else {
		memory := middleware.NewMemoryLimiter(cfg.Server.RateLimitPerMinute)
		defer memory.Stop()
		limiter = memory
	}

	checker := health.NewHealthChecker(healthChecks(searcher, dbManager), queries, logger)

	router := api.NewRouter(api.Handlers{
		Recommend: handlers.NewRecommendHandler(advisor, repos, cfg.Server.RequestTimeout, logger),
		Analytics: handlers.NewAnalyticsHandler(repos, database.NewCache(dbManager.Redis, logger), logger),
		Health:    handlers.NewHealthHandler(checker),
	}, limiter, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// The generation call alone may take up to the request timeout.
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port":      cfg.Server.Port,
			"retriever": searcher.Name(),
			"index":     searcher.Index(),
			"analytics": repos != nil,
		}).Info("HTTP server listening")
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
		return
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.WithError(err).Error("Forced close failed")
		}
	}

	logger.Info("Server stopped")
}

// healthChecks probes the retriever, plus storage when it is configured.
// Only the retriever is critical.
func healthChecks(r retriever.Retriever, db *database.Manager) []health.Check {
	checks := []health.Check{{
		Name:     fmt.Sprintf("retriever:%s", r.Name()),
		Critical: true,
		Probe:    r.Ping,
	}}
	if db.DB != nil {
		checks = append(checks, health.Check{Name: "postgres", Probe: db.PingDatabase})
	}
	if db.Redis != nil {
		checks = append(checks, health.Check{Name: "redis", Probe: db.PingRedis})
	}
	return checks
}
