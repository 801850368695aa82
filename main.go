package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/campuspulse/feedback-engine/pkg/analysis"
	"github.com/campuspulse/feedback-engine/pkg/config"
	"github.com/campuspulse/feedback-engine/pkg/database"
	"github.com/campuspulse/feedback-engine/pkg/handlers"
	"github.com/campuspulse/feedback-engine/pkg/repositories"
	"github.com/campuspulse/feedback-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.String("provider", cfg.Provider.Kind),
		zap.String("model", cfg.Provider.Model))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	cache, err := newResponseCache(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	provider, err := analysis.NewProvider(&cfg.Provider, logger)
	if err != nil {
		logger.Fatal("Failed to create analysis provider", zap.Error(err))
	}

	pricing, err := analysis.LoadPricingTable(cfg.Pricing.DefaultPromptRate, cfg.Pricing.DefaultCompletionRate)
	if err != nil {
		logger.Fatal("Failed to load pricing table", zap.Error(err))
	}

	feedbackRepo := repositories.NewFeedbackRepository(db)
	topicRepo := repositories.NewTopicRepository(db)
	inquiryRepo := repositories.NewInquiryRepository(db)
	costRepo := repositories.NewCostLogRepository(db)

	ledger := services.NewCostLedger(costRepo, logger)
	gateway := analysis.NewGateway(provider, cache, ledger, pricing, &cfg.Gateway, logger)
	resolver := services.NewTopicResolver(topicRepo, &cfg.Topics, logger)
	scheduler := services.NewSummaryScheduler(feedbackRepo, topicRepo, inquiryRepo, gateway, &cfg.Summaries, logger)
	orchestrator := services.NewAnalysisOrchestrator(feedbackRepo, gateway, resolver, scheduler, &cfg.Workers, logger)

	orchestrator.Start(ctx)
	orchestrator.RunSweepScheduler(ctx, cfg.Workers.SweepInterval)
	scheduler.RunScheduler(ctx, cfg.Summaries.CheckInterval)

	mux := http.NewServeMux()
	healthHandler := handlers.NewHealthHandler(cfg, db, logger)
	healthHandler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler: mux,
	}

	go func() {
		logger.Info("Starting feedback-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}

	// Workers release their in-flight claims before Wait returns.
	orchestrator.Wait()
	logger.Info("Shutdown complete")
}

// newLogger builds the process logger for the given environment: a
// human-readable development logger locally, JSON production logging
// otherwise.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runMigrations applies pending migrations over a short-lived database/sql
// connection, since golang-migrate does not speak pgx pools.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer func() { _ = migrationDB.Close() }()
	return database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger)
}

// newResponseCache picks the Redis-backed response cache when Redis is
// configured, and the in-process cache otherwise.
func newResponseCache(cfg *config.Config, logger *zap.Logger) (analysis.ResponseCache, error) {
	client, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		logger.Info("Using in-process response cache")
		return analysis.NewMemoryCache(), nil
	}
	logger.Info("Using Redis response cache",
		zap.String("host", cfg.Redis.Host),
		zap.Int("port", cfg.Redis.Port))
	return analysis.NewRedisCache(client), nil
}
