package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/clearhealth/trialmatch/internal/api"
	"github.com/clearhealth/trialmatch/internal/config"
	"github.com/clearhealth/trialmatch/internal/database"
	"github.com/clearhealth/trialmatch/internal/domain"
	"github.com/clearhealth/trialmatch/internal/feedback"
	"github.com/clearhealth/trialmatch/internal/repository"
	"github.com/clearhealth/trialmatch/internal/service"
	"github.com/clearhealth/trialmatch/pkg/external"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting trial match server")

	// Model API client with response cache and circuit breaker. Without an
	// API key the engine runs in structured-only mode: semantic condition
	// matching falls back to deterministic substring comparison and free-text
	// criteria are skipped.
	var classifier domain.SemanticClassifier
	var interpreter domain.TextInterpreter
	var breaker api.BreakerProbe

	if cfg.Model.APIKey != "" {
		var cache *external.CacheClient
		if cfg.Cache.Enabled {
			cache, err = external.NewCacheClient(cfg.Cache)
			if err != nil {
				logger.WithError(err).Warn("Response cache unavailable, continuing without it")
				cache = nil
			} else {
				defer cache.Close()
			}
		}

		resilient := external.NewResilientCompleter(logger, external.NewModelClient(cfg.Model), cache)
		classifier = external.NewConditionClassifier(logger, resilient)
		interpreter = external.NewCriteriaExtractor(logger, resilient)
		breaker = resilient
	} else {
		logger.Warn("No model API key configured, running in structured-only mode")
	}

	matcher := service.NewMatcher(logger, classifier, interpreter, cfg.Matcher)

	matchCache, err := external.NewMatchLRU(cfg.Matcher.MatchCacheSize)
	if err != nil {
		log.Fatalf("Failed to create match cache: %v", err)
	}
	ranker := service.NewRanker(logger, matcher, matchCache, cfg.Matcher)

	store, err := newFeedbackStore(configManager, logger)
	if err != nil {
		log.Fatalf("Failed to open feedback store: %v", err)
	}
	defer store.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Evaluation history requires PostgreSQL; it is only kept when the
	// feedback store already runs against one.
	var evaluations api.EvaluationStore
	if cfg.Feedback.Backend == "postgres" {
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		evaluations = repository.NewEvaluationRepository(db.Pool, logger)
	}

	// Create server
	server := api.NewServer(configManager, logger, api.Deps{
		Matcher:     matcher,
		Ranker:      ranker,
		Scorer:      service.NewScorer(logger),
		Feedback:    store,
		Evaluations: evaluations,
		Breaker:     breaker,
	})

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return logger
}

// newFeedbackStore opens the configured feedback backend. The postgres
// backend runs pending schema migrations before serving.
func newFeedbackStore(m *config.Manager, logger *logrus.Logger) (feedback.Store, error) {
	cfg := m.GetConfig()

	switch cfg.Feedback.Backend {
	case "postgres":
		databaseURL := m.GetDatabaseConnectionString()

		runner, err := database.NewMigrationRunner(databaseURL, cfg.Database.MigrationsPath, logger)
		if err != nil {
			return nil, err
		}
		defer runner.Close()
		if err := runner.Up(); err != nil {
			return nil, err
		}

		return feedback.NewPostgresStoreFromURL(databaseURL)
	default:
		logger.WithField("path", cfg.Feedback.SQLitePath).Info("Using SQLite feedback store")
		return feedback.NewSQLiteStore(cfg.Feedback.SQLitePath)
	}
}
