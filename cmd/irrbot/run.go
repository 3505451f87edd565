package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pitabwire/irrbot/internal/bot"
	"github.com/pitabwire/irrbot/internal/catalog"
	"github.com/pitabwire/irrbot/internal/config"
	"github.com/pitabwire/irrbot/internal/discord"
	"github.com/pitabwire/irrbot/internal/observability"
	"github.com/pitabwire/irrbot/internal/store"
	"github.com/pitabwire/irrbot/internal/transport"
	"github.com/pitabwire/irrbot/model"
)

// Table names of the persisted data.
const (
	submissionsTable = "submissions"
	sequenceName     = "irr"
)

func runBot(parent context.Context, configPath string) error {
	// Step 1: Load configuration.
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	// Step 2: Initialize telemetry (logger, tracer, metrics).
	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "irrbot", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return err
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Step 3: Load the question catalog and tag rules.
	questions, rules, err := loadCatalog(cfg.Catalog)
	if err != nil {
		logger.Error("catalog loading failed", zap.Error(err))
		return err
	}

	// Step 4: Open the store.
	backend, submissions, sequence, err := openStore(ctx, cfg.Store, metrics, logger)
	if err != nil {
		logger.Error("store initialization failed", zap.Error(err))
		return err
	}
	defer backend.Close()

	// Step 5: Build the Discord adapter and the bot core.
	adapter, err := discord.New(cfg.Discord, logger.Named("discord"))
	if err != nil {
		return err
	}
	core := bot.New(bot.Config{
		LogChannelID:    cfg.Discord.LogChannelID,
		ForumChannelID:  cfg.Discord.ForumChannelID,
		ModeratorRoleID: cfg.Discord.ModeratorRoleID,
		ProtestEmojiID:  cfg.Discord.ProtestEmojiID,
		ButtonMessage:   cfg.Discord.ButtonMessage,
		IdleTimeout:     cfg.Questionnaire.IdleTimeout,
	}, bot.Deps{
		Catalog:     questions,
		Rules:       rules,
		Submissions: submissions,
		Sequence:    sequence,
		Platform:    adapter,
		Metrics:     metrics,
		Logger:      logger,
	})
	adapter.Bind(core)

	// Step 6: Start the ops HTTP server.
	var srv *http.Server
	errCh := make(chan error, 1)
	if cfg.Server.Enabled {
		deps := transport.Dependencies{
			Logger:    logger.Named("http"),
			Metrics:   metrics,
			Readiness: observability.ReadinessChecks{
				"store":   backend,
				"discord": adapter,
			},
			Pending: func(ctx context.Context) ([]model.Submission, error) {
				return bot.Pending(ctx, submissions)
			},
		}
		if cfg.Observability.Metrics.Enabled {
			deps.Gatherer = prometheus.DefaultGatherer
			deps.MetricsPath = cfg.Observability.Metrics.Path
		}
		router := transport.NewRouter(deps)
		srv = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	// Step 7: Connect to Discord.
	if err := adapter.Open(ctx); err != nil {
		logger.Error("discord connection failed", zap.Error(err))
		_ = adapter.Close()
		return err
	}

	logger.Info("bot started",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("store", backend.Driver()),
		zap.Int("questions", questions.Len()),
		zap.Int("tag_rules", rules.Len()),
	)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case runErr = <-errCh:
		logger.Error("server error", zap.Error(runErr))
	}

	// Graceful shutdown sequence.
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop taking interactions before dropping live sessions.
	if err := adapter.Close(); err != nil {
		logger.Warn("discord close error", zap.Error(err))
	}
	core.Stop()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return runErr
}

// loadCatalog reads the question catalog and, when configured, the tag
// rules.
func loadCatalog(cfg config.CatalogConfig) (*catalog.Catalog, *catalog.TagRules, error) {
	loader := catalog.NewLoader()
	questions, err := loader.LoadQuestions(cfg.QuestionsFile)
	if err != nil {
		return nil, nil, err
	}
	if cfg.TagRulesFile == "" {
		return questions, nil, nil
	}
	rules, err := loader.LoadTagRules(cfg.TagRulesFile)
	if err != nil {
		return nil, nil, err
	}
	return questions, rules, nil
}

// openStore connects the backend and opens the submission table and the
// approval counter.
func openStore(
	ctx context.Context,
	cfg config.StoreConfig,
	obs store.Observer,
	logger *zap.Logger,
) (*store.Backend, store.Table[model.Submission], *store.Counter, error) {
	backend, err := store.Open(ctx, cfg, obs, logger.Named("store"))
	if err != nil {
		return nil, nil, nil, err
	}
	submissions, err := store.OpenTable[model.Submission](backend, submissionsTable)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}
	sequence, err := store.OpenCounter(backend, sequenceName)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}
	return backend, submissions, sequence, nil
}
