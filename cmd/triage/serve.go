package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/forgedesk/triage/internal/api"
	"github.com/forgedesk/triage/internal/config"
	"github.com/forgedesk/triage/internal/events"
	"github.com/forgedesk/triage/internal/extract"
	"github.com/forgedesk/triage/internal/notify"
	"github.com/forgedesk/triage/internal/store"
	"github.com/forgedesk/triage/internal/triage"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the triage HTTP API and event pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return err
	}
	setupLogging(cfg.LogLevel)

	slog.Info("triage starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Record source (optional — the API also accepts inline records).
	var db *store.Store
	if cfg.DatabaseURL != "" {
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			return err
		}
		defer db.Close()
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — store fallback disabled, requests must carry records inline")
	}

	// Extraction backend: hosted text analytics preferred, LLM fallback.
	ext := buildExtractor(cfg)

	engine := triage.NewEngine(ext, triage.Options{
		MaxBatch:         cfg.Tunables.MaxBatch,
		Concurrency:      cfg.Tunables.ExtractConcurrency,
		ExtractPerSecond: cfg.Tunables.ExtractPerSecond,
		Thresholds:       cfg.Tunables.Thresholds,
	}, slog.Default())

	// Slack notifier (optional — triage works without a review channel).
	var notifier *notify.SlackNotifier
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		notifier = notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack notifier ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured — running without urgent alerts")
	}

	// Event pipeline (optional — only with both NATS and a record source).
	if cfg.NatsURL != "" && db != nil {
		bus, err := events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			return err
		}
		defer bus.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)

		handler := events.NewHandler(db, engine, bus, notifierOrNil(notifier), slog.Default())
		if err := bus.Subscribe(events.SubjectSyncCompleted, handler.HandleSyncCompleted); err != nil {
			slog.Error("failed to subscribe to sync events", "error", err)
			return err
		}

		// Scheduled re-triage of recent email (optional).
		if cfg.TriageSchedule != "" {
			c := cron.New()
			if _, err := c.AddFunc(cfg.TriageSchedule, func() {
				if err := handler.Run(ctx, time.Now().Add(-7*24*time.Hour)); err != nil {
					slog.Error("scheduled triage failed", "error", err)
				}
			}); err != nil {
				slog.Error("invalid triage schedule", "schedule", cfg.TriageSchedule, "error", err)
				return err
			}
			c.Start()
			defer c.Stop()
			slog.Info("scheduled re-triage enabled", "schedule", cfg.TriageSchedule)
		}
	}

	// HTTP API.
	srv := api.NewServer(cfg.Port, cfg.APIToken, engine, sourceOrNil(db), slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("triage ready", "port", cfg.Port)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("triage stopped")
	return nil
}

// buildExtractor picks the configured extraction backend. With no credentials
// at all, the engine surfaces a configuration error on first use instead of
// failing startup; inline-record endpoints still respond with a clear 503.
func buildExtractor(cfg config.Config) extract.Extractor {
	switch {
	case cfg.ExtractEndpoint != "" && cfg.ExtractAPIKey != "":
		slog.Info("using hosted extraction backend", "endpoint", cfg.ExtractEndpoint)
		return extract.NewHTTPClient(cfg.ExtractEndpoint, cfg.ExtractAPIKey)
	case cfg.AnthropicAPIKey != "":
		slog.Info("using LLM extraction backend", "model", cfg.AnthropicModel)
		return extract.NewLLMExtractor(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	default:
		slog.Warn("no extraction backend configured — analysis requests will fail until credentials are set")
		return extract.Unconfigured{}
	}
}

// notifierOrNil keeps a typed-nil *SlackNotifier out of the Notifier interface.
func notifierOrNil(n *notify.SlackNotifier) events.Notifier {
	if n == nil {
		return nil
	}
	return n
}

// sourceOrNil keeps a typed-nil *store.Store out of the Source interface.
func sourceOrNil(db *store.Store) api.Source {
	if db == nil {
		return nil
	}
	return db
}
