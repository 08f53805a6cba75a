package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forgedesk/triage/internal/config"
	"github.com/forgedesk/triage/internal/ingest"
	"github.com/forgedesk/triage/internal/notify"
	"github.com/forgedesk/triage/internal/store"
	"github.com/forgedesk/triage/internal/triage"
)

func newImportCmd() *cobra.Command {
	var (
		dir       string
		statePath string
		batchSize int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-import converted mailbox exports and run triage over them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(dir, statePath, batchSize, dryRun)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory of export JSON files (required)")
	cmd.Flags().StringVar(&statePath, "state", defaultStatePath(), "path of the resumable import state file")
	cmd.Flags().IntVar(&batchSize, "batch-size", 200, "emails per analysis pass")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "analyze without posting notifications")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

func runImport(dir, statePath string, batchSize int, dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return err
	}
	setupLogging(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Interrupts save state and stop between batches.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("interrupt received")
		cancel()
	}()

	engine := triage.NewEngine(buildExtractor(cfg), triage.Options{
		MaxBatch:         cfg.Tunables.MaxBatch,
		Concurrency:      cfg.Tunables.ExtractConcurrency,
		ExtractPerSecond: cfg.Tunables.ExtractPerSecond,
		Thresholds:       cfg.Tunables.Thresholds,
	}, slog.Default())

	var tickets ingest.TicketSource
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			return err
		}
		defer db.Close()
		tickets = db
	} else {
		slog.Warn("DATABASE_URL not set — importing without ticket cross-referencing")
	}

	var notifier ingest.SummaryNotifier
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		notifier = notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
	}

	runner := ingest.NewRunner(ingest.Config{
		Dir:       dir,
		StatePath: statePath,
		BatchSize: batchSize,
		DryRun:    dryRun,
	}, engine, tickets, notifier, slog.Default())

	return runner.Run(ctx)
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".triage-import-state.json"
	}
	return filepath.Join(home, ".triage", "import-state.json")
}
