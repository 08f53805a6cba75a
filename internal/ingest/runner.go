package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forgedesk/triage/internal/mail"
	"github.com/forgedesk/triage/internal/store"
	"github.com/forgedesk/triage/internal/triage"
)

// Config holds the import command configuration.
type Config struct {
	Dir       string // directory of export files
	StatePath string
	BatchSize int  // emails per analysis pass
	DryRun    bool // analyze but skip notifications
}

// TicketSource supplies the ticket corpus for cross-referencing during
// import. Nil means imports run without ticket recommendations.
type TicketSource interface {
	ListTickets(ctx context.Context, f store.TicketFilter) ([]mail.RawTicket, error)
}

// SummaryNotifier receives the final import summary. Optional.
type SummaryNotifier interface {
	NotifyImportSummary(ctx context.Context, files int, stats triage.Stats) error
}

// Runner walks an export directory and feeds each file through the triage
// engine in bounded batches.
type Runner struct {
	cfg      Config
	engine   *triage.Engine
	tickets  TicketSource
	notifier SummaryNotifier
	logger   *slog.Logger
}

func NewRunner(cfg Config, engine *triage.Engine, tickets TicketSource, notifier SummaryNotifier, logger *slog.Logger) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	return &Runner{cfg: cfg, engine: engine, tickets: tickets, notifier: notifier, logger: logger}
}

// Run executes the import. Parse failures on individual files are recorded
// and skipped; an interrupt saves state so the next run resumes.
func (r *Runner) Run(ctx context.Context) error {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return fmt.Errorf("discover exports: %w", err)
	}
	r.logger.Info("export files discovered", "count", len(files))

	ticketCorpus, err := r.loadTickets(ctx)
	if err != nil {
		return fmt.Errorf("load tickets: %w", err)
	}

	var total triage.Stats
	processed := 0

	for _, path := range files {
		select {
		case <-ctx.Done():
			r.logger.Info("import interrupted, saving state")
			_ = state.Save()
			return ctx.Err()
		default:
		}

		if state.IsProcessed(path) {
			continue
		}

		emails, err := ReadExportFile(path)
		if err != nil {
			r.logger.Warn("failed to parse export", "path", path, "error", err)
			state.AddError(fmt.Sprintf("parse %s: %v", path, err))
			continue
		}

		r.logger.Info("importing export file", "path", path, "emails", len(emails))

		for start := 0; start < len(emails); start += r.cfg.BatchSize {
			end := start + r.cfg.BatchSize
			if end > len(emails) {
				end = len(emails)
			}

			result, err := r.engine.AnalyzeBatch(ctx, emails[start:end], ticketCorpus)
			if err != nil {
				state.AddError(fmt.Sprintf("analyze %s [%d:%d]: %v", path, start, end, err))
				_ = state.Save()
				return fmt.Errorf("analyze %s: %w", path, err)
			}

			total.Emails += result.Stats.Emails
			total.Tickets = result.Stats.Tickets
			total.Skipped += result.Stats.Skipped
			total.DuplicateGroups += result.Stats.DuplicateGroups
			total.LinkRecommended += result.Stats.LinkRecommended
			total.CreateRecommended += result.Stats.CreateRecommended
		}

		state.MarkProcessed(path)
		state.EmailsAnalyzed += len(emails)
		processed++
		if err := state.Save(); err != nil {
			r.logger.Warn("failed to save state", "error", err)
		}
	}

	r.logger.Info("import finished",
		"files", processed,
		"emails", total.Emails,
		"groups", total.DuplicateGroups,
		"link", total.LinkRecommended,
		"create", total.CreateRecommended,
		"skipped", total.Skipped,
		"errors", len(state.Errors),
	)

	if r.notifier != nil && !r.cfg.DryRun && processed > 0 {
		if err := r.notifier.NotifyImportSummary(ctx, processed, total); err != nil {
			r.logger.Warn("failed to post import summary", "error", err)
		}
	}

	return nil
}

func (r *Runner) discoverFiles() ([]string, error) {
	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(r.cfg.Dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (r *Runner) loadTickets(ctx context.Context) ([]mail.RawTicket, error) {
	if r.tickets == nil {
		return nil, nil
	}
	return r.tickets.ListTickets(ctx, store.TicketFilter{Limit: 200})
}
