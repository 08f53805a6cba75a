package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forgedesk/triage/internal/extract"
	"github.com/forgedesk/triage/internal/mail"
	"github.com/forgedesk/triage/internal/store"
	"github.com/forgedesk/triage/internal/triage"
)

type fixedExtractor struct{}

func (fixedExtractor) Extract(_ context.Context, text string) (*extract.Result, error) {
	res := extract.NeutralResult()
	if strings.Contains(strings.ToLower(text), "login") {
		res.KeyPhrases = []extract.KeyPhrase{{Text: "login error", Score: 0.9}}
	}
	return res, nil
}

type recordingNotifier struct {
	files int
	stats triage.Stats
	calls int
}

func (n *recordingNotifier) NotifyImportSummary(_ context.Context, files int, stats triage.Stats) error {
	n.calls++
	n.files = files
	n.stats = stats
	return nil
}

type fixedTickets struct{ tickets []mail.RawTicket }

func (f fixedTickets) ListTickets(_ context.Context, _ store.TicketFilter) ([]mail.RawTicket, error) {
	return f.tickets, nil
}

func runnerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func writeExportFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunner_Run(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "export-0001.json", `[
		{"id": "em-1", "subject": "Login broken", "from": "a@example.com", "body": "login error", "received_at": "2026-03-10T09:00:00Z"},
		{"id": "em-2", "subject": "Weekly notes", "from": "b@example.com", "body": "nothing special", "received_at": "2026-03-11T09:00:00Z"}
	]`)
	writeExportFile(t, dir, "export-0002.json", `[
		{"id": "em-3", "subject": "Another one", "from": "c@example.com", "body": "hello", "received_at": "2026-03-12T09:00:00Z"}
	]`)
	writeExportFile(t, dir, "notes.txt", "not an export")

	engine := triage.NewEngine(fixedExtractor{}, triage.Options{ExtractPerSecond: 1000}, runnerLogger())
	notifier := &recordingNotifier{}
	statePath := filepath.Join(dir, "state", "import.json")

	r := NewRunner(Config{Dir: dir, StatePath: statePath, BatchSize: 10}, engine, fixedTickets{}, notifier, runnerLogger())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	state, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if state.EmailsAnalyzed != 3 {
		t.Errorf("EmailsAnalyzed = %d, want 3", state.EmailsAnalyzed)
	}
	if len(state.FilesProcessed) != 2 {
		t.Errorf("FilesProcessed = %v, want the two json exports", state.FilesProcessed)
	}
	if notifier.calls != 1 || notifier.files != 2 || notifier.stats.Emails != 3 {
		t.Errorf("notifier = %+v", notifier)
	}
}

func TestRunner_ResumesSkippingProcessed(t *testing.T) {
	dir := t.TempDir()
	done := writeExportFile(t, dir, "export-0001.json", `[{"id": "em-1", "subject": "s", "from": "a@example.com", "body": "b", "received_at": "2026-03-10T09:00:00Z"}]`)
	writeExportFile(t, dir, "export-0002.json", `[{"id": "em-2", "subject": "s", "from": "a@example.com", "body": "b", "received_at": "2026-03-10T09:00:00Z"}]`)

	statePath := filepath.Join(dir, "import-state.json")
	state, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	state.MarkProcessed(done)
	state.EmailsAnalyzed = 1
	if err := state.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	engine := triage.NewEngine(fixedExtractor{}, triage.Options{ExtractPerSecond: 1000}, runnerLogger())
	notifier := &recordingNotifier{}

	r := NewRunner(Config{Dir: dir, StatePath: statePath}, engine, nil, notifier, runnerLogger())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if notifier.files != 1 {
		t.Errorf("processed %d files on resume, want 1", notifier.files)
	}
	reloaded, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("reload state: %v", err)
	}
	if reloaded.EmailsAnalyzed != 2 {
		t.Errorf("EmailsAnalyzed = %d, want 2", reloaded.EmailsAnalyzed)
	}
}

func TestRunner_BadFileRecordedAndSkipped(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "export-0001.json", `not json at all`)
	writeExportFile(t, dir, "export-0002.json", `[{"id": "em-1", "subject": "s", "from": "a@example.com", "body": "b", "received_at": "2026-03-10T09:00:00Z"}]`)

	engine := triage.NewEngine(fixedExtractor{}, triage.Options{ExtractPerSecond: 1000}, runnerLogger())
	statePath := filepath.Join(dir, "import-state.json")

	r := NewRunner(Config{Dir: dir, StatePath: statePath}, engine, nil, nil, runnerLogger())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	state, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(state.Errors) != 1 {
		t.Errorf("Errors = %v, want one parse error", state.Errors)
	}
	if state.EmailsAnalyzed != 1 {
		t.Errorf("EmailsAnalyzed = %d, want 1", state.EmailsAnalyzed)
	}
}

func TestRunner_DryRunSkipsNotification(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "export-0001.json", `[{"id": "em-1", "subject": "s", "from": "a@example.com", "body": "b", "received_at": "2026-03-10T09:00:00Z"}]`)

	engine := triage.NewEngine(fixedExtractor{}, triage.Options{ExtractPerSecond: 1000}, runnerLogger())
	notifier := &recordingNotifier{}

	r := NewRunner(Config{Dir: dir, StatePath: filepath.Join(dir, "state.json"), DryRun: true}, engine, nil, notifier, runnerLogger())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if notifier.calls != 0 {
		t.Errorf("dry run posted a summary")
	}
}

func TestRunner_CancelSavesState(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, dir, "export-0001.json", `[{"id": "em-1", "subject": "s", "from": "a@example.com", "body": "b", "received_at": "2026-03-10T09:00:00Z"}]`)

	engine := triage.NewEngine(fixedExtractor{}, triage.Options{ExtractPerSecond: 1000}, runnerLogger())
	statePath := filepath.Join(dir, "state.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(Config{Dir: dir, StatePath: statePath}, engine, nil, nil, runnerLogger())
	if err := r.Run(ctx); err == nil {
		t.Fatalf("cancelled run should return the context error")
	}

	if _, err := os.Stat(statePath); err != nil {
		t.Errorf("state not saved on interrupt: %v", err)
	}
}
