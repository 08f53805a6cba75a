package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadState_Fresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "import.json")

	s, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if s.StartedAt.IsZero() {
		t.Errorf("fresh state should carry a start time")
	}
	if len(s.FilesProcessed) != 0 || s.EmailsAnalyzed != 0 {
		t.Errorf("fresh state not empty: %+v", s)
	}
}

func TestState_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "import.json")

	s, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	s.MarkProcessed("/exports/a.json")
	s.MarkProcessed("/exports/b.json")
	s.EmailsAnalyzed = 42
	s.AddError("parse /exports/c.json: bad record")

	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !loaded.IsProcessed("/exports/a.json") || !loaded.IsProcessed("/exports/b.json") {
		t.Errorf("processed files lost: %+v", loaded.FilesProcessed)
	}
	if loaded.IsProcessed("/exports/c.json") {
		t.Errorf("c.json should not be processed")
	}
	if loaded.EmailsAnalyzed != 42 {
		t.Errorf("EmailsAnalyzed = %d, want 42", loaded.EmailsAnalyzed)
	}
	if len(loaded.Errors) != 1 {
		t.Errorf("Errors = %v", loaded.Errors)
	}
	if loaded.LastProcessedAt.IsZero() {
		t.Errorf("LastProcessedAt not stamped on save")
	}
}

func TestState_MarkProcessedIdempotent(t *testing.T) {
	s, err := LoadState(filepath.Join(t.TempDir(), "import.json"))
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	s.MarkProcessed("/exports/a.json")
	s.MarkProcessed("/exports/a.json")
	if len(s.FilesProcessed) != 1 {
		t.Errorf("FilesProcessed = %v, want single entry", s.FilesProcessed)
	}
}

func TestLoadState_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadState(path); err == nil {
		t.Fatalf("expected error for corrupt state file")
	}
}
