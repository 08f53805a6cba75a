package notify

import (
	"strings"
	"testing"

	"github.com/forgedesk/triage/internal/analyze"
	"github.com/forgedesk/triage/internal/triage"
)

func TestUrgentText(t *testing.T) {
	em := &analyze.AnalyzedEmail{
		EmailID:    "em-1",
		Subject:    "Production down",
		From:       "ops@example.com",
		Categories: []string{"bug", "urgent"},
	}

	text := urgentText(em, "Link to ticket tk-1.")
	for _, want := range []string{"ops@example.com", "Production down", "bug, urgent", "Link to ticket tk-1."} {
		if !strings.Contains(text, want) {
			t.Errorf("urgent text missing %q: %s", want, text)
		}
	}
}

func TestSummaryText(t *testing.T) {
	text := summaryText(3, triage.Stats{
		Emails:            120,
		DuplicateGroups:   4,
		LinkRecommended:   30,
		CreateRecommended: 90,
		Skipped:           2,
	})
	for _, want := range []string{"3 files", "120 emails", "4 duplicate groups", "30 link", "90 create", "2 skipped"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q: %s", want, text)
		}
	}
}
