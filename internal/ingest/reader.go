// Package ingest bulk-imports mailbox exports: JSON record files produced by
// the archive conversion step (the PST reader itself is an external tool).
// Runs are resumable; a state file tracks which exports were already handled.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/forgedesk/triage/internal/mail"
)

// exportRecord is one message as written by the archive converter. The
// recipient field shows up either as a proper array or as an encoded string,
// depending on converter version.
type exportRecord struct {
	ID         string          `json:"id"`
	Subject    string          `json:"subject"`
	From       string          `json:"from"`
	To         json.RawMessage `json:"to"`
	Body       string          `json:"body"`
	ReceivedAt string          `json:"received_at"`
}

// ReadExportFile parses one export file into raw emails. Records without an
// id get a generated one; malformed recipient lists degrade to empty.
func ReadExportFile(path string) ([]mail.RawEmail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	var records []exportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse export %s: %w", path, err)
	}

	emails := make([]mail.RawEmail, 0, len(records))
	for _, rec := range records {
		em := mail.RawEmail{
			ID:         rec.ID,
			Subject:    rec.Subject,
			From:       rec.From,
			Body:       rec.Body,
			To:         decodeTo(rec.To),
			ReceivedAt: parseTimestamp(rec.ReceivedAt),
		}
		if em.ID == "" {
			em.ID = uuid.NewString()
		}
		emails = append(emails, em)
	}
	return emails, nil
}

func decodeTo(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		return mail.DecodeRecipients(encoded)
	}
	return nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
