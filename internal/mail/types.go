package mail

import (
	"encoding/json"
	"strings"
	"time"
)

// RawEmail is an immutable message snapshot from provider sync or bulk import.
type RawEmail struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// RawTicket is a support ticket record from the tracker.
type RawTicket struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"` // open | in_progress | resolved | closed
	Priority    string    `json:"priority"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// DecodeRecipients parses a stored recipient list. Sync writes a JSON array;
// older imports wrote a comma-separated string. Malformed input degrades to an
// empty list rather than failing the record.
func DecodeRecipients(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil
		}
		return list
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
