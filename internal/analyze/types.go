package analyze

import (
	"time"

	"github.com/forgedesk/triage/internal/extract"
)

// Suggested priority values, lowest to highest.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// AnalyzedEmail is the derived, immutable feature set for one email. Source
// fields are retained for display and similarity scoring, never re-derived.
type AnalyzedEmail struct {
	EmailID    string    `json:"email_id"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	ReceivedAt time.Time `json:"received_at"`

	Entities          []extract.Entity    `json:"entities"`
	KeyPhrases        []extract.KeyPhrase `json:"key_phrases"`
	Sentiment         extract.Sentiment   `json:"sentiment"`
	TopicScore        float64             `json:"topic_score"`
	Fingerprint       string              `json:"fingerprint"`
	Categories        []string            `json:"categories"`
	SuggestedPriority string              `json:"suggested_priority"`
}

// HasCategory reports whether the email carries the given category tag.
func (e *AnalyzedEmail) HasCategory(cat string) bool {
	for _, c := range e.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// AnalyzedTicket mirrors AnalyzedEmail for a ticket's title and description.
// Categories include the ticket's own tracker category alongside derived tags.
type AnalyzedTicket struct {
	TicketID  string    `json:"ticket_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`

	Entities          []extract.Entity    `json:"entities"`
	KeyPhrases        []extract.KeyPhrase `json:"key_phrases"`
	Sentiment         extract.Sentiment   `json:"sentiment"`
	TopicScore        float64             `json:"topic_score"`
	Fingerprint       string              `json:"fingerprint"`
	Categories        []string            `json:"categories"`
	SuggestedPriority string              `json:"suggested_priority"`
}
