package analyze

import (
	"sort"
	"strings"

	"github.com/forgedesk/triage/internal/extract"
)

// Category tags assigned by keyword matching. The set is open-ended; adding a
// tag means adding a keyword list here.
const (
	CategoryBug      = "bug"
	CategoryFeature  = "feature"
	CategorySupport  = "support"
	CategoryUrgent   = "urgent"
	CategoryBilling  = "billing"
	CategoryFeedback = "feedback"
	CategoryMeeting  = "meeting"
)

var categoryKeywords = map[string][]string{
	CategoryBug:      {"bug", "error", "crash", "broken", "not working", "fail", "exception", "defect", "regression"},
	CategoryFeature:  {"feature", "enhancement", "improvement", "feature request", "add support", "would be great"},
	CategorySupport:  {"help", "support", "question", "how do i", "how to", "assistance", "guidance"},
	CategoryUrgent:   {"urgent", "asap", "critical", "emergency", "immediately", "right away", "blocker"},
	CategoryBilling:  {"invoice", "billing", "payment", "charge", "refund", "subscription", "pricing", "receipt"},
	CategoryFeedback: {"feedback", "suggestion", "review", "testimonial", "opinion"},
	CategoryMeeting:  {"meeting", "schedule", "calendar", "appointment", "call", "demo", "follow up"},
}

// Categorize tags an item by scanning all extracted phrase and entity text
// for category keywords. Multiple categories may apply; the result is a
// sorted set, so evaluation order cannot matter.
func Categorize(phrases []extract.KeyPhrase, entities []extract.Entity) []string {
	var sb strings.Builder
	for _, p := range phrases {
		sb.WriteString(strings.ToLower(p.Text))
		sb.WriteByte(' ')
	}
	for _, e := range entities {
		sb.WriteString(strings.ToLower(e.Text))
		sb.WriteByte(' ')
	}
	text := sb.String()

	var tags []string
	for cat, keywords := range categoryKeywords {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				tags = append(tags, cat)
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// SuggestPriority maps features to a priority. The rules are an ordered
// decision list; the first match wins and the order is load-bearing.
func SuggestPriority(categories []string, sentiment extract.Sentiment, phraseCount int) string {
	has := func(cat string) bool {
		for _, c := range categories {
			if c == cat {
				return true
			}
		}
		return false
	}
	negative := sentiment.Label == extract.SentimentNegative

	switch {
	case has(CategoryUrgent):
		return PriorityUrgent
	case negative && has(CategoryBug):
		return PriorityHigh
	case has(CategoryBug):
		return PriorityMedium
	case negative && sentiment.Scores.Negative > 0.7:
		return PriorityHigh
	case has(CategoryFeature):
		return PriorityMedium
	case phraseCount > 10:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// TopicScore summarizes extraction signal quality and density: the average
// confidence across phrases and entities plus a volume bonus capped at 0.2,
// clamped to [0,1]. No features means zero.
func TopicScore(phrases []extract.KeyPhrase, entities []extract.Entity) float64 {
	n := len(phrases) + len(entities)
	if n == 0 {
		return 0
	}

	var sum float64
	for _, p := range phrases {
		sum += p.Score
	}
	for _, e := range entities {
		sum += e.Score
	}

	bonus := float64(n) / 20.0
	if bonus > 0.2 {
		bonus = 0.2
	}

	score := sum/float64(n) + bonus
	if score > 1 {
		return 1
	}
	return score
}
