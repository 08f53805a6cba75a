// Package similarity scores pairwise relatedness between analyzed emails
// (for duplicate grouping) and between emails and tickets (for
// cross-referencing). All scores land in [0,1].
package similarity

import (
	"strings"
	"time"

	"github.com/forgedesk/triage/internal/analyze"
	"github.com/forgedesk/triage/internal/extract"
)

// Thresholds are the tunable decision boundaries. Both thresholds are
// inclusive: a score equal to the threshold counts.
type Thresholds struct {
	// Duplicate is the email-to-email score at or above which two emails are
	// considered related for grouping.
	Duplicate float64 `yaml:"duplicate"`
	// Match is the email-to-ticket score at or above which a ticket becomes a
	// link candidate.
	Match float64 `yaml:"match"`
	// AmbiguityMargin is the gap under which the top two ticket candidates
	// are considered too close to call without flagging.
	AmbiguityMargin float64 `yaml:"ambiguity_margin"`
}

// DefaultThresholds returns the calibrated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Duplicate:       0.75,
		Match:           0.35,
		AmbiguityMargin: 0.10,
	}
}

// temporalWindow bounds the recency signal: beyond this gap two emails get no
// temporal-proximity credit.
const temporalWindow = 7 * 24 * time.Hour

// Email-to-email feature weights. Fingerprint equality bypasses these.
const (
	weightSubject  = 0.45
	weightSender   = 0.20
	weightCategory = 0.20
	weightTemporal = 0.15
)

// Email-to-ticket feature weights.
const (
	weightTicketPhrases  = 0.30
	weightTicketTitle    = 0.30
	weightTicketCategory = 0.25
	weightTicketStatus   = 0.15
)

// EmailEmail scores how likely two emails are the same or a closely related
// thread. An exact fingerprint match is a near-certain duplicate and scores
// 1.0 outright; otherwise the score is a weighted blend of subject-token
// overlap, sender match, category overlap and temporal proximity.
func EmailEmail(a, b *analyze.AnalyzedEmail) float64 {
	if a.Fingerprint != "" && a.Fingerprint == b.Fingerprint {
		return 1.0
	}

	score := weightSubject * tokenJaccard(
		subjectTokens(a.Subject),
		subjectTokens(b.Subject),
	)
	if a.From != "" && strings.EqualFold(a.From, b.From) {
		score += weightSender
	}
	score += weightCategory * setJaccard(a.Categories, b.Categories)
	score += weightTemporal * temporalProximity(a.ReceivedAt, b.ReceivedAt)
	return score
}

// TicketSignals are the unweighted component scores behind EmailTicket,
// exposed so the recommendation reason can name what actually matched.
type TicketSignals struct {
	Phrases  float64
	Title    float64
	Category float64
	Status   float64
}

// EmailTicketSignals computes the raw component signals for a candidate pair.
func EmailTicketSignals(e *analyze.AnalyzedEmail, t *analyze.AnalyzedTicket) TicketSignals {
	return TicketSignals{
		Phrases:  setJaccard(keyPhraseTexts(e.KeyPhrases), keyPhraseTexts(t.KeyPhrases)),
		Title:    tokenJaccard(subjectTokens(e.Subject), subjectTokens(t.Title)),
		Category: setJaccard(e.Categories, t.Categories),
		Status:   statusWeight(t.Status),
	}
}

// EmailTicket scores a ticket as a link target for an email. Open tickets
// weigh higher than closed ones; a very strong content match can still carry
// a closed ticket over the line.
func EmailTicket(e *analyze.AnalyzedEmail, t *analyze.AnalyzedTicket) float64 {
	s := EmailTicketSignals(e, t)
	return weightTicketPhrases*s.Phrases +
		weightTicketTitle*s.Title +
		weightTicketCategory*s.Category +
		weightTicketStatus*s.Status
}

// subjectTokens tokenizes a subject line after stripping reply markers.
// Tokens shorter than three characters carry no signal and are dropped.
func subjectTokens(subject string) []string {
	normalized := analyze.NormalizeSubject(subject)
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !isAlphanumeric(r)
	})

	var tokens []string
	for _, f := range fields {
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func isAlphanumeric(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
}

// tokenJaccard is set intersection over union for token lists. Two empty
// lists share nothing measurable and score 0.
func tokenJaccard(a, b []string) float64 {
	return setJaccard(a, b)
}

func setJaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[strings.ToLower(s)] = true
	}

	seen := make(map[string]bool, len(b))
	intersection := 0
	for _, s := range b {
		k := strings.ToLower(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		if set[k] {
			intersection++
		}
	}

	union := len(set) + len(seen) - intersection
	return float64(intersection) / float64(union)
}

// temporalProximity decays linearly from 1 at zero gap to 0 at the window.
func temporalProximity(a, b time.Time) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	gap := a.Sub(b)
	if gap < 0 {
		gap = -gap
	}
	if gap >= temporalWindow {
		return 0
	}
	return 1 - float64(gap)/float64(temporalWindow)
}

// statusWeight encodes the triage preference for attaching to active work.
func statusWeight(status string) float64 {
	switch strings.ToLower(status) {
	case "open":
		return 1.0
	case "in_progress", "in-progress":
		return 0.8
	case "resolved", "closed":
		return 0.3
	default:
		return 0.5
	}
}

func keyPhraseTexts(phrases []extract.KeyPhrase) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, p.Text)
	}
	return out
}
