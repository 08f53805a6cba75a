// Package recommend decides, for each analyzed email, whether to link it to
// an existing ticket or to create a new one.
package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forgedesk/triage/internal/analyze"
	"github.com/forgedesk/triage/internal/similarity"
)

// Recommended actions.
const (
	ActionLink   = "link"
	ActionCreate = "create"
)

// TicketMatch is a candidate ticket with its similarity to the email.
type TicketMatch struct {
	Ticket     *analyze.AnalyzedTicket `json:"ticket"`
	Similarity float64                 `json:"similarity"`
}

// Recommendation is the routing decision for one email.
type Recommendation struct {
	Action  string        `json:"recommendation"`
	Reason  string        `json:"recommendation_reason"`
	Matches []TicketMatch `json:"matching_tickets"`
}

// Engine applies the link-vs-create policy.
type Engine struct {
	thresholds similarity.Thresholds
}

func New(t similarity.Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// ForEmail ranks the tickets against the email and applies the decision
// policy:
//   - no candidate at or above the match threshold: create
//   - one candidate, or a clear winner: link, reason names the match basis
//   - several close candidates: link the best, reason flags the alternates
func (e *Engine) ForEmail(email *analyze.AnalyzedEmail, tickets []*analyze.AnalyzedTicket) Recommendation {
	var matches []TicketMatch
	for _, t := range tickets {
		score := similarity.EmailTicket(email, t)
		if score >= e.thresholds.Match {
			matches = append(matches, TicketMatch{Ticket: t, Similarity: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Ticket.TicketID < matches[j].Ticket.TicketID
	})

	if len(matches) == 0 {
		return Recommendation{
			Action:  ActionCreate,
			Reason:  "No matching tickets.",
			Matches: []TicketMatch{},
		}
	}

	top := matches[0]
	basis := matchBasis(email, top.Ticket)

	if len(matches) == 1 || top.Similarity-matches[1].Similarity >= e.thresholds.AmbiguityMargin {
		return Recommendation{
			Action:  ActionLink,
			Reason:  fmt.Sprintf("Link to ticket %s (%q): %s (similarity %.2f).", top.Ticket.TicketID, top.Ticket.Title, basis, top.Similarity),
			Matches: matches,
		}
	}

	return Recommendation{
		Action: ActionLink,
		Reason: fmt.Sprintf("Link to ticket %s (%q): %s (similarity %.2f). %d other candidates score within %.2f; review alternates before linking.",
			top.Ticket.TicketID, top.Ticket.Title, basis, top.Similarity, len(matches)-1, e.thresholds.AmbiguityMargin),
		Matches: matches,
	}
}

// matchBasis names the signals that drove the match, in a fixed order.
func matchBasis(email *analyze.AnalyzedEmail, ticket *analyze.AnalyzedTicket) string {
	s := similarity.EmailTicketSignals(email, ticket)

	var parts []string
	if s.Category > 0 {
		parts = append(parts, "matching category")
	}
	if s.Title >= 0.5 {
		parts = append(parts, "similar subject")
	}
	if s.Phrases >= 0.3 {
		parts = append(parts, "high phrase overlap")
	} else if s.Phrases > 0 {
		parts = append(parts, "overlapping key phrases")
	}
	if len(parts) == 0 {
		return "overall similarity"
	}
	return strings.Join(parts, " + ")
}
