// Package analyze turns raw email and ticket records into derived feature
// sets: extracted entities, phrases and sentiment, category tags, a suggested
// priority, a topic score and a content fingerprint.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/forgedesk/triage/internal/extract"
	"github.com/forgedesk/triage/internal/mail"
)

// Analyzer runs the per-item feature pipeline. The extractor is the only
// external dependency; everything derived from its output is pure.
type Analyzer struct {
	extractor extract.Extractor
	logger    *slog.Logger
}

func New(ext extract.Extractor, logger *slog.Logger) *Analyzer {
	return &Analyzer{extractor: ext, logger: logger}
}

// AnalyzeEmail derives the full feature set for one email.
func (a *Analyzer) AnalyzeEmail(ctx context.Context, em mail.RawEmail) (*AnalyzedEmail, error) {
	res, err := a.extractFeatures(ctx, PrepareText(em.Subject, em.Body))
	if err != nil {
		return nil, fmt.Errorf("extract email %s: %w", em.ID, err)
	}

	categories := Categorize(res.KeyPhrases, res.Entities)
	return &AnalyzedEmail{
		EmailID:           em.ID,
		Subject:           em.Subject,
		From:              em.From,
		ReceivedAt:        em.ReceivedAt,
		Entities:          res.Entities,
		KeyPhrases:        res.KeyPhrases,
		Sentiment:         res.Sentiment,
		TopicScore:        TopicScore(res.KeyPhrases, res.Entities),
		Fingerprint:       Fingerprint(em.Subject, res.KeyPhrases, res.Entities),
		Categories:        categories,
		SuggestedPriority: SuggestPriority(categories, res.Sentiment, len(res.KeyPhrases)),
	}, nil
}

// AnalyzeTicket derives the same feature set from a ticket's title and
// description. The tracker's own category joins the derived tags so email
// cross-referencing sees both.
func (a *Analyzer) AnalyzeTicket(ctx context.Context, tk mail.RawTicket) (*AnalyzedTicket, error) {
	res, err := a.extractFeatures(ctx, PrepareText(tk.Title, tk.Description))
	if err != nil {
		return nil, fmt.Errorf("extract ticket %s: %w", tk.ID, err)
	}

	categories := Categorize(res.KeyPhrases, res.Entities)
	if cat := strings.ToLower(strings.TrimSpace(tk.Category)); cat != "" && !contains(categories, cat) {
		categories = append(categories, cat)
		sort.Strings(categories)
	}

	return &AnalyzedTicket{
		TicketID:          tk.ID,
		Title:             tk.Title,
		Status:            tk.Status,
		Priority:          tk.Priority,
		Category:          tk.Category,
		CreatedAt:         tk.CreatedAt,
		Entities:          res.Entities,
		KeyPhrases:        res.KeyPhrases,
		Sentiment:         res.Sentiment,
		TopicScore:        TopicScore(res.KeyPhrases, res.Entities),
		Fingerprint:       Fingerprint(tk.Title, res.KeyPhrases, res.Entities),
		Categories:        categories,
		SuggestedPriority: SuggestPriority(categories, res.Sentiment, len(res.KeyPhrases)),
	}, nil
}

// extractFeatures calls the external capability, short-circuiting blank input
// to a neutral result without a network round trip.
func (a *Analyzer) extractFeatures(ctx context.Context, text string) (*extract.Result, error) {
	if strings.TrimSpace(text) == "" {
		return extract.NeutralResult(), nil
	}
	return a.extractor.Extract(ctx, text)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
