// Package triage orchestrates the full analysis pipeline for a batch:
// feature extraction with bounded concurrency, duplicate grouping, ticket
// cross-referencing and link-vs-create recommendations. All results are
// request-scoped; nothing is written back to storage.
package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/forgedesk/triage/internal/analyze"
	"github.com/forgedesk/triage/internal/extract"
	"github.com/forgedesk/triage/internal/group"
	"github.com/forgedesk/triage/internal/mail"
	"github.com/forgedesk/triage/internal/recommend"
	"github.com/forgedesk/triage/internal/similarity"
)

// ErrBatchTooLarge is returned when a request exceeds the batch cap. Grouping
// is quadratic in batch size, so the cap is a cost bound, not a suggestion.
var ErrBatchTooLarge = errors.New("triage: batch exceeds maximum size")

// Options tune the engine. Zero values fall back to defaults.
type Options struct {
	MaxBatch         int     // emails+tickets per call, default 500
	Concurrency      int     // concurrent extraction calls, default 5
	ExtractPerSecond float64 // extraction rate cap, default 10
	Thresholds       similarity.Thresholds
}

const (
	defaultMaxBatch         = 500
	defaultConcurrency      = 5
	defaultExtractPerSecond = 10
)

// Engine is the triage pipeline. It owns no state between calls beyond the
// injected extractor client and its rate limiter.
type Engine struct {
	analyzer    *analyze.Analyzer
	grouper     *group.Grouper
	recommender *recommend.Engine
	thresholds  similarity.Thresholds
	limiter     *rate.Limiter
	maxBatch    int
	concurrency int
	logger      *slog.Logger
}

func NewEngine(ext extract.Extractor, opts Options, logger *slog.Logger) *Engine {
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = defaultMaxBatch
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.ExtractPerSecond <= 0 {
		opts.ExtractPerSecond = defaultExtractPerSecond
	}
	if opts.Thresholds == (similarity.Thresholds{}) {
		opts.Thresholds = similarity.DefaultThresholds()
	}

	return &Engine{
		analyzer:    analyze.New(ext, logger),
		grouper:     group.New(opts.Thresholds.Duplicate, logger),
		recommender: recommend.New(opts.Thresholds),
		thresholds:  opts.Thresholds,
		limiter:     rate.NewLimiter(rate.Limit(opts.ExtractPerSecond), opts.Concurrency),
		maxBatch:    opts.MaxBatch,
		concurrency: opts.Concurrency,
		logger:      logger,
	}
}

// Stats summarize one batch pass.
type Stats struct {
	Emails            int `json:"emails"`
	Tickets           int `json:"tickets"`
	Skipped           int `json:"skipped"`
	DuplicateGroups   int `json:"duplicate_groups"`
	LinkRecommended   int `json:"link_recommended"`
	CreateRecommended int `json:"create_recommended"`
}

// EmailResult is one email's analysis plus its routing decision.
type EmailResult struct {
	Email                *analyze.AnalyzedEmail  `json:"email"`
	MatchingTickets      []recommend.TicketMatch `json:"matching_tickets"`
	Recommendation       string                  `json:"recommendation"`
	RecommendationReason string                  `json:"recommendation_reason"`
}

// GroupResult is a duplicate group enriched with the primary's routing
// decision, which stands for the whole group.
type GroupResult struct {
	Primary              *analyze.AnalyzedEmail  `json:"primary_email"`
	Related              []group.RelatedEmail    `json:"related_emails"`
	MatchingTickets      []recommend.TicketMatch `json:"matching_tickets"`
	Recommendation       string                  `json:"recommendation"`
	RecommendationReason string                  `json:"recommendation_reason"`
}

// BatchResult is the full output of AnalyzeBatch.
type BatchResult struct {
	Groups []GroupResult `json:"groups"`
	Emails []EmailResult `json:"email_analysis"`
	Stats  Stats         `json:"stats"`
}

// AnalyzeBatch analyzes the emails and tickets, groups duplicates and
// recommends a routing action for every email. Extraction failures on
// individual items are logged and skipped; a missing extraction backend fails
// the whole batch with extract.ErrNotConfigured.
func (e *Engine) AnalyzeBatch(ctx context.Context, emails []mail.RawEmail, tickets []mail.RawTicket) (*BatchResult, error) {
	if len(emails)+len(tickets) > e.maxBatch {
		return nil, fmt.Errorf("%w: %d items, limit %d", ErrBatchTooLarge, len(emails)+len(tickets), e.maxBatch)
	}

	analyzedEmails, skippedEmails, err := e.analyzeEmails(ctx, emails)
	if err != nil {
		return nil, err
	}
	analyzedTickets, skippedTickets, err := e.analyzeTickets(ctx, tickets)
	if err != nil {
		return nil, err
	}

	groups := e.grouper.Group(analyzedEmails)

	result := &BatchResult{
		Groups: make([]GroupResult, 0, len(groups)),
		Emails: make([]EmailResult, 0, len(analyzedEmails)),
		Stats: Stats{
			Emails:          len(analyzedEmails),
			Tickets:         len(analyzedTickets),
			Skipped:         skippedEmails + skippedTickets,
			DuplicateGroups: len(groups),
		},
	}

	recs := make(map[string]recommend.Recommendation, len(analyzedEmails))
	for _, em := range analyzedEmails {
		rec := e.recommender.ForEmail(em, analyzedTickets)
		recs[em.EmailID] = rec
		result.Emails = append(result.Emails, EmailResult{
			Email:                em,
			MatchingTickets:      rec.Matches,
			Recommendation:       rec.Action,
			RecommendationReason: rec.Reason,
		})
		switch rec.Action {
		case recommend.ActionLink:
			result.Stats.LinkRecommended++
		case recommend.ActionCreate:
			result.Stats.CreateRecommended++
		}
	}

	for _, grp := range groups {
		rec := recs[grp.Primary.EmailID]
		result.Groups = append(result.Groups, GroupResult{
			Primary:              grp.Primary,
			Related:              grp.Related,
			MatchingTickets:      rec.Matches,
			Recommendation:       rec.Action,
			RecommendationReason: rec.Reason,
		})
	}

	e.logger.Info("batch analyzed",
		"emails", result.Stats.Emails,
		"tickets", result.Stats.Tickets,
		"skipped", result.Stats.Skipped,
		"groups", result.Stats.DuplicateGroups,
		"link", result.Stats.LinkRecommended,
		"create", result.Stats.CreateRecommended,
	)
	return result, nil
}

// PotentialDuplicate pairs a corpus email with its similarity to the target.
type PotentialDuplicate struct {
	Email      *analyze.AnalyzedEmail `json:"email"`
	Similarity float64                `json:"similarity"`
}

// SingleResult is the output of AnalyzeSingle.
type SingleResult struct {
	Email                *analyze.AnalyzedEmail  `json:"analyzed_email"`
	PotentialDuplicates  []PotentialDuplicate    `json:"potential_duplicates"`
	RelatedTickets       []recommend.TicketMatch `json:"related_tickets"`
	Recommendation       string                  `json:"recommendation"`
	RecommendationReason string                  `json:"recommendation_reason"`
}

// AnalyzeSingle analyzes one email against a corpus of other emails and the
// ticket set. Corpus items that fail extraction are skipped; failure on the
// target email itself is an error.
func (e *Engine) AnalyzeSingle(ctx context.Context, em mail.RawEmail, corpus []mail.RawEmail, tickets []mail.RawTicket) (*SingleResult, error) {
	if 1+len(corpus)+len(tickets) > e.maxBatch {
		return nil, fmt.Errorf("%w: %d items, limit %d", ErrBatchTooLarge, 1+len(corpus)+len(tickets), e.maxBatch)
	}

	target, err := e.analyzer.AnalyzeEmail(ctx, em)
	if err != nil {
		return nil, err
	}

	analyzedCorpus, _, err := e.analyzeEmails(ctx, corpus)
	if err != nil {
		return nil, err
	}
	analyzedTickets, _, err := e.analyzeTickets(ctx, tickets)
	if err != nil {
		return nil, err
	}

	dups := make([]PotentialDuplicate, 0)
	for _, other := range analyzedCorpus {
		if other.EmailID == target.EmailID {
			continue
		}
		if score := similarity.EmailEmail(target, other); score >= e.thresholds.Duplicate {
			dups = append(dups, PotentialDuplicate{Email: other, Similarity: score})
		}
	}
	sort.Slice(dups, func(i, j int) bool {
		if dups[i].Similarity != dups[j].Similarity {
			return dups[i].Similarity > dups[j].Similarity
		}
		return dups[i].Email.EmailID < dups[j].Email.EmailID
	})

	rec := e.recommender.ForEmail(target, analyzedTickets)

	return &SingleResult{
		Email:                target,
		PotentialDuplicates:  dups,
		RelatedTickets:       rec.Matches,
		Recommendation:       rec.Action,
		RecommendationReason: rec.Reason,
	}, nil
}

// analyzeEmails runs extraction over the batch with bounded concurrency and
// the shared rate limiter. Per-item failures are logged and counted, not
// propagated; a misconfigured backend aborts the whole pass.
func (e *Engine) analyzeEmails(ctx context.Context, emails []mail.RawEmail) ([]*analyze.AnalyzedEmail, int, error) {
	results := make([]*analyze.AnalyzedEmail, len(emails))
	var mu sync.Mutex
	skipped := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, em := range emails {
		i, em := i, em
		g.Go(func() error {
			if err := e.limiter.Wait(gctx); err != nil {
				return err
			}
			analyzed, err := e.analyzer.AnalyzeEmail(gctx, em)
			if err != nil {
				if errors.Is(err, extract.ErrNotConfigured) {
					return err
				}
				e.logger.Warn("email analysis failed, skipping", "email_id", em.ID, "error", err)
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			results[i] = analyzed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	// Compact while preserving input positions of the survivors.
	out := make([]*analyze.AnalyzedEmail, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, skipped, nil
}

func (e *Engine) analyzeTickets(ctx context.Context, tickets []mail.RawTicket) ([]*analyze.AnalyzedTicket, int, error) {
	results := make([]*analyze.AnalyzedTicket, len(tickets))
	var mu sync.Mutex
	skipped := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, tk := range tickets {
		i, tk := i, tk
		g.Go(func() error {
			if err := e.limiter.Wait(gctx); err != nil {
				return err
			}
			analyzed, err := e.analyzer.AnalyzeTicket(gctx, tk)
			if err != nil {
				if errors.Is(err, extract.ErrNotConfigured) {
					return err
				}
				e.logger.Warn("ticket analysis failed, skipping", "ticket_id", tk.ID, "error", err)
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			results[i] = analyzed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	out := make([]*analyze.AnalyzedTicket, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, skipped, nil
}
