package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/forgedesk/triage/internal/analyze"
	"github.com/forgedesk/triage/internal/mail"
	"github.com/forgedesk/triage/internal/store"
	"github.com/forgedesk/triage/internal/triage"
)

// SyncEvent is published by the mail-sync service when a provider sync lands.
type SyncEvent struct {
	AccountID string    `json:"account_id"`
	Synced    int       `json:"synced"`
	Since     time.Time `json:"since"`
}

// RecordSource is the slice of the store the handler needs.
type RecordSource interface {
	ListEmails(ctx context.Context, f store.EmailFilter) ([]mail.RawEmail, error)
	ListTickets(ctx context.Context, f store.TicketFilter) ([]mail.RawTicket, error)
}

// Notifier pushes urgent-email alerts to a human channel. Optional.
type Notifier interface {
	NotifyUrgent(ctx context.Context, em *analyze.AnalyzedEmail, reason string) error
}

// Publisher is the bus surface the handler writes to.
type Publisher interface {
	Publish(subject string, data any) error
}

// Handler runs a triage pass whenever a mail sync completes and publishes the
// outcome back onto the bus.
type Handler struct {
	source   RecordSource
	engine   *triage.Engine
	bus      Publisher
	notifier Notifier
	lookback time.Duration
	logger   *slog.Logger
}

func NewHandler(source RecordSource, engine *triage.Engine, bus Publisher, notifier Notifier, logger *slog.Logger) *Handler {
	return &Handler{
		source:   source,
		engine:   engine,
		bus:      bus,
		notifier: notifier,
		lookback: 7 * 24 * time.Hour,
		logger:   logger,
	}
}

// HandleSyncCompleted is the NATS handler for mail.sync.completed.
func (h *Handler) HandleSyncCompleted(subject string, data []byte) {
	ctx := context.Background()

	var evt SyncEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		h.logger.Error("failed to parse sync event", "error", err)
		return
	}

	h.logger.Info("sync completed, running triage", "account_id", evt.AccountID, "synced", evt.Synced)

	since := evt.Since
	if since.IsZero() {
		since = time.Now().Add(-h.lookback)
	}

	if err := h.Run(ctx, since); err != nil {
		h.logger.Error("triage pass failed", "account_id", evt.AccountID, "error", err)
	}
}

// Run executes one store-driven triage pass over emails received since the
// given time. It is also the entry point for scheduled re-triage.
func (h *Handler) Run(ctx context.Context, since time.Time) error {
	emails, err := h.source.ListEmails(ctx, store.EmailFilter{Since: since, Limit: 300})
	if err != nil {
		return err
	}
	tickets, err := h.source.ListTickets(ctx, store.TicketFilter{Limit: 200})
	if err != nil {
		return err
	}

	result, err := h.engine.AnalyzeBatch(ctx, emails, tickets)
	if err != nil {
		return err
	}

	if err := h.bus.Publish(SubjectTriageCompleted, result.Stats); err != nil {
		h.logger.Warn("failed to publish triage stats", "error", err)
	}

	for _, er := range result.Emails {
		if er.Email.SuggestedPriority != analyze.PriorityUrgent {
			continue
		}
		if err := h.bus.Publish(SubjectTriageUrgent, map[string]any{
			"email_id":   er.Email.EmailID,
			"subject":    er.Email.Subject,
			"from":       er.Email.From,
			"categories": er.Email.Categories,
			"action":     er.Recommendation,
			"reason":     er.RecommendationReason,
		}); err != nil {
			h.logger.Warn("failed to publish urgent email", "email_id", er.Email.EmailID, "error", err)
		}
		if h.notifier != nil {
			if err := h.notifier.NotifyUrgent(ctx, er.Email, er.RecommendationReason); err != nil {
				h.logger.Warn("urgent notification failed", "email_id", er.Email.EmailID, "error", err)
			}
		}
	}

	return nil
}
