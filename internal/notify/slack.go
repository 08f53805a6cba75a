// Package notify posts triage alerts and import summaries to Slack. The
// service runs fine without it; callers pass nil when unconfigured.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/forgedesk/triage/internal/analyze"
	"github.com/forgedesk/triage/internal/triage"
)

type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  *slog.Logger
}

func NewSlackNotifier(token, channel string, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
		logger:  logger,
	}
}

// NotifyUrgent posts an alert for an urgent-priority email.
func (n *SlackNotifier) NotifyUrgent(ctx context.Context, em *analyze.AnalyzedEmail, reason string) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(urgentText(em, reason), false),
	)
	if err != nil {
		return fmt.Errorf("post urgent alert: %w", err)
	}

	n.logger.Info("urgent alert posted", "email_id", em.EmailID, "channel", n.channel)
	return nil
}

// NotifyImportSummary posts the outcome of a bulk import run.
func (n *SlackNotifier) NotifyImportSummary(ctx context.Context, files int, stats triage.Stats) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(summaryText(files, stats), false),
	)
	if err != nil {
		return fmt.Errorf("post import summary: %w", err)
	}
	return nil
}

func urgentText(em *analyze.AnalyzedEmail, reason string) string {
	return fmt.Sprintf(":rotating_light: *Urgent email* from %s\n>%s\nCategories: %s\n%s",
		em.From, em.Subject, strings.Join(em.Categories, ", "), reason)
}

func summaryText(files int, stats triage.Stats) string {
	return fmt.Sprintf("*Mailbox import finished*: %d files, %d emails analyzed, %d duplicate groups, %d link / %d create, %d skipped.",
		files, stats.Emails, stats.DuplicateGroups, stats.LinkRecommended, stats.CreateRecommended, stats.Skipped)
}
