package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/forgedesk/triage/internal/mail"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// EmailFilter narrows ListEmails. Zero values mean no constraint.
type EmailFilter struct {
	Since time.Time
	Limit int
}

// ListEmails fetches synced emails, newest first. Recipient lists are stored
// as JSON text; malformed values degrade to an empty list.
func (s *Store) ListEmails(ctx context.Context, f EmailFilter) ([]mail.RawEmail, error) {
	q := psql.Select("id", "subject", "sender", "recipients", "body", "received_at").
		From("emails").
		OrderBy("received_at DESC")
	if !f.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"received_at": f.Since})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build emails query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query emails: %w", err)
	}
	defer rows.Close()

	var emails []mail.RawEmail
	for rows.Next() {
		var em mail.RawEmail
		var recipients string
		if err := rows.Scan(&em.ID, &em.Subject, &em.From, &recipients, &em.Body, &em.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		em.To = mail.DecodeRecipients(recipients)
		emails = append(emails, em)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return emails, nil
}

// GetEmail fetches a single email by id.
func (s *Store) GetEmail(ctx context.Context, id string) (*mail.RawEmail, error) {
	query, args, err := psql.Select("id", "subject", "sender", "recipients", "body", "received_at").
		From("emails").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build email query: %w", err)
	}

	var em mail.RawEmail
	var recipients string
	row := s.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(&em.ID, &em.Subject, &em.From, &recipients, &em.Body, &em.ReceivedAt); err != nil {
		return nil, fmt.Errorf("fetch email %s: %w", id, err)
	}
	em.To = mail.DecodeRecipients(recipients)
	return &em, nil
}
