package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/forgedesk/triage/internal/mail"
)

// TicketFilter narrows ListTickets. An empty status list means all statuses.
type TicketFilter struct {
	Statuses []string
	Limit    int
}

// ListTickets fetches tickets for cross-referencing, newest first.
func (s *Store) ListTickets(ctx context.Context, f TicketFilter) ([]mail.RawTicket, error) {
	q := psql.Select("id", "title", "description", "status", "priority", "category", "created_at").
		From("tickets").
		OrderBy("created_at DESC")
	if len(f.Statuses) > 0 {
		q = q.Where(sq.Eq{"status": f.Statuses})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tickets query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []mail.RawTicket
	for rows.Next() {
		var tk mail.RawTicket
		if err := rows.Scan(&tk.ID, &tk.Title, &tk.Description, &tk.Status, &tk.Priority, &tk.Category, &tk.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tickets, nil
}
