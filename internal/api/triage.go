package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/forgedesk/triage/internal/extract"
	"github.com/forgedesk/triage/internal/mail"
	"github.com/forgedesk/triage/internal/store"
	"github.com/forgedesk/triage/internal/triage"
)

// BatchRequest is the payload for POST /api/v1/triage/batch. Empty record
// lists fall back to the store when one is wired.
type BatchRequest struct {
	Emails  []mail.RawEmail  `json:"emails"`
	Tickets []mail.RawTicket `json:"tickets"`
}

// SingleRequest is the payload for POST /api/v1/triage/single.
type SingleRequest struct {
	Email   mail.RawEmail    `json:"email"`
	Corpus  []mail.RawEmail  `json:"corpus"`
	Tickets []mail.RawTicket `json:"tickets"`
}

// storeLookback bounds the store fallback so an unfiltered request cannot
// pull the whole mailbox into a quadratic grouping pass.
const storeLookback = 7 * 24 * time.Hour

func (s *Server) analyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if len(req.Emails) == 0 && s.source != nil {
		emails, err := s.source.ListEmails(r.Context(), store.EmailFilter{
			Since: time.Now().Add(-storeLookback),
			Limit: 300,
		})
		if err != nil {
			s.logger.Error("email fetch failed", "error", err)
			writeError(w, http.StatusBadGateway, "email source unreachable: "+err.Error())
			return
		}
		req.Emails = emails
	}
	if len(req.Tickets) == 0 && s.source != nil {
		tickets, err := s.source.ListTickets(r.Context(), store.TicketFilter{Limit: 200})
		if err != nil {
			s.logger.Error("ticket fetch failed", "error", err)
			writeError(w, http.StatusBadGateway, "ticket source unreachable: "+err.Error())
			return
		}
		req.Tickets = tickets
	}

	result, err := s.engine.AnalyzeBatch(r.Context(), req.Emails, req.Tickets)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) analyzeSingle(w http.ResponseWriter, r *http.Request) {
	var req SingleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Email.ID == "" {
		writeError(w, http.StatusBadRequest, "email.id is required")
		return
	}

	if len(req.Corpus) == 0 && s.source != nil {
		// 250 + 200 tickets + the target stays under the default batch cap.
		corpus, err := s.source.ListEmails(r.Context(), store.EmailFilter{
			Since: time.Now().Add(-storeLookback),
			Limit: 250,
		})
		if err != nil {
			s.logger.Error("email fetch failed", "error", err)
			writeError(w, http.StatusBadGateway, "email source unreachable: "+err.Error())
			return
		}
		req.Corpus = corpus
	}
	if len(req.Tickets) == 0 && s.source != nil {
		tickets, err := s.source.ListTickets(r.Context(), store.TicketFilter{Limit: 200})
		if err != nil {
			s.logger.Error("ticket fetch failed", "error", err)
			writeError(w, http.StatusBadGateway, "ticket source unreachable: "+err.Error())
			return
		}
		req.Tickets = tickets
	}

	result, err := s.engine.AnalyzeSingle(r.Context(), req.Email, req.Corpus, req.Tickets)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeEngineError maps engine failures to status codes that keep
// configuration problems, oversize requests and genuine faults apart.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, extract.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "extraction backend not configured; set EXTRACT_API_KEY or ANTHROPIC_API_KEY")
	case errors.Is(err, triage.ErrBatchTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("triage failed", "error", err)
		writeError(w, http.StatusInternalServerError, "triage failed: "+err.Error())
	}
}
