package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/forgedesk/triage/internal/mail"
	"github.com/forgedesk/triage/internal/store"
	"github.com/forgedesk/triage/internal/triage"
)

// Engine is the triage pipeline as the API sees it.
type Engine interface {
	AnalyzeBatch(ctx context.Context, emails []mail.RawEmail, tickets []mail.RawTicket) (*triage.BatchResult, error)
	AnalyzeSingle(ctx context.Context, em mail.RawEmail, corpus []mail.RawEmail, tickets []mail.RawTicket) (*triage.SingleResult, error)
}

// Source supplies records when a request carries none inline. Nil disables
// the store fallback.
type Source interface {
	ListEmails(ctx context.Context, f store.EmailFilter) ([]mail.RawEmail, error)
	ListTickets(ctx context.Context, f store.TicketFilter) ([]mail.RawTicket, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	apiToken string
	engine   Engine
	source   Source
	logger   *slog.Logger
}

func NewServer(port int, apiToken string, engine Engine, source Source, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		apiToken: apiToken,
		engine:   engine,
		source:   source,
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/triage/status", s.status)

	router.Route("/api/v1/triage", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/batch", s.analyzeBatch)
		r.Post("/single", s.analyzeSingle)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":       "triage",
		"store":         s.source != nil,
		"api_protected": s.apiToken != "",
	})
}

// BearerAuthMiddleware rejects requests without the configured bearer token.
// An empty token disables auth (local development).
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
