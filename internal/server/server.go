// Package server exposes the audit journal over a read-only HTTP API. It
// never mutates state; everything it serves is re-read from journal.jsonl on
// each request so a dashboard can follow a live runner process.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/audit"
	"github.com/tradecouncil/tradecouncil/internal/config"
)

const defaultJournalLimit = 50

// Server serves the dashboard API.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	auditor *audit.Logger
	cfg     *config.Config
	log     zerolog.Logger
	started time.Time
}

// New wires routes and middleware. The auditor is only used for its journal
// path; the server holds no locks against the writer.
func New(cfg *config.Config, auditor *audit.Logger, log zerolog.Logger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		auditor: auditor,
		cfg:     cfg,
		log:     log.With().Str("component", "server").Logger(),
		started: time.Now().UTC(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.DashboardAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/summary", s.handleSummary)
		r.Get("/journal", s.handleJournal)
		r.Get("/runs/{runID}", s.handleRun)
	})
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.cfg.DashboardAddr).Msg("dashboard listening")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("dashboard stopping")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"paper":     s.cfg.PaperTrading,
		"timestamp": time.Now().UTC(),
	})
}

// handleSummary reports the most recent decision, the most recent order and
// journal counts by kind.
func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	records, err := audit.Tail(s.auditor.JournalPath(), 0)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "journal read failed")
		return
	}

	counts := map[string]int{}
	var lastDecision, lastOrder, lastError *audit.Record
	for i := range records {
		rec := &records[i]
		counts[rec.Kind]++
		switch rec.Kind {
		case audit.KindDecision:
			lastDecision = rec
		case audit.KindOrder:
			lastOrder = rec
		case audit.KindRunnerError:
			lastError = rec
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"records":       len(records),
		"counts":        counts,
		"last_decision": lastDecision,
		"last_order":    lastOrder,
		"last_error":    lastError,
	})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := audit.Tail(s.auditor.JournalPath(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "journal read failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	records, err := audit.ByRunID(s.auditor.JournalPath(), runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "journal read failed")
		return
	}
	if len(records) == 0 {
		s.writeError(w, http.StatusNotFound, "no records for run")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "records": records})
}

// authMiddleware gates /api behind a bearer token when one is configured.
// An empty token leaves the API open, which suits local use.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.DashboardToken != "" {
			if r.Header.Get("Authorization") != "Bearer "+s.cfg.DashboardToken {
				s.writeError(w, http.StatusUnauthorized, "missing or invalid token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
