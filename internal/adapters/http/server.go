// Package http exposes the conversation engine over a small JSON API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warrenhq/warren/internal/logging"
	"github.com/warrenhq/warren/pkg/convo"
	"github.com/warrenhq/warren/pkg/domain"
	"github.com/warrenhq/warren/pkg/ports"
)

// MaxInputBytes caps a single message body.
const MaxInputBytes = 16 * 1024

// Server routes HTTP requests into the conversation manager.
type Server struct {
	manager *convo.Manager
	reader  ports.TransitionReader
	logger  *slog.Logger
	version string
}

type Option func(*Server)

// WithTransitionReader enables GET .../transitions when the configured sink
// supports read-back.
func WithTransitionReader(r ports.TransitionReader) Option {
	return func(s *Server) { s.reader = r }
}

// WithLogger configures a logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewHandler builds the HTTP handler. The prometheus registry may be nil
// when metrics are disabled; /metrics then serves an empty registry.
func NewHandler(manager *convo.Manager, reg *prometheus.Registry, opts ...Option) http.Handler {
	s := &Server{
		manager: manager,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Get("/info", s.info)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/v1/conversations", func(r chi.Router) {
		r.Post("/", s.createConversation)
		r.Get("/{id}", s.getConversation)
		r.Delete("/{id}", s.abandonConversation)
		r.Post("/{id}/messages", s.postMessage)
		r.Get("/{id}/transitions", s.getTransitions)
	})
	return r
}

type createRequest struct {
	ID string `json:"id,omitempty"`
}

type createResponse struct {
	ID       string        `json:"id"`
	State    string        `json:"state"`
	Status   domain.Status `json:"status"`
	Greeting string        `json:"greeting"`
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.logger.Warn("createConversation: invalid request body", "err", err)
			return
		}
	}
	id := body.ID
	if id == "" {
		id = uuid.NewString()
	}

	reply, err := s.manager.Start(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, createResponse{
		ID:       id,
		State:    reply.State,
		Status:   reply.Status,
		Greeting: reply.Text,
	})
}

type messageRequest struct {
	Input string `json:"input"`
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body messageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxInputBytes))
	if err := dec.Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("postMessage: invalid request body", "conversation_id", id, "err", err)
		return
	}
	if body.Input == "" {
		http.Error(w, "Missing input", http.StatusBadRequest)
		return
	}

	reply, err := s.manager.Deliver(r.Context(), id, body.Input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	snap, err := s.manager.Snapshot(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) abandonConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Abandon(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getTransitions(w http.ResponseWriter, r *http.Request) {
	if s.reader == nil {
		http.Error(w, "Transition read-back not supported by the configured sink", http.StatusNotImplemented)
		return
	}
	id := chi.URLParam(r, "id")
	transitions, err := s.reader.Transitions(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to read transitions", http.StatusInternalServerError)
		s.logger.Error("getTransitions failed", "conversation_id", id, "err", err)
		return
	}
	s.writeJSON(w, http.StatusOK, transitions)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "warren",
		"version": s.version,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrConversationNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrConversationTerminated):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.logger.Error("request failed", "err", err)
	}
}
