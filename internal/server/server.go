// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the answer pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/answer"
	"github.com/pdiddy/evidence-engine/internal/provider"
	"github.com/pdiddy/evidence-engine/internal/topic"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	maxBodyBytes          = 1 << 20
	defaultRequestTimeout = 150 * time.Second
	shutdownGrace         = 10 * time.Second
)

// Server routes HTTP requests to an Orchestrator.
type Server struct {
	orch           *answer.Orchestrator
	logger         *zap.Logger
	allowedOrigins []string
	requestTimeout time.Duration
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the request logger. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRequestTimeout bounds each request. It should exceed the sum of the
// provider timeouts.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

// New returns a Server for orch. An empty origin list allows every origin.
func New(orch *answer.Orchestrator, cfg types.ServerConfig, opts ...Option) *Server {
	s := &Server{
		orch:           orch,
		logger:         zap.NewNop(),
		allowedOrigins: cfg.AllowedOrigins,
		requestTimeout: defaultRequestTimeout,
	}
	if len(s.allowedOrigins) == 0 {
		s.allowedOrigins = []string{"*"}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.requestTimeout))
		r.Post("/ask", s.handleAsk)
		r.Post("/prompt", s.handlePrompt)
		r.Get("/topics", s.handleTopics)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server listen")
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("trace_id", middleware.GetReqID(r.Context())),
		)
	})
}

type askRequest struct {
	Query   string                   `json:"query"`
	History []types.ConversationTurn `json:"history"`
}

type askResponse struct {
	Answer    string   `json:"answer"`
	Source    string   `json:"source"`
	RequestID string   `json:"request_id"`
	Topics    []string `json:"topics"`
	Trace     []string `json:"trace"`
}

type promptRequest struct {
	Query string `json:"query"`
}

type promptResponse struct {
	SystemPrompt string   `json:"system_prompt"`
	Topics       []string `json:"topics"`
	Cited        []string `json:"cited"`
	ContextChars int      `json:"context_chars"`
	ContextBound int      `json:"context_bound"`
}

type topicSummary struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Studies int    `json:"studies"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}
	for i, turn := range req.History {
		if turn.Role != types.RoleUser && turn.Role != types.RoleAssistant {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("history[%d]: invalid role %q", i, turn.Role)})
			return
		}
	}

	res, err := s.orch.Answer(r.Context(), req.Query, req.History)
	if res.RequestID != "" {
		w.Header().Set("X-Request-Id", res.RequestID)
	}
	if err != nil {
		var pe *provider.Error
		if errors.As(err, &pe) {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: pe.Message, RequestID: res.RequestID})
			return
		}
		s.logger.Error("answer failed", zap.String("request_id", res.RequestID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", RequestID: res.RequestID})
		return
	}

	trace := make([]string, len(res.Trace))
	for i, st := range res.Trace {
		trace[i] = st.String()
	}
	writeJSON(w, http.StatusOK, askResponse{
		Answer:    res.Text,
		Source:    res.Source,
		RequestID: res.RequestID,
		Topics:    topic.IDs(res.Prepared.Topics),
		Trace:     trace,
	})
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	p := s.orch.Pipeline()
	prep, err := p.Prepare(req.Query)
	if err != nil {
		s.logger.Error("prompt failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	cited := make([]string, len(prep.Context.Cited))
	for i, st := range prep.Context.Cited {
		cited[i] = st.ID
	}
	writeJSON(w, http.StatusOK, promptResponse{
		SystemPrompt: prep.SystemPrompt,
		Topics:       topic.IDs(prep.Topics),
		Cited:        cited,
		ContextChars: len([]rune(prep.Context.Text)),
		ContextBound: p.Bound(prep),
	})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	c := s.orch.Pipeline().Corpus()
	out := make([]topicSummary, 0, len(c.Topics))
	for _, t := range c.Topics {
		n := 0
		if ds := c.Dataset(t.ID); ds != nil {
			n = len(ds.Studies)
		}
		out = append(out, topicSummary{ID: t.ID, Label: t.Label, Studies: n})
	}
	writeJSON(w, http.StatusOK, out)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
