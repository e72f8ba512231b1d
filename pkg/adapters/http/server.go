package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	mozaiks "github.com/BlocUnited-LLC/mozaiks-ai-sub000"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/logging"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/manifest"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Engine defines what the HTTP surface needs from the context engine.
type Engine interface {
	Start(ctx context.Context, in domain.SessionInputs) (*session.Session, error)
	Session(scope, sessionID string) (*session.Session, error)
	End(ctx context.Context, scope, sessionID string) error
	Sessions() []session.Key
	Manifest() *manifest.Manifest
}

// Server serves the engine over HTTP.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStreams shares a StreamManager, typically one whose Hooks were given to the engine.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/manifest", s.GetManifest)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.StartSession)
		r.Route("/{scope}/{sessionID}", func(r chi.Router) {
			r.Delete("/", s.EndSession)
			r.Get("/snapshot", s.GetSnapshot)
			r.Get("/variables/{name}", s.GetVariable)
			r.Get("/agents/{agent}/variables", s.VisibleTo)
			r.Get("/agents/{agent}/handoffs", s.Handoffs)
			r.Post("/evaluate", s.Evaluate)
			r.Post("/events", s.PublishEvent)
			r.Get("/events", s.SubscribeEvents)
			r.Post("/ui-responses", s.ApplyUIResponse)
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartRequest is the body of POST /sessions.
type StartRequest struct {
	SessionID string            `json:"session_id,omitempty"`
	Scope     string            `json:"scope"`
	Inputs    map[string]string `json:"inputs,omitempty"`
}

// StartResponse reports a started session. Error is set when bootstrap failed
// and the session fell back to an empty context.
type StartResponse struct {
	SessionID string `json:"session_id"`
	Scope     string `json:"scope"`
	Variables int    `json:"variables"`
	Error     string `json:"error,omitempty"`
}

// EvaluateRequest is the body of POST .../evaluate.
type EvaluateRequest struct {
	Condition string `json:"condition"`
}

// UIResponseRequest is the body of POST .../ui-responses.
type UIResponseRequest struct {
	Variable string         `json:"variable"`
	Tool     string         `json:"tool"`
	Payload  map[string]any `json:"payload"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "ctxvars-http",
		"version": strings.TrimSpace(mozaiks.Version),
	})
}

// GetManifest handles the GET /manifest request.
func (s *Server) GetManifest(w http.ResponseWriter, r *http.Request) {
	m := s.Engine.Manifest()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"variables": m.Names(),
		"agents":    m.Agents(),
	})
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Sessions())
}

// StartSession handles the POST /sessions request.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(body.Scope) == "" {
		s.fail(w, http.StatusBadRequest, "scope is required", nil)
		return
	}
	if body.SessionID == "" {
		body.SessionID = uuid.NewString()
	}

	sess, err := s.Engine.Start(r.Context(), domain.SessionInputs{
		SessionID:       body.SessionID,
		EnterpriseScope: body.Scope,
		Values:          body.Inputs,
	})
	if sess == nil {
		s.fail(w, statusFor(err), "Start error", err)
		return
	}
	resp := StartResponse{
		SessionID: sess.ID(),
		Scope:     sess.Scope(),
		Variables: sess.Context().Len(),
	}
	if err != nil {
		s.logger.Warn("StartSession: bootstrap failed", "session_id", sess.ID(), "scope", sess.Scope(), "err", err)
		resp.Error = err.Error()
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

// EndSession handles the DELETE /sessions/{scope}/{sessionID} request.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	scope, id := chi.URLParam(r, "scope"), chi.URLParam(r, "sessionID")
	if err := s.Engine.End(r.Context(), scope, id); err != nil {
		s.fail(w, statusFor(err), "End error", err)
		return
	}
	s.Streams.Close(scope, id)
	w.WriteHeader(http.StatusNoContent)
}

// GetSnapshot handles the GET .../snapshot request.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

// GetVariable handles the GET .../variables/{name} request.
// A gated or undeclared variable is reported as absent, never as a zero value.
func (s *Server) GetVariable(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	v, present := sess.Get(name)
	if !present {
		s.fail(w, http.StatusNotFound, fmt.Sprintf("variable %q is not present", name), nil)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"name": name, "value": v})
}

// VisibleTo handles the GET .../agents/{agent}/variables request.
func (s *Server) VisibleTo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess.VisibleTo(chi.URLParam(r, "agent")))
}

// Handoffs handles the GET .../agents/{agent}/handoffs request.
func (s *Server) Handoffs(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	targets := sess.Handoffs(chi.URLParam(r, "agent"))
	if targets == nil {
		targets = []string{}
	}
	s.writeJSON(w, http.StatusOK, targets)
}

// Evaluate handles the POST .../evaluate request.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	result, err := sess.Evaluate(body.Condition)
	if err != nil {
		s.fail(w, statusFor(err), "Evaluate error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"result": result})
}

// PublishEvent handles the POST .../events request. The event is queued and
// applied asynchronously.
func (s *Server) PublishEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var ev domain.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.fail(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := sess.Publish(ev); err != nil {
		s.fail(w, statusFor(err), "Publish error", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ApplyUIResponse handles the POST .../ui-responses request.
func (s *Server) ApplyUIResponse(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body UIResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	flipped, err := sess.ApplyUIResponse(r.Context(), body.Variable, body.Tool, body.Payload)
	if err != nil {
		s.fail(w, statusFor(err), "UI response error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"flipped": flipped})
}

// SubscribeEvents handles the GET .../events request (SSE). Each message is a
// flipped variable of the session.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, http.StatusInternalServerError, "Streaming not supported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(sess.Scope(), sess.ID())
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "session_id", sess.ID())
			return
		case <-sess.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: flip\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.Engine.Session(chi.URLParam(r, "scope"), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, statusFor(err), "Session error", err)
		return nil, false
	}
	return sess, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrUnknownTrigger):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIllegalCondition),
		errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrMalformedEvent),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEngineClosed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBootstrapTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, code int, msg string, err error) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", code, "err", err)
	} else {
		s.logger.Warn("request rejected", "status", code, "reason", msg)
	}
	s.writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
