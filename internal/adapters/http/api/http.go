// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/poseparty/internal/domain/engine"
	"github.com/okian/poseparty/internal/domain/pose"
	"github.com/okian/poseparty/internal/domain/session"
	"github.com/okian/poseparty/pkg/logger"
)

// Default request limits.
const (
	defaultMaxFrameKeypoints = 64
	defaultWSReadLimit       = 64 << 10
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateSession(ctx context.Context, referenceID string) (string, engine.Snapshot, error)
	EndSession(ctx context.Context, id string) error
	SelectReference(ctx context.Context, id, referenceID string) error
	SubmitFrame(ctx context.Context, id, frameID string, p pose.Pose) (bool, error)
	Snapshot(ctx context.Context, id string) (engine.Snapshot, error)
	Subscribe(ctx context.Context, id string, buffer int) (<-chan session.Update, func(), error)
	References(ctx context.Context) []string
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithMaxFrameKeypoints caps keypoints accepted per frame.
func WithMaxFrameKeypoints(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxFrameKeypoints = n
		}
	}
}

// WithWSReadLimit caps the size of a single WebSocket message.
func WithWSReadLimit(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.wsReadLimit = n
		}
	}
}

// WithLogger sets the logger used by stream handlers.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps              Dependencies
	maxFrameKeypoints int
	wsReadLimit       int64
	logger            logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		deps:              deps,
		maxFrameKeypoints: defaultMaxFrameKeypoints,
		wsReadLimit:       defaultWSReadLimit,
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /references", MetricsMiddleware(s.handleListReferences, "references"))
	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.handleCreateSession, "sessions"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.handleGetSession, "session"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(s.handleDeleteSession, "session"))
	mux.HandleFunc("PUT /sessions/{id}/reference", MetricsMiddleware(s.handleSelectReference, "reference"))
	mux.HandleFunc("POST /sessions/{id}/frames", MetricsMiddleware(s.handlePostFrame, "frames"))
	mux.HandleFunc("GET /sessions/{id}/stream", MetricsMiddleware(s.handleStream, "stream"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeUpstreamError translates a service error.
func writeUpstreamError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
