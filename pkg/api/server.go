// Package api provides the HTTP API for running skillet as a long-lived
// service: skill listing, match queries, and corpus reload, all answered
// from the engine's current snapshot.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/engine"
	"github.com/jingkaihe/skillet/pkg/logger"
	skilltypes "github.com/jingkaihe/skillet/pkg/types/skills"
)

// Server exposes the engine over HTTP
type Server struct {
	router *mux.Router
	engine *engine.Engine
	config *ServerConfig
	server *http.Server
}

// ServerConfig holds the configuration for the HTTP server
type ServerConfig struct {
	Host string
	Port int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// NewServer creates an HTTP server around an engine that has already
// loaded its first snapshot
func NewServer(eng *engine.Engine, config *ServerConfig) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router: mux.NewRouter(),
		engine: eng,
		config: config,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	api.HandleFunc("/skills", s.handleListSkills).Methods("GET")
	// OPTIONS is answered by the CORS middleware before the handler runs
	api.HandleFunc("/match", s.handleMatch).Methods("POST", "OPTIONS")
	api.HandleFunc("/reload", s.handleReload).Methods("POST", "OPTIONS")

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
}

// Handler returns the configured router, used by tests and embedders
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.G(ctx).WithField("addr", addr).Info("HTTP API listening")

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	if snap := s.engine.Snapshot(); snap != nil {
		status["snapshotVersion"] = snap.Corpus.SnapshotVersion
		status["skills"] = snap.Corpus.Len()
	}
	s.writeJSON(w, http.StatusOK, status)
}

// skillSummary is the list representation of a skill; bodies are omitted
// since they can be large and the matcher never reads them
type skillSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Version       string `json:"version,omitempty"`
	BodySize      int    `json:"bodySize"`
	ConflictGroup string `json:"conflictGroup,omitempty"`
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no corpus loaded", nil)
		return
	}

	summaries := make([]skillSummary, 0, snap.Corpus.Len())
	for _, skill := range snap.Corpus.Skills {
		summaries = append(summaries, skillSummary{
			ID:            skill.ID,
			Name:          skill.Name,
			Description:   skill.Description,
			Version:       skill.Version,
			BodySize:      skill.BodySize,
			ConflictGroup: skill.ConflictGroup,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"snapshotVersion": snap.Corpus.SnapshotVersion,
		"skills":          summaries,
	})
}

type matchRequest struct {
	ContextText string   `json:"contextText"`
	BudgetChars int      `json:"budgetChars"`
	Pinned      []string `json:"pinned,omitempty"`
	Excluded    []string `json:"excluded,omitempty"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	bundle, err := s.engine.Match(r.Context(), skilltypes.Query{
		ContextText: req.ContextText,
		BudgetChars: req.BudgetChars,
		Pinned:      req.Pinned,
		Excluded:    req.Excluded,
	})
	if err != nil {
		if errors.Is(err, skilltypes.ErrInvalidQuery) {
			s.writeError(w, http.StatusBadRequest, "invalid query", err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "match failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Load(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "reload failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"snapshotVersion": snap.Corpus.SnapshotVersion,
		"skills":          snap.Corpus.Len(),
		"warnings":        snap.Warnings,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.G(context.Background()).WithError(err).Error("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	s.writeJSON(w, status, body)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rw.statusCode,
			"duration": time.Since(start),
		}).Info("HTTP request")
	})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
