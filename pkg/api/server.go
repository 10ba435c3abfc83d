// Package api exposes the model service, the training queue and the
// snapshot store over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"github.com/mimir-aip/microfinance-go/pkg/platform"
	"github.com/mimir-aip/microfinance-go/pkg/scheduler"
	"github.com/mimir-aip/microfinance-go/pkg/trainer"
)

// Server provides HTTP API endpoints
type Server struct {
	service     *platform.Service
	worker      *trainer.Worker
	checkpoints *scheduler.Service
	port        string
	timeout     time.Duration
	mux         *http.ServeMux
	httpServer  *http.Server
}

// NewServer creates a new API server. timeout bounds each request; zero
// disables the limit.
func NewServer(service *platform.Service, worker *trainer.Worker, checkpoints *scheduler.Service, port string, timeout time.Duration) *Server {
	s := &Server{
		service:     service,
		worker:      worker,
		checkpoints: checkpoints,
		port:        port,
		timeout:     timeout,
		mux:         http.NewServeMux(),
	}

	s.registerRoutes()
	return s
}

// registerRoutes sets up the HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)

	s.mux.HandleFunc("/assess_creditworthiness", s.handleAssessCredit)
	s.mux.HandleFunc("/assess-credit", s.handleAssessCredit)
	s.mux.HandleFunc("/verify-compliance", s.handleVerifyCompliance)
	s.mux.HandleFunc("/enroll-biometric", s.handleEnrollBiometric)
	s.mux.HandleFunc("/set_compliance_rule", s.handleSetComplianceRule)
	s.mux.HandleFunc("/analyze_behavior", s.handleAnalyzeBehavior)
	s.mux.HandleFunc("/track_esg", s.handleTrackESG)
	s.mux.HandleFunc("/track-esg", s.handleTrackESG)
	s.mux.HandleFunc("/recommend-loans", s.handleRecommendLoans)
	s.mux.HandleFunc("/train_models", s.handleTrainModels)

	s.mux.HandleFunc("/api/training-jobs", s.handleTrainingJobs)
	s.mux.HandleFunc("/api/training-jobs/", s.handleTrainingJobByID)
	s.mux.HandleFunc("/api/snapshots", s.handleSnapshots)
	s.mux.HandleFunc("/api/snapshots/", s.handleSnapshotByID)
}

// Handler returns the routes wrapped in the CORS and timeout middleware
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.timeout > 0 {
		h = TimeoutMiddleware(s.timeout)(h)
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(h)
}

// Start starts the HTTP server and blocks until it stops. It returns nil
// after a graceful Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Infof("Starting API server on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady handles readiness check requests
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Check the snapshot store is reachable
	if _, err := s.checkpoints.List(r.Context()); err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"pending_jobs": s.worker.Pending(),
	})
}

// pathID extracts the identifier following prefix, plus any trailing action
func pathID(path, prefix string) (id, action string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action
}
