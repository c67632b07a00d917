// Package server exposes the dashboard over HTTP: the token-injected index
// page, the site status API, the audit event stream and static assets, all
// behind the access guard, plus unauthenticated health probes and metrics.
//
// Shutdown cancels the base context shared by every request, so in-flight
// audits are killed and their slots released before connections drain.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/felixgeelhaar/auditd/internal/audit"
	"github.com/felixgeelhaar/auditd/internal/auth"
	"github.com/felixgeelhaar/auditd/internal/health"
	"github.com/felixgeelhaar/auditd/internal/log"
	"github.com/felixgeelhaar/auditd/internal/metrics"
)

// Server is the auditd HTTP server.
type Server struct {
	httpServer      *http.Server
	probeManager    *health.ProbeManager
	coord           *audit.Coordinator
	guard           *auth.Guard
	logger          *log.Logger
	staticDir       string
	inShutdown      atomic.Bool
	shutdownTimeout time.Duration

	runCtx     context.Context
	cancelRuns context.CancelFunc
}

// Config holds server configuration.
type Config struct {
	// Address is the listen address (e.g., ":4242", "127.0.0.1:4242")
	Address string

	// StaticDir is served at / and must contain index.html
	StaticDir string

	// ShutdownTimeout is the maximum time to wait for connections to drain during shutdown.
	// Defaults to 30 seconds if not specified.
	ShutdownTimeout time.Duration

	// ReadTimeout defaults to 10 seconds.
	ReadTimeout time.Duration

	// WriteTimeout defaults to 10 seconds. The audit stream lifts it per
	// response.
	WriteTimeout time.Duration

	// IdleTimeout defaults to 60 seconds.
	IdleTimeout time.Duration
}

// Dependencies are the components the server routes to.
type Dependencies struct {
	Coordinator *audit.Coordinator
	Guard       *auth.Guard
	Probes      *health.ProbeManager

	// Metrics and Gatherer are optional; /metrics is only mounted with a Gatherer
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *log.Logger
}

// NewServer wires the routes.
func NewServer(cfg Config, deps Dependencies) *Server {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "."
	}
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}

	runCtx, cancelRuns := context.WithCancel(context.Background())
	s := &Server{
		probeManager:    deps.Probes,
		coord:           deps.Coordinator,
		guard:           deps.Guard,
		logger:          deps.Logger,
		staticDir:       cfg.StaticDir,
		shutdownTimeout: cfg.ShutdownTimeout,
		runCtx:          runCtx,
		cancelRuns:      cancelRuns,
	}

	protected := http.NewServeMux()
	protected.HandleFunc("GET /{$}", s.handleIndex)
	protected.HandleFunc("GET /api/sites", s.handleSites)
	protected.HandleFunc("GET /api/audit/{slug}", s.handleAudit)
	protected.Handle("GET /", s.staticHandler())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", s.handleLiveness)
	mux.HandleFunc("GET /health/ready", s.handleReadiness)
	mux.HandleFunc("GET /health/startup", s.handleStartup)
	mux.HandleFunc("GET /healthz", s.handleReadiness)
	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.HandlerFor(deps.Gatherer))
	}
	mux.Handle("/", auth.NewMiddleware(deps.Guard, deps.Logger, deps.Metrics).RequireAuth(protected))

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return runCtx },
	}

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and blocks until the server stops.
// Returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.probeManager.MarkInitialized()
	s.logger.Info("dashboard listening", "address", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown stops the server:
//  1. readiness starts failing and keep-alives are disabled
//  2. every in-flight audit is cancelled, which kills its task and frees its slot
//  3. remaining connections drain for up to ShutdownTimeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.probeManager.MarkShutdown()
	s.httpServer.SetKeepAlivesEnabled(false)

	s.cancelRuns()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// IsShuttingDown returns whether the server is shutting down.
func (s *Server) IsShuttingDown() bool {
	return s.inShutdown.Load()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProbeResponse answers with unhealthyStatus when the probe failed.
func (s *Server) writeProbeResponse(w http.ResponseWriter, result *health.ProbeResult, unhealthyStatus int) {
	status := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		status = unhealthyStatus
	}
	writeJSON(w, status, result)
}

// handleLiveness always answers 200, even while shutting down.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeProbeResponse(w, s.probeManager.CheckLiveness(r.Context()), http.StatusOK)
}

// handleReadiness answers 503 while shutting down or when a dependency is unhealthy.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.writeProbeResponse(w, s.probeManager.CheckReadiness(r.Context()), http.StatusServiceUnavailable)
}

// handleStartup answers 503 until the listener is up.
func (s *Server) handleStartup(w http.ResponseWriter, r *http.Request) {
	s.writeProbeResponse(w, s.probeManager.CheckStartup(r.Context()), http.StatusServiceUnavailable)
}
