package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/auditd/internal/audit"
	"github.com/felixgeelhaar/auditd/internal/auth"
	"github.com/felixgeelhaar/auditd/internal/health"
	"github.com/felixgeelhaar/auditd/internal/metrics"
	"github.com/felixgeelhaar/auditd/internal/runstate"
	"github.com/felixgeelhaar/auditd/internal/server"
	"github.com/felixgeelhaar/auditd/internal/site"
	"github.com/felixgeelhaar/auditd/internal/telemetry"
	"github.com/felixgeelhaar/auditd/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the dashboard HTTP server.

Routes behind authentication (Basic or ?token=):
  /                   dashboard page with the session token injected
  /api/sites          registered sites with availability and run state
  /api/audit/{slug}   start an audit and stream its output (SSE)
  /*                  static files from the static directory

Unauthenticated:
  /health/live, /health/ready, /health/startup, /healthz
  /metrics

On SIGINT or SIGTERM running audits are stopped and connections drain
for up to --shutdown-timeout.

Example:
  DASH_PASS=secret auditd serve --sites sites.json --static ./public
  auditd serve --config /etc/auditd/auditd.yaml --port 8080`,
	RunE: runServe,
}

var (
	servePort            int
	serveAddress         string
	serveSites           string
	serveStatic          string
	serveShutdownTimeout time.Duration
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (default 4242, env PORT)")
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "address to bind to (default all interfaces)")
	serveCmd.Flags().StringVar(&serveSites, "sites", "", "sites file, JSON or YAML (env AUDITD_SITES)")
	serveCmd.Flags().StringVar(&serveStatic, "static", "", "directory with index.html and assets (env AUDITD_STATIC_DIR)")
	serveCmd.Flags().DurationVar(&serveShutdownTimeout, "shutdown-timeout", 0, "maximum time to drain connections on shutdown (default 30s)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	if flags.Changed("address") {
		cfg.Server.Address = serveAddress
	}
	if flags.Changed("sites") {
		cfg.Sites = serveSites
	}
	if flags.Changed("static") {
		cfg.StaticDir = serveStatic
	}
	if flags.Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeout = serveShutdownTimeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	info := version.GetInfo()
	logger := newLogger(cfg)

	shutdownTracing, err := telemetry.InitProvider(ctx, telemetry.Config{
		ServiceName:    "auditd",
		ServiceVersion: info.Version,
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	registry, err := site.Load(cfg.Sites)
	if err != nil {
		return err
	}
	logger.Info("loaded sites", "file", cfg.Sites, "count", registry.Len())

	promRegistry, m := metrics.NewRegistry()
	tracker := runstate.NewTracker()

	coord := audit.NewCoordinator(registry, tracker, audit.Config{
		Command:   cfg.Audit.Command,
		Script:    cfg.Audit.Script,
		Workspace: cfg.Audit.Workspace,
		KeepAlive: cfg.Audit.KeepAlive,
	},
		audit.WithLogger(logger.WithGroup("audit")),
		audit.WithMetrics(m),
		audit.WithTracerProvider(telemetry.GetTracerProvider()),
		audit.WithLauncher(audit.ProcessLauncher{KillGrace: cfg.Audit.KillGrace}),
	)

	guard := auth.NewGuard(auth.Credentials{
		Username: cfg.Auth.Username,
		Password: cfg.Auth.Password,
		Token:    auth.NewToken(),
	})

	pm := health.NewProbeManager(info.Version)
	pm.AddChecker(health.NewCommandChecker(cfg.Audit.Command, cfg.Audit.Script, cfg.Audit.Workspace))
	pm.AddChecker(health.NewSitesChecker(registry))

	srv := server.NewServer(server.Config{
		Address:         cfg.Addr(),
		StaticDir:       cfg.StaticDir,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, server.Dependencies{
		Coordinator: coord,
		Guard:       guard,
		Probes:      pm,
		Metrics:     m,
		Gatherer:    promRegistry,
		Logger:      logger,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("shutting down", "running_audits", tracker.Len())

		// ctx is already cancelled; the drain gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		if err := <-serverErr; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		logger.Info("server stopped")
		return nil
	}
}
