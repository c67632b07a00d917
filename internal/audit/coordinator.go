// Package audit coordinates audit runs: it validates a request against the
// site registry, holds the site's run slot for the lifetime of the task, and
// turns the task's output and exit into an ordered event stream.
//
// A run moves through Idle, Reserved, Running and Terminating and always ends
// back in Idle. The slot is released on every path out of Run, including
// launch failures, client disconnects and server shutdown.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/auditd/internal/errors"
	"github.com/felixgeelhaar/auditd/internal/exec"
	"github.com/felixgeelhaar/auditd/internal/log"
	"github.com/felixgeelhaar/auditd/internal/metrics"
	"github.com/felixgeelhaar/auditd/internal/runstate"
	"github.com/felixgeelhaar/auditd/internal/site"
	"github.com/felixgeelhaar/auditd/internal/stream"
	"github.com/felixgeelhaar/auditd/internal/telemetry"
)

// RunIDEnv is set in the task's environment to the run's ID.
const RunIDEnv = "AUDITD_RUN_ID"

// Rejection reasons recorded in metrics
const (
	reasonNotFound           = "not_found"
	reasonContentUnavailable = "content_unavailable"
	reasonConflict           = "conflict"
)

// Config describes how to invoke the audit task.
type Config struct {
	// Command is the interpreter or binary, e.g. "node"
	Command string
	// Script is passed as the first argument, before the site arguments
	Script string
	// Workspace is the task's working directory
	Workspace string
	// KeepAlive is the interval between SSE comments while the task is
	// quiet; zero disables them
	KeepAlive time.Duration
}

// Sink receives a run's events. A Send error means nobody is listening any
// more.
type Sink interface {
	Send(ev stream.Event) error
}

// commenter is implemented by sinks that can carry keep-alive comments.
type commenter interface {
	Comment(text string) error
}

// SinkOpener opens the event stream for a run once its slot is reserved.
// Callers use it to delay committing to a streaming response until every
// precondition has passed.
type SinkOpener func(runID string) (Sink, error)

// Request is a validated audit request.
type Request struct {
	Site    site.Descriptor
	Command exec.Command
}

// SiteStatus is a registered site together with its live state.
type SiteStatus struct {
	site.Descriptor
	Available bool `json:"available"`
	Running   bool `json:"running"`
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithTracerProvider sets the tracer provider used for run spans
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Coordinator) { c.tracer = tp.Tracer(telemetry.TracerName) }
}

// WithLauncher replaces the process launcher
func WithLauncher(l Launcher) Option {
	return func(c *Coordinator) { c.launcher = l }
}

// Coordinator runs audits for the sites of one registry.
type Coordinator struct {
	registry *site.Registry
	tracker  *runstate.Tracker
	cfg      Config

	launcher Launcher
	logger   *log.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// NewCoordinator creates a coordinator. The tracker may be shared with other
// readers, such as a status endpoint.
func NewCoordinator(reg *site.Registry, tr *runstate.Tracker, cfg Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry: reg,
		tracker:  tr,
		cfg:      cfg,
		launcher: ProcessLauncher{},
		logger:   log.Discard(),
		metrics:  metrics.Discard(),
		tracer:   telemetry.GetTracerProvider().Tracer(telemetry.TracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prepare validates slug without touching run state.
func (c *Coordinator) Prepare(slug string) (Request, error) {
	d, ok := c.registry.Lookup(slug)
	if !ok {
		return Request{}, errors.NewSiteNotFoundError(slug)
	}
	if !d.ContentAvailable() {
		return Request{}, errors.NewContentUnavailableError(d.Slug, d.ContentDir)
	}

	return Request{
		Site: d,
		Command: exec.Command{
			Path: c.cfg.Command,
			Args: c.taskArgs(d),
			Dir:  c.cfg.Workspace,
		},
	}, nil
}

func (c *Coordinator) taskArgs(d site.Descriptor) []string {
	var args []string
	if c.cfg.Script != "" {
		args = append(args, c.cfg.Script)
	}
	return append(args,
		"--dir", d.ContentDir,
		"--url", d.URL,
		"--name", d.Name,
		"--slug", d.Slug,
	)
}

// Statuses reports every registered site in registry order.
func (c *Coordinator) Statuses() []SiteStatus {
	sites := c.registry.All()
	out := make([]SiteStatus, len(sites))
	for i, d := range sites {
		out[i] = SiteStatus{
			Descriptor: d,
			Available:  d.ContentAvailable(),
			Running:    c.tracker.IsRunning(d.Slug),
		}
	}
	return out
}

// Run executes one audit for slug.
//
// Validation and conflict errors are returned before open is called and leave
// any in-flight run untouched. Once open succeeds every outcome is reported
// through the sink: a start event, one log event per output line, and a
// single done or error event. If ctx ends first (client gone, server
// stopping) the task is killed and no further events are sent.
//
// The returned error describes the outcome for logging; it is nil only for a
// task that exited 0.
func (c *Coordinator) Run(ctx context.Context, slug string, open SinkOpener) error {
	req, err := c.Prepare(slug)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeSiteNotFound) {
			c.metrics.RunsRejected.WithLabelValues(slug, reasonNotFound).Inc()
		} else {
			c.metrics.RunsRejected.WithLabelValues(slug, reasonContentUnavailable).Inc()
		}
		return err
	}

	if !c.tracker.TryReserve(req.Site.Slug) {
		c.metrics.RunsRejected.WithLabelValues(slug, reasonConflict).Inc()
		return errors.NewRunConflictError(slug)
	}
	defer c.tracker.Release(req.Site.Slug)

	runID := uuid.NewString()
	logger := c.logger.With("slug", slug, "run_id", runID)

	sink, err := open(runID)
	if err != nil {
		logger.WithError(err).Warn("could not open event stream")
		return err
	}

	ctx, span := telemetry.StartRunSpan(ctx, c.tracer, slug, runID)
	defer span.End()

	r := &run{
		Coordinator: c,
		req:         req,
		runID:       runID,
		sink:        sink,
		logger:      logger,
		span:        span,
		started:     time.Now(),
		outcome:     metrics.OutcomeAborted,
	}
	c.metrics.RunStarted(slug)
	defer func() { c.metrics.RunFinished(slug, r.outcome, time.Since(r.started)) }()

	err = r.execute(ctx)
	if err != nil && r.outcome != metrics.OutcomeAborted {
		telemetry.RecordError(span, err)
		c.metrics.Errors.WithLabelValues(string(errors.CodeOf(err)), "audit").Inc()
	}
	return err
}

// run is the state of one reserved run.
type run struct {
	*Coordinator

	req     Request
	runID   string
	sink    Sink
	logger  *log.Logger
	span    trace.Span
	started time.Time
	outcome string
	lines   int
}

func (r *run) execute(ctx context.Context) error {
	name := r.req.Site.Name

	if err := r.sink.Send(stream.Start(fmt.Sprintf("Audit gestart voor %s...", name))); err != nil {
		return r.aborted("client went away before start", err)
	}

	cmd := r.req.Command
	cmd.Env = append(cmd.Env, RunIDEnv+"="+r.runID)

	h, err := r.launcher.Launch(ctx, cmd)
	if err != nil {
		r.outcome = metrics.OutcomeLaunchFailed
		r.logger.WithError(err).Error("audit task failed to start", "command", cmd.String())
		_ = r.sink.Send(stream.Error("❌ Audit kon niet starten"))
		return err
	}

	logger := r.logger.With("pid", h.PID())
	logger.Info("audit started", "command", cmd.String())

	var keepalive <-chan time.Time
	pinger, canPing := r.sink.(commenter)
	if canPing && r.cfg.KeepAlive > 0 {
		ticker := time.NewTicker(r.cfg.KeepAlive)
		defer ticker.Stop()
		keepalive = ticker.C
	}

	// Done is only watched once Lines is closed so that every log event
	// precedes the terminal event.
	lines := h.Lines()
	var done <-chan exec.Exit

	for {
		select {
		case <-ctx.Done():
			r.stop(h)
			return r.aborted("audit cancelled", ctx.Err())

		case l, ok := <-lines:
			if !ok {
				lines = nil
				done = h.Done()
				continue
			}
			r.lines++
			r.metrics.LogLines.WithLabelValues(r.req.Site.Slug, l.Stream.String()).Inc()
			if err := r.sink.Send(stream.Log(l.Text)); err != nil {
				r.stop(h)
				return r.aborted("client disconnected", err)
			}

		case <-keepalive:
			if err := pinger.Comment("ping"); err != nil {
				r.stop(h)
				return r.aborted("client disconnected", err)
			}

		case exit := <-done:
			return r.finish(logger, h, exit)
		}
	}
}

// stop kills the task and waits until it has been reaped.
func (r *run) stop(h Handle) {
	h.Kill()
	exit := <-h.Done()
	telemetry.RecordExit(r.span, h.PID(), exit.Code, exit.Duration)
}

func (r *run) aborted(msg string, cause error) error {
	r.outcome = metrics.OutcomeAborted
	r.logger.Info(msg, "duration", time.Since(r.started))
	return errors.Wrap(errors.ErrCodeRunAborted, msg, cause)
}

func (r *run) finish(logger *log.Logger, h Handle, exit exec.Exit) error {
	telemetry.RecordExit(r.span, h.PID(), exit.Code, exit.Duration)
	name := r.req.Site.Name

	if exit.Success() {
		r.outcome = metrics.OutcomeSucceeded
		telemetry.RecordSuccess(r.span)
		logger.Info("audit finished", "exit_code", exit.Code, "duration", exit.Duration, "lines", r.lines)
		// The task is done either way; a lost done event changes nothing.
		_ = r.sink.Send(stream.Done(fmt.Sprintf("✅ Audit klaar voor %s", name)))
		return nil
	}

	r.outcome = metrics.OutcomeFailed
	err := errors.NewTaskFailedError(r.req.Site.Slug, exit.Code)
	if exit.Err != nil {
		err.Cause = exit.Err
	}
	logger.WithError(err).Warn("audit failed", "exit_code", exit.Code, "duration", exit.Duration, "lines", r.lines)
	_ = r.sink.Send(stream.Error(fmt.Sprintf("❌ Audit mislukt (exit %d)", exit.Code)))
	return err
}
