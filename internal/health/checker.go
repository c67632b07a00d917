// Package health reports whether auditd can actually run audits: the task
// interpreter must be installed, its script present, and the registered sites
// reachable on disk.
//
//	pm := health.NewProbeManager(version.GetInfo().Version)
//	pm.AddChecker(health.NewCommandChecker("node", script, workspace))
//	pm.AddChecker(health.NewSitesChecker(registry))
package health

import (
	"context"
	"time"
)

// Checker is one named dependency check.
type Checker interface {
	// Name is lowercase with hyphens, e.g. "audit-command"
	Name() string

	// Check must honour ctx and return promptly.
	Check(ctx context.Context) *Result
}

// Status is a check outcome.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Result is the outcome of one check.
type Result struct {
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency_ns"`
}

// NewResult creates a result with the given status and message.
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]any),
	}
}

// WithDetail adds a detail and returns r for chaining.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

// Healthy creates a healthy result.
func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

// Degraded creates a degraded result.
func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}
