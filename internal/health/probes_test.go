package health

import (
	"context"
	"testing"
)

func TestProbeLifecycle(t *testing.T) {
	pm := NewProbeManager("1.2.3")
	ctx := context.Background()

	if got := pm.CheckStartup(ctx).Status; got != StatusUnhealthy {
		t.Errorf("startup before init = %s, want unhealthy", got)
	}

	pm.MarkInitialized()

	if got := pm.CheckStartup(ctx).Status; got != StatusHealthy {
		t.Errorf("startup after init = %s, want healthy", got)
	}
	if got := pm.CheckLiveness(ctx); got.Status != StatusHealthy || got.Version != "1.2.3" {
		t.Errorf("liveness = %+v, want healthy 1.2.3", got)
	}

	pm.MarkShutdown()

	if got := pm.CheckLiveness(ctx).Status; got != StatusDegraded {
		t.Errorf("liveness in shutdown = %s, want degraded", got)
	}
	if got := pm.CheckReadiness(ctx).Status; got != StatusUnhealthy {
		t.Errorf("readiness in shutdown = %s, want unhealthy", got)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name     string
		checkers []Checker
		want     Status
	}{
		{"no checkers", nil, StatusHealthy},
		{"all passing", []Checker{
			&mockChecker{name: "audit-command", result: Healthy("ok")},
			&mockChecker{name: "sites", result: Healthy("ok")},
		}, StatusHealthy},
		{"sites degraded", []Checker{
			&mockChecker{name: "audit-command", result: Healthy("ok")},
			&mockChecker{name: "sites", result: Degraded("1 of 2 sites available")},
		}, StatusDegraded},
		{"command missing", []Checker{
			&mockChecker{name: "audit-command", result: Unhealthy("node not found in PATH")},
		}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := NewProbeManager("dev")
			for _, c := range tt.checkers {
				pm.AddChecker(c)
			}

			result := pm.CheckReadiness(context.Background())
			if result.Status != tt.want {
				t.Errorf("status = %s, want %s", result.Status, tt.want)
			}
			if len(result.Checks) != len(tt.checkers) {
				t.Errorf("got %d checks, want %d", len(result.Checks), len(tt.checkers))
			}
		})
	}
}
