package health

import (
	"context"
	"testing"
	"time"
)

// mockChecker is a test double for health checks
type mockChecker struct {
	name   string
	result *Result
	delay  time.Duration
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(ctx context.Context) *Result {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return Unhealthy("check cancelled").
				WithDetail("error", ctx.Err().Error())
		}
	}
	return m.result
}

func TestResultBuilders(t *testing.T) {
	tests := []struct {
		result *Result
		want   Status
	}{
		{Healthy("ok"), StatusHealthy},
		{Degraded("slow"), StatusDegraded},
		{Unhealthy("down"), StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if tt.result.Status != tt.want {
				t.Errorf("status = %s, want %s", tt.result.Status, tt.want)
			}
			tt.result.WithDetail("k", "v")
			if tt.result.Details["k"] != "v" {
				t.Error("detail not recorded")
			}
		})
	}
}

func TestManagerCheck(t *testing.T) {
	m := NewManager()
	m.AddChecker(&mockChecker{name: "a", result: Healthy("ok")})
	m.AddChecker(&mockChecker{name: "b", result: Degraded("slow"), delay: 10 * time.Millisecond})

	if m.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", m.Count())
	}

	results := m.Check(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results["b"].Status != StatusDegraded {
		t.Errorf("b status = %s, want degraded", results["b"].Status)
	}
	if results["b"].Latency < 10*time.Millisecond {
		t.Errorf("b latency = %v, want >= 10ms", results["b"].Latency)
	}
}

func TestManagerCheckTimeout(t *testing.T) {
	m := NewManager().WithTimeout(20 * time.Millisecond)
	m.AddChecker(&mockChecker{name: "slow", result: Healthy("ok"), delay: time.Minute})

	start := time.Now()
	results := m.Check(context.Background())

	if time.Since(start) > 5*time.Second {
		t.Error("check did not honour the timeout")
	}
	if results["slow"].Status != StatusUnhealthy {
		t.Errorf("status = %s, want unhealthy", results["slow"].Status)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]*Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", map[string]*Result{"a": Healthy(""), "b": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]*Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"unhealthy wins", map[string]*Result{"a": Degraded(""), "b": Unhealthy("")}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}
