package telemetry

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitProviderDisabled(t *testing.T) {
	ctx := context.Background()
	shutdown, err := InitProvider(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}

	if _, ok := GetTracerProvider().(noop.TracerProvider); !ok {
		t.Errorf("expected noop provider, got %T", GetTracerProvider())
	}
}

func TestInitProviderEnabledWithoutExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.SampleRate = 0.5

	ctx := context.Background()
	shutdown, err := InitProvider(ctx, cfg)
	if err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	t.Cleanup(func() { SetTracerProvider(noop.NewTracerProvider()) })

	if _, ok := GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Errorf("expected sdk provider, got %T", GetTracerProvider())
	}
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}

func TestInitProviderWithEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = "localhost:4318"
	cfg.Insecure = true

	shutdown, err := InitProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	t.Cleanup(func() { SetTracerProvider(noop.NewTracerProvider()) })

	// Nothing was recorded, so shutdown has nothing to export.
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}
