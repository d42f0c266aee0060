package tracing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Enabled {
		t.Error("expected tracing to be disabled by default")
	}
	if cfg.ExporterType != ExporterNone {
		t.Errorf("expected exporter type 'none', got %s", cfg.ExporterType)
	}
	if cfg.ServiceName != "swiftwire" {
		t.Errorf("expected service name 'swiftwire', got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestNew_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		Enabled:      false,
		ExporterType: ExporterNone,
	}

	tracer, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracer == nil {
		t.Fatal("expected non-nil tracer")
	}

	// Spans still work when disabled, as no-ops.
	_, span := tracer.Start(ctx, "test-span")
	if span == nil {
		t.Error("expected non-nil span")
	}
	span.End()
}

func TestNew_StdoutExporter(t *testing.T) {
	ctx := context.Background()
	buf := &bytes.Buffer{}

	cfg := Config{
		Enabled:      true,
		ExporterType: ExporterStdout,
		ServiceName:  "test-service",
		Environment:  "test",
		SampleRate:   1.0,
		Output:       buf,
	}

	tracer, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer tracer.Shutdown(ctx)

	if tracer.provider == nil {
		t.Error("expected non-nil provider for enabled tracer")
	}
}

func TestCycleSpan(t *testing.T) {
	ctx := context.Background()
	buf := &bytes.Buffer{}

	cfg := Config{
		Enabled:      true,
		ExporterType: ExporterStdout,
		ServiceName:  "test-service",
		SampleRate:   1.0,
		Output:       buf,
	}

	tracer, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, span := tracer.StartCycleSpan(ctx, "cycle-1", 4)
	span.SetClassification("logic", "incremental", false)
	span.SetCacheSize(4)
	span.End()

	if err := tracer.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "reload.cycle") {
		t.Error("expected exported span named reload.cycle")
	}
	if !strings.Contains(out, "cycle-1") {
		t.Error("expected cycle id attribute in export")
	}
}

func TestRequestSpanError(t *testing.T) {
	ctx := context.Background()
	buf := &bytes.Buffer{}

	cfg := Config{
		Enabled:      true,
		ExporterType: ExporterStdout,
		ServiceName:  "test-service",
		SampleRate:   1.0,
		Output:       buf,
	}

	tracer, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, span := tracer.StartRequestSpan(ctx, "build_project", "req-1")
	span.End(errors.New("build failed"))

	if err := tracer.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "remote.request") {
		t.Error("expected exported span named remote.request")
	}
	if !strings.Contains(out, "build failed") {
		t.Error("expected recorded error in export")
	}
}

func TestUnsupportedExporter(t *testing.T) {
	_, err := New(context.Background(), Config{
		Enabled:      true,
		ExporterType: ExporterType("jaeger"),
	})
	if err == nil {
		t.Error("expected error for unsupported exporter type")
	}
}
