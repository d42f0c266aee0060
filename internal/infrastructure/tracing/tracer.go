// Package tracing provides OpenTelemetry-based tracing infrastructure.
// It supports multiple exporters (stdout, OTLP) and provides domain-specific
// span helpers for reload cycles and remote requests.
package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// TracerName is the name used for the swiftwire tracer.
	TracerName = "github.com/swiftwire/swiftwire"

	// Version is the semantic version of the tracer.
	Version = "1.0.0"
)

// ExporterType defines the type of trace exporter.
type ExporterType string

const (
	ExporterNone   ExporterType = "none"
	ExporterStdout ExporterType = "stdout"
	ExporterOTLP   ExporterType = "otlp"
)

// Config holds tracing configuration.
type Config struct {
	Enabled      bool         // Whether tracing is enabled
	ExporterType ExporterType // Type of exporter to use
	OTLPEndpoint string       // OTLP collector endpoint (for OTLP exporter)
	ServiceName  string       // Service name for traces
	Environment  string       // Deployment environment (development, production)
	SampleRate   float64      // Sampling rate (0.0 to 1.0)
	Output       io.Writer    // Output for stdout exporter (defaults to os.Stdout)
}

// DefaultConfig returns sensible default tracing configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		ExporterType: ExporterNone,
		ServiceName:  "swiftwire",
		Environment:  "development",
		SampleRate:   1.0,
	}
}

// Tracer wraps an OpenTelemetry tracer with domain-specific functionality.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	config   Config
}

// global is the package-level default tracer.
var (
	global     *Tracer
	globalOnce sync.Once
)

// Init initializes the global tracer with the provided configuration.
func Init(ctx context.Context, cfg Config) (*Tracer, error) {
	var err error
	globalOnce.Do(func() {
		global, err = New(ctx, cfg)
	})
	return global, err
}

// Default returns the global tracer, or a no-op tracer if not initialized.
func Default() *Tracer {
	if global == nil {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer(TracerName),
			config: DefaultConfig(),
		}
	}
	return global
}

// New creates a new Tracer with the provided configuration.
func New(ctx context.Context, cfg Config) (*Tracer, error) {
	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer(TracerName),
			config: cfg,
		}, nil
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	// Create resource without merging with Default() to avoid schema URL conflicts.
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
			attribute.String("deployment.environment", cfg.Environment),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0.0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer(TracerName, trace.WithInstrumentationVersion(Version)),
		provider: provider,
		config:   cfg,
	}, nil
}

// createExporter creates the appropriate exporter based on configuration.
func createExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		opts := []stdouttrace.Option{
			stdouttrace.WithPrettyPrint(),
		}
		if cfg.Output != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Output))
		}
		return stdouttrace.New(opts...)

	case ExporterOTLP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithInsecure(),
		}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}
}

// Shutdown gracefully shuts down the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// Start starts a new span with the given name.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// --- Domain-specific span helpers ---

// CycleSpan represents a reload-cycle span.
type CycleSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartCycleSpan starts a span for one reload cycle.
func (t *Tracer) StartCycleSpan(ctx context.Context, cycleID string, fileCount int) (context.Context, *CycleSpan) {
	ctx, span := t.tracer.Start(ctx, "reload.cycle",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cycle.id", cycleID),
			attribute.Int("cycle.file_count", fileCount),
		),
	)

	return ctx, &CycleSpan{span: span, ctx: ctx}
}

// SetClassification records the batch classification and chosen strategy.
func (cs *CycleSpan) SetClassification(classification, strategy string, forcesFull bool) {
	cs.span.SetAttributes(
		attribute.String("cycle.classification", classification),
		attribute.String("cycle.strategy", strategy),
		attribute.Bool("cycle.forces_full_rebuild", forcesFull),
	)
}

// SetCacheSize records the build cache size after the cycle.
func (cs *CycleSpan) SetCacheSize(entries int) {
	cs.span.SetAttributes(attribute.Int("cycle.cache_entries", entries))
}

// End ends the cycle span with success status.
func (cs *CycleSpan) End() {
	cs.span.SetStatus(codes.Ok, "cycle completed successfully")
	cs.span.End()
}

// EndWithError ends the cycle span with error status.
func (cs *CycleSpan) EndWithError(err error) {
	cs.span.RecordError(err)
	cs.span.SetStatus(codes.Error, err.Error())
	cs.span.End()
}

// RequestSpan represents one correlated request/response round trip.
type RequestSpan struct {
	span trace.Span
}

// StartRequestSpan starts a span for a remote request.
func (t *Tracer) StartRequestSpan(ctx context.Context, msgType, requestID string) (context.Context, *RequestSpan) {
	ctx, span := t.tracer.Start(ctx, "remote.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("request.type", msgType),
			attribute.String("request.id", requestID),
		),
	)

	return ctx, &RequestSpan{span: span}
}

// End ends the request span, recording err if non-nil.
func (rs *RequestSpan) End(err error) {
	if err != nil {
		rs.span.RecordError(err)
		rs.span.SetStatus(codes.Error, err.Error())
	} else {
		rs.span.SetStatus(codes.Ok, "")
	}
	rs.span.End()
}
