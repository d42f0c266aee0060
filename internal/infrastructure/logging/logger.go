// Package logging provides structured logging infrastructure for the
// swiftwire application. It wraps Go's standard log/slog package with
// context-aware logging and domain-specific log attributes.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// contextKey is used for storing logger-related values in context.
type contextKey string

const (
	// SessionIDKey is the context key for session IDs.
	SessionIDKey contextKey = "session_id"
	// CycleIDKey is the context key for reload-cycle IDs.
	CycleIDKey contextKey = "cycle_id"
	// RequestIDKey is the context key for request correlation IDs.
	RequestIDKey contextKey = "request_id"
	// RemoteHostKey is the context key for the remote host.
	RemoteHostKey contextKey = "remote_host"
)

// Level represents log levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format represents log output formats.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	AddSource  bool
	TimeFormat string
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     os.Stderr,
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

// Logger wraps slog.Logger with additional functionality for swiftwire.
type Logger struct {
	slogger *slog.Logger
	level   slog.Level
}

// global is the package-level default logger.
var (
	global     *Logger
	globalOnce sync.Once
)

// Init initializes the global logger with the provided configuration.
func Init(cfg Config) *Logger {
	globalOnce.Do(func() {
		global = New(cfg)
	})
	return global
}

// Default returns the global logger, initializing it with defaults if necessary.
func Default() *Logger {
	if global == nil {
		Init(DefaultConfig())
	}
	return global
}

// New creates a new Logger with the provided configuration.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && cfg.TimeFormat != "" {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.Format(cfg.TimeFormat))
				}
			}
			return a
		},
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		slogger: slog.New(handler),
		level:   level,
	}
}

// parseLevel converts a Level to slog.Level.
func parseLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slogger: l.slogger.With(args...),
		level:   l.level,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// DebugContext logs at debug level with context.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// InfoContext logs at info level with context.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// WarnContext logs at warn level with context.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// ErrorContext logs at error level with context.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// enrichArgs extracts context values and adds them as log attributes.
func (l *Logger) enrichArgs(ctx context.Context, args []any) []any {
	enriched := make([]any, 0, len(args)+8)

	if v := ctx.Value(SessionIDKey); v != nil {
		enriched = append(enriched, "session_id", v)
	}
	if v := ctx.Value(CycleIDKey); v != nil {
		enriched = append(enriched, "cycle_id", v)
	}
	if v := ctx.Value(RequestIDKey); v != nil {
		enriched = append(enriched, "request_id", v)
	}
	if v := ctx.Value(RemoteHostKey); v != nil {
		enriched = append(enriched, "remote_host", v)
	}

	enriched = append(enriched, args...)
	return enriched
}

// Underlying returns the underlying slog.Logger.
func (l *Logger) Underlying() *slog.Logger {
	return l.slogger
}

// --- Context helpers ---

// WithSessionID adds a session ID to the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// WithCycleID adds a reload-cycle ID to the context.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CycleIDKey, id)
}

// WithRequestID adds a request correlation ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithRemoteHost adds the remote host to the context.
func WithRemoteHost(ctx context.Context, host string) context.Context {
	return context.WithValue(ctx, RemoteHostKey, host)
}

// --- Domain-specific logging helpers ---

// LogCycleStart logs the start of a reload cycle.
func LogCycleStart(ctx context.Context, logger *Logger, cycleID string, fileCount int) {
	logger.InfoContext(ctx, "reload cycle started",
		"cycle_id", cycleID,
		"file_count", fileCount,
	)
}

// LogCycleComplete logs the completion of a reload cycle.
func LogCycleComplete(ctx context.Context, logger *Logger, cycleID, strategy string, duration time.Duration) {
	logger.InfoContext(ctx, "reload cycle completed",
		"cycle_id", cycleID,
		"strategy", strategy,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogCycleFailed logs a failed reload cycle.
func LogCycleFailed(ctx context.Context, logger *Logger, cycleID, strategy string, err error, duration time.Duration) {
	logger.ErrorContext(ctx, "reload cycle failed",
		"cycle_id", cycleID,
		"strategy", strategy,
		"error", err.Error(),
		"duration_ms", duration.Milliseconds(),
	)
}

// LogRequestSent logs an outbound request to the remote executor.
func LogRequestSent(ctx context.Context, logger *Logger, msgType, requestID string) {
	logger.DebugContext(ctx, "request sent",
		"type", msgType,
		"request_id", requestID,
	)
}

// LogResponseReceived logs a resolved request.
func LogResponseReceived(ctx context.Context, logger *Logger, msgType, requestID string, latency time.Duration) {
	logger.DebugContext(ctx, "response received",
		"type", msgType,
		"request_id", requestID,
		"latency_ms", latency.Milliseconds(),
	)
}

// LogReconnectAttempt logs one reconnection attempt.
func LogReconnectAttempt(ctx context.Context, logger *Logger, attempt, maxAttempts int) {
	logger.WarnContext(ctx, "reconnect attempt",
		"attempt", attempt,
		"max_attempts", maxAttempts,
	)
}
