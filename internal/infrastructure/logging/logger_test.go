package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		check  func(t *testing.T, buf *bytes.Buffer)
	}{
		{
			name: "text format",
			config: Config{
				Level:  LevelInfo,
				Format: FormatText,
			},
			check: func(t *testing.T, buf *bytes.Buffer) {
				if !strings.Contains(buf.String(), "level=INFO") {
					t.Error("expected text format with level=INFO")
				}
			},
		},
		{
			name: "json format",
			config: Config{
				Level:  LevelInfo,
				Format: FormatJSON,
			},
			check: func(t *testing.T, buf *bytes.Buffer) {
				var m map[string]interface{}
				if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
					t.Errorf("expected valid JSON output: %v", err)
				}
				if m["level"] != "INFO" {
					t.Errorf("expected level INFO, got %v", m["level"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.config.Output = buf

			logger := New(tt.config)
			logger.Info("test message")

			tt.check(t, buf)
		})
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		logMethod func(l *Logger)
		expected  bool
	}{
		{
			name:      "debug at debug level",
			level:     LevelDebug,
			logMethod: func(l *Logger) { l.Debug("test") },
			expected:  true,
		},
		{
			name:      "debug at info level",
			level:     LevelInfo,
			logMethod: func(l *Logger) { l.Debug("test") },
			expected:  false,
		},
		{
			name:      "info at info level",
			level:     LevelInfo,
			logMethod: func(l *Logger) { l.Info("test") },
			expected:  true,
		},
		{
			name:      "warn at error level",
			level:     LevelError,
			logMethod: func(l *Logger) { l.Warn("test") },
			expected:  false,
		},
		{
			name:      "error at error level",
			level:     LevelError,
			logMethod: func(l *Logger) { l.Error("test") },
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(Config{
				Level:  tt.level,
				Format: FormatText,
				Output: buf,
			})

			tt.logMethod(logger)

			hasOutput := buf.Len() > 0
			if hasOutput != tt.expected {
				t.Errorf("expected output=%v, got output=%v", tt.expected, hasOutput)
			}
		})
	}
}

func TestContextEnrichment(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: buf,
	})

	ctx := context.Background()
	ctx = WithSessionID(ctx, "session-1")
	ctx = WithCycleID(ctx, "cycle-7")
	ctx = WithRequestID(ctx, "req-42")

	logger.InfoContext(ctx, "enriched")

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}
	if m["session_id"] != "session-1" {
		t.Errorf("expected session_id attribute, got %v", m["session_id"])
	}
	if m["cycle_id"] != "cycle-7" {
		t.Errorf("expected cycle_id attribute, got %v", m["cycle_id"])
	}
	if m["request_id"] != "req-42" {
		t.Errorf("expected request_id attribute, got %v", m["request_id"])
	}
}

func TestWith(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: buf,
	})

	child := logger.With("component", "orchestrator")
	child.Info("hello")

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}
	if m["component"] != "orchestrator" {
		t.Errorf("expected component attribute, got %v", m["component"])
	}
}

func TestDomainHelpers(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{
		Level:  LevelDebug,
		Format: FormatText,
		Output: buf,
	})
	ctx := context.Background()

	LogCycleStart(ctx, logger, "cycle-1", 3)
	LogCycleComplete(ctx, logger, "cycle-1", "incremental", 1200000000)
	LogRequestSent(ctx, logger, "build_project", "req-1")
	LogReconnectAttempt(ctx, logger, 2, 5)

	out := buf.String()
	for _, want := range []string{
		"reload cycle started",
		"reload cycle completed",
		"request sent",
		"reconnect attempt",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}
