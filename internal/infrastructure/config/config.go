// Package config provides configuration structs and utilities for the
// swiftwire application.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the root configuration for the swiftwire application.
type Config struct {
	Remote    RemoteConfig    `yaml:"remote"`
	Project   ProjectConfig   `yaml:"project"`
	Reload    ReloadConfig    `yaml:"reload"`
	Request   RequestConfig   `yaml:"request"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Watcher   WatcherConfig   `yaml:"watcher"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	History   HistoryConfig   `yaml:"history"`
}

// RemoteConfig identifies the remote build host and how to reach it.
type RemoteConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	KeyFile         string        `yaml:"key_file,omitempty"`
	KnownHostsFile  string        `yaml:"known_hosts_file,omitempty"`
	InsecureHostKey bool          `yaml:"insecure_host_key"`
	RemoteCommand   string        `yaml:"remote_command,omitempty"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

// ProjectConfig locates the local project tree.
type ProjectConfig struct {
	Root string `yaml:"root"`
}

// ReloadConfig tunes the reload orchestrator.
type ReloadConfig struct {
	Enabled            bool          `yaml:"enabled"`
	Debounce           time.Duration `yaml:"debounce"`
	PreviewEnabled     bool          `yaml:"preview_enabled"`
	IncrementalEnabled bool          `yaml:"incremental_enabled"`
	HistoryLimit       int           `yaml:"history_limit"`
}

// RequestConfig tunes request/response round trips.
type RequestConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ReconnectConfig tunes recovery from transport loss.
type ReconnectConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// WatcherConfig tunes the file watcher.
type WatcherConfig struct {
	StabilizeWindow time.Duration `yaml:"stabilize_window"`
	Extensions      []string      `yaml:"extensions"`
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
	ServiceName  string  `yaml:"service_name"`
}

// HistoryConfig controls persistent reload-history storage.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path,omitempty"` // defaults to <config dir>/history.db
}

// Default configuration values.
const (
	DefaultPort             = 22
	DefaultConnectTimeout   = 15 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
	DefaultDebounce         = 1000 * time.Millisecond
	DefaultStabilizeWindow  = 100 * time.Millisecond
	DefaultReconnectWait    = 3 * time.Second
	DefaultReconnectRetries = 5
	DefaultHistoryLimit     = 50
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// NewDefaultConfig returns a config populated with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			Port:           DefaultPort,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Project: ProjectConfig{
			Root: ".",
		},
		Reload: ReloadConfig{
			Enabled:            true,
			Debounce:           DefaultDebounce,
			PreviewEnabled:     true,
			IncrementalEnabled: true,
			HistoryLimit:       DefaultHistoryLimit,
		},
		Request: RequestConfig{
			Timeout: DefaultRequestTimeout,
		},
		Reconnect: ReconnectConfig{
			Interval:    DefaultReconnectWait,
			MaxAttempts: DefaultReconnectRetries,
		},
		Watcher: WatcherConfig{
			StabilizeWindow: DefaultStabilizeWindow,
			Extensions:      []string{".swift"},
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			ExporterType: "none",
			SampleRate:   1.0,
			ServiceName:  "swiftwire",
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Remote.Port < 0 || c.Remote.Port > 65535 {
		return fmt.Errorf("remote.port out of range: %d", c.Remote.Port)
	}
	if c.Reload.Debounce < 0 {
		return errors.New("reload.debounce must not be negative")
	}
	if c.Request.Timeout <= 0 {
		return errors.New("request.timeout must be positive")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return errors.New("reconnect.max_attempts must not be negative")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate out of range: %f", c.Tracing.SampleRate)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging.format: %q", c.Logging.Format)
	}
	return nil
}
