package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "port too high", mutate: func(c *Config) { c.Remote.Port = 70000 }, wantErr: true},
		{name: "negative port", mutate: func(c *Config) { c.Remote.Port = -1 }, wantErr: true},
		{name: "negative debounce", mutate: func(c *Config) { c.Reload.Debounce = -time.Second }, wantErr: true},
		{name: "zero request timeout", mutate: func(c *Config) { c.Request.Timeout = 0 }, wantErr: true},
		{name: "negative reconnect attempts", mutate: func(c *Config) { c.Reconnect.MaxAttempts = -1 }, wantErr: true},
		{name: "sample rate above one", mutate: func(c *Config) { c.Tracing.SampleRate = 1.5 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "chatty" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoaderReturnsDefaultsWhenMissing(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	cfg, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Remote.Port != DefaultPort {
		t.Errorf("expected default port %d, got %d", DefaultPort, cfg.Remote.Port)
	}
}

func TestLoaderSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	cfg := NewDefaultConfig()
	cfg.Remote.Host = "build-host.local"
	cfg.Remote.User = "dev"
	cfg.Reload.Debounce = 250 * time.Millisecond

	if err := loader.Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Remote.Host != "build-host.local" {
		t.Errorf("host not round-tripped, got %q", loaded.Remote.Host)
	}
	if loaded.Reload.Debounce != 250*time.Millisecond {
		t.Errorf("debounce not round-tripped, got %s", loaded.Reload.Debounce)
	}
}

func TestLoaderRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("remote: [not a mapping"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	if _, err := loader.Load(path); err == nil {
		t.Error("expected error for malformed config file")
	}
}
