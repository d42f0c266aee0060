package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader handles loading configuration from files.
type Loader struct {
	configDir string
}

// NewLoader creates a new configuration loader.
// If configDir is empty, it defaults to ~/.swiftwire.
func NewLoader(configDir string) (*Loader, error) {
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".swiftwire")
	}

	return &Loader{configDir: configDir}, nil
}

// Dir returns the loader's configuration directory.
func (l *Loader) Dir() string {
	return l.configDir
}

// Load loads configuration from the specified file or default location.
// If the file doesn't exist, returns the default configuration.
func (l *Loader) Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(l.configDir, "config.yaml")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the default location, creating the
// configuration directory if necessary.
func (l *Loader) Save(cfg *Config) error {
	if err := os.MkdirAll(l.configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(l.configDir, "config.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
