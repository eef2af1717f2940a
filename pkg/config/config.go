// Package config loads and persists the macrokit runtime configuration
// from ~/.macrokit/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file is missing or partial.
const (
	DefaultControlAddr    = "127.0.0.1:8087"
	DefaultTimeoutSeconds = 60
	DefaultTimeoutStepMS  = 200
)

// Config is the runtime configuration.
type Config struct {
	// MacrosDir is the root directory for macro files and the file
	// bridge sandbox.
	MacrosDir string `yaml:"macros_dir"`

	// ControlAddr is the listen address of the TCP control protocol.
	ControlAddr string `yaml:"control_addr"`

	// Headless launches the browser without a window.
	Headless bool `yaml:"headless"`

	// TimeoutSeconds is the default !TIMEOUT budget.
	TimeoutSeconds float64 `yaml:"timeout_seconds"`

	// TimeoutStepMS is the default !TIMEOUT_STEP polling interval.
	TimeoutStepMS int `yaml:"timeout_step_ms"`

	// DenyPatterns are glob patterns the file bridge refuses to touch.
	DenyPatterns []string `yaml:"deny_patterns"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MacrosDir:      defaultMacrosDir(),
		ControlAddr:    DefaultControlAddr,
		Headless:       true,
		TimeoutSeconds: DefaultTimeoutSeconds,
		TimeoutStepMS:  DefaultTimeoutStepMS,
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(homeDir, ".macrokit", "config.yaml")
}

func defaultMacrosDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "macros"
	}
	return filepath.Join(homeDir, ".macrokit", "macros")
}

// Load reads a config file, filling missing fields with defaults. A
// missing file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.MacrosDir == "" {
		cfg.MacrosDir = defaultMacrosDir()
	}
	if cfg.ControlAddr == "" {
		cfg.ControlAddr = DefaultControlAddr
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.TimeoutStepMS < 0 {
		cfg.TimeoutStepMS = DefaultTimeoutStepMS
	}
	return cfg, nil
}

// Save writes the configuration, creating the parent directory when
// needed.
func (c Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}
