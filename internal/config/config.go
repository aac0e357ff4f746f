// Package config handles configuration loading, validation, and management for zevtool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/caarlos0/env/v11"
)

// Config holds the complete CLI configuration.
type Config struct {
	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Export configuration for the json and dot commands.
	Export ExportConfig `toml:"export" json:"export" yaml:"export"`

	// Watch configuration for container monitoring.
	Watch WatchConfig `toml:"watch" json:"watch" yaml:"watch"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level" env:"ZEVTOOL_LOG_LEVEL"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format" env:"ZEVTOOL_LOG_FORMAT"`

	// Output is the log output: "stdout", "stderr" or "file".
	Output string `toml:"output" json:"output" yaml:"output" env:"ZEVTOOL_LOG_OUTPUT"`

	// FilePath is the path to the log file (when Output is "file").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path" env:"ZEVTOOL_LOG_PATH"`
}

// ExportConfig controls structured event export.
type ExportConfig struct {
	// Format is "json" or "yaml" for the summary, or "full" for the
	// complete event.
	Format string `toml:"format" json:"format" yaml:"format" env:"ZEVTOOL_EXPORT_FORMAT"`

	// Indent is the number of spaces per nesting level.
	Indent int `toml:"indent" json:"indent" yaml:"indent" env:"ZEVTOOL_EXPORT_INDENT"`
}

// WatchConfig controls the container watcher.
type WatchConfig struct {
	// DebounceMs collapses bursts of writes to one file into one check.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms" env:"ZEVTOOL_WATCH_DEBOUNCE_MS"`

	// Extensions lists the file extensions treated as containers.
	Extensions []string `toml:"extensions" json:"extensions" yaml:"extensions" env:"ZEVTOOL_WATCH_EXTENSIONS" envSeparator:","`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Export: ExportConfig{
			Format: "json",
			Indent: 2,
		},
		Watch: WatchConfig{
			DebounceMs: 200,
			Extensions: []string{".dat"},
		},
	}
}

// Dir returns the zevtool configuration directory.
// ZEVTOOL_CONFIG_DIR overrides the platform default.
func Dir() string {
	if envDir := os.Getenv("ZEVTOOL_CONFIG_DIR"); envDir != "" {
		return envDir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "zevtool")
	}
	return filepath.Join(os.TempDir(), "zevtool")
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads configuration from the specified path, applies environment
// overrides and validates the result. A missing file yields defaults.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies ZEVTOOL_* environment variables on top of the
// current values.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Watch.Extensions = slices.Clone(c.Watch.Extensions)
	return &clone
}
