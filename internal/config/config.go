// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > embedded > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFreshnessWindow is how long a monitor serves cached data before re-measuring.
const DefaultFreshnessWindow = 30 * time.Second

// DefaultRetryBackoff limits how often a failing monitor re-runs its measurement.
const DefaultRetryBackoff = 10 * time.Second

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "15s", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all monitor configuration.
type Config struct {
	Monitors   MonitorsConfig   `yaml:"monitors"`
	Host       HostConfig       `yaml:"host"`
	Collection CollectionConfig `yaml:"collection"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// MonitorsConfig selects which monitor categories may activate.
type MonitorsConfig struct {
	// Enabled lists "<category>" or "<category>.<variant>" tokens.
	// A category missing from the list never activates.
	Enabled         []string `yaml:"enabled"`
	FreshnessWindow Duration `yaml:"freshness_window"`
	RetryBackoff    Duration `yaml:"retry_backoff"`
}

// HostConfig describes the compute host the monitors inspect.
type HostConfig struct {
	ComputeDriver  string   `yaml:"compute_driver"`
	LibvirtURI     string   `yaml:"libvirt_uri"`
	CommandTimeout Duration `yaml:"command_timeout"`
}

// CollectionConfig holds polling settings for the scheduler.
type CollectionConfig struct {
	Interval Duration `yaml:"interval"`
	Timeout  Duration `yaml:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// TelemetryConfig controls the self-metrics endpoint. An empty address disables it.
type TelemetryConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns the default configuration.
// No monitor is enabled by default.
func DefaultConfig() *Config {
	return &Config{
		Monitors: MonitorsConfig{
			Enabled:         []string{},
			FreshnessWindow: Duration{DefaultFreshnessWindow},
			RetryBackoff:    Duration{DefaultRetryBackoff},
		},
		Host: HostConfig{
			ComputeDriver:  "libvirt.LibvirtDriver",
			LibvirtURI:     "qemu:///system",
			CommandTimeout: Duration{10 * time.Second},
		},
		Collection: CollectionConfig{
			Interval: Duration{60 * time.Second},
			Timeout:  Duration{20 * time.Second},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables take highest precedence and override values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// CLIOverrides holds values from command-line flags.
// Zero values are treated as "not set" and skipped.
type CLIOverrides struct {
	Enabled  []string
	LogLevel string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value  → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file %s: %w", filePath, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if cli.Enabled != nil {
		cfg.Monitors.Enabled = cli.Enabled
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

func applyEnvOverrides(cfg *Config) {
	if enabled, ok := os.LookupEnv("HOSTMON_ENABLED_MONITORS"); ok {
		cfg.Monitors.Enabled = SplitList(enabled)
	}
	if driver := os.Getenv("HOSTMON_COMPUTE_DRIVER"); driver != "" {
		cfg.Host.ComputeDriver = driver
	}
	if uri := os.Getenv("HOSTMON_LIBVIRT_URI"); uri != "" {
		cfg.Host.LibvirtURI = uri
	}
	if level := os.Getenv("HOSTMON_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// SplitList splits a comma separated token list, dropping blanks.
func SplitList(raw string) []string {
	out := []string{}
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	for i, tok := range c.Monitors.Enabled {
		if strings.TrimSpace(tok) == "" {
			return fmt.Errorf("monitors.enabled[%d] is empty", i)
		}
		if strings.Count(tok, ".") > 1 {
			return fmt.Errorf("monitors.enabled[%d]: %q must be <category> or <category>.<variant>", i, tok)
		}
	}
	if c.Monitors.FreshnessWindow.Duration < 0 {
		return fmt.Errorf("monitors.freshness_window must not be negative (got: %s)", c.Monitors.FreshnessWindow)
	}
	if c.Monitors.RetryBackoff.Duration < 0 {
		return fmt.Errorf("monitors.retry_backoff must not be negative (got: %s)", c.Monitors.RetryBackoff)
	}
	if c.Collection.Interval.Duration <= 0 {
		return fmt.Errorf("collection.interval must be positive (got: %s)", c.Collection.Interval)
	}
	if c.Collection.Timeout.Duration <= 0 {
		return fmt.Errorf("collection.timeout must be positive (got: %s)", c.Collection.Timeout)
	}
	if c.Host.CommandTimeout.Duration <= 0 {
		return fmt.Errorf("host.command_timeout must be positive (got: %s)", c.Host.CommandTimeout)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
