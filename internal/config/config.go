// ABOUTME: Configuration loading and parsing for the polis server
// ABOUTME: Supports YAML files with environment variable expansion, duration parsing and defaults

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a key is absent.
const (
	DefaultHTTPAddr     = "localhost:8080"
	DefaultLoopInterval = 2 * time.Second
	DefaultExporter     = "stdout"
	DefaultServiceName  = "polis"
	DefaultSeedRoom     = "Public Square"
	DefaultProvider     = "openai"

	// DBPathEnv overrides database.path when set.
	DBPathEnv = "POLIS_DB_PATH"
)

var knownProviders = map[string]bool{"openai": true, "venice": true, "anthropic": true, "scripted": true}

// Config represents the complete polis configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Reasoning ReasoningConfig `yaml:"reasoning"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Polis     PolisConfig     `yaml:"polis"`
	Agents    []AgentConfig   `yaml:"agents"`
}

// ServerConfig holds the dashboard listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration. ":memory:" keeps everything in process.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig holds OpenTelemetry exporter configuration
type TelemetryConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Exporter       string        `yaml:"exporter"`
	ServiceName    string        `yaml:"service_name"`
	MetricInterval time.Duration `yaml:"-"`

	MetricIntervalRaw string `yaml:"metric_interval"`
}

// ReasoningConfig selects the LLM provider
type ReasoningConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Script      string        `yaml:"script"`
	Timeout     time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// CallConfig is one configured tool call
type CallConfig struct {
	Name       string         `yaml:"name"`
	Parameters map[string]any `yaml:"parameters"`
}

// LoopGuardConfig tunes repeated read-only call skipping
type LoopGuardConfig struct {
	Enabled       *bool    `yaml:"enabled"`
	ReadOnlyTools []string `yaml:"read_only_tools"`
}

// SchedulerConfig holds pass pacing and prompt configuration
type SchedulerConfig struct {
	LoopInterval time.Duration   `yaml:"-"`
	HistorySize  int             `yaml:"history_size"`
	SystemPrompt string          `yaml:"system_prompt"`
	PreCalls     []CallConfig    `yaml:"pre_calls"`
	PostCalls    []CallConfig    `yaml:"post_calls"`
	LoopGuard    LoopGuardConfig `yaml:"loop_guard"`

	LoopIntervalRaw string `yaml:"loop_interval"`
}

// PolisConfig holds city bootstrap options
type PolisConfig struct {
	SeedRooms    []string `yaml:"seed_rooms"`
	RestoreRooms *bool    `yaml:"restore_rooms"`
}

// AgentConfig declares one actor registered at startup
type AgentConfig struct {
	ID           string `yaml:"id"`
	Handle       string `yaml:"handle"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	Instructions string `yaml:"instructions"`
}

// LoopGuardEnabled reports whether the loop guard is on. It defaults to on.
func (s SchedulerConfig) LoopGuardEnabled() bool {
	return s.LoopGuard.Enabled == nil || *s.LoopGuard.Enabled
}

// RestoreEnabled reports whether persisted rooms are restored at startup. It defaults to on.
func (p PolisConfig) RestoreEnabled() bool {
	return p.RestoreRooms == nil || *p.RestoreRooms
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML.
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if p := os.Getenv(DBPathEnv); p != "" {
		cfg.Database.Path = p
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Telemetry.Exporter == "" {
		c.Telemetry.Exporter = DefaultExporter
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
	if c.Reasoning.Provider == "" {
		c.Reasoning.Provider = DefaultProvider
	}
	if c.Scheduler.LoopInterval == 0 {
		c.Scheduler.LoopInterval = DefaultLoopInterval
	}
	// An explicit empty list disables seeding.
	if c.Polis.SeedRooms == nil {
		c.Polis.SeedRooms = []string{DefaultSeedRoom}
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required (or set %s)", DBPathEnv)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	switch c.Telemetry.Exporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("telemetry.exporter must be stdout or none, got %q", c.Telemetry.Exporter)
	}

	if !knownProviders[c.Reasoning.Provider] {
		return fmt.Errorf("reasoning.provider %q is not supported", c.Reasoning.Provider)
	}
	if c.Reasoning.MaxTokens < 0 {
		return fmt.Errorf("reasoning.max_tokens must not be negative")
	}

	if c.Scheduler.LoopInterval < 0 {
		return fmt.Errorf("scheduler.loop_interval must be positive")
	}
	if c.Scheduler.HistorySize < 0 {
		return fmt.Errorf("scheduler.history_size must not be negative")
	}
	for i, call := range append(append([]CallConfig{}, c.Scheduler.PreCalls...), c.Scheduler.PostCalls...) {
		if call.Name == "" {
			return fmt.Errorf("scheduler call %d has no name", i)
		}
	}

	seen := make(map[string]bool)
	for i, a := range c.Agents {
		if a.ID == "" {
			continue
		}
		if seen[a.ID] {
			return fmt.Errorf("agents[%d]: duplicate id %q", i, a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Scheduler.LoopIntervalRaw != "" {
		cfg.Scheduler.LoopInterval, err = time.ParseDuration(cfg.Scheduler.LoopIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing loop_interval %q: %w", cfg.Scheduler.LoopIntervalRaw, err)
		}
	}

	if cfg.Reasoning.TimeoutRaw != "" {
		cfg.Reasoning.Timeout, err = time.ParseDuration(cfg.Reasoning.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.Reasoning.TimeoutRaw, err)
		}
	}

	if cfg.Telemetry.MetricIntervalRaw != "" {
		cfg.Telemetry.MetricInterval, err = time.ParseDuration(cfg.Telemetry.MetricIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing metric_interval %q: %w", cfg.Telemetry.MetricIntervalRaw, err)
		}
	}

	return nil
}
