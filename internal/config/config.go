// Package config loads and validates the copilot configuration from YAML
// with environment variable expansion.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can use "30s" notation.
// Bare integers are taken as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var secs int64
		if err := value.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Agent    AgentConfig    `yaml:"agent"`
	Tools    ToolsConfig    `yaml:"tools"`
	Actions  ActionsConfig  `yaml:"actions"`
	RAG      RAGConfig      `yaml:"rag"`
	Logging  LoggingConfig  `yaml:"logging"`
	Audit    AuditConfig    `yaml:"audit"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProviderConfig selects and configures the model provider.
type ProviderConfig struct {
	// Name is "openai" or "anthropic".
	Name string `yaml:"name"`

	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`

	// Model is the default model id for agent runs.
	Model string `yaml:"model"`

	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`

	MaxRetries int      `yaml:"max_retries"`
	RetryDelay Duration `yaml:"retry_delay"`
}

// AgentConfig bounds agent runs.
type AgentConfig struct {
	// MaxSteps caps model round trips per run.
	MaxSteps int `yaml:"max_steps"`

	// RunTimeout bounds a run when the request carries no timeout.
	RunTimeout Duration `yaml:"run_timeout"`
}

// ToolsConfig configures tool execution and per-agent allowlists.
type ToolsConfig struct {
	// Timeout bounds a single tool execution.
	Timeout Duration `yaml:"timeout"`

	// Allowlists maps agent id to the tool ids it may call.
	Allowlists map[string][]string `yaml:"allowlists"`

	// FallbackToAll resolves agents without an allowlist to every
	// registered tool. Off by default.
	FallbackToAll bool `yaml:"fallback_to_all"`
}

// ActionsConfig configures the pending-action ledger.
type ActionsConfig struct {
	// TTL is how long a proposed action stays confirmable.
	TTL Duration `yaml:"ttl"`
}

// RAGConfig configures document retrieval.
type RAGConfig struct {
	// DBPath is the sqlite database path. ":memory:" keeps the index
	// in process memory.
	DBPath string `yaml:"db_path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// Output is "stdout", "stderr", or "file:<path>".
	Output string `yaml:"output"`
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	// Endpoint is the OTLP gRPC collector address. Empty disables tracing.
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Insecure     bool    `yaml:"insecure"`
	Environment  string  `yaml:"environment"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Provider: ProviderConfig{
			Name:       "anthropic",
			Model:      "claude-sonnet-4-5",
			MaxRetries: 3,
			RetryDelay: Duration(time.Second),
		},
		Agent: AgentConfig{
			MaxSteps:   6,
			RunTimeout: Duration(60 * time.Second),
		},
		Tools: ToolsConfig{
			Timeout: Duration(8 * time.Second),
		},
		Actions: ActionsConfig{
			TTL: Duration(10 * time.Minute),
		},
		RAG: RAGConfig{
			DBPath: ":memory:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Audit: AuditConfig{
			Enabled: true,
			Output:  "stdout",
			Format:  "json",
			Level:   "info",
		},
		Tracing: TracingConfig{
			SamplingRate: 1.0,
		},
	}
}

// Validate checks cross-field constraints after defaults are applied.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Provider.Name {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("provider.name must be openai or anthropic, got %q", c.Provider.Name)
	}
	if c.Provider.Model == "" {
		return fmt.Errorf("provider.model is required")
	}
	if c.Agent.MaxSteps < 1 {
		return fmt.Errorf("agent.max_steps must be at least 1, got %d", c.Agent.MaxSteps)
	}
	if c.Tools.Timeout <= 0 {
		return fmt.Errorf("tools.timeout must be positive, got %s", c.Tools.Timeout)
	}
	if c.Actions.TTL <= 0 {
		return fmt.Errorf("actions.ttl must be positive, got %s", c.Actions.TTL)
	}
	return nil
}

// applyDefaults fills zero fields from Default.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Provider.Name == "" {
		c.Provider.Name = def.Provider.Name
	}
	if c.Provider.Model == "" {
		c.Provider.Model = def.Provider.Model
	}
	if c.Provider.MaxRetries == 0 {
		c.Provider.MaxRetries = def.Provider.MaxRetries
	}
	if c.Provider.RetryDelay == 0 {
		c.Provider.RetryDelay = def.Provider.RetryDelay
	}
	if c.Agent.MaxSteps == 0 {
		c.Agent.MaxSteps = def.Agent.MaxSteps
	}
	if c.Agent.RunTimeout == 0 {
		c.Agent.RunTimeout = def.Agent.RunTimeout
	}
	if c.Tools.Timeout == 0 {
		c.Tools.Timeout = def.Tools.Timeout
	}
	if c.Actions.TTL == 0 {
		c.Actions.TTL = def.Actions.TTL
	}
	if c.RAG.DBPath == "" {
		c.RAG.DBPath = def.RAG.DBPath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Audit.Output == "" {
		c.Audit.Output = def.Audit.Output
	}
	if c.Audit.Format == "" {
		c.Audit.Format = def.Audit.Format
	}
	if c.Audit.Level == "" {
		c.Audit.Level = def.Audit.Level
	}
	if c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = def.Tracing.SamplingRate
	}
}
