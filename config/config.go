// Package config loads daemon configuration from a YAML file and
// CHRONICLER_* environment variables, environment taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full daemon configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AgentConfig configures the reasoning loop and session handling.
type AgentConfig struct {
	MaxIterations      int           `mapstructure:"max_iterations"`
	Temperature        float64       `mapstructure:"temperature"`
	ToolFailureLimit   int           `mapstructure:"tool_failure_limit"`
	ToolTimeout        time.Duration `mapstructure:"tool_timeout"`
	MaxConcurrentTools int64         `mapstructure:"max_concurrent_tools"`
	SessionIdleTTL     time.Duration `mapstructure:"session_idle_ttl"`
	StreamBuffer       int           `mapstructure:"stream_buffer"`
}

// ProviderConfig selects and configures the completion provider.
type ProviderConfig struct {
	// Name is "openai" or "anthropic".
	Name   string `mapstructure:"name"`
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig configures metrics exposure.
type TelemetryConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// Load reads configuration from the optional file path plus the
// environment and applies defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("agent.max_iterations", 5)
	v.SetDefault("agent.temperature", 0.3)
	v.SetDefault("agent.tool_failure_limit", 3)
	v.SetDefault("agent.tool_timeout", 30*time.Second)
	v.SetDefault("agent.max_concurrent_tools", 16)
	v.SetDefault("agent.session_idle_ttl", 30*time.Minute)
	v.SetDefault("agent.stream_buffer", 64)
	v.SetDefault("provider.name", "openai")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("telemetry.metrics_enabled", true)

	v.SetEnvPrefix("CHRONICLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("provider.name must be \"openai\" or \"anthropic\", got %q", c.Provider.Name)
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be at least 1")
	}
	if c.Agent.Temperature < 0 || c.Agent.Temperature > 2 {
		return fmt.Errorf("agent.temperature must be between 0 and 2")
	}
	if c.Agent.ToolFailureLimit < 1 {
		return fmt.Errorf("agent.tool_failure_limit must be at least 1")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be \"json\" or \"text\", got %q", c.Logging.Format)
	}
	return nil
}
