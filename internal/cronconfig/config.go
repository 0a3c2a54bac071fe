// Package cronconfig loads cmd/cronsched's runtime configuration from a
// YAML/TOML/JSON file via viper, decoding straight into Config with
// viper's Unmarshal (see SPEC_FULL.md §6).
package cronconfig

import (
	"fmt"

	"github.com/spf13/viper"
)

// AgentExecutorKind selects which cronexec.AgentExecutor implementation
// cmd/cronsched wires up.
type AgentExecutorKind string

const (
	AgentExecutorNone   AgentExecutorKind = "none"
	AgentExecutorOpenAI AgentExecutorKind = "openai"
)

// AgentConfig configures the optional agent-mode executor.
type AgentConfig struct {
	Executor     AgentExecutorKind `mapstructure:"executor"`
	APIKey       string            `mapstructure:"api_key"`
	BaseURL      string            `mapstructure:"base_url"`
	DefaultModel string            `mapstructure:"default_model"`
}

// TelemetryConfig controls the Prometheus metrics endpoint.
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// CaptureConfig controls rotating stdout/stderr capture for Shell jobs.
type CaptureConfig struct {
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Config is the top-level cmd/cronsched configuration document.
type Config struct {
	Workspace    string          `mapstructure:"workspace"`
	StoreDSN     string          `mapstructure:"store_dsn"`
	SinkDSN      string          `mapstructure:"sink_dsn"`
	HistoryLimit int             `mapstructure:"history_limit"`
	Telemetry    TelemetryConfig `mapstructure:"telemetry"`
	Capture      CaptureConfig   `mapstructure:"capture"`
	Agent        AgentConfig     `mapstructure:"agent"`
}

// defaults mirrors the teacher's approach of setting viper defaults before
// reading the file, so a minimal or absent config file still produces a
// runnable configuration.
func defaults(v *viper.Viper) {
	v.SetDefault("workspace", ".")
	v.SetDefault("store_dsn", "memory://")
	v.SetDefault("history_limit", 200)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.listen", ":9090")
	v.SetDefault("agent.executor", string(AgentExecutorNone))
}

// Load reads configPath (YAML, TOML, or JSON, detected by extension) and
// decodes it into a Config, applying defaults for anything unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	defaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("cronsched")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
