// Package config provides the configuration schema, loader, and provider
// registry for the plenum meeting engine.
package config

import (
	"time"

	"github.com/plenum-ai/plenum/internal/meeting"
	"github.com/plenum-ai/plenum/internal/resilience"
)

// LogLevel controls log verbosity for the plenum CLI.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for plenum.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Empty means info.
	LogLevel LogLevel `yaml:"log_level"`

	Providers  ProvidersConfig  `yaml:"providers"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Meeting    MeetingConfig    `yaml:"meeting"`
}

// ProvidersConfig declares the LLM backend chain: one primary plus any number
// of fallbacks, tried in order when the primary fails or its circuit opens.
type ProvidersConfig struct {
	Primary   ProviderEntry   `yaml:"primary"`
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// ProviderEntry is the configuration block shared by all LLM backends. The
// Name field selects the constructor registered in the [Registry].
type ProviderEntry struct {
	// Name selects the registered backend implementation (e.g., "openai",
	// "anthropic", "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the backend's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default API endpoint.
	// Leave empty to use the backend's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the backend (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds backend-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}

// ResilienceConfig tunes the retry and circuit-breaker wrappers around the
// backend chain. Zero fields keep the wrapper defaults.
type ResilienceConfig struct {
	Retry   RetrySettings   `yaml:"retry"`
	Breaker BreakerSettings `yaml:"breaker"`
}

// RetrySettings configures the per-call timeout and the single jittered
// retry.
type RetrySettings struct {
	// TimeoutSeconds bounds every backend call. Zero means 30.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// DelayMillis is the base wait before the retry. Zero means 200.
	DelayMillis int `yaml:"delay_ms"`

	// JitterMillis is the maximum random addition to the delay. Zero means
	// 300.
	JitterMillis int `yaml:"jitter_ms"`
}

// RetryConfig converts the settings into the wrapper's configuration.
func (s RetrySettings) RetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		Timeout: time.Duration(s.TimeoutSeconds) * time.Second,
		Delay:   time.Duration(s.DelayMillis) * time.Millisecond,
		Jitter:  time.Duration(s.JitterMillis) * time.Millisecond,
	}
}

// BreakerSettings configures the per-backend circuit breakers.
type BreakerSettings struct {
	// Trip is the consecutive-failure count that opens the circuit. Zero
	// means 5.
	Trip int `yaml:"trip"`

	// CooldownSeconds is how long an open circuit rejects calls before
	// probing. Zero means 30.
	CooldownSeconds int `yaml:"cooldown_seconds"`

	// Probes is the consecutive probe successes required to close again.
	// Zero means 3.
	Probes int `yaml:"probes"`
}

// BreakerConfig converts the settings into the breaker's configuration with
// the given breaker name.
func (s BreakerSettings) BreakerConfig(name string) resilience.BreakerConfig {
	return resilience.BreakerConfig{
		Name:     name,
		Trip:     s.Trip,
		CoolDown: time.Duration(s.CooldownSeconds) * time.Second,
		Probes:   s.Probes,
	}
}

// MeetingConfig holds the defaults for meeting runs started by the CLI.
type MeetingConfig struct {
	// Issue is the question under deliberation. Empty uses the engine
	// default.
	Issue string `yaml:"issue"`

	// RosterFile is the path of a YAML roster. Empty uses the built-in
	// four-person roster.
	RosterFile string `yaml:"roster_file"`

	// Seed makes runs reproducible. Zero picks a random seed.
	Seed uint64 `yaml:"seed"`

	// Conditions tunes the meeting environment.
	Conditions meeting.Conditions `yaml:"conditions"`
}
