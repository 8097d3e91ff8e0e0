package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the backend names plenum ships constructors for.
// Used by [Validate] to warn about unrecognised names.
var ValidProviderNames = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Providers.Primary.Name == "" {
		errs = append(errs, errors.New("providers.primary.name is required"))
	} else {
		warnUnknownProvider("primary", cfg.Providers.Primary.Name)
	}
	for i, fb := range cfg.Providers.Fallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.fallbacks[%d].name is required", i))
			continue
		}
		warnUnknownProvider(fmt.Sprintf("fallbacks[%d]", i), fb.Name)
	}

	for name, v := range map[string]int{
		"resilience.retry.timeout_seconds": cfg.Resilience.Retry.TimeoutSeconds,
		"resilience.retry.delay_ms":        cfg.Resilience.Retry.DelayMillis,
		"resilience.retry.jitter_ms":       cfg.Resilience.Retry.JitterMillis,
		"resilience.breaker.trip":          cfg.Resilience.Breaker.Trip,
		"resilience.breaker.cooldown_seconds": cfg.Resilience.Breaker.CooldownSeconds,
		"resilience.breaker.probes":           cfg.Resilience.Breaker.Probes,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	if err := cfg.Meeting.Conditions.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// warnUnknownProvider logs a warning if name is not in [ValidProviderNames].
func warnUnknownProvider(where, name string) {
	if slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or custom registration",
		"where", where,
		"name", name,
		"known", ValidProviderNames,
	)
}
