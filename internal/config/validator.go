package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/obiverse/dojo/pkg/dispatch"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePort validates a TCP port
func (v *Validator) ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateProvider validates a backend provider name
func (v *Validator) ValidateProvider(provider string) error {
	validProviders := []string{"ollama", "openai", "anthropic"}
	for _, valid := range validProviders {
		if strings.ToLower(provider) == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid provider: %s (must be one of: %s)", provider, strings.Join(validProviders, ", "))
}

// ValidateURL validates an optional backend URL
func (v *Validator) ValidateURL(raw string) error {
	if raw == "" {
		return nil // Provider default
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	return nil
}

// ValidateCapacity validates a backend concurrency limit
func (v *Validator) ValidateCapacity(capacity int) error {
	if capacity < 1 {
		return fmt.Errorf("capacity must be >= 1, got %d", capacity)
	}
	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("max tokens must not be negative, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateBatchFailure validates the batch failure policy
func (v *Validator) ValidateBatchFailure(policy string) error {
	if _, err := dispatch.ParseBatchPolicy(policy); err != nil {
		return fmt.Errorf("invalid batch_failure: %s (must be one of: isolate, abort)", policy)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	// Validate server
	if err := v.ValidatePort(cfg.Server.Port); err != nil {
		errors = append(errors, fmt.Errorf("server: %w", err))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errors = append(errors, fmt.Errorf("server.shutdown_timeout must be >= 0"))
	}
	if cfg.Server.MaxBodyBytes < 0 {
		errors = append(errors, fmt.Errorf("server.max_body_bytes must be >= 0"))
	}

	// Validate backends in name order so errors are stable
	names := make([]string, 0, len(cfg.Backends))
	for name := range cfg.Backends {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := cfg.Backends[name]
		if err := v.ValidateProvider(b.Provider); err != nil {
			errors = append(errors, fmt.Errorf("backend %s: %w", name, err))
		}
		if err := v.ValidateURL(b.URL); err != nil {
			errors = append(errors, fmt.Errorf("backend %s: %w", name, err))
		}
		if err := v.ValidateCapacity(b.Capacity); err != nil {
			errors = append(errors, fmt.Errorf("backend %s: %w", name, err))
		}
		if err := v.ValidateTemperature(b.Temperature); err != nil {
			errors = append(errors, fmt.Errorf("backend %s: %w", name, err))
		}
		if err := v.ValidateMaxTokens(b.MaxTokens); err != nil {
			errors = append(errors, fmt.Errorf("backend %s: %w", name, err))
		}
		if b.Timeout < 0 {
			errors = append(errors, fmt.Errorf("backend %s: timeout must be >= 0", name))
		}
	}

	// Validate dispatch
	if err := v.ValidateBatchFailure(cfg.Dispatch.BatchFailure); err != nil {
		errors = append(errors, err)
	}
	if cfg.Dispatch.InvocationTimeout < 0 {
		errors = append(errors, fmt.Errorf("dispatch.invocation_timeout must be >= 0"))
	}
	if cfg.Dispatch.MaxBatch < 0 {
		errors = append(errors, fmt.Errorf("dispatch.max_batch must be >= 0"))
	}
	if cfg.Dispatch.MaxChain < 0 {
		errors = append(errors, fmt.Errorf("dispatch.max_chain must be >= 0"))
	}

	// Validate catalog
	if cfg.Catalog.Watch && cfg.Catalog.Path == "" {
		errors = append(errors, fmt.Errorf("catalog.watch requires catalog.path"))
	}

	// Validate logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxAgeDays < 0 {
		errors = append(errors, fmt.Errorf("logging.max_size_mb and logging.max_age_days must be >= 0"))
	}

	// Validate metrics
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errors = append(errors, fmt.Errorf("metrics.path must start with /"))
	}

	return errors
}
