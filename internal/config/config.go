package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the main dojo configuration
type Config struct {
	// HTTP server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Coordinator identity
	Coordinator CoordinatorConfig `json:"coordinator" mapstructure:"coordinator"`

	// Inference backends keyed by name
	Backends map[string]BackendConfig `json:"backends" mapstructure:"backends"`

	// Backend used by workers that do not name one
	DefaultBackend string `json:"default_backend" mapstructure:"default_backend"`

	// Dispatch limits and policies
	Dispatch DispatchConfig `json:"dispatch" mapstructure:"dispatch"`

	// Capability catalog
	Catalog CatalogConfig `json:"catalog" mapstructure:"catalog"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// OpenTelemetry tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string        `json:"host" mapstructure:"host"`
	Port               int           `json:"port" mapstructure:"port"`
	RateLimitPerMinute int           `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"` // negative disables
	TrustProxy         bool          `json:"trust_proxy" mapstructure:"trust_proxy"`                     // read client IP from forwarding headers
	ShutdownTimeout    time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxBodyBytes       int64         `json:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// CoordinatorConfig holds coordinator configuration
type CoordinatorConfig struct {
	Name string `json:"name" mapstructure:"name"`
}

// BackendConfig describes one inference backend
type BackendConfig struct {
	Provider    string        `json:"provider" mapstructure:"provider"` // ollama, openai, anthropic
	URL         string        `json:"url" mapstructure:"url"`
	APIKey      string        `json:"api_key" mapstructure:"api_key"`
	Model       string        `json:"model" mapstructure:"model"`
	Capacity    int           `json:"capacity" mapstructure:"capacity"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	Temperature float64       `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `json:"max_tokens" mapstructure:"max_tokens"`
}

// DispatchConfig holds dispatcher limits
type DispatchConfig struct {
	InvocationTimeout time.Duration `json:"invocation_timeout" mapstructure:"invocation_timeout"`
	BatchFailure      string        `json:"batch_failure" mapstructure:"batch_failure"` // isolate, abort
	MaxBatch          int           `json:"max_batch" mapstructure:"max_batch"`
	MaxChain          int           `json:"max_chain" mapstructure:"max_chain"`
}

// CatalogConfig points at an optional YAML catalog
type CatalogConfig struct {
	Path  string `json:"path" mapstructure:"path"`
	Watch bool   `json:"watch" mapstructure:"watch"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	Console    bool   `json:"console" mapstructure:"console"`
	Pretty     bool   `json:"pretty" mapstructure:"pretty"`
	Redaction  bool   `json:"redaction" mapstructure:"redaction"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"` // 0 disables rotation
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" mapstructure:"service_name"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               9565,
			RateLimitPerMinute: 600,
			ShutdownTimeout:    30 * time.Second,
			MaxBodyBytes:       1 << 20,
		},
		Coordinator: CoordinatorConfig{
			Name: "Hokage",
		},
		Backends: map[string]BackendConfig{
			"local": {
				Provider: "ollama",
				URL:      "http://localhost:11434",
				Capacity: 1,
				Timeout:  60 * time.Second,
			},
		},
		DefaultBackend: "local",
		Dispatch: DispatchConfig{
			InvocationTimeout: 60 * time.Second,
			BatchFailure:      "isolate",
			MaxBatch:          64,
			MaxChain:          16,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "dojo",
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend must be configured")
	}
	if c.DefaultBackend == "" {
		return fmt.Errorf("default_backend is required")
	}
	if _, ok := c.Backends[c.DefaultBackend]; !ok {
		return fmt.Errorf("default_backend %s is not configured", c.DefaultBackend)
	}

	if errs := NewValidator().ValidateConfig(c); len(errs) > 0 {
		return errs[0]
	}

	return nil
}
