package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePort(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidatePort(9565))
	assert.NoError(t, v.ValidatePort(1))
	assert.Error(t, v.ValidatePort(0))
	assert.Error(t, v.ValidatePort(65536))
}

func TestValidateProvider(t *testing.T) {
	v := NewValidator()

	for _, p := range []string{"ollama", "openai", "anthropic", "OpenAI"} {
		t.Run(p, func(t *testing.T) {
			assert.NoError(t, v.ValidateProvider(p))
		})
	}

	err := v.ValidateProvider("gemini")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}

func TestValidateURL(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateURL(""))
	assert.NoError(t, v.ValidateURL("http://localhost:11434"))
	assert.NoError(t, v.ValidateURL("https://api.openai.com/v1"))
	assert.Error(t, v.ValidateURL("localhost:11434"))
	assert.Error(t, v.ValidateURL("ftp://host"))
}

func TestValidateCapacity(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateCapacity(1))
	assert.NoError(t, v.ValidateCapacity(8))
	assert.Error(t, v.ValidateCapacity(0))
	assert.Error(t, v.ValidateCapacity(-1))
}

func TestValidateTemperature(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateTemperature(0))
	assert.NoError(t, v.ValidateTemperature(0.7))
	assert.NoError(t, v.ValidateTemperature(2))
	assert.Error(t, v.ValidateTemperature(-0.1))
	assert.Error(t, v.ValidateTemperature(2.5))
}

func TestValidateMaxTokens(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateMaxTokens(0))
	assert.NoError(t, v.ValidateMaxTokens(4096))
	assert.Error(t, v.ValidateMaxTokens(-1))
	assert.Error(t, v.ValidateMaxTokens(300000))
}

func TestValidateLogLevel(t *testing.T) {
	v := NewValidator()

	for _, level := range []string{"debug", "info", "warn", "error"} {
		assert.NoError(t, v.ValidateLogLevel(level))
	}
	assert.Error(t, v.ValidateLogLevel("trace"))
	assert.Error(t, v.ValidateLogLevel(""))
}

func TestValidateBatchFailure(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateBatchFailure(""))
	assert.NoError(t, v.ValidateBatchFailure("isolate"))
	assert.NoError(t, v.ValidateBatchFailure("abort"))
	assert.Error(t, v.ValidateBatchFailure("retry"))
}

func TestValidateConfig(t *testing.T) {
	v := NewValidator()

	t.Run("valid config", func(t *testing.T) {
		errs := v.ValidateConfig(DefaultConfig())
		assert.Empty(t, errs)
	})

	t.Run("collects every error", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Server.Port = 0
		cfg.Backends["b"] = BackendConfig{Provider: "gemini", Capacity: 0}
		cfg.Logging.Level = "loud"
		cfg.Catalog.Watch = true

		errs := v.ValidateConfig(cfg)
		assert.Len(t, errs, 5)
	})

	t.Run("metrics path", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Metrics.Path = "metrics"
		assert.Len(t, v.ValidateConfig(cfg), 1)

		cfg.Metrics.Enabled = false
		assert.Empty(t, v.ValidateConfig(cfg))
	})
}
