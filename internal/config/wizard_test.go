package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWizard(t *testing.T, lines ...string) (*Config, string, error) {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	cfg, err := NewWizard(in, &out).Run()
	return cfg, out.String(), err
}

func TestWizardDefaults(t *testing.T) {
	// provider, url, model, capacity, port, log level
	cfg, out, err := runWizard(t, "", "", "", "", "", "")
	require.NoError(t, err)

	local := cfg.Backends["local"]
	assert.Equal(t, "ollama", local.Provider)
	assert.Equal(t, "http://localhost:11434", local.URL)
	assert.Empty(t, local.APIKey)
	assert.Equal(t, 1, local.Capacity)
	assert.Equal(t, 9565, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Contains(t, out, "Configuration complete!")
	assert.NoError(t, cfg.Validate())
}

func TestWizardCloudBackend(t *testing.T) {
	cfg, out, err := runWizard(t,
		"gemini",    // rejected
		"anthropic", // provider
		"",          // default url
		"",          // empty key rejected
		"sk-ant-x",  // key
		"claude-test",
		"zero", // rejected
		"4",
		"80",
		"debug",
	)
	require.NoError(t, err)

	local := cfg.Backends["local"]
	assert.Equal(t, "anthropic", local.Provider)
	assert.Equal(t, "https://api.anthropic.com", local.URL)
	assert.Equal(t, "sk-ant-x", local.APIKey)
	assert.Equal(t, "claude-test", local.Model)
	assert.Equal(t, 4, local.Capacity)
	assert.Equal(t, 80, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	assert.Contains(t, out, "invalid provider")
	assert.Contains(t, out, "an API key is required")
}

func TestWizardEOF(t *testing.T) {
	_, err := NewWizard(strings.NewReader(""), &bytes.Buffer{}).Run()
	assert.Error(t, err)
}
