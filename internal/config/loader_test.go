package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.configPath)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("load default config when file doesn't exist", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "nonexistent.json")

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("load config from json file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "dojo.json")

		testConfig := `{
			"server": {"port": 8080, "shutdown_timeout": "5s"},
			"coordinator": {"name": "Tsunade"},
			"dispatch": {"invocation_timeout": "90s", "batch_failure": "abort"}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, "Tsunade", cfg.Coordinator.Name)
		assert.Equal(t, 90*time.Second, cfg.Dispatch.InvocationTimeout)
		assert.Equal(t, "abort", cfg.Dispatch.BatchFailure)
		assert.Equal(t, 64, cfg.Dispatch.MaxBatch)
	})

	t.Run("load backends from yaml file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "dojo.yaml")

		testConfig := strings.Join([]string{
			"default_backend: cloud",
			"backends:",
			"  cloud:",
			"    provider: anthropic",
			"    api_key: sk-ant-test",
			"    capacity: 4",
			"    timeout: 30s",
			"  gpu:",
			"    provider: openai",
			"    url: http://gpu:8000/v1",
		}, "\n")
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "cloud", cfg.DefaultBackend)
		require.Len(t, cfg.Backends, 2)
		assert.NotContains(t, cfg.Backends, "local")

		cloud := cfg.Backends["cloud"]
		assert.Equal(t, "anthropic", cloud.Provider)
		assert.Equal(t, 4, cloud.Capacity)
		assert.Equal(t, 30*time.Second, cloud.Timeout)

		gpu := cfg.Backends["gpu"]
		assert.Equal(t, 1, gpu.Capacity)
		assert.Equal(t, cfg.Dispatch.InvocationTimeout, gpu.Timeout)
	})

	t.Run("environment overrides", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "dojo.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"server": {"port": 8080}}`), 0644))

		t.Setenv("DOJO_SERVER_PORT", "9999")
		t.Setenv("DOJO_LOGGING_LEVEL", "debug")
		t.Setenv("DOJO_DISPATCH_MAX_BATCH", "8")
		t.Setenv("DOJO_SERVER_TRUST_PROXY", "true")

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 8, cfg.Dispatch.MaxBatch)
		assert.True(t, cfg.Server.TrustProxy)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.json")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0644))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "dojo.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"server": {"port": 70000}}`), 0644))

		_, err := NewLoader(configPath).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})
}

func TestLoaderSave(t *testing.T) {
	t.Run("save and reload", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "nested", "dojo.json")
		loader := NewLoader(configPath)

		cfg := DefaultConfig()
		cfg.Server.Port = 7000
		cfg.Backends["local"] = BackendConfig{
			Provider: "openai",
			URL:      "http://localhost:11434/v1",
			APIKey:   "ollama",
			Capacity: 2,
			Timeout:  45 * time.Second,
		}

		require.NoError(t, loader.Save(cfg))
		assert.FileExists(t, configPath)

		loaded, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, 7000, loaded.Server.Port)
		assert.Equal(t, cfg.Backends["local"], loaded.Backends["local"])
		assert.Equal(t, cfg.Dispatch.InvocationTimeout, loaded.Dispatch.InvocationTimeout)
	})
}

func TestGetConfigPath(t *testing.T) {
	t.Run("custom path", func(t *testing.T) {
		loader := NewLoader("/custom/path.json")
		assert.Equal(t, "/custom/path.json", loader.GetConfigPath())
	})

	t.Run("default path", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		loader := NewLoader("")
		assert.Equal(t, filepath.Join(home, ".dojo", "dojo.json"), loader.GetConfigPath())
	})
}

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 9565, cfg.Server.Port)
}
