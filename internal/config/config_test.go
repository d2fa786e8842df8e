package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.Ollama.URL)
	assert.Equal(t, "llama3.2", cfg.Ollama.Model)
	assert.InDelta(t, 0.8, cfg.Classify.Threshold, 1e-9)
	assert.Equal(t, 5*time.Minute, cfg.Classify.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.Classify.RequestTimeout)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Server.RateLimit)
	assert.Equal(t, time.Minute, cfg.Server.RateWindow)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
linkace:
  apiUrl: https://links.example.com/api/v2
  apiToken: secret
classification:
  listIds: [1, 3, 7]
  confidenceThreshold: 0.9
  cacheTtl: 10m
server:
  port: 8080
batch:
  inputListId: 5
  dryRun: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://links.example.com/api/v2", cfg.LinkAce.APIURL)
	assert.Equal(t, []int{1, 3, 7}, cfg.Classify.ListIDs)
	assert.InDelta(t, 0.9, cfg.Classify.Threshold, 1e-9)
	assert.Equal(t, 10*time.Minute, cfg.Classify.CacheTTL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Batch.InputListID)
	assert.True(t, cfg.Batch.DryRun)

	// File values merge over defaults without clobbering the rest.
	assert.Equal(t, "llama3.2", cfg.Ollama.Model)
	assert.Equal(t, 60, cfg.Server.RateLimit)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
ollama:
  model: from-file
server:
  port: 8080
`)
	t.Setenv("OLLAMA_MODEL", "from-env")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.95")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Ollama.Model)
	assert.InDelta(t, 0.95, cfg.Classify.Threshold, 1e-9)
	assert.Equal(t, 8080, cfg.Server.Port, "file value survives when env is silent")
}

func TestConfigPathFromEnvironment(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9999\n")
	t.Setenv(configPathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"threshold above one":    func(c *Config) { c.Classify.Threshold = 1.5 },
		"negative threshold":     func(c *Config) { c.Classify.Threshold = -0.1 },
		"zero cache ttl":         func(c *Config) { c.Classify.CacheTTL = 0 },
		"zero rate limit":        func(c *Config) { c.Server.RateLimit = 0 },
		"zero rate window":       func(c *Config) { c.Server.RateWindow = 0 },
		"zero batch concurrency": func(c *Config) { c.Batch.Concurrency = 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
