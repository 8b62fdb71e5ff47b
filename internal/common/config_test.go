package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 100, config.Enrich.MaxTasks)
	assert.Equal(t, 3, config.Enrich.MaxRetries)
	assert.Equal(t, 200, config.Enrich.MinTextLength)
	assert.Equal(t, 100, config.Retrieval.MaxTasks)
	assert.Equal(t, 1, config.Retrieval.MaxGap)
	assert.Equal(t, "./error_log.txt", config.Retrieval.ErrorLog)
	assert.Equal(t, LLMProviderGemini, config.LLM.DefaultProvider)
	assert.Equal(t, "gemini-2.0-flash", config.Gemini.Model)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reperio.toml")
	content := `
environment = "production"

[storage.badger]
path = "/var/lib/reperio/pages"

[enrich]
max_tasks = 25
min_text_length = 150

[retrieval]
max_gap = 2
temperature = 0.2

[llm]
default_provider = "claude"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "/var/lib/reperio/pages", config.Storage.Badger.Path)
	assert.Equal(t, 25, config.Enrich.MaxTasks)
	assert.Equal(t, 150, config.Enrich.MinTextLength)
	assert.Equal(t, 2, config.Retrieval.MaxGap)
	assert.InDelta(t, 0.2, float64(config.Retrieval.Temperature), 1e-6)
	assert.Equal(t, "claude", config.LLM.DefaultProvider)

	// Unset fields keep their defaults
	assert.Equal(t, 3, config.Enrich.MaxRetries)
	assert.Equal(t, "./data/corpus", config.Storage.Files.Corpus)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("= not toml"), 0o644))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REPERIO_ENV", "production")
	t.Setenv("REPERIO_BADGER_PATH", "/tmp/pages")
	t.Setenv("REPERIO_ENRICH_MAX_TASKS", "10")
	t.Setenv("REPERIO_LLM_PROVIDER", "offline")
	t.Setenv("REPERIO_LOG_LEVEL", "debug")

	config, err := LoadFromFile("")
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "/tmp/pages", config.Storage.Badger.Path)
	assert.Equal(t, 10, config.Enrich.MaxTasks)
	assert.Equal(t, "offline", config.LLM.DefaultProvider)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestEnvOverridesIgnoreInvalidNumbers(t *testing.T) {
	t.Setenv("REPERIO_RETRIEVAL_MAX_TASKS", "lots")

	config, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, 100, config.Retrieval.MaxTasks)
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("REPERIO_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	// Config fallback
	key, err := ResolveAPIKey("gemini_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	// Env beats config
	t.Setenv("GEMINI_API_KEY", "from-env")
	key, err = ResolveAPIKey("gemini_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	// Project-scoped env beats the generic one
	t.Setenv("REPERIO_GEMINI_API_KEY", "scoped")
	key, err = ResolveAPIKey("gemini_api_key", "")
	require.NoError(t, err)
	assert.Equal(t, "scoped", key)

	// Nothing set anywhere
	t.Setenv("REPERIO_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	_, err = ResolveAPIKey("gemini_api_key", "")
	assert.Error(t, err)
}
