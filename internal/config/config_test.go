package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "OLLAMA_HOST", "SUBCON_STORE_PATH", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "subcon" {
		t.Errorf("expected Name=subcon, got %s", cfg.Name)
	}
	if cfg.Cortex.MaxConcurrency != 3 {
		t.Errorf("expected MaxConcurrency=3, got %d", cfg.Cortex.MaxConcurrency)
	}
	if cfg.Cortex.FlushThreshold != 10 || cfg.Cortex.RetainWindow != 5 {
		t.Errorf("expected flush 10/5, got %d/%d", cfg.Cortex.FlushThreshold, cfg.Cortex.RetainWindow)
	}
	if cfg.Cortex.SelfPlayTokenBudget != 75 {
		t.Errorf("expected SelfPlayTokenBudget=75, got %d", cfg.Cortex.SelfPlayTokenBudget)
	}
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "subcon.yaml")

	cfg := DefaultConfig()
	cfg.Storage.Backend = "redis"
	cfg.Cortex.SelfPlayIterations = 7
	cfg.LLM.External.APIKey = "sk-test"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", loaded.Storage.Backend)
	assert.Equal(t, 7, loaded.Cortex.SelfPlayIterations)
	assert.Equal(t, "sk-test", loaded.LLM.External.APIKey)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "subcon.yaml")
	content := "cortex:\n  max_concurrency: 5\nstorage:\n  backend: sqlite\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Cortex.MaxConcurrency)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "sqlite", cfg.Storage.SQLDriver)
	assert.Equal(t, 10, cfg.Cortex.FlushThreshold)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subcon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cortex: [unterminated"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-gemini")
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")
	t.Setenv("SUBCON_STORE_PATH", "/var/lib/subcon")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.External.Provider)
	assert.Equal(t, "env-gemini", cfg.LLM.External.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.External.Model)
	assert.Equal(t, "env-gemini", cfg.Retrieval.Embedding.APIKey)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.Local.BaseURL)
	assert.Equal(t, "/var/lib/subcon", cfg.Storage.Path)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad provider", func(c *Config) { c.LLM.External.Provider = "zai" }, true},
		{"bad backend", func(c *Config) { c.Storage.Backend = "postgres" }, true},
		{"bad driver", func(c *Config) { c.Storage.Backend = "sqlite"; c.Storage.SQLDriver = "pgx" }, true},
		{"cgo driver", func(c *Config) { c.Storage.Backend = "sqlite"; c.Storage.SQLDriver = "sqlite3" }, false},
		{"embedding genai", func(c *Config) { c.Retrieval.Embedding.Provider = "genai" }, false},
		{"bad embedding", func(c *Config) { c.Retrieval.Embedding.Provider = "openai" }, true},
		{"zero pool", func(c *Config) { c.Cortex.MaxConcurrency = 0 }, true},
		{"threshold below window", func(c *Config) { c.Cortex.FlushThreshold = 5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 250*time.Millisecond, cfg.GetFlushInterval())
	assert.Equal(t, time.Second, cfg.GetMonitorInterval())
	assert.Equal(t, 120*time.Second, cfg.GetLLMTimeout())

	cfg.Cortex.FlushInterval = "not-a-duration"
	cfg.LLM.RetryDelay = "-1s"
	assert.Equal(t, 250*time.Millisecond, cfg.GetFlushInterval())
	assert.Equal(t, time.Second, cfg.GetRetryDelay())
}

func TestProviderConfigured(t *testing.T) {
	assert.False(t, ProviderConfig{}.Configured())
	assert.True(t, ProviderConfig{Provider: "ollama", Model: "llama3.2"}.Configured())
	assert.False(t, ProviderConfig{Provider: "openai", Model: "gpt-4o-mini"}.Configured())
	assert.True(t, ProviderConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k"}.Configured())
}
