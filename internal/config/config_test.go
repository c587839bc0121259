package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drafthaus/cadindex/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8087, cfg.Server.Port)
	assert.Equal(t, "cadindex.db", cfg.Store.SQLitePath)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 1800, cfg.Classify.VectorThreshold)
	assert.Equal(t, domain.BiasPermissive, cfg.Classify.InclusionBias)
	assert.Equal(t, 5, cfg.OCR.MaxPages)
	assert.True(t, cfg.Converter.Enabled)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
store:
  sqlite_path: /tmp/drawings.db
classify:
  vector_threshold: 500
  inclusion_bias: strict
ai:
  timeout: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/drawings.db", cfg.Store.SQLitePath)
	assert.Equal(t, 500, cfg.Classify.VectorThreshold)
	assert.Equal(t, domain.BiasStrict, cfg.Classify.InclusionBias)
	assert.Equal(t, 10*time.Second, cfg.AI.Timeout)

	// Settings absent from the file keep their defaults.
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 500, cfg.OCR.DPI)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CADINDEX_PORT", "7777")
	t.Setenv("CADINDEX_DB", "/data/index.db")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("ENABLE_OCR", "false")
	t.Setenv("REDIS_URL", "redis://cache.local:6380")
	t.Setenv("INCLUSION_BIAS", "strict")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "/data/index.db", cfg.Store.SQLitePath)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "cache.local:6380", cfg.Cache.Redis.Addr)
	assert.Equal(t, domain.BiasStrict, cfg.Classify.InclusionBias)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"bad cache driver", func(c *Config) { c.Cache.Driver = "memcached" }, "invalid cache driver"},
		{"bad bias", func(c *Config) { c.Classify.InclusionBias = "lenient" }, "invalid inclusion bias"},
		{"zero ocr pages", func(c *Config) { c.OCR.MaxPages = 0 }, "max_pages"},
		{"zero embedding dim", func(c *Config) { c.Embedding.Dimension = 0 }, "dimension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
