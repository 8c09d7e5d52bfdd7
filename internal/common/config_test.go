package common

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "bleve", cfg.Search.Mode)
	assert.Equal(t, LLMProviderClaude, cfg.LLM.DefaultProvider)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, 0.85, cfg.Pipeline.SimilarityThreshold)
	assert.Equal(t, []string{"esg", "policies"}, cfg.Search.Collections["esg"])
	assert.NotEmpty(t, cfg.Categories)
	assert.NotEmpty(t, cfg.Pipeline.DomainVocabulary)
}

func TestLoadFromFilesMergesInOrder(t *testing.T) {
	base := writeConfigFile(t, "base.toml", `
environment = "development"

[server]
port = 9000

[pipeline]
concurrency = 2
`)
	override := writeConfigFile(t, "override.toml", `
[server]
port = 9100
`)

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "later file wins")
	assert.Equal(t, 2, cfg.Pipeline.Concurrency, "earlier file survives where not overridden")
	assert.Equal(t, "bleve", cfg.Search.Mode, "defaults survive where no file sets a value")
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadFromFilesMalformedFile(t *testing.T) {
	path := writeConfigFile(t, "broken.toml", "[server\nport = nine")
	_, err := LoadFromFiles(path)
	assert.Error(t, err)
}

func TestLoadFromFilesEnvOverrides(t *testing.T) {
	t.Setenv("RESPONDEO_SERVER_PORT", "9200")
	t.Setenv("RESPONDEO_SEARCH_MODE", "disabled")
	t.Setenv("RESPONDEO_LLM_PROVIDER", "GEMINI")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "disabled", cfg.Search.Mode)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.DefaultProvider)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"search mode", func(c *Config) { c.Search.Mode = "solr" }},
		{"port range", func(c *Config) { c.Server.Port = 0 }},
		{"concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }},
		{"similarity above one", func(c *Config) { c.Pipeline.SimilarityThreshold = 1.5 }},
		{"claude timeout", func(c *Config) { c.Claude.Timeout = "soon" }},
		{"retention max age", func(c *Config) { c.Retention.Enabled = true; c.Retention.MaxAge = "monthly" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyFlagOverrides(cfg, 9300, "0.0.0.0")
	assert.Equal(t, 9300, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 9300, cfg.Server.Port, "zero values leave config untouched")
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

type fakeKV struct {
	values map[string]string
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return "", errors.New("key not found")
}

func (f *fakeKV) Set(ctx context.Context, key, value string) error { return nil }
func (f *fakeKV) Delete(ctx context.Context, key string) error     { return nil }

func TestResolveAPIKey(t *testing.T) {
	ctx := context.Background()
	kv := &fakeKV{values: map[string]string{"anthropic_api_key": "kv-key"}}

	key, err := ResolveAPIKey(ctx, kv, "anthropic_api_key", "config-key")
	require.NoError(t, err)
	assert.Equal(t, "kv-key", key, "KV value wins over config fallback")

	key, err = ResolveAPIKey(ctx, kv, "gemini_api_key", "config-key")
	require.NoError(t, err)
	assert.Equal(t, "config-key", key)

	_, err = ResolveAPIKey(ctx, kv, "gemini_api_key", "")
	assert.Error(t, err)

	key, err = ResolveAPIKey(ctx, nil, "anthropic_api_key", "config-key")
	require.NoError(t, err)
	assert.Equal(t, "config-key", key)
}
