// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/config"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 2, cfg.Retrieval.LeadIn)
	assert.Equal(t, "gpt-4o", cfg.Answer.Model)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Listen)
	assert.Equal(t, 0, cfg.Corpus.VideoDuration)
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "chatbot.yaml")
	content := `
embedding:
  provider: hashing
  dimensions: 64
retrieval:
  top_k: 3
  lead_in: 0
answer:
  provider: anthropic
  model: claude-sonnet-4-5
corpus:
  video_duration: 3600
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "hashing", cfg.Embedding.Provider)
	assert.Equal(t, 64, cfg.Embedding.Dimensions)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 0, cfg.Retrieval.LeadIn)
	assert.Equal(t, "anthropic", cfg.Answer.Provider)
	assert.Equal(t, 3600, cfg.Corpus.VideoDuration)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CHATBOT_SERVER_LISTEN", "10.0.0.1:8080")
	t.Setenv("CHATBOT_RETRIEVAL_TOP_K", "9")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8080", cfg.Server.Listen)
	assert.Equal(t, 9, cfg.Retrieval.TopK)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/chatbot.yaml")
	require.Error(t, err)
	assert.True(t, chatboterr.HasCode(err, chatboterr.CodeConfigLoadReadFailure))
}

func TestLoad_ValidationCalledAtLoadTime(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "chatbot.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("retrieval:\n  top_k: 0\n"), 0o600))

	_, err := config.Load(cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval.top_k")
	assert.True(t, chatboterr.IsInvalidInput(err))
}

// validConfig returns a minimal config that passes all validation.
func validConfig() *config.Config {
	return &config.Config{
		Embedding: config.EmbeddingConfig{
			Provider:    "openai",
			Model:       "text-embedding-3-small",
			Dimensions:  1536,
			Timeout:     30 * time.Second,
			Concurrency: 4,
		},
		Retrieval: config.RetrievalConfig{TopK: 5, LeadIn: 2},
		Answer: config.AnswerConfig{
			Provider:  "openai",
			Model:     "gpt-4o",
			MaxTokens: 1024,
		},
		Storage: config.StorageConfig{Backend: "sqlite", DataDir: "data", KeepBuilds: 3},
		Server:  config.ServerConfig{Listen: "127.0.0.1:8000"},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.Empty(t, validConfig().Validate())
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantKey string
	}{
		{"anthropic cannot embed", func(c *config.Config) { c.Embedding.Provider = "anthropic" }, "embedding.provider"},
		{"unknown embedding provider", func(c *config.Config) { c.Embedding.Provider = "cohere" }, "embedding.provider"},
		{"missing embedding model", func(c *config.Config) { c.Embedding.Model = "" }, "embedding.model"},
		{"zero dimensions", func(c *config.Config) { c.Embedding.Dimensions = 0 }, "embedding.dimensions"},
		{"zero concurrency", func(c *config.Config) { c.Embedding.Concurrency = 0 }, "embedding.concurrency"},
		{"hashing cannot answer", func(c *config.Config) { c.Answer.Provider = "hashing" }, "answer.provider"},
		{"zero top_k", func(c *config.Config) { c.Retrieval.TopK = 0 }, "retrieval.top_k"},
		{"negative lead_in", func(c *config.Config) { c.Retrieval.LeadIn = -1 }, "retrieval.lead_in"},
		{"negative duration", func(c *config.Config) { c.Corpus.VideoDuration = -5 }, "corpus.video_duration"},
		{"unknown backend", func(c *config.Config) { c.Storage.Backend = "milvus" }, "storage.backend"},
		{"postgres without url", func(c *config.Config) { c.Storage.Backend = "postgres" }, "storage.postgres_url"},
		{"bad listen", func(c *config.Config) { c.Server.Listen = "nope" }, "server.listen"},
		{"burst required", func(c *config.Config) { c.Server.RateLimitRPS = 2 }, "server.rate_limit_burst"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.NotEmpty(t, errs)

			var joined []string
			for _, err := range errs {
				joined = append(joined, err.Error())
			}
			assert.Contains(t, strings.Join(joined, "\n"), tt.wantKey)
		})
	}
}

func TestValidate_HashingNeedsNoModel(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "hashing"
	cfg.Embedding.Model = ""
	assert.Empty(t, cfg.Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.TopK = 0
	cfg.Storage.KeepBuilds = 0
	cfg.Answer.MaxTokens = 0
	assert.Len(t, cfg.Validate(), 3)
}

func TestFromViper_UsesProvidedInstance(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("retrieval.lead_in", 0)
	v.Set("embedding.provider", "google")
	v.Set("embedding.model", "text-embedding-004")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Retrieval.LeadIn)
	assert.Equal(t, "google", cfg.Embedding.Provider)
}

func TestDefaultConfigYAML_IsLoadable(t *testing.T) {
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(config.DefaultConfigYAML, &raw))
	assert.Contains(t, raw, "embedding")

	cfgPath := filepath.Join(t.TempDir(), "chatbot.yaml")
	require.NoError(t, os.WriteFile(cfgPath, config.DefaultConfigYAML, 0o600))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "keyring://chatbot/openai-api-key", cfg.Embedding.APIKey)
}
