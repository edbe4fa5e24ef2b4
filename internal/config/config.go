// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "CHATBOT"

// Config is the top-level chatbot configuration.
type Config struct {
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Corpus    CorpusConfig    `mapstructure:"corpus" yaml:"corpus"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" yaml:"retrieval"`
	Answer    AnswerConfig    `mapstructure:"answer" yaml:"answer"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider          string        `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Dimensions        int           `mapstructure:"dimensions" yaml:"dimensions"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Concurrency       int           `mapstructure:"concurrency" yaml:"concurrency"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// CorpusConfig locates the transcript and describes its recording.
type CorpusConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	VideoLink     string `mapstructure:"video_link" yaml:"video_link"`
	VideoDuration int    `mapstructure:"video_duration" yaml:"video_duration"`
}

// RetrievalConfig controls search and timestamp resolution.
type RetrievalConfig struct {
	TopK              int     `mapstructure:"top_k" yaml:"top_k"`
	LeadIn            int     `mapstructure:"lead_in" yaml:"lead_in"`
	DistanceTolerance float64 `mapstructure:"distance_tolerance" yaml:"distance_tolerance"`
}

// AnswerConfig selects the model that writes answers.
type AnswerConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`
	Model     string `mapstructure:"model" yaml:"model"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// StorageConfig selects where index builds live.
type StorageConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	DataDir     string `mapstructure:"data_dir" yaml:"data_dir"`
	PostgresURL string `mapstructure:"postgres_url" yaml:"postgres_url,omitempty"`
	KeepBuilds  int    `mapstructure:"keep_builds" yaml:"keep_builds"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Listen         string        `mapstructure:"listen" yaml:"listen"`
	CORSOrigins    []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.concurrency", 4)
	v.SetDefault("embedding.requests_per_second", 0)

	v.SetDefault("corpus.path", "data/structured_transcripts/march_11.json")
	v.SetDefault("corpus.video_link", "https://www.facebook.com/rnlawgroupUS/videos/498204740023527/")
	v.SetDefault("corpus.video_duration", 0)

	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.lead_in", 2)
	v.SetDefault("retrieval.distance_tolerance", 1e-6)

	v.SetDefault("answer.provider", "openai")
	v.SetDefault("answer.model", "gpt-4o")
	v.SetDefault("answer.max_tokens", 1024)

	v.SetDefault("storage.backend", string(types.BackendSQLite))
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.keep_builds", 3)

	v.SetDefault("server.listen", "127.0.0.1:8000")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 0)
	v.SetDefault("server.rate_limit_burst", 10)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// SetupEnv binds CHATBOT_* environment variables to config keys.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix CHATBOT_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, chatboterr.Errorf(chatboterr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, chatboterr.Errorf(chatboterr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, chatboterr.Errorf(chatboterr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateCorpus()...)
	errs = append(errs, c.validateRetrieval()...)
	errs = append(errs, c.validateAnswer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	p, err := types.ParseProviderName(c.Embedding.Provider)
	if err != nil || !p.CanEmbed() {
		errs = append(errs, invalid("embedding.provider must be one of %v, got %q",
			types.EmbeddingProviders, c.Embedding.Provider))
	}
	if p != types.ProviderHashing && c.Embedding.Model == "" {
		errs = append(errs, invalid("embedding.model must not be empty"))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, invalid("embedding.dimensions must be greater than 0, got %d", c.Embedding.Dimensions))
	}
	if c.Embedding.Timeout < 0 {
		errs = append(errs, invalid("embedding.timeout must not be negative, got %s", c.Embedding.Timeout))
	}
	if c.Embedding.Concurrency <= 0 {
		errs = append(errs, invalid("embedding.concurrency must be greater than 0, got %d", c.Embedding.Concurrency))
	}
	if c.Embedding.RequestsPerSecond < 0 {
		errs = append(errs, invalid("embedding.requests_per_second must not be negative, got %g", c.Embedding.RequestsPerSecond))
	}

	return errs
}

func (c *Config) validateCorpus() []error {
	var errs []error

	if c.Corpus.VideoDuration < 0 {
		errs = append(errs, invalid("corpus.video_duration must not be negative, got %d", c.Corpus.VideoDuration))
	}

	return errs
}

func (c *Config) validateRetrieval() []error {
	var errs []error

	if c.Retrieval.TopK < 1 {
		errs = append(errs, invalid("retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK))
	}
	if c.Retrieval.LeadIn < 0 {
		errs = append(errs, invalid("retrieval.lead_in must not be negative, got %d", c.Retrieval.LeadIn))
	}
	if c.Retrieval.DistanceTolerance < 0 {
		errs = append(errs, invalid("retrieval.distance_tolerance must not be negative, got %g", c.Retrieval.DistanceTolerance))
	}

	return errs
}

func (c *Config) validateAnswer() []error {
	var errs []error

	p, err := types.ParseProviderName(c.Answer.Provider)
	if err != nil || !p.CanAnswer() {
		errs = append(errs, invalid("answer.provider must be one of %v, got %q",
			types.AnswerProviders, c.Answer.Provider))
	}
	if c.Answer.Model == "" {
		errs = append(errs, invalid("answer.model must not be empty"))
	}
	if c.Answer.MaxTokens <= 0 {
		errs = append(errs, invalid("answer.max_tokens must be greater than 0, got %d", c.Answer.MaxTokens))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	backend := types.Backend(c.Storage.Backend)
	if !backend.Valid() {
		errs = append(errs, invalid("storage.backend must be one of [sqlite, postgres], got %q", c.Storage.Backend))
	}
	if backend == types.BackendSQLite && c.Storage.DataDir == "" {
		errs = append(errs, invalid("storage.data_dir must not be empty for the sqlite backend"))
	}
	if backend == types.BackendPostgres && c.Storage.PostgresURL == "" {
		errs = append(errs, invalid("storage.postgres_url must not be empty for the postgres backend"))
	}
	if c.Storage.KeepBuilds < 1 {
		errs = append(errs, invalid("storage.keep_builds must be at least 1, got %d", c.Storage.KeepBuilds))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		return append(errs, invalid("server.listen must not be empty"))
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, chatboterr.Errorf(chatboterr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err,
		))
	} else {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			errs = append(errs, invalid("server.listen port must be a number, got %q", portStr))
		} else if port < 0 || port > 65535 {
			errs = append(errs, invalid("server.listen port must be between 0 and 65535, got %d", port))
		}
	}

	if c.Server.RateLimitRPS < 0 {
		errs = append(errs, invalid("server.rate_limit_rps must not be negative, got %g", c.Server.RateLimitRPS))
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst <= 0 {
		errs = append(errs, invalid("server.rate_limit_burst must be positive when rate limiting is on, got %d", c.Server.RateLimitBurst))
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, invalid("logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, invalid("logging.format must be one of [text, json], got %q", c.Logging.Format))
	}

	return errs
}

func invalid(format string, args ...any) error {
	return chatboterr.Errorf(chatboterr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}
