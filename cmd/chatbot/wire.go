// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/answer"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/config"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	_ "github.com/arjunrreddy/rnblawgroupchatbot/internal/provider/anthropic" // register anthropic generator
	_ "github.com/arjunrreddy/rnblawgroupchatbot/internal/provider/google"    // register google embedder/generator
	_ "github.com/arjunrreddy/rnblawgroupchatbot/internal/provider/hashing"   // register hashing embedder
	_ "github.com/arjunrreddy/rnblawgroupchatbot/internal/provider/openai"    // register openai embedder/generator
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/resolver"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/retrieval"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/secrets"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	_ "github.com/arjunrreddy/rnblawgroupchatbot/internal/store/postgres" // register postgres backend
	_ "github.com/arjunrreddy/rnblawgroupchatbot/internal/store/sqlite"   // register sqlite backend
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
)

// App holds the wired subsystems for one command invocation.
type App struct {
	Config    *config.Config
	Store     store.IndexStore
	Embedder  provider.Embedder
	Pipeline  *retrieval.Pipeline
	Generator provider.Generator // nil unless requested
}

// loadConfig resolves keyring references in the global viper and decodes it.
func loadConfig() (*config.Config, error) {
	v := viper.GetViper()
	if err := secrets.ResolveViper(v, secretStoreFactory(), secrets.SecretKeys...); err != nil {
		return nil, err
	}
	return config.FromViper(v)
}

// WireApp opens the store and builds the embedder and retrieval pipeline.
// When withGenerator is set, the answer model is wired too.
func WireApp(ctx context.Context, cfg *config.Config, withGenerator bool) (*App, error) {
	st, err := store.New(ctx, store.Config{
		Backend:     cfg.Storage.Backend,
		DataDir:     cfg.Storage.DataDir,
		PostgresURL: cfg.Storage.PostgresURL,
		KeepBuilds:  cfg.Storage.KeepBuilds,
	})
	if err != nil {
		return nil, chatboterr.Wrapf(err, chatboterr.CodeCLISetupFailure, "opening %s store", cfg.Storage.Backend)
	}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Store:    st,
		Embedder: embedder,
		Pipeline: retrieval.New(st, embedder,
			retrieval.WithLogger(slog.Default()),
			retrieval.WithConcurrency(cfg.Embedding.Concurrency),
			retrieval.WithRateLimit(cfg.Embedding.RequestsPerSecond),
			retrieval.WithCorpus(cfg.Corpus.Path),
		),
	}

	if withGenerator {
		gen, err := newGenerator(ctx, cfg)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Generator = gen
	}

	return app, nil
}

func newEmbedder(ctx context.Context, cfg *config.Config) (provider.Embedder, error) {
	e, err := provider.NewEmbedder(ctx, types.ProviderName(cfg.Embedding.Provider), provider.EmbedderConfig{
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	tracker, err := provider.NewHealthTracker(provider.DefaultHealthCooldown)
	if err != nil {
		return nil, err
	}
	return provider.TrackEmbedder(provider.WithTimeout(e, cfg.Embedding.Timeout), tracker), nil
}

func newGenerator(ctx context.Context, cfg *config.Config) (provider.Generator, error) {
	g, err := provider.NewGenerator(ctx, types.ProviderName(cfg.Answer.Provider), provider.GeneratorConfig{
		Model:     cfg.Answer.Model,
		APIKey:    cfg.Answer.APIKey,
		BaseURL:   cfg.Answer.BaseURL,
		MaxTokens: cfg.Answer.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	tracker, err := provider.NewHealthTracker(provider.DefaultHealthCooldown)
	if err != nil {
		return nil, err
	}
	return provider.TrackGenerator(g, tracker), nil
}

// ResolveOptions returns the resolver bounds from config.
func (a *App) ResolveOptions() resolver.Options {
	return resolver.Options{
		LeadIn:    a.Config.Retrieval.LeadIn,
		Duration:  a.Config.Corpus.VideoDuration,
		Tolerance: a.Config.Retrieval.DistanceTolerance,
	}
}

// AnswerService returns the ask flow over the pipeline. It requires a
// generator.
func (a *App) AnswerService() (*answer.Service, error) {
	if a.Generator == nil {
		return nil, chatboterr.New(chatboterr.CodeCLISetupFailure, "answer provider is not configured")
	}
	return answer.NewService(a.Pipeline, a.Generator, answer.Config{
		TopK:      a.Config.Retrieval.TopK,
		MaxTokens: a.Config.Answer.MaxTokens,
		VideoLink: a.Config.Corpus.VideoLink,
		Resolve:   a.ResolveOptions(),
	}, slog.Default()), nil
}

// Close releases the pipeline snapshot and the store.
func (a *App) Close() error {
	var errs []error
	if a.Pipeline != nil {
		if err := a.Pipeline.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// withApp loads config, wires the app, runs fn, and closes the app.
func withApp(ctx context.Context, withGenerator bool, fn func(*App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := WireApp(ctx, cfg, withGenerator)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			slog.Warn("closing app", "error", cerr)
		}
	}()
	return fn(app)
}
