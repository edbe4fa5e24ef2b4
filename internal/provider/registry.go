// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package provider

import (
	"context"
	"fmt"
	"slices"
	"sync"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
)

// EmbedderFactory constructs an Embedder from configuration.
type EmbedderFactory func(ctx context.Context, cfg EmbedderConfig) (Embedder, error)

// GeneratorFactory constructs a Generator from configuration.
type GeneratorFactory func(ctx context.Context, cfg GeneratorConfig) (Generator, error)

// Registry maps provider names to constructors. Backend packages register
// themselves from init so that importing them is enough to make them
// selectable by name.
type Registry struct {
	mu         sync.RWMutex
	embedders  map[types.ProviderName]EmbedderFactory
	generators map[types.ProviderName]GeneratorFactory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		embedders:  make(map[types.ProviderName]EmbedderFactory),
		generators: make(map[types.ProviderName]GeneratorFactory),
	}
}

// Default is the process-wide registry used by the package-level helpers.
var Default = NewRegistry()

// RegisterEmbedder adds an embedding constructor. It panics when called twice
// for the same name or with a nil factory.
func (r *Registry) RegisterEmbedder(name types.ProviderName, f EmbedderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f == nil {
		panic("provider: RegisterEmbedder factory is nil")
	}
	if _, dup := r.embedders[name]; dup {
		panic(fmt.Sprintf("provider: RegisterEmbedder called twice for %q", name))
	}
	r.embedders[name] = f
}

// RegisterGenerator adds an answer-generation constructor.
func (r *Registry) RegisterGenerator(name types.ProviderName, f GeneratorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f == nil {
		panic("provider: RegisterGenerator factory is nil")
	}
	if _, dup := r.generators[name]; dup {
		panic(fmt.Sprintf("provider: RegisterGenerator called twice for %q", name))
	}
	r.generators[name] = f
}

// NewEmbedder constructs the embedder registered under name.
func (r *Registry) NewEmbedder(ctx context.Context, name types.ProviderName, cfg EmbedderConfig) (Embedder, error) {
	r.mu.RLock()
	f, ok := r.embedders[name]
	r.mu.RUnlock()
	if !ok {
		return nil, chatboterr.New(chatboterr.CodeProviderNotFound, "no embedding provider registered",
			chatboterr.FieldProvider(string(name)))
	}

	e, err := f(ctx, cfg)
	if err != nil {
		return nil, chatboterr.With(err, chatboterr.FieldProvider(string(name)))
	}
	return e, nil
}

// NewGenerator constructs the generator registered under name.
func (r *Registry) NewGenerator(ctx context.Context, name types.ProviderName, cfg GeneratorConfig) (Generator, error) {
	r.mu.RLock()
	f, ok := r.generators[name]
	r.mu.RUnlock()
	if !ok {
		return nil, chatboterr.New(chatboterr.CodeProviderNotFound, "no answer provider registered",
			chatboterr.FieldProvider(string(name)))
	}

	g, err := f(ctx, cfg)
	if err != nil {
		return nil, chatboterr.With(err, chatboterr.FieldProvider(string(name)))
	}
	return g, nil
}

// Embedders returns the registered embedding provider names, sorted.
func (r *Registry) Embedders() []types.ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]types.ProviderName, 0, len(r.embedders))
	for n := range r.embedders {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Generators returns the registered answer provider names, sorted.
func (r *Registry) Generators() []types.ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]types.ProviderName, 0, len(r.generators))
	for n := range r.generators {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func RegisterEmbedder(name types.ProviderName, f EmbedderFactory) { Default.RegisterEmbedder(name, f) }

func RegisterGenerator(name types.ProviderName, f GeneratorFactory) { Default.RegisterGenerator(name, f) }

func NewEmbedder(ctx context.Context, name types.ProviderName, cfg EmbedderConfig) (Embedder, error) {
	return Default.NewEmbedder(ctx, name, cfg)
}

func NewGenerator(ctx context.Context, name types.ProviderName, cfg GeneratorConfig) (Generator, error) {
	return Default.NewGenerator(ctx, name, cfg)
}
