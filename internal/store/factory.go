// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"context"
	"slices"
	"sync"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// Config selects and configures a backend.
type Config struct {
	Backend     string
	DataDir     string
	PostgresURL string
	// KeepBuilds bounds how many published builds are retained; 0 keeps all.
	KeepBuilds int
}

// BackendFactory opens an IndexStore for cfg.
type BackendFactory func(ctx context.Context, cfg Config) (IndexStore, error)

var (
	backends   = map[string]BackendFactory{}
	backendsMu sync.RWMutex
)

// RegisterBackend registers a named backend. Backend packages call this from
// init(). This function is goroutine-safe.
func RegisterBackend(name string, f BackendFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = f
}

// Backends lists registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg Config) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// New opens the IndexStore for cfg's backend.
func New(ctx context.Context, cfg Config) (IndexStore, error) {
	backend := resolveBackend(cfg)

	backendsMu.RLock()
	f, ok := backends[backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, chatboterr.New(chatboterr.CodeStoreBackendUnsupported, "unsupported storage backend",
			chatboterr.Field("backend", backend))
	}
	return f(ctx, cfg)
}
