// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package retrieval builds the vector index over a transcript and answers
// nearest-neighbor queries against the active build.
package retrieval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

const tracerName = "github.com/arjunrreddy/rnblawgroupchatbot/internal/retrieval"

// Candidate is a search hit resolved through the catalog.
type Candidate struct {
	Ordinal  int                `json:"ordinal"`
	Segment  transcript.Segment `json:"segment"`
	Distance float64            `json:"distance"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithConcurrency bounds the number of in-flight embedding calls during a
// build. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.concurrency = max(n, 1) }
}

// WithRateLimit paces embedding calls during a build. rps <= 0 disables
// pacing.
func WithRateLimit(rps float64) Option {
	return func(p *Pipeline) {
		if rps <= 0 {
			p.limiter = nil
			return
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithCorpus records the corpus location in build manifests.
func WithCorpus(path string) Option {
	return func(p *Pipeline) { p.corpus = path }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// Pipeline owns the index/catalog pair: it is the only writer, and it caches
// the opened snapshot for queries.
type Pipeline struct {
	store    store.IndexStore
	embedder provider.Embedder

	logger      *slog.Logger
	tracer      trace.Tracer
	concurrency int
	limiter     *rate.Limiter
	corpus      string

	now   func() time.Time
	newID func() (string, error)

	buildMu sync.Mutex

	mu   sync.RWMutex
	snap store.Snapshot
}

// New returns a Pipeline over st using e for both building and querying.
func New(st store.IndexStore, e provider.Embedder, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:       st,
		embedder:    e,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
		concurrency: 1,
		now:         time.Now,
		newID: func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embedder returns the embedder used for queries.
func (p *Pipeline) Embedder() provider.Embedder { return p.embedder }

// acquire returns the cached snapshot with the read lock held, opening it
// first if needed. With refresh set, a cached snapshot whose build is no
// longer the store's active one is dropped first, so builds published by
// another process become visible. The caller must call the returned release
// func.
func (p *Pipeline) acquire(ctx context.Context, refresh bool) (store.Snapshot, func(), error) {
	if refresh {
		p.refresh(ctx)
	}
	for {
		p.mu.RLock()
		if p.snap != nil {
			return p.snap, p.mu.RUnlock, nil
		}
		p.mu.RUnlock()

		p.mu.Lock()
		if p.snap == nil {
			snap, err := p.store.Open(ctx)
			if err != nil {
				p.mu.Unlock()
				return nil, nil, err
			}
			p.snap = snap
		}
		p.mu.Unlock()
	}
}

// refresh drops the cached snapshot when the active build has changed or
// disappeared. Other lookup failures keep serving the cached build.
func (p *Pipeline) refresh(ctx context.Context) {
	p.mu.RLock()
	cached := p.snap
	p.mu.RUnlock()
	if cached == nil {
		return
	}

	current := cached.Manifest().BuildID
	m, err := p.store.Active(ctx)
	switch {
	case err == nil && m.BuildID == current:
		return
	case err != nil && !chatboterr.IsNotFound(err):
		p.logger.Warn("checking active build; serving cached index", "build_id", current, "error", err)
		return
	}

	p.mu.Lock()
	if p.snap != cached {
		// Already replaced by a concurrent refresh or build.
		p.mu.Unlock()
		return
	}
	p.snap = nil
	p.mu.Unlock()

	p.logger.Info("active build changed; reopening index", "previous_build_id", current, "build_id", m.BuildID)
	if err := cached.Close(); err != nil {
		p.logger.Warn("closing previous index snapshot", "error", err)
	}
}

// invalidate drops the cached snapshot so the next query reopens the active
// build.
func (p *Pipeline) invalidate() {
	p.mu.Lock()
	old := p.snap
	p.snap = nil
	p.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			p.logger.Warn("closing previous index snapshot", "error", err)
		}
	}
}

// Close releases the cached snapshot. The store is owned by the caller.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snap == nil {
		return nil
	}
	err := p.snap.Close()
	p.snap = nil
	return err
}
