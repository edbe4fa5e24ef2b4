// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package retrieval

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// SkippedSegment is a segment left out of a build because its embedding
// failed.
type SkippedSegment struct {
	Position int
	Err      error
}

// BuildResult describes a published build.
type BuildResult struct {
	Manifest store.Manifest
	Skipped  []SkippedSegment
	Duration time.Duration
}

// Build embeds every segment and publishes the resulting index/catalog pair.
// Segments whose embedding fails are skipped and logged; the build fails with
// CodeIndexBuildEmptyCorpus, leaving the active pair untouched, only when no
// segment could be embedded.
func (p *Pipeline) Build(ctx context.Context, segments []transcript.Segment) (_ *BuildResult, err error) {
	ctx, span := p.tracer.Start(ctx, "retrieval.build")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.Int("segments", len(segments)))

	if !p.buildMu.TryLock() {
		return nil, chatboterr.New(chatboterr.CodeIndexBuildConflict, "another build is in progress")
	}
	defer p.buildMu.Unlock()

	if len(segments) == 0 {
		return nil, chatboterr.New(chatboterr.CodeIndexBuildEmptyCorpus, "corpus has no segments")
	}

	release, err := p.store.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	started := p.now()
	vectors, failures, err := p.embedAll(ctx, segments)
	if err != nil {
		if chatboterr.CodeOf(err) == "" && errors.Is(err, context.DeadlineExceeded) {
			err = chatboterr.Wrap(err, chatboterr.CodeEmbeddingRequestTimeout, "embedding corpus")
		}
		return nil, err
	}

	dims := p.embedder.Dimensions()
	if dims <= 0 {
		for _, v := range vectors {
			if v != nil {
				dims = len(v)
				break
			}
		}
	}

	name := provider.Describe(p.embedder)
	records := make([]store.Record, 0, len(segments))
	var skipped []SkippedSegment
	for i, seg := range segments {
		ferr := failures[i]
		if ferr == nil {
			ferr = provider.CheckVector(p.embedder.Name(), vectors[i], dims)
		}
		if ferr != nil {
			p.logger.Warn("skipping segment: embedding failed",
				"segment", i, "start_time", seg.StartTime, "embedder", name, "error", ferr)
			skipped = append(skipped, SkippedSegment{Position: i, Err: ferr})
			continue
		}
		records = append(records, store.Record{Ordinal: len(records), Vector: vectors[i], Segment: seg})
	}

	if len(records) == 0 {
		return nil, chatboterr.New(chatboterr.CodeIndexBuildEmptyCorpus, "no segment produced an embedding",
			chatboterr.Field("segments", len(segments)), chatboterr.FieldProvider(name))
	}

	id, err := p.newID()
	if err != nil {
		return nil, chatboterr.Wrap(err, chatboterr.CodeIndexBuildInvalidInput, "generating build id")
	}

	m := store.Manifest{
		BuildID:   id,
		Dimension: dims,
		Count:     len(records),
		Embedder:  name,
		Corpus:    p.corpus,
		CreatedAt: p.now().UTC(),
	}
	for _, s := range skipped {
		m.Skipped = append(m.Skipped, s.Position)
	}

	if err := p.store.Publish(ctx, m, records); err != nil {
		return nil, chatboterr.With(err, chatboterr.FieldBuildID(id))
	}
	p.invalidate()

	span.SetAttributes(
		attribute.String("build_id", id),
		attribute.Int("indexed", len(records)),
		attribute.Int("skipped", len(skipped)),
	)
	p.logger.Info("index built",
		"build_id", id, "indexed", len(records), "skipped", len(skipped), "dimension", dims, "embedder", name)

	return &BuildResult{Manifest: m, Skipped: skipped, Duration: p.now().Sub(started)}, nil
}

// embedAll embeds segments with bounded concurrency. Per-segment failures are
// returned in failures by position; err is non-nil only when ctx ends.
func (p *Pipeline) embedAll(ctx context.Context, segments []transcript.Segment) (vectors [][]float32, failures []error, err error) {
	vectors = make([][]float32, len(segments))
	failures = make([]error, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, seg := range segments {
		g.Go(func() error {
			if p.limiter != nil {
				if err := p.limiter.Wait(gctx); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					// The deadline leaves too little time to wait for a token.
					return chatboterr.Wrap(err, chatboterr.CodeEmbeddingRequestTimeout,
						"waiting for the embedding rate limit", chatboterr.Field("segment", i))
				}
			}
			vec, err := p.embedder.Embed(gctx, seg.Text)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failures[i] = err
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return vectors, failures, nil
}
