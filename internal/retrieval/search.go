// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package retrieval

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// Search returns up to topK candidates ordered by ascending distance, ties
// broken by ordinal. An empty result is not an error.
func (p *Pipeline) Search(ctx context.Context, query string, topK int) (_ []Candidate, err error) {
	ctx, span := p.tracer.Start(ctx, "retrieval.search")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.Int("top_k", topK))

	if topK < 1 {
		return nil, chatboterr.New(chatboterr.CodeIndexSearchInvalidInput, "top_k must be at least 1",
			chatboterr.Field("top_k", topK))
	}

	// Fail with not-found before spending a provider call.
	_, release, err := p.acquire(ctx, true)
	if err != nil {
		return nil, err
	}
	release()

	if strings.TrimSpace(query) == "" {
		return nil, chatboterr.New(chatboterr.CodeEmbeddingRequestInvalid, "query is empty")
	}
	vec, err := p.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	snap, release, err := p.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer release()

	m := snap.Manifest()
	if len(vec) != m.Dimension {
		return nil, chatboterr.New(chatboterr.CodeIndexSearchDimensionInvalid,
			"query embedding dimension does not match the active index",
			chatboterr.FieldBuildID(m.BuildID),
			chatboterr.Field("index_dimension", m.Dimension),
			chatboterr.Field("query_dimension", len(vec)),
			chatboterr.FieldProvider(provider.Describe(p.embedder)))
	}

	matches, err := snap.Nearest(ctx, vec, min(topK, snap.Len()))
	if err != nil {
		return nil, chatboterr.With(err, chatboterr.FieldBuildID(m.BuildID))
	}

	return p.resolveMatches(snap, matches), nil
}

func (p *Pipeline) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vec, err := p.embedder.Embed(ctx, query)
	if err == nil {
		return vec, nil
	}
	if errors.Is(err, context.Canceled) || chatboterr.IsEmbeddingFailure(err) {
		return nil, err
	}
	// Anything else the provider returns is still an embedding failure to
	// the caller.
	return nil, chatboterr.New(chatboterr.CodeEmbeddingUpstreamFailure, "embedding query: "+err.Error(),
		chatboterr.FieldProvider(p.embedder.Name()))
}

// resolveMatches maps ordinals through the catalog, dropping any without an
// entry.
func (p *Pipeline) resolveMatches(snap store.Snapshot, matches []store.Match) []Candidate {
	out := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		seg, ok := snap.Segment(m.Ordinal)
		if !ok || math.IsNaN(m.Distance) {
			p.logger.Warn("dropping match without catalog entry",
				"build_id", snap.Manifest().BuildID, "ordinal", m.Ordinal)
			continue
		}
		out = append(out, Candidate{Ordinal: m.Ordinal, Segment: seg, Distance: math.Max(0, m.Distance)})
	}
	return out
}
