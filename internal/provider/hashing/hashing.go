// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package hashing is a local, deterministic embedder based on signed feature
// hashing of word tokens. It needs no network access or credentials, which
// makes it suitable for offline indexing and tests.
package hashing

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/textutil"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
)

const (
	name             = "hashing"
	model            = "fnv1a-signed"
	DefaultDimension = 256
)

func init() {
	provider.RegisterEmbedder(types.ProviderHashing, func(_ context.Context, cfg provider.EmbedderConfig) (provider.Embedder, error) {
		return New(cfg.Dimensions)
	})
}

// Embedder maps each token to a bucket and sign via FNV-1a and L2-normalizes
// the resulting term-frequency vector.
type Embedder struct {
	dims int
}

var _ provider.Embedder = (*Embedder)(nil)

// New returns an Embedder producing vectors of length dims, or
// DefaultDimension when dims is zero.
func New(dims int) (*Embedder, error) {
	if dims == 0 {
		dims = DefaultDimension
	}
	if dims < 0 {
		return nil, chatboterr.Errorf(chatboterr.CodeProviderConfigInvalid, "hashing: dimensions must be positive, got %d", dims)
	}
	return &Embedder{dims: dims}, nil
}

func (e *Embedder) Name() string    { return name }
func (e *Embedder) Model() string   { return model }
func (e *Embedder) Dimensions() int { return e.dims }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, chatboterr.Wrap(err, chatboterr.CodeEmbeddingUpstreamFailure, "embedding cancelled",
			chatboterr.FieldProvider(name))
	}

	tokens := textutil.Tokens(text)
	if len(tokens) == 0 {
		return nil, chatboterr.New(chatboterr.CodeEmbeddingRequestInvalid, "text has no indexable tokens",
			chatboterr.FieldProvider(name))
	}

	acc := make([]float64, e.dims)
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()

		sign := 1.0
		if sum&0x80000000 != 0 {
			sign = -1
		}
		acc[int(sum&0x7fffffff)%e.dims] += sign
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, e.dims)
	if norm == 0 {
		// Every token cancelled out; fall back to the first bucket so the
		// vector stays usable for L2 search.
		vec[0] = 1
		return vec, nil
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}
