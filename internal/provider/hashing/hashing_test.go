// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package hashing_test

import (
	"context"
	"math"
	"testing"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider/hashing"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func mustEmbed(t *testing.T, e provider.Embedder, text string) []float32 {
	t.Helper()
	vec, err := e.Embed(context.Background(), text)
	require.NoError(t, err)
	return vec
}

func TestEmbed_DeterministicAndNormalized(t *testing.T) {
	e, err := hashing.New(64)
	require.NoError(t, err)

	a := mustEmbed(t, e, "Q&A session begins")
	b := mustEmbed(t, e, "Q&A session begins")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestEmbed_OverlapMeansCloser(t *testing.T) {
	e, err := hashing.New(0)
	require.NoError(t, err)
	assert.Equal(t, hashing.DefaultDimension, e.Dimensions())

	q := mustEmbed(t, e, "H-1B visa")
	near := mustEmbed(t, e, "H-1B visa changes discussed here")
	far := mustEmbed(t, e, "intro")

	assert.Less(t, l2(q, near), l2(q, far))
}

func TestEmbed_RejectsTokenlessText(t *testing.T) {
	e, err := hashing.New(16)
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "the and of", "!!!"} {
		_, err := e.Embed(context.Background(), text)
		assert.True(t, chatboterr.HasCode(err, chatboterr.CodeEmbeddingRequestInvalid), "text %q", text)
	}
}

func TestEmbed_CancelledContext(t *testing.T) {
	e, err := hashing.New(16)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Embed(ctx, "hello")
	assert.True(t, chatboterr.IsEmbeddingFailure(err))
}

func TestNew_NegativeDimensions(t *testing.T) {
	_, err := hashing.New(-1)
	assert.True(t, chatboterr.HasCode(err, chatboterr.CodeProviderConfigInvalid))
}

func TestRegistered(t *testing.T) {
	e, err := provider.NewEmbedder(context.Background(), types.ProviderHashing, provider.EmbedderConfig{Dimensions: 32})
	require.NoError(t, err)
	assert.Equal(t, 32, e.Dimensions())
	assert.Equal(t, "hashing/fnv1a-signed", provider.Describe(e))
}
