// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package provider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHealthTracker_RejectsNonPositiveCooldown(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		_, err := provider.NewHealthTracker(d)
		require.Error(t, err)
		assert.True(t, chatboterr.IsInvalidInput(err))
	}
}

func TestHealthTracker_CooldownRecovery(t *testing.T) {
	h, err := provider.NewHealthTracker(10 * time.Second)
	require.NoError(t, err)

	now := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	h.SetNowFunc(func() time.Time { return now })

	assert.True(t, h.IsHealthy())

	h.RecordFailure()
	assert.False(t, h.IsHealthy())

	now = now.Add(9 * time.Second)
	assert.False(t, h.IsHealthy())

	now = now.Add(time.Second)
	assert.True(t, h.IsHealthy(), "cooldown elapsed")
}

func TestHealthTracker_Snapshot(t *testing.T) {
	h, err := provider.NewHealthTracker(time.Minute)
	require.NoError(t, err)

	failedAt := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	h.SetNowFunc(func() time.Time { return failedAt })

	h.RecordSuccess()
	h.RecordSuccess()
	h.RecordFailure()

	m := h.Snapshot("openai/text-embedding-3-small", provider.RoleEmbedding)
	assert.Equal(t, "openai/text-embedding-3-small", m.Provider)
	assert.Equal(t, "embedding", m.Role)
	assert.Equal(t, int64(2), m.SuccessCount)
	assert.Equal(t, int64(1), m.FailureCount)
	assert.False(t, m.Available)
	require.NotNil(t, m.LastFailureAt)
	require.NotNil(t, m.CooldownUntil)
	assert.Equal(t, failedAt.Add(time.Minute), *m.CooldownUntil)

	h.RecordSuccess()
	m = h.Snapshot("x", provider.RoleEmbedding)
	assert.True(t, m.Available)
	assert.Nil(t, m.CooldownUntil)
	assert.NotNil(t, m.LastFailureAt, "last failure is kept after recovery")
}

func TestHealthTracker_ObserveIgnoresInvalidInput(t *testing.T) {
	h, err := provider.NewHealthTracker(time.Minute)
	require.NoError(t, err)

	h.Observe(chatboterr.New(chatboterr.CodeEmbeddingRequestInvalid, "empty text"))
	assert.True(t, h.IsHealthy())

	h.Observe(errors.New("connection refused"))
	assert.False(t, h.IsHealthy())
}

func TestTrackEmbedder_RecordsOutcomes(t *testing.T) {
	h, err := provider.NewHealthTracker(time.Minute)
	require.NoError(t, err)

	stub := &stubEmbedder{vec: []float32{1, 0}}
	e := provider.TrackEmbedder(stub, h)

	_, err = e.Embed(context.Background(), "hello")
	require.NoError(t, err)

	stub.err = errors.New("boom")
	_, err = e.Embed(context.Background(), "hello")
	require.Error(t, err)

	reporter, ok := e.(provider.HealthReporter)
	require.True(t, ok)
	m := reporter.HealthMetrics()
	assert.Equal(t, "stub/stub-model", m.Provider)
	assert.Equal(t, int64(1), m.SuccessCount)
	assert.Equal(t, int64(1), m.FailureCount)
	assert.Equal(t, 2, e.Dimensions())
}

func TestTrackGenerator_RecordsOutcomes(t *testing.T) {
	h, err := provider.NewHealthTracker(time.Minute)
	require.NoError(t, err)

	g := provider.TrackGenerator(&stubGenerator{out: "answer"}, h)
	out, err := g.Generate(context.Background(), provider.GenerateRequest{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)

	m := g.(provider.HealthReporter).HealthMetrics()
	assert.Equal(t, provider.RoleAnswer, m.Role)
	assert.Equal(t, int64(1), m.SuccessCount)
}
