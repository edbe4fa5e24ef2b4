// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package provider

import (
	"context"
	"sync"
	"time"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/health"
)

// DefaultHealthCooldown is how long a provider stays marked unavailable after
// a failure.
const DefaultHealthCooldown = 30 * time.Second

// HealthTracker records provider call outcomes. A provider is available until
// a failure, then unavailable for the cooldown period.
type HealthTracker struct {
	mu           sync.RWMutex
	healthy      bool
	failedAt     time.Time
	cooldown     time.Duration
	failureCount int64
	successCount int64
	nowFunc      func() time.Time // for testing
}

// NewHealthTracker creates a tracker that starts healthy.
func NewHealthTracker(cooldown time.Duration) (*HealthTracker, error) {
	if cooldown <= 0 {
		return nil, chatboterr.Errorf(chatboterr.CodeConfigValidateInvalidValue,
			"health tracker cooldown must be positive, got %s", cooldown)
	}
	return &HealthTracker{
		healthy:  true,
		cooldown: cooldown,
		nowFunc:  time.Now,
	}, nil
}

// isHealthyLocked requires h.mu held for reading.
func (h *HealthTracker) isHealthyLocked() bool {
	if h.healthy {
		return true
	}
	return h.nowFunc().Sub(h.failedAt) >= h.cooldown
}

func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.isHealthyLocked()
}

func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	h.healthy = true
	h.successCount++
	h.mu.Unlock()
}

func (h *HealthTracker) RecordFailure() {
	h.mu.Lock()
	h.healthy = false
	h.failedAt = h.nowFunc()
	h.failureCount++
	h.mu.Unlock()
}

// Observe records err as a failure, or a success when err is nil. Invalid
// requests are the caller's fault and leave the health state untouched.
func (h *HealthTracker) Observe(err error) {
	switch {
	case err == nil:
		h.RecordSuccess()
	case chatboterr.IsInvalidInput(err):
	default:
		h.RecordFailure()
	}
}

// SetNowFunc overrides the time source (for testing).
func (h *HealthTracker) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	h.nowFunc = fn
	h.mu.Unlock()
}

// Snapshot returns the tracker state for provider name in the given role.
func (h *HealthTracker) Snapshot(name, role string) health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{
		Provider:     name,
		Role:         role,
		FailureCount: h.failureCount,
		SuccessCount: h.successCount,
		Available:    h.isHealthyLocked(),
	}
	if h.failureCount > 0 {
		t := h.failedAt
		m.LastFailureAt = &t
	}
	if !h.healthy {
		until := h.failedAt.Add(h.cooldown)
		m.CooldownUntil = &until
	}
	return m
}

// HealthReporter is implemented by providers wrapped with health tracking.
type HealthReporter interface {
	HealthMetrics() health.Metrics
}

const (
	RoleEmbedding = "embedding"
	RoleAnswer    = "answer"
)

type trackedEmbedder struct {
	Embedder
	tracker *HealthTracker
}

// TrackEmbedder records the outcome of every Embed call on tracker.
func TrackEmbedder(e Embedder, tracker *HealthTracker) Embedder {
	return &trackedEmbedder{Embedder: e, tracker: tracker}
}

func (t *trackedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := t.Embedder.Embed(ctx, text)
	t.tracker.Observe(err)
	return vec, err
}

func (t *trackedEmbedder) HealthMetrics() health.Metrics {
	return t.tracker.Snapshot(Describe(t.Embedder), RoleEmbedding)
}

type trackedGenerator struct {
	Generator
	tracker *HealthTracker
}

// TrackGenerator records the outcome of every Generate call on tracker.
func TrackGenerator(g Generator, tracker *HealthTracker) Generator {
	return &trackedGenerator{Generator: g, tracker: tracker}
}

func (t *trackedGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	out, err := t.Generator.Generate(ctx, req)
	t.tracker.Observe(err)
	return out, err
}

func (t *trackedGenerator) HealthMetrics() health.Metrics {
	return t.tracker.Snapshot(t.Name(), RoleAnswer)
}
