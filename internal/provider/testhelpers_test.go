// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package provider_test

import (
	"context"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
)

// stubEmbedder returns a fixed vector, or err when set. When block is true it
// waits for the context to finish.
type stubEmbedder struct {
	vec   []float32
	err   error
	block bool
	calls int
}

func (s *stubEmbedder) Name() string    { return "stub" }
func (s *stubEmbedder) Model() string   { return "stub-model" }
func (s *stubEmbedder) Dimensions() int { return len(s.vec) }

func (s *stubEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

type stubGenerator struct {
	out string
	err error
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(_ context.Context, _ provider.GenerateRequest) (string, error) {
	return s.out, s.err
}
