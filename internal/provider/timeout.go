// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package provider

import (
	"context"
	"errors"
	"time"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

type timeoutEmbedder struct {
	Embedder
	timeout time.Duration
}

// WithTimeout bounds each Embed call by d. A call that runs past the deadline
// fails with CodeEmbeddingRequestTimeout. A non-positive d returns e as is.
func WithTimeout(e Embedder, d time.Duration) Embedder {
	if d <= 0 {
		return e
	}
	return &timeoutEmbedder{Embedder: e, timeout: d}
}

func (t *timeoutEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	vec, err := t.Embedder.Embed(ctx, text)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, chatboterr.Errorf(chatboterr.CodeEmbeddingRequestTimeout,
			"%s embedding exceeded %s: %v", t.Name(), t.timeout, err)
	}
	return vec, err
}
