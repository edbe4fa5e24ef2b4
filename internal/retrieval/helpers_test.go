// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package retrieval_test

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/textutil"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// overlapEmbedder maps text onto a fixed vocabulary: one dimension per
// token, normalized, so L2 distance falls as token overlap grows.
type overlapEmbedder struct {
	vocab map[string]int
	fail  map[string]error

	mu    sync.Mutex
	calls int
}

func newOverlapEmbedder(corpus ...string) *overlapEmbedder {
	e := &overlapEmbedder{vocab: map[string]int{}, fail: map[string]error{}}
	for _, text := range corpus {
		for _, tok := range textutil.Tokens(text) {
			if _, ok := e.vocab[tok]; !ok {
				e.vocab[tok] = len(e.vocab)
			}
		}
	}
	return e
}

func (e *overlapEmbedder) Name() string    { return "overlap" }
func (e *overlapEmbedder) Model() string   { return "vocab" }
func (e *overlapEmbedder) Dimensions() int { return len(e.vocab) }

func (e *overlapEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := e.fail[text]; ok {
		return nil, err
	}

	vec := make([]float32, len(e.vocab))
	var norm float64
	for _, tok := range textutil.Tokens(text) {
		if i, ok := e.vocab[tok]; ok {
			vec[i]++
		}
	}
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		return nil, chatboterr.New(chatboterr.CodeEmbeddingRequestInvalid, "no known tokens")
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func (e *overlapEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

var errProvider = chatboterr.New(chatboterr.CodeEmbeddingUpstreamFailure, "provider unavailable")

var errPlain = errors.New("socket closed")

func scenarioSegments() []transcript.Segment {
	return []transcript.Segment{
		{StartTime: 0, Text: "intro"},
		{StartTime: 30, Text: "H-1B visa changes discussed here"},
		{StartTime: 95, Text: "Q&A session begins"},
	}
}

func texts(segs []transcript.Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text
	}
	return out
}
