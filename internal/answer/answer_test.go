// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package answer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/answer"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/resolver"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/retrieval"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

type stubSearcher struct {
	out   []retrieval.Candidate
	err   error
	query string
	topK  int
}

func (s *stubSearcher) Search(_ context.Context, query string, topK int) ([]retrieval.Candidate, error) {
	s.query, s.topK = query, topK
	return s.out, s.err
}

type stubGenerator struct {
	out string
	err error
	req provider.GenerateRequest
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(_ context.Context, req provider.GenerateRequest) (string, error) {
	g.req = req
	return g.out, g.err
}

func candidates() []retrieval.Candidate {
	return []retrieval.Candidate{
		{Ordinal: 1, Distance: 0.6, Segment: transcript.Segment{StartTime: 30, Text: "H-1B visa changes discussed here", SourceRef: "https://www.youtube.com/watch?v=abc"}},
		{Ordinal: 2, Distance: 1.4, Segment: transcript.Segment{StartTime: 95.5, Text: "Q&A session begins"}},
	}
}

func TestAsk_FullFlow(t *testing.T) {
	s := &stubSearcher{out: candidates()}
	g := &stubGenerator{out: "The H-1B visa changes were discussed."}
	svc := answer.NewService(s, g, answer.Config{TopK: 5, MaxTokens: 256, Resolve: resolver.Options{LeadIn: 2}}, nil)

	got, err := svc.Ask(context.Background(), "  H-1B visa  ")
	require.NoError(t, err)

	assert.Equal(t, "H-1B visa", s.query)
	assert.Equal(t, 5, s.topK)
	assert.Equal(t, answer.SystemPrompt, g.req.SystemPrompt)
	assert.Equal(t, 256, g.req.MaxTokens)
	assert.Contains(t, g.req.Prompt, "User's Question: H-1B visa")
	assert.Contains(t, g.req.Prompt, "(30s) H-1B visa changes discussed here\n(95s) Q&A session begins")

	assert.Equal(t, "The H-1B visa changes were discussed.", got.Response)
	require.NotNil(t, got.Timestamp)
	assert.Equal(t, 28, *got.Timestamp)
	assert.Equal(t, "https://www.youtube.com/watch?t=28s&v=abc", got.Reference)
	assert.Contains(t, got.References, "(at 28s)")
	assert.Len(t, got.Candidates, 2)
}

func TestAsk_NoResultsIsSuccess(t *testing.T) {
	g := &stubGenerator{out: "unused"}
	svc := answer.NewService(&stubSearcher{}, g, answer.Config{}, nil)

	got, err := svc.Ask(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, answer.NoResultsMessage, got.Response)
	assert.Equal(t, answer.NoReferences, got.References)
	assert.Nil(t, got.Timestamp)
	assert.NotNil(t, got.Candidates)
	assert.Empty(t, g.req.Prompt, "generator is not called")
}

func TestAsk_DurationBoundLeavesNoTimestamp(t *testing.T) {
	s := &stubSearcher{out: candidates()}
	svc := answer.NewService(s, &stubGenerator{out: "ok"}, answer.Config{Resolve: resolver.Options{Duration: 10}}, nil)

	got, err := svc.Ask(context.Background(), "visa")
	require.NoError(t, err)
	assert.Nil(t, got.Timestamp)
	assert.Empty(t, got.Reference)
	assert.Equal(t, answer.NoReferences, got.References)
}

func TestAsk_DefaultVideoLink(t *testing.T) {
	c := candidates()
	c[0].Segment.SourceRef = ""
	svc := answer.NewService(&stubSearcher{out: c}, &stubGenerator{out: "ok"},
		answer.Config{VideoLink: "https://example.com/video", Resolve: resolver.Options{LeadIn: 2}}, nil)

	got, err := svc.Ask(context.Background(), "visa")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/video?t=28s", got.Reference)
}

func TestAsk_Errors(t *testing.T) {
	notFound := chatboterr.New(chatboterr.CodeIndexLoadNotFound, "no index")

	tests := []struct {
		name  string
		query string
		s     *stubSearcher
		g     *stubGenerator
		check func(t *testing.T, err error)
	}{
		{
			name:  "empty query",
			query: " ",
			s:     &stubSearcher{},
			g:     &stubGenerator{},
			check: func(t *testing.T, err error) { assert.True(t, chatboterr.IsInvalidInput(err)) },
		},
		{
			name:  "search error propagates",
			query: "visa",
			s:     &stubSearcher{err: notFound},
			g:     &stubGenerator{},
			check: func(t *testing.T, err error) { assert.True(t, chatboterr.IsNotFound(err)) },
		},
		{
			name:  "plain generator error becomes upstream failure",
			query: "visa",
			s:     &stubSearcher{out: candidates()},
			g:     &stubGenerator{err: errors.New("503 from model")},
			check: func(t *testing.T, err error) {
				assert.True(t, chatboterr.HasCode(err, chatboterr.CodeAnswerUpstreamFailure))
				assert.Contains(t, err.Error(), "503 from model")
			},
		},
		{
			name:  "coded generator error kept",
			query: "visa",
			s:     &stubSearcher{out: candidates()},
			g:     &stubGenerator{err: chatboterr.New(chatboterr.CodeAnswerResponseInvalid, "empty completion")},
			check: func(t *testing.T, err error) {
				assert.True(t, chatboterr.HasCode(err, chatboterr.CodeAnswerResponseInvalid))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := answer.NewService(tt.s, tt.g, answer.Config{}, nil).Ask(context.Background(), tt.query)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestReferenceLink(t *testing.T) {
	got, err := answer.ReferenceLink("https://www.youtube.com/watch?v=abc&t=5s", 90)
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?t=90s&v=abc", got)

	_, err = answer.ReferenceLink("://bad", 1)
	assert.Error(t, err)
}
