// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/answer"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/server"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

func TestStatus_Ready(t *testing.T) {
	f := newFixture(t, false)
	w := f.do(t, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body server.StatusBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Ready)
	require.NotNil(t, body.Build)
	assert.Equal(t, "b1", body.Build.BuildID)
	assert.Equal(t, 3, body.Build.Count)
}

func TestStatus_NothingBuilt(t *testing.T) {
	f := newFixture(t, false)
	f.status.status = nil
	f.status.err = chatboterr.New(chatboterr.CodeIndexLoadNotFound, "no active build")

	w := f.do(t, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body server.StatusBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	assert.Nil(t, body.Build)
}

func TestStatus_IncompatibleEmbedder(t *testing.T) {
	f := newFixture(t, false)
	f.status.status.Compatible = false

	w := f.do(t, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body server.StatusBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	assert.NotNil(t, body.Build)
}

func TestStatus_StoreFailure(t *testing.T) {
	f := newFixture(t, false)
	f.status.err = chatboterr.New(chatboterr.CodeStoreDatabaseFailure, "disk I/O error")

	w := f.do(t, http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	p := decodeProblem(t, w)
	assert.Equal(t, "internal error", p.Detail)
	assert.NotContains(t, w.Body.String(), "disk I/O")
}

func TestSearch_DefaultTopK(t *testing.T) {
	f := newFixture(t, false)
	w := f.do(t, http.MethodGet, "/api/v1/search?query=capital+gains", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body server.SearchBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "capital gains", body.Query)
	assert.Equal(t, 2, f.search.gotK)
	require.Len(t, body.Results, 2)
	assert.Equal(t, 1, body.Results[0].Ordinal)
	assert.InDelta(t, 30.0, body.Results[0].Segment.StartTime, 1e-9)
	assert.LessOrEqual(t, body.Results[0].Distance, body.Results[1].Distance)
}

func TestSearch_ExplicitTopK(t *testing.T) {
	f := newFixture(t, false)
	w := f.do(t, http.MethodGet, "/api/v1/search?query=estate&top_k=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, f.search.gotK)

	var body server.SearchBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Results, 3)
}

func TestSearch_EmptyResultIsArray(t *testing.T) {
	f := newFixture(t, false)
	f.search.results = nil
	w := f.do(t, http.MethodGet, "/api/v1/search?query=anything", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)
}

func TestSearch_RequestValidation(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodGet, "/api/v1/search", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/search?query=x&top_k=-1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	assert.Empty(t, f.search.gotText)
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{
			name:   "no index",
			err:    chatboterr.New(chatboterr.CodeIndexLoadNotFound, "no active build"),
			status: http.StatusNotFound,
			detail: "chatbot index",
		},
		{
			name:   "corpus mismatch",
			err:    chatboterr.New(chatboterr.CodeIndexCorpusMismatch, "catalog has 2 entries, index has 3"),
			status: http.StatusNotFound,
			detail: "chatbot index",
		},
		{
			name:   "dimension mismatch",
			err:    chatboterr.New(chatboterr.CodeIndexSearchDimensionInvalid, "query has 4 dimensions, index has 8"),
			status: http.StatusBadRequest,
			detail: "4 dimensions",
		},
		{
			name:   "embedding upstream",
			err:    chatboterr.New(chatboterr.CodeEmbeddingUpstreamFailure, "connection refused"),
			status: http.StatusBadGateway,
			detail: "could not process request",
		},
		{
			name:   "embedding timeout",
			err:    chatboterr.New(chatboterr.CodeEmbeddingRequestTimeout, "deadline exceeded"),
			status: http.StatusGatewayTimeout,
			detail: "could not process request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			f.search.err = tt.err

			w := f.do(t, http.MethodGet, "/api/v1/search?query=capital+gains", "")
			assert.Equal(t, tt.status, w.Code)

			p := decodeProblem(t, w)
			assert.Contains(t, p.Detail, tt.detail)
			require.NotEmpty(t, p.Errors)
			assert.Equal(t, "code", p.Errors[0].Location)
			assert.Equal(t, string(chatboterr.CodeOf(tt.err)), p.Errors[0].Value)
		})
	}
}

func TestResolve_Scenario(t *testing.T) {
	f := newFixture(t, false)
	body := `{
		"query": "How are capital gains on real estate taxed?",
		"answer": "Capital gains on real estate are taxed at a lower rate.",
		"candidates": [
			{"ordinal": 1, "segment": {"start_time": 30, "text": "Capital gains on real estate are taxed differently."}, "distance": 0.2},
			{"ordinal": 2, "segment": {"start_time": 75, "text": "Let's talk about estate planning."}, "distance": 1.1}
		]
	}`

	w := f.do(t, http.MethodPost, "/api/v1/resolve", body)
	require.Equal(t, http.StatusOK, w.Code)

	var out server.ResolveBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Found)
	require.NotNil(t, out.Timestamp)
	assert.Equal(t, 28, *out.Timestamp)
}

func TestResolve_Overrides(t *testing.T) {
	f := newFixture(t, false)
	body := `{
		"query": "q",
		"answer": "a",
		"candidates": [
			{"ordinal": 0, "segment": {"start_time": 90.7, "text": "late"}, "distance": 0.1},
			{"ordinal": 1, "segment": {"start_time": 10, "text": "early"}, "distance": 0.5}
		],
		"video_duration": 60,
		"lead_in": 0
	}`

	w := f.do(t, http.MethodPost, "/api/v1/resolve", body)
	require.Equal(t, http.StatusOK, w.Code)

	var out server.ResolveBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.True(t, out.Found)
	assert.Equal(t, 10, *out.Timestamp)
}

func TestResolve_HugeStartTimeIsNotFound(t *testing.T) {
	f := newFixture(t, false)
	body := `{
		"query": "q",
		"answer": "a",
		"candidates": [{"ordinal": 0, "segment": {"start_time": 1e300, "text": "far"}, "distance": 0.1}],
		"video_duration": 60
	}`

	w := f.do(t, http.MethodPost, "/api/v1/resolve", body)
	require.Equal(t, http.StatusOK, w.Code)

	var out server.ResolveBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.False(t, out.Found)
	assert.Nil(t, out.Timestamp)
}

func TestResolve_NoCandidates(t *testing.T) {
	f := newFixture(t, false)
	w := f.do(t, http.MethodPost, "/api/v1/resolve", `{"query":"q","answer":"a","candidates":[]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var out server.ResolveBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.False(t, out.Found)
	assert.Nil(t, out.Timestamp)
}

func TestAsk(t *testing.T) {
	f := newFixture(t, true)
	for _, path := range []string{"/api/v1/ask", "/ask"} {
		t.Run(path, func(t *testing.T) {
			w := f.do(t, http.MethodGet, path+"?query=capital+gains", "")
			require.Equal(t, http.StatusOK, w.Code)

			var out answer.Answer
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			assert.Equal(t, "capital gains", out.Query)
			require.NotNil(t, out.Timestamp)
			assert.Equal(t, 28, *out.Timestamp)
			assert.Contains(t, out.References, "t=28s")
		})
	}
}

func TestAsk_NotConfigured(t *testing.T) {
	f := newFixture(t, false)
	w := f.do(t, http.MethodGet, "/api/v1/ask?query=hello", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAsk_UpstreamFailure(t *testing.T) {
	f := newFixture(t, true)
	f.ask.err = chatboterr.New(chatboterr.CodeAnswerUpstreamFailure, "model overloaded")

	w := f.do(t, http.MethodGet, "/api/v1/ask?query=hello", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decodeProblem(t, w).Detail, "model overloaded")
}
