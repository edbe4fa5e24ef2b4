// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package google_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider/google"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// geminiServer answers embed and generate calls with canned payloads.
func geminiServer(t *testing.T, values []float32, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.Contains(r.URL.Path, "mbedContent"):
			// Single and batch responses are both provided so either endpoint decodes.
			_ = json.NewEncoder(w).Encode(map[string]any{
				"embedding":  map[string]any{"values": values},
				"embeddings": []any{map[string]any{"values": values}},
			})
		case strings.HasSuffix(r.URL.Path, ":generateContent"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []any{map[string]any{
					"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
					"finishReason": "STOP",
				}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedder_Embed(t *testing.T) {
	srv := geminiServer(t, []float32{0.1, 0.2, 0.3}, "")

	e, err := google.NewEmbedder(context.Background(), provider.EmbedderConfig{
		APIKey: "test-key", BaseURL: srv.URL, Model: "text-embedding-004", Dimensions: 3,
	})
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "green card backlog")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "google", e.Name())
	assert.Equal(t, "text-embedding-004", e.Model())
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	srv := geminiServer(t, []float32{0.1}, "")

	e, err := google.NewEmbedder(context.Background(), provider.EmbedderConfig{
		APIKey: "test-key", BaseURL: srv.URL, Model: "text-embedding-004", Dimensions: 3,
	})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "x")
	assert.True(t, chatboterr.HasCode(err, chatboterr.CodeEmbeddingResponseInvalid))
}

func TestEmbedder_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"key revoked","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	e, err := google.NewEmbedder(context.Background(), provider.EmbedderConfig{
		APIKey: "test-key", BaseURL: srv.URL, Model: "text-embedding-004",
	})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, chatboterr.IsEmbeddingFailure(err))
	assert.True(t, chatboterr.IsUpstreamFailure(err))
}

func TestGenerator_Generate(t *testing.T) {
	srv := geminiServer(t, nil, "Check the segment at 28 seconds.")

	g, err := google.NewGenerator(context.Background(), provider.GeneratorConfig{
		APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-2.5-flash",
	})
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), provider.GenerateRequest{SystemPrompt: "sys", Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "Check the segment at 28 seconds.", out)
}

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := google.NewEmbedder(context.Background(), provider.EmbedderConfig{Model: "text-embedding-004"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, chatboterr.HasCode(err, chatboterr.CodeProviderConfigInvalid))
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, provider.Default.Embedders(), types.ProviderGoogle)
	assert.Contains(t, provider.Default.Generators(), types.ProviderGoogle)
}
