// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package google provides embeddings and answer generation backed by the
// Gemini API.
package google

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
)

const name = "google"

func init() {
	provider.RegisterEmbedder(types.ProviderGoogle, func(ctx context.Context, cfg provider.EmbedderConfig) (provider.Embedder, error) {
		return NewEmbedder(ctx, cfg)
	})
	provider.RegisterGenerator(types.ProviderGoogle, func(ctx context.Context, cfg provider.GeneratorConfig) (provider.Generator, error) {
		return NewGenerator(ctx, cfg)
	})
}

func newClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, chatboterr.New(chatboterr.CodeProviderConfigInvalid,
			"google: missing api_key in config", chatboterr.FieldProvider(name))
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, chatboterr.Wrapf(err, chatboterr.CodeProviderConfigInvalid, "google: creating client")
	}
	return client, nil
}

// Embedder calls Models.EmbedContent.
type Embedder struct {
	client *genai.Client
	model  string
	dims   int
}

var _ provider.Embedder = (*Embedder)(nil)

func NewEmbedder(ctx context.Context, cfg provider.EmbedderConfig) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, chatboterr.New(chatboterr.CodeProviderConfigInvalid,
			"google: missing embedding model", chatboterr.FieldProvider(name))
	}
	client, err := newClient(ctx, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, model: cfg.Model, dims: cfg.Dimensions}, nil
}

func (e *Embedder) Name() string    { return name }
func (e *Embedder) Model() string   { return e.model }
func (e *Embedder) Dimensions() int { return e.dims }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, chatboterr.New(chatboterr.CodeEmbeddingRequestInvalid, "cannot embed empty text",
			chatboterr.FieldProvider(name))
	}

	var cfg *genai.EmbedContentConfig
	if e.dims > 0 {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(e.dims))}
	}

	res, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	if err != nil {
		return nil, classify(err, chatboterr.CodeEmbeddingRequestInvalid, chatboterr.CodeEmbeddingUpstreamFailure, "embedding content")
	}
	if res == nil || len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, chatboterr.New(chatboterr.CodeEmbeddingResponseInvalid, "no embedding in response",
			chatboterr.FieldProvider(name))
	}

	vec := res.Embeddings[0].Values
	if err := provider.CheckVector(name, vec, e.dims); err != nil {
		return nil, err
	}
	return vec, nil
}

// Generator calls Models.GenerateContent.
type Generator struct {
	client    *genai.Client
	model     string
	maxTokens int
}

var _ provider.Generator = (*Generator)(nil)

func NewGenerator(ctx context.Context, cfg provider.GeneratorConfig) (*Generator, error) {
	if cfg.Model == "" {
		return nil, chatboterr.New(chatboterr.CodeProviderConfigInvalid,
			"google: missing answer model", chatboterr.FieldProvider(name))
	}
	client, err := newClient(ctx, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return &Generator{client: client, model: cfg.Model, maxTokens: cfg.MaxTokens}, nil
}

func (g *Generator) Name() string { return name }

func (g *Generator) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", chatboterr.New(chatboterr.CodeAnswerRequestInvalid, "prompt is empty", chatboterr.FieldProvider(name))
	}

	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", classify(err, chatboterr.CodeAnswerRequestInvalid, chatboterr.CodeAnswerUpstreamFailure, "generating content")
	}

	out := res.Text()
	if strings.TrimSpace(out) == "" {
		return "", chatboterr.New(chatboterr.CodeAnswerResponseInvalid, "response has no text",
			chatboterr.FieldProvider(name))
	}
	return out, nil
}

func classify(err error, invalid, upstream chatboterr.Code, msg string) error {
	status := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Code
	case errors.As(err, &apiErrPtr):
		status = apiErrPtr.Code
	}

	code := upstream
	if status == http.StatusBadRequest {
		code = invalid
	}
	return chatboterr.Wrap(err, code, msg, chatboterr.FieldProvider(name), chatboterr.Field("status", status))
}
