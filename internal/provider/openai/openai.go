// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package openai provides embeddings and answer generation backed by the
// OpenAI API.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
)

const name = "openai"

func init() {
	provider.RegisterEmbedder(types.ProviderOpenAI, func(_ context.Context, cfg provider.EmbedderConfig) (provider.Embedder, error) {
		return NewEmbedder(cfg)
	})
	provider.RegisterGenerator(types.ProviderOpenAI, func(_ context.Context, cfg provider.GeneratorConfig) (provider.Generator, error) {
		return NewGenerator(cfg)
	})
}

func newClient(apiKey, baseURL string, extra ...option.RequestOption) (openaisdk.Client, error) {
	if apiKey == "" {
		return openaisdk.Client{}, chatboterr.New(chatboterr.CodeProviderConfigInvalid,
			"openai: missing api_key in config", chatboterr.FieldProvider(name))
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openaisdk.NewClient(append(opts, extra...)...), nil
}

// Embedder calls the embeddings endpoint.
type Embedder struct {
	client openaisdk.Client
	model  string
	dims   int
}

var _ provider.Embedder = (*Embedder)(nil)

// NewEmbedder returns an Embedder. Extra request options are appended after
// the configured ones.
func NewEmbedder(cfg provider.EmbedderConfig, extra ...option.RequestOption) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, chatboterr.New(chatboterr.CodeProviderConfigInvalid,
			"openai: missing embedding model", chatboterr.FieldProvider(name))
	}
	client, err := newClient(cfg.APIKey, cfg.BaseURL, extra...)
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

	params := openaisdk.EmbeddingNewParams{
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(text)},
		Model:          openaisdk.EmbeddingModel(e.model),
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}
	// Only the text-embedding-3 family accepts a custom output size.
	if e.dims > 0 && strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = param.NewOpt(int64(e.dims))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, classify(err, chatboterr.CodeEmbeddingRequestInvalid, chatboterr.CodeEmbeddingUpstreamFailure, "creating embedding")
	}
	if len(resp.Data) == 0 {
		return nil, chatboterr.New(chatboterr.CodeEmbeddingResponseInvalid, "no embedding in response",
			chatboterr.FieldProvider(name))
	}

	vec := provider.Float32s(resp.Data[0].Embedding)
	if err := provider.CheckVector(name, vec, e.dims); err != nil {
		return nil, err
	}
	return vec, nil
}

// Generator calls the chat completions endpoint.
type Generator struct {
	client    openaisdk.Client
	model     string
	maxTokens int
}

var _ provider.Generator = (*Generator)(nil)

func NewGenerator(cfg provider.GeneratorConfig, extra ...option.RequestOption) (*Generator, error) {
	if cfg.Model == "" {
		return nil, chatboterr.New(chatboterr.CodeProviderConfigInvalid,
			"openai: missing answer model", chatboterr.FieldProvider(name))
	}
	client, err := newClient(cfg.APIKey, cfg.BaseURL, extra...)
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

	var msgs []openaisdk.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		msgs = append(msgs, openaisdk.SystemMessage(req.SystemPrompt))
	}
	msgs = append(msgs, openaisdk.UserMessage(req.Prompt))

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.model),
		Messages: msgs,
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(maxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err, chatboterr.CodeAnswerRequestInvalid, chatboterr.CodeAnswerUpstreamFailure, "creating chat completion")
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", chatboterr.New(chatboterr.CodeAnswerResponseInvalid, "completion has no content",
			chatboterr.FieldProvider(name))
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps a 400 from the API to invalid and anything else to upstream.
func classify(err error, invalid, upstream chatboterr.Code, msg string) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		code := upstream
		if apiErr.StatusCode == http.StatusBadRequest {
			code = invalid
		}
		return chatboterr.Wrap(err, code, msg,
			chatboterr.FieldProvider(name), chatboterr.Field("status", apiErr.StatusCode))
	}
	return chatboterr.Wrap(err, upstream, msg, chatboterr.FieldProvider(name))
}
