// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package anthropic generates answers with the Anthropic Messages API.
// Anthropic offers no embedding endpoint, so only a Generator is registered.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
)

const (
	name             = "anthropic"
	defaultMaxTokens = 1024
)

func init() {
	provider.RegisterGenerator(types.ProviderAnthropic, func(_ context.Context, cfg provider.GeneratorConfig) (provider.Generator, error) {
		return NewGenerator(cfg)
	})
}

// Generator implements provider.Generator.
type Generator struct {
	client    anthropicsdk.Client
	model     string
	maxTokens int
}

var _ provider.Generator = (*Generator)(nil)

// NewGenerator returns a Generator. Returns an error if the API key or model
// is missing.
func NewGenerator(cfg provider.GeneratorConfig, extra ...option.RequestOption) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, chatboterr.New(chatboterr.CodeProviderConfigInvalid,
			"anthropic: missing api_key in config", chatboterr.FieldProvider(name))
	}
	if cfg.Model == "" {
		return nil, chatboterr.New(chatboterr.CodeProviderConfigInvalid,
			"anthropic: missing answer model", chatboterr.FieldProvider(name))
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Generator{
		client:    anthropicsdk.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}, nil
}

func (g *Generator) Name() string { return name }

func (g *Generator) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", chatboterr.New(chatboterr.CodeAnswerRequestInvalid, "prompt is empty", chatboterr.FieldProvider(name))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(g.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		code := chatboterr.CodeAnswerUpstreamFailure
		var apiErr *anthropicsdk.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			code = chatboterr.CodeAnswerRequestInvalid
		}
		return "", chatboterr.Wrap(err, code, "creating message", chatboterr.FieldProvider(name))
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", chatboterr.New(chatboterr.CodeAnswerResponseInvalid, "message has no text content",
			chatboterr.FieldProvider(name))
	}
	return sb.String(), nil
}
