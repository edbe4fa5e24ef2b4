// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package provider

import (
	"context"
	"math"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Name() string
	Model() string
	Dimensions() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces natural-language answer text from a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is a single-turn completion request.
type GenerateRequest struct {
	SystemPrompt string
	Prompt       string
	MaxTokens    int
}

// EmbedderConfig configures an embedding backend.
type EmbedderConfig struct {
	Model      string
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Dimensions int
}

// GeneratorConfig configures an answer backend.
type GeneratorConfig struct {
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
}

// Describe returns "name/model" for logs and build manifests.
func Describe(e Embedder) string {
	if e.Model() == "" {
		return e.Name()
	}
	return e.Name() + "/" + e.Model()
}

// CheckVector verifies that an upstream vector has the expected dimension and
// only finite components.
func CheckVector(name string, vec []float32, dims int) error {
	if len(vec) == 0 {
		return chatboterr.New(chatboterr.CodeEmbeddingResponseInvalid, "empty embedding returned",
			chatboterr.FieldProvider(name))
	}
	if dims > 0 && len(vec) != dims {
		return chatboterr.New(chatboterr.CodeEmbeddingResponseInvalid, "embedding has unexpected dimension",
			chatboterr.FieldProvider(name), chatboterr.Field("want", dims), chatboterr.Field("got", len(vec)))
	}
	for _, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return chatboterr.New(chatboterr.CodeEmbeddingResponseInvalid, "embedding contains non-finite values",
				chatboterr.FieldProvider(name))
		}
	}
	return nil
}

// Float32s narrows SDK float64 vectors to the float32 storage format.
func Float32s(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
