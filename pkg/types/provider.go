// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package types

import (
	"strings"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// ProviderName identifies a model vendor.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGoogle    ProviderName = "google"
	// ProviderHashing is the local feature-hashing embedder. It needs no
	// credentials and is deterministic.
	ProviderHashing ProviderName = "hashing"
)

// EmbeddingProviders lists the providers that can produce embeddings.
var EmbeddingProviders = []ProviderName{ProviderOpenAI, ProviderGoogle, ProviderHashing}

// AnswerProviders lists the providers that can generate answers.
var AnswerProviders = []ProviderName{ProviderOpenAI, ProviderAnthropic, ProviderGoogle}

// CanEmbed reports whether p can produce embeddings.
func (p ProviderName) CanEmbed() bool {
	return contains(EmbeddingProviders, p)
}

// CanAnswer reports whether p can generate answers.
func (p ProviderName) CanAnswer() bool {
	return contains(AnswerProviders, p)
}

// NeedsAPIKey reports whether p authenticates with an API key.
func (p ProviderName) NeedsAPIKey() bool {
	return p != ProviderHashing
}

// ParseProviderName parses a case-insensitive provider name.
func ParseProviderName(s string) (ProviderName, error) {
	p := ProviderName(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderHashing:
		return p, nil
	default:
		return "", chatboterr.Errorf(chatboterr.CodeConfigValidateInvalidValue,
			"invalid provider: %q", s)
	}
}

func contains(list []ProviderName, p ProviderName) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}
