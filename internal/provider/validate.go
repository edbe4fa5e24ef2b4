// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package provider

import (
	"context"
	"io"
	"net/http"
	"strings"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
)

// modelsEndpoint returns the default list-models URL for p.
func modelsEndpoint(p types.ProviderName) string {
	switch p {
	case types.ProviderOpenAI:
		return "https://api.openai.com/v1/models"
	case types.ProviderAnthropic:
		return "https://api.anthropic.com/v1/models"
	case types.ProviderGoogle:
		return "https://generativelanguage.googleapis.com/v1beta/models"
	default:
		return ""
	}
}

// ValidateKey makes a lightweight list-models call to confirm that key is
// accepted by p. baseURL overrides the vendor endpoint when non-empty.
func ValidateKey(ctx context.Context, client *http.Client, p types.ProviderName, key, baseURL string) error {
	if !p.NeedsAPIKey() {
		return nil
	}

	url := modelsEndpoint(p)
	if baseURL != "" {
		url = strings.TrimRight(baseURL, "/") + "/models"
	}
	if url == "" {
		return chatboterr.Errorf(chatboterr.CodeProviderKeyInvalid, "unknown provider: %s", p)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return chatboterr.Wrapf(err, chatboterr.CodeProviderKeyCheckFailed, "building validation request")
	}
	switch p {
	case types.ProviderAnthropic:
		req.Header.Set("x-api-key", key)
		req.Header.Set("anthropic-version", "2023-06-01")
	case types.ProviderGoogle:
		req.Header.Set("x-goog-api-key", key)
	default:
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := client.Do(req)
	if err != nil {
		return chatboterr.Wrapf(err, chatboterr.CodeProviderKeyCheckFailed, "validating %s key", p)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return chatboterr.Errorf(chatboterr.CodeProviderKeyInvalid, "invalid %s API key (HTTP %d)", p, resp.StatusCode)
	case resp.StatusCode >= 400:
		return chatboterr.Errorf(chatboterr.CodeProviderKeyCheckFailed, "%s validation failed (HTTP %d)", p, resp.StatusCode)
	}
	return nil
}
