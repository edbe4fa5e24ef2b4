// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/answer"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/resolver"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/retrieval"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// SearchService runs nearest-neighbor queries.
type SearchService interface {
	Search(ctx context.Context, query string, topK int) ([]retrieval.Candidate, error)
}

// StatusService reports the active build.
type StatusService interface {
	Status(ctx context.Context) (*retrieval.Status, error)
}

// AskService answers questions end to end.
type AskService interface {
	Ask(ctx context.Context, query string) (*answer.Answer, error)
}

var (
	_ SearchService = (*retrieval.Pipeline)(nil)
	_ StatusService = (*retrieval.Pipeline)(nil)
	_ AskService    = (*answer.Service)(nil)
)

// Defaults fill in request parameters the caller leaves out.
type Defaults struct {
	TopK    int
	Resolve resolver.Options
}

// Services holds dependencies injected into route handlers.
// Each field is an interface so subsystems can be mocked in tests.
type Services struct {
	search   SearchService
	status   StatusService
	ask      AskService // optional; nil = ask endpoint returns 503
	defaults Defaults
}

// NewServices creates a Services instance with validation.
func NewServices(search SearchService, status StatusService, ask AskService, d Defaults) (*Services, error) {
	if search == nil {
		return nil, chatboterr.New(chatboterr.CodeServerConfigInvalid, "search service is required")
	}
	if status == nil {
		return nil, chatboterr.New(chatboterr.CodeServerConfigInvalid, "status service is required")
	}
	if d.TopK < 1 {
		d.TopK = 5
	}
	return &Services{search: search, status: status, ask: ask, defaults: d}, nil
}
