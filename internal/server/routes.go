// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/answer"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/resolver"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/retrieval"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/health"
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "index-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Active index build",
		Tags:        []string{"system"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Nearest transcript segments for a query",
		Tags:        []string{"retrieval"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolve",
		Method:      http.MethodPost,
		Path:        "/api/v1/resolve",
		Summary:     "Pick the playback timestamp for an answer",
		Tags:        []string{"retrieval"},
	}, s.handleResolve)

	huma.Register(s.api, huma.Operation{
		OperationID: "ask",
		Method:      http.MethodGet,
		Path:        "/api/v1/ask",
		Summary:     "Answer a question with a timestamped reference",
		Tags:        []string{"chat"},
	}, s.handleAsk)

	// Path used by the original frontend.
	huma.Register(s.api, huma.Operation{
		OperationID: "ask-legacy",
		Method:      http.MethodGet,
		Path:        "/ask",
		Summary:     "Answer a question (legacy path)",
		Tags:        []string{"chat"},
		Deprecated:  true,
	}, s.handleAsk)
}

// --- Request/Response types for huma ---

type statusOutput struct {
	Body StatusBody
}

// StatusBody describes the serving state.
type StatusBody struct {
	Ready      bool            `json:"ready" doc:"True when an index is available for queries"`
	Build      *store.Manifest `json:"build,omitempty"`
	Embedder   string          `json:"embedder"`
	Compatible bool            `json:"compatible" doc:"False when the query embedder dimension differs from the build"`
	Health     *health.Metrics `json:"health,omitempty"`
}

type searchInput struct {
	Query string `query:"query" required:"true" minLength:"1" doc:"Natural-language question"`
	TopK  int    `query:"top_k" minimum:"0" maximum:"100" doc:"Number of results; 0 uses the server default"`
}

type searchOutput struct {
	Body SearchBody
}

// SearchBody lists candidates by ascending distance.
type SearchBody struct {
	Query   string                `json:"query"`
	Results []retrieval.Candidate `json:"results"`
}

type resolveInput struct {
	Body ResolveRequest
}

// ResolveRequest carries the candidates to choose between. Nil bounds use
// the server defaults.
type ResolveRequest struct {
	Query         string             `json:"query"`
	Answer        string             `json:"answer"`
	Candidates    []ResolveCandidate `json:"candidates"`
	VideoDuration *int               `json:"video_duration,omitempty" minimum:"0"`
	LeadIn        *int               `json:"lead_in,omitempty" minimum:"0"`
}

// ResolveCandidate is a candidate as returned by search.
type ResolveCandidate struct {
	Ordinal  int                `json:"ordinal"`
	Segment  transcript.Segment `json:"segment"`
	Distance float64            `json:"distance" minimum:"0"`
}

type resolveOutput struct {
	Body ResolveBody
}

// ResolveBody is the chosen timestamp; Found is false when no candidate
// qualified.
type ResolveBody struct {
	Found     bool `json:"found"`
	Timestamp *int `json:"timestamp,omitempty"`
}

type askInput struct {
	Query string `query:"query" required:"true" minLength:"1" doc:"Question about the recording"`
}

type askOutput struct {
	Body *answer.Answer
}

// --- Handlers ---

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	st, err := s.services.status.Status(ctx)
	if err != nil && !chatboterr.IsNotFound(err) {
		return nil, s.apiError(err)
	}
	body := StatusBody{}
	if st != nil {
		body.Build = st.Manifest
		body.Embedder = st.Embedder
		body.Compatible = st.Compatible
		body.Health = st.Health
	}
	body.Ready = err == nil && body.Build != nil && body.Compatible
	return &statusOutput{Body: body}, nil
}

func (s *Server) handleSearch(ctx context.Context, input *searchInput) (*searchOutput, error) {
	topK := input.TopK
	if topK == 0 {
		topK = s.services.defaults.TopK
	}
	results, err := s.services.search.Search(ctx, input.Query, topK)
	if err != nil {
		return nil, s.apiError(err)
	}
	if results == nil {
		results = []retrieval.Candidate{}
	}
	return &searchOutput{Body: SearchBody{Query: input.Query, Results: results}}, nil
}

func (s *Server) handleResolve(_ context.Context, input *resolveInput) (*resolveOutput, error) {
	opts := s.services.defaults.Resolve
	if input.Body.VideoDuration != nil {
		opts.Duration = *input.Body.VideoDuration
	}
	if input.Body.LeadIn != nil {
		opts.LeadIn = *input.Body.LeadIn
	}

	candidates := make([]retrieval.Candidate, len(input.Body.Candidates))
	for i, c := range input.Body.Candidates {
		candidates[i] = retrieval.Candidate{Ordinal: c.Ordinal, Segment: c.Segment, Distance: c.Distance}
	}

	ts, ok := resolver.Resolve(input.Body.Query, input.Body.Answer, candidates, opts)
	out := &resolveOutput{Body: ResolveBody{Found: ok}}
	if ok {
		out.Body.Timestamp = &ts.Seconds
	}
	return out, nil
}

func (s *Server) handleAsk(ctx context.Context, input *askInput) (*askOutput, error) {
	if s.services.ask == nil {
		return nil, huma.Error503ServiceUnavailable("answer generation is not configured")
	}
	a, err := s.services.ask.Ask(ctx, input.Query)
	if err != nil {
		return nil, s.apiError(err)
	}
	return &askOutput{Body: a}, nil
}

// apiError maps a coded error onto an HTTP problem response. Internal
// failures are logged and reported without detail.
func (s *Server) apiError(err error) error {
	status := chatboterr.HTTPStatus(err)
	code := chatboterr.CodeOf(err)
	detail := &huma.ErrorDetail{Location: "code", Value: string(code)}

	switch {
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout:
		s.logger.Error("request failed", "code", code, "error", err)
		return huma.NewError(status, "internal error", detail)
	case chatboterr.IsNotFound(err):
		return huma.NewError(status, "no index is available; build one with `chatbot index`", detail)
	case chatboterr.IsEmbeddingFailure(err):
		s.logger.Warn("embedding failed", "code", code, "error", err)
		return huma.NewError(status, "could not process request: "+err.Error(), detail)
	default:
		return huma.NewError(status, err.Error(), detail)
	}
}
