// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package answer turns a question into a generated answer anchored to a
// transcript timestamp.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/resolver"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/retrieval"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

const (
	// NoResultsMessage is returned as the response when retrieval finds
	// nothing.
	NoResultsMessage = "I'm sorry, but I couldn't find anything relevant in the podcast transcript. Try rewording your question."
	// NoReferences replaces the reference sentence when there is no
	// timestamp to link to.
	NoReferences = "No relevant video sections found."

	SystemPrompt = "You are an AI assistant integrating immigration law insights from a podcast."
)

// Searcher is the retrieval half of the flow.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]retrieval.Candidate, error)
}

var _ Searcher = (*retrieval.Pipeline)(nil)

// Answer is the result of Ask.
type Answer struct {
	Query    string `json:"query"`
	Response string `json:"response"`
	// Timestamp is nil when no playback position was found.
	Timestamp  *int                  `json:"timestamp,omitempty"`
	Reference  string                `json:"reference,omitempty"`
	References string                `json:"references"`
	Candidates []retrieval.Candidate `json:"candidates"`
}

// Config holds the fixed parameters of the ask flow.
type Config struct {
	TopK      int
	MaxTokens int
	// VideoLink is used for candidates whose segment carries no link.
	VideoLink string
	Resolve   resolver.Options
}

// Service runs search, generation and timestamp resolution.
type Service struct {
	searcher  Searcher
	generator provider.Generator
	cfg       Config
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewService wires a Service. A nil logger uses slog.Default().
func NewService(s Searcher, g provider.Generator, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopK < 1 {
		cfg.TopK = 5
	}
	return &Service{
		searcher:  s,
		generator: g,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("github.com/arjunrreddy/rnblawgroupchatbot/internal/answer"),
	}
}

// Ask answers query. "Nothing found" is a successful Answer carrying
// NoResultsMessage; retrieval and generation failures are returned as
// errors.
func (s *Service) Ask(ctx context.Context, query string) (_ *Answer, err error) {
	ctx, span := s.tracer.Start(ctx, "answer.ask")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, chatboterr.New(chatboterr.CodeAnswerRequestInvalid, "query is empty")
	}

	candidates, err := s.searcher.Search(ctx, query, s.cfg.TopK)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	if len(candidates) == 0 {
		return &Answer{
			Query:      query,
			Response:   NoResultsMessage,
			References: NoReferences,
			Candidates: []retrieval.Candidate{},
		}, nil
	}

	text, err := s.generator.Generate(ctx, provider.GenerateRequest{
		SystemPrompt: SystemPrompt,
		Prompt:       BuildPrompt(query, candidates),
		MaxTokens:    s.cfg.MaxTokens,
	})
	if err != nil {
		return nil, s.generationError(err)
	}

	out := &Answer{Query: query, Response: text, References: NoReferences, Candidates: candidates}

	chosen, ts, ok := resolver.Choose(query, text, candidates, s.cfg.Resolve)
	if !ok {
		s.logger.Debug("no timestamp within bounds", "query", query, "candidates", len(candidates))
		return out, nil
	}
	seconds := ts.Seconds
	out.Timestamp = &seconds

	link := chosen.Segment.SourceRef
	if link == "" {
		link = s.cfg.VideoLink
	}
	if link != "" {
		ref, err := ReferenceLink(link, seconds)
		if err != nil {
			s.logger.Warn("invalid video link", "link", link, "error", err)
		} else {
			out.Reference = ref
			out.References = fmt.Sprintf("For more details, watch this part of the podcast: %s (at %ds).", ref, seconds)
		}
	}
	return out, nil
}

func (s *Service) generationError(err error) error {
	if errors.Is(err, context.Canceled) || strings.HasPrefix(string(chatboterr.CodeOf(err)), "answer.") {
		return err
	}
	return chatboterr.New(chatboterr.CodeAnswerUpstreamFailure, "generating answer: "+err.Error(),
		chatboterr.FieldProvider(s.generator.Name()))
}

// BuildPrompt renders the user prompt with one "(Ns) text" line per
// candidate.
func BuildPrompt(query string, candidates []retrieval.Candidate) string {
	var snippets strings.Builder
	for i, c := range candidates {
		if i > 0 {
			snippets.WriteByte('\n')
		}
		fmt.Fprintf(&snippets, "(%ds) %s", int(c.Segment.StartTime), c.Segment.Text)
	}

	var b strings.Builder
	b.WriteString("You are a legal news AI assistant specializing in immigration law. ")
	b.WriteString("You have access to a podcast transcript where immigration attorneys discuss new policies.\n\n")
	b.WriteString("Your task is to answer the user's question using:\n")
	b.WriteString("- Your knowledge of immigration law\n")
	b.WriteString("- Key insights from the podcast transcript\n\n")
	fmt.Fprintf(&b, "User's Question: %s\n\n", query)
	b.WriteString("Podcast Transcript Insights:\n")
	b.WriteString(snippets.String())
	b.WriteString("\n\n")
	b.WriteString("Your answer should:\n")
	b.WriteString("- Provide a direct, professional response\n")
	b.WriteString("- Include insights from the podcast as supporting evidence\n")
	b.WriteString("- Reference the most relevant video section naturally\n")
	b.WriteString("- Conclude with a call-to-action, encouraging the user to watch the video.")
	return b.String()
}

// ReferenceLink sets the t query parameter of link to "<seconds>s".
func ReferenceLink(link string, seconds int) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", chatboterr.Wrap(err, chatboterr.CodeAnswerRequestInvalid, "parsing video link")
	}
	q := u.Query()
	q.Set("t", fmt.Sprintf("%ds", seconds))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
