// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/answer"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/retrieval"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/server"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/chatbot.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec registers every route against stub services and returns the
// OpenAPI document huma derives from the handler types.
func generateSpec() ([]byte, error) {
	svc, err := server.NewServices(stubPipeline{}, stubPipeline{}, stubAsk{}, server.Defaults{})
	if err != nil {
		return nil, err
	}

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		return nil, chatboterr.Errorf(chatboterr.CodeCLISetupFailure, "creating server: %w", err)
	}
	srv.RegisterServices(svc)

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// Handlers are never invoked during generation.

type stubPipeline struct{}

func (stubPipeline) Search(context.Context, string, int) ([]retrieval.Candidate, error) {
	return nil, nil
}

func (stubPipeline) Status(context.Context) (*retrieval.Status, error) { return nil, nil }

type stubAsk struct{}

func (stubAsk) Ask(context.Context, string) (*answer.Answer, error) { return nil, nil }
