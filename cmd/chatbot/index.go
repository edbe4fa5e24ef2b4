// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index [transcript]",
		Short: "Embed a transcript and publish a new index build",
		Long: `Embed every segment of a transcript and publish the vector index and its
catalog as one build. The transcript defaults to corpus.path and may be a
structured JSON file, Whisper text or SRT subtitles.

Segments whose embedding fails are skipped and reported. The previously
active build stays in place when nothing could be embedded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIndex,
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Corpus.Path = args[0]
	}

	segments, err := transcript.Load(cfg.Corpus.Path)
	if err != nil {
		return err
	}
	segments = transcript.WithSourceRef(segments, cfg.Corpus.VideoLink)

	app, err := WireApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	res, err := app.Pipeline.Build(cmd.Context(), segments)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	m := res.Manifest
	_, _ = fmt.Fprintf(out, "Indexed %d of %d segments from %s\n", m.Count, len(segments), cfg.Corpus.Path)
	_, _ = fmt.Fprintf(out, "  build:     %s\n", m.BuildID)
	_, _ = fmt.Fprintf(out, "  embedder:  %s (%d dimensions)\n", m.Embedder, m.Dimension)
	_, _ = fmt.Fprintf(out, "  took:      %s\n", res.Duration.Round(time.Millisecond))
	for _, s := range res.Skipped {
		_, _ = fmt.Fprintf(out, "  skipped segment %d: %v\n", s.Position, s.Err)
	}
	return nil
}
