// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> [output]",
		Short: "Convert a Whisper or SRT transcript to structured JSON",
		Long: `Convert a raw transcript into the structured JSON array used for indexing.

Whisper lines look like "[12.34s] text"; lines without a timestamp are
skipped. SRT cues are also accepted. The output defaults to the matching
file under structured_transcripts/ next to the input's transcripts/ folder.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runConvert,
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	in := args[0]
	out := transcript.StructuredPath(in)
	if len(args) == 2 {
		out = args[1]
	}
	if filepath.Clean(out) == filepath.Clean(in) {
		return chatboterr.Errorf(chatboterr.CodeCLIInputInvalid, "output %s would overwrite the input", out)
	}

	segments, err := transcript.Load(in)
	if err != nil {
		return err
	}
	if err := transcript.WriteJSON(out, segments); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d segments to %s\n", len(segments), out)
	return err
}
