// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/server"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active index build",
		Long: `Show the active index build. With --address, ask a running server
instead of reading the store directly.`,
		RunE: runStatus,
	}

	cmd.Flags().String("address", "", "address of a running server (host:port)")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		var body server.StatusBody
		if err := newServerClient(addr).getJSON("/api/v1/status", &body); err != nil {
			if chatboterr.HasCode(err, chatboterr.CodeCLIServerNotRunning) {
				_, _ = fmt.Fprintf(out, "Server at %s is not running (connection refused)\n", addr)
				return nil
			}
			return err
		}
		_, _ = fmt.Fprintf(out, "Server at %s: ready=%t\n", addr, body.Ready)
		printBuild(out, body.Build, body.Embedder, body.Compatible)
		return nil
	}

	return withApp(cmd.Context(), false, func(app *App) error {
		st, err := app.Pipeline.Status(cmd.Context())
		if err != nil {
			if chatboterr.IsNotFound(err) {
				_, _ = fmt.Fprintln(out, "No index build yet. Run `chatbot index` to create one.")
				return nil
			}
			return err
		}
		printBuild(out, st.Manifest, st.Embedder, st.Compatible)
		return nil
	})
}

func printBuild(w io.Writer, m *store.Manifest, embedder string, compatible bool) {
	if m == nil {
		_, _ = fmt.Fprintln(w, "No active build.")
		return
	}
	_, _ = fmt.Fprintf(w, "Build:      %s\n", m.BuildID)
	_, _ = fmt.Fprintf(w, "Created:    %s\n", m.CreatedAt.Local().Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "Segments:   %d\n", m.Count)
	if len(m.Skipped) > 0 {
		_, _ = fmt.Fprintf(w, "Skipped:    %v\n", m.Skipped)
	}
	_, _ = fmt.Fprintf(w, "Dimension:  %d\n", m.Dimension)
	_, _ = fmt.Fprintf(w, "Built with: %s\n", m.Embedder)
	if m.Corpus != "" {
		_, _ = fmt.Fprintf(w, "Corpus:     %s\n", m.Corpus)
	}
	if !compatible {
		_, _ = fmt.Fprintf(w, "Warning: query embedder %s does not match this build; re-run `chatbot index`\n", embedder)
	}
}
