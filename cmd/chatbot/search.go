// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/resolver"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/retrieval"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the transcript segments nearest to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().IntP("top-k", "k", 0, "number of results (default retrieval.top_k)")
	cmd.Flags().String("answer", "", "answer text used to pick the playback timestamp")
	cmd.Flags().Bool("json", false, "print results as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	topK, _ := cmd.Flags().GetInt("top-k")
	answerText, _ := cmd.Flags().GetString("answer")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd.Context(), false, func(app *App) error {
		if topK == 0 {
			topK = app.Config.Retrieval.TopK
		}
		results, err := app.Pipeline.Search(cmd.Context(), query, topK)
		if err != nil {
			return err
		}
		ts, ok := resolver.Resolve(query, answerText, results, app.ResolveOptions())

		out := cmd.OutOrStdout()
		if asJSON {
			body := struct {
				Query     string                `json:"query"`
				Results   []retrieval.Candidate `json:"results"`
				Timestamp *int                  `json:"timestamp,omitempty"`
			}{Query: query, Results: results}
			if ok {
				body.Timestamp = &ts.Seconds
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(body)
		}

		if len(results) == 0 {
			_, _ = fmt.Fprintln(out, "No matching segments.")
			return nil
		}
		for i, c := range results {
			_, _ = fmt.Fprintf(out, "%2d. [%7.2fs] d=%.4f  %s\n", i+1, c.Segment.StartTime, c.Distance, c.Segment.Text)
		}
		if ok {
			_, _ = fmt.Fprintf(out, "\nPlayback from %ds\n", ts.Seconds)
		}
		return nil
	})
}
