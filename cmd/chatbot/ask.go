// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question about the recording with a timestamped link",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().Bool("json", false, "print the full answer as JSON")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd.Context(), true, func(app *App) error {
		svc, err := app.AnswerService()
		if err != nil {
			return err
		}
		a, err := svc.Ask(cmd.Context(), query)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(a)
		}

		_, _ = fmt.Fprintln(out, a.Response)
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, a.References)
		return nil
	})
}
