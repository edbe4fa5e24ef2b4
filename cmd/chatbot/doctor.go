// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/config"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/server"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the config file, provider credentials, the active index build, disk space, and optionally a running server.",
		RunE:  runDoctor,
	}

	cmd.Flags().String("address", "", "also check a running server at host:port")

	return cmd
}

type doctorCheck struct {
	name string
	fn   func() string
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr, _ := cmd.Flags().GetString("address")

	cfg, cfgErr := loadConfig()

	checks := []doctorCheck{
		{"Binary", checkBinary},
		{"Config", func() string { return checkConfig(cfgErr) }},
	}
	if cfgErr == nil {
		checks = append(checks,
			doctorCheck{"Embedding", func() string {
				return checkProvider(cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.APIKey)
			}},
			doctorCheck{"Answer", func() string {
				return checkProvider(cfg.Answer.Provider, cfg.Answer.Model, cfg.Answer.APIKey)
			}},
			doctorCheck{"Index", func() string { return checkIndex(cmd.Context(), cfg) }},
			doctorCheck{"Disk Space", func() string { return checkDiskSpace(cfg.Storage.DataDir) }},
		)
	}
	if addr != "" {
		checks = append(checks, doctorCheck{"Server", func() string { return checkServer(addr) }})
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("chatbot %s (%s/%s, %s)", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(loadErr error) string {
	source := "using defaults (no config file found)"
	if f := viper.ConfigFileUsed(); f != "" {
		source = "loaded from " + f
		if config.HasInsecurePermissions(f) {
			source += " (warning: readable by other users)"
		}
	}
	if loadErr != nil {
		return fmt.Sprintf("%s; invalid: %s", source, loadErr)
	}
	return source
}

func checkProvider(name, model, key string) string {
	p := types.ProviderName(name)
	desc := name
	if model != "" {
		desc += "/" + model
	}
	if p.NeedsAPIKey() && key == "" {
		return desc + " (no API key configured)"
	}
	return desc
}

func checkIndex(ctx context.Context, cfg *config.Config) string {
	st, err := store.New(ctx, store.Config{
		Backend:     cfg.Storage.Backend,
		DataDir:     cfg.Storage.DataDir,
		PostgresURL: cfg.Storage.PostgresURL,
		KeepBuilds:  cfg.Storage.KeepBuilds,
	})
	if err != nil {
		return fmt.Sprintf("error opening %s store: %s", cfg.Storage.Backend, err)
	}
	defer func() { _ = st.Close() }()

	m, err := st.Active(ctx)
	if err != nil {
		if chatboterr.IsNotFound(err) {
			return "no build yet (run 'chatbot index')"
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("build %s, %d segments, %d dimensions", m.BuildID, m.Count, m.Dimension)
}

func checkServer(addr string) string {
	var body server.StatusBody
	if err := newServerClient(addr).getJSON("/api/v1/status", &body); err != nil {
		if chatboterr.HasCode(err, chatboterr.CodeCLIServerNotRunning) {
			return fmt.Sprintf("not running at %s (run 'chatbot serve')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	if body.Ready {
		return "ready at " + addr
	}
	return "running at " + addr + " without a usable index"
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Fall back to the working directory if the data dir doesn't exist yet.
		path = "."
	}

	avail, err := availableBytes(path)
	if err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}
	return formatBytes(avail) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
