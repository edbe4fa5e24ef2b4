// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/config"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/secrets"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

const redacted = "********"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after defaults, config file, environment and
flags are merged. Plain-text secrets are redacted; keyring:// references are
shown as written.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	})
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	// Decode without resolving keyring references.
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}
	redactSecrets(cfg)

	out, err := renderConfigYAML(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func redactSecrets(cfg *config.Config) {
	for _, s := range []*string{&cfg.Embedding.APIKey, &cfg.Answer.APIKey, &cfg.Storage.PostgresURL} {
		if *s != "" && !secrets.IsKeyringURI(*s) {
			*s = redacted
		}
	}
}

// renderConfigYAML encodes cfg, writing durations as "30s" rather than
// nanosecond integers.
func renderConfigYAML(cfg *config.Config) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, chatboterr.Errorf(chatboterr.CodeCLIResponseInvalid, "encoding config: %w", err)
	}

	durations := []struct {
		section, key string
		value        time.Duration
	}{
		{"embedding", "timeout", cfg.Embedding.Timeout},
		{"server", "read_timeout", cfg.Server.ReadTimeout},
		{"server", "write_timeout", cfg.Server.WriteTimeout},
	}
	for _, d := range durations {
		if n := mappingValue(mappingValue(&doc, d.section), d.key); n != nil {
			n.Tag = "!!str"
			n.Value = d.value.String()
		}
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, chatboterr.Errorf(chatboterr.CodeCLIResponseInvalid, "encoding config: %w", err)
	}
	return out, nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
