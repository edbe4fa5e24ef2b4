// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/config"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// NewRootCmd creates the root chatbot command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chatbot",
		Short: "Semantic search and timestamped answers over a podcast transcript",
		Long: "chatbot indexes a timestamped transcript into a vector index, answers\n" +
			"questions about it, and links each answer to the matching moment in the recording.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initViper(cmd); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), viper.GetViper())
			return nil
		},
	}

	// Global flags; these map to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().String("data-dir", "", "directory holding index builds")
	root.PersistentFlags().String("log-format", "", "log format (text or json)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newIndexCmd(),
		newSearchCmd(),
		newAskCmd(),
		newServeCmd(),
		newConvertCmd(),
		newStatusCmd(),
		newDoctorCmd(),
		newInitCmd(),
		newSecretCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return chatboterr.Errorf(chatboterr.CodeConfigLoadReadFailure, "loading %s: %w", envFile, err)
		}
	}

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return chatboterr.Errorf(chatboterr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
		config.WarnInsecurePermissions(cfgFile)
	} else {
		// SetConfigType is omitted so viper does not match the bare
		// ./chatbot binary.
		v.SetConfigName("chatbot")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/chatbot")
		v.AddConfigPath("/etc/chatbot")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return chatboterr.Errorf(chatboterr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return chatboterr.Errorf(chatboterr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		} else {
			config.WarnInsecurePermissions(v.ConfigFileUsed())
		}
	}

	flags := cmd.Root().PersistentFlags()
	bindings := map[string]string{
		"storage.data_dir": "data-dir",
		"logging.format":   "log-format",
		"verbose":          "verbose",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return chatboterr.Errorf(chatboterr.CodeCLISetupFailure, "binding %s flag: %w", flag, err)
		}
	}

	return nil
}

// setupLogging installs the default slog handler from logging.* settings.
func setupLogging(w io.Writer, v *viper.Viper) {
	level := slog.LevelInfo
	switch strings.ToLower(v.GetString("logging.level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(v.GetString("logging.format"), "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}
