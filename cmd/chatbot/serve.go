// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/server"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Load configuration, open the active index build, and serve the search and ask API.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := WireApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	var ask server.AskService
	if gen, err := newGenerator(ctx, cfg); err != nil {
		slog.Warn("answer provider unavailable; /api/v1/ask is disabled", "provider", cfg.Answer.Provider, "error", err)
	} else {
		app.Generator = gen
		svc, err := app.AnswerService()
		if err != nil {
			return err
		}
		ask = svc
	}

	if _, err := app.Pipeline.Status(ctx); err != nil {
		if !chatboterr.IsNotFound(err) {
			return err
		}
		slog.Warn("no index build yet; searches return 404 until `chatbot index` runs")
	}

	srv, err := server.New(server.Config{
		ListenAddr:   cfg.Server.Listen,
		CORSOrigins:  cfg.Server.CORSOrigins,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimitRPS,
			Burst:             cfg.Server.RateLimitBurst,
		},
		Logger: slog.Default(),
	})
	if err != nil {
		return err
	}

	services, err := server.NewServices(app.Pipeline, app.Pipeline, ask, server.Defaults{
		TopK:    cfg.Retrieval.TopK,
		Resolve: app.ResolveOptions(),
	})
	if err != nil {
		return err
	}
	srv.RegisterServices(services)

	return srv.Start(ctx)
}
