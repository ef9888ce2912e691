package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"storypaint/internal/editor"
	"storypaint/internal/importer"
	"storypaint/internal/observe"
)

func editorCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "editor",
		Short: "Serve the editor bridge over WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEditor(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides editor.listen_addr)")
	return cmd
}

func runEditor(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Editor.ListenAddr
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var metrics *observe.Metrics
	var metricsHandler http.Handler
	if cfg.Editor.Metrics {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    "storypaint",
			ServiceVersion: version,
		})
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("metrics shutdown failed", "err", err)
			}
		}()
		metrics = observe.DefaultMetrics()
		metricsHandler = promhttp.Handler()
	}

	pipeline, err := cfg.Pipeline(importer.WithLogger(logger), importer.WithMetrics(metrics))
	if err != nil {
		return err
	}

	server := editor.NewServer(editor.Options{
		Pipeline:       pipeline,
		Location:       loc,
		DiceTag:        cfg.Export.DiceTag,
		Palette:        cfg.Palette,
		MaxFrameBytes:  cfg.Editor.MaxFrameBytes,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		Logger:         logger,
	})
	return server.ListenAndServe(ctx, addr)
}
