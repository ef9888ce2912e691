package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storypaint/internal/importer"
	"storypaint/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	pipeline, err := cfg.Pipeline(importer.WithLogger(logger))
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(cfg, pipeline, nil, version)
	if err != nil {
		return err
	}
	logger.Info("mcp server starting", "project", cfg.Project)
	return server.Run(ctx, &sdk.StdioTransport{})
}
