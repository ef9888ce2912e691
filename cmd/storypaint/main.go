package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"storypaint/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "storypaint",
		Short:        "Convert, edit and annotate tabletop session logs",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the project config")
	root.AddCommand(initCmd())
	root.AddCommand(importCmd())
	root.AddCommand(convertCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(annotateCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(editorCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the project config and installs the logger it asks for.
func loadConfig() (*config.ProjectConfig, *slog.Logger, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
