package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storypaint/internal/convert"
	"storypaint/internal/importer"
)

func importCmd() *cobra.Command {
	var to, kind, output string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Read a log in any supported format and write it in another",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args[0], to, kind, output)
		},
	}
	cmd.Flags().StringVar(&to, "to", "canonical", "Output format: canonical, json, qq or irc")
	cmd.Flags().StringVar(&kind, "importer", "", "Force one importer instead of detecting the format")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func runImport(path, to, kind, output string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	pipeline, err := cfg.Pipeline(importer.WithLogger(logger))
	if err != nil {
		return err
	}
	if kind != "" {
		k, err := importer.ParseKind(kind)
		if err != nil {
			return err
		}
		pipeline = importer.NewPipeline(importer.WithOrder(k), importer.WithLogger(logger))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	res, err := pipeline.Import(importer.NormalizeNewlines(string(data)), loc)
	if err != nil {
		return fmt.Errorf("importing %s: %w", path, err)
	}
	logger.Debug("imported log", "path", path, "importer", res.Kind.String(), "items", len(res.Items))

	out, err := convert.Render(res, cfg, to, loc)
	if err != nil {
		return err
	}
	if output == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	return nil
}
