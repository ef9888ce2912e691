package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"storypaint/internal/engine"
	"storypaint/internal/exporter"
	"storypaint/internal/importer"
	"storypaint/internal/registry"
	"storypaint/internal/validate"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a log converts to a consistent canonical document",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
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

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	eng := engine.New(
		engine.WithPipeline(pipeline),
		engine.WithRegistry(registry.New(cfg.Palette)),
		engine.WithLocation(loc),
		engine.WithDiceTag(cfg.Export.DiceTag),
		engine.WithLogger(logger),
	)
	eng.Load(importer.NormalizeNewlines(string(data)))

	report, err := validate.Run(eng, eng.Registry().List(), validate.Options{
		Pipeline: pipeline,
		Exporter: exporter.Canonical{Location: loc, DiceTag: cfg.Export.DiceTag},
	})
	if err != nil {
		return err
	}

	var errorIssues []validate.Issue
	var warnIssues []validate.Issue
	for _, issue := range report.Issues {
		switch issue.Severity {
		case validate.SeverityError:
			errorIssues = append(errorIssues, issue)
		case validate.SeverityWarn:
			warnIssues = append(warnIssues, issue)
		}
	}

	if len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintln(os.Stdout, "No issues found.")
		return nil
	}

	if len(errorIssues) > 0 {
		fmt.Fprintf(os.Stdout, "Errors (%d):\n", len(errorIssues))
		printIssues(os.Stdout, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(os.Stdout, "")
		}
		fmt.Fprintf(os.Stdout, "Warnings (%d):\n", len(warnIssues))
		printIssues(os.Stdout, warnIssues)
	}

	if len(errorIssues) > 0 {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printIssues(out io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		location := "document"
		if issue.Item >= 0 {
			location = fmt.Sprintf("item %d", issue.Item)
		}
		if issue.Speaker != "" {
			location = fmt.Sprintf("%s (%s)", location, issue.Speaker)
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", location, issue.Message, issue.Code)
	}
}
