package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storypaint/internal/convert"
)

var convertFull bool

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert every log file of the configured sources",
		RunE:  runConvert,
	}
	cmd.Flags().BoolVar(&convertFull, "full", false, "Force full conversion (ignore the hash manifest)")
	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("no sources configured in %s", configPath)
	}

	result, err := convert.Run(context.Background(), cfg, convert.Options{Full: convertFull, Logger: logger})
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Conversion complete.")
	fmt.Fprintf(os.Stdout, "  Files converted: %d\n", result.FilesConverted)
	fmt.Fprintf(os.Stdout, "  Files skipped:   %d\n", result.FilesSkipped)
	fmt.Fprintf(os.Stdout, "  Files removed:   %d\n", result.FilesRemoved)

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("conversion completed with errors")
	}

	return nil
}
