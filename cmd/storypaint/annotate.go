package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storypaint/internal/annotate"
	"storypaint/internal/logitem"
)

func annotateCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "annotate <file.json>",
		Short: "Print dice and hit point markup for the commands in a JSON log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(args[0], all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Also print payloads that are not recognised")
	return cmd
}

func runAnnotate(path string, all bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var doc logitem.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	for i, item := range doc.Items {
		markup, ok := annotate.Annotate(item)
		if !ok && (!all || markup == "") {
			continue
		}
		fmt.Fprintf(os.Stdout, "[%d] %s:\n%s\n\n", i, item.Nickname, markup)
	}
	return nil
}
