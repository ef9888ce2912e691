package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"storypaint/internal/config"
)

func initCmd() *cobra.Command {
	var projectName string
	var timezone string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a storypaint project config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(configPath, projectName, timezone)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA time zone for log timestamps (default local)")
	return cmd
}

func runInit(path, projectName, timezone string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	contents := fmt.Sprintf(`project: %s
version: 1
log_level: info
timezone: %q

importers: [json, canonical, platform, rendered, bracket, foundry]

editor:
  listen_addr: 127.0.0.1:8787
  metrics: false
  max_frame_bytes: 8388608

export:
  dice_tag: false
  command_hide: false
  image_hide: false
  off_topic_hide: false

sources:
  - name: sessions
    paths:
      - ./logs/
    output: ./canonical/
    format: canonical

exclude:
  - ./logs/drafts/
`, projectName, timezone)

	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := config.LoadProjectConfig(path); err != nil {
		return fmt.Errorf("scaffolded config does not load: %w", err)
	}
	return nil
}
