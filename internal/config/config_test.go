package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"storypaint/internal/importer"
)

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "test-project" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.LogLevel != LogDebug {
			t.Fatalf("expected debug log level, got %q", cfg.LogLevel)
		}
		if len(cfg.Sources) != 2 || cfg.Sources[0].Format != "canonical" || cfg.Sources[1].Format != "json" {
			t.Fatalf("expected two sources with formats, got %+v", cfg.Sources)
		}
		if !cfg.Editor.Metrics || cfg.Editor.ListenAddr != "127.0.0.1:9000" {
			t.Fatalf("expected editor settings, got %+v", cfg.Editor)
		}
		loc, err := cfg.Location()
		if err != nil || loc != time.UTC {
			t.Fatalf("expected UTC location, got %v (%v)", loc, err)
		}
		p, err := cfg.Pipeline()
		if err != nil {
			t.Fatalf("expected pipeline, got %v", err)
		}
		if got := p.Order(); len(got) != 3 || got[2] != importer.KindPlatform {
			t.Fatalf("expected configured importer order, got %v", got)
		}
		opts := cfg.PlainOptions(loc)
		if !opts.YearHide || !opts.CommandHide || opts.ImageHide {
			t.Fatalf("expected export options, got %+v", opts)
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.LogLevel != LogInfo {
			t.Fatalf("expected info log level, got %q", cfg.LogLevel)
		}
		if len(cfg.Importers) != len(importer.DefaultOrder) {
			t.Fatalf("expected default importers, got %v", cfg.Importers)
		}
		if len(cfg.Palette) == 0 || cfg.Editor.ListenAddr == "" {
			t.Fatalf("expected palette and listen address defaults")
		}
		if cfg.Editor.MaxFrameBytes != DefaultMaxFrameBytes {
			t.Fatalf("expected max frame bytes %d, got %d", DefaultMaxFrameBytes, cfg.Editor.MaxFrameBytes)
		}
	})

	t.Run("negative max frame bytes", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\neditor:\n  max_frame_bytes: -1\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("missing project name", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 2\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nlog_level: loud\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid timezone", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\ntimezone: Nowhere/Atlantis\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown importer", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nimporters: [canonical, markdown]\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("duplicate importer", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nimporters: [canonical, Canonical]\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("source missing paths", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nsources:\n  - name: logs\n    output: ./out\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("source unknown format", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nsources:\n  - name: logs\n    paths: [./logs]\n    output: ./out\n    format: html\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("duplicate source names", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nsources:\n  - name: logs\n    paths: [./a]\n    output: ./out\n  - name: Logs\n    paths: [./b]\n    output: ./out2\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, "project: [\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadOrDefault(DefaultPath)
	if err != nil {
		t.Fatalf("expected default config, got %v", err)
	}
	if cfg.Project != "storypaint" {
		t.Fatalf("expected default project, got %q", cfg.Project)
	}

	if _, err := LoadOrDefault(filepath.Join(dir, "other.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit path")
	}
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
