package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"storypaint/internal/exporter"
	"storypaint/internal/importer"
	"storypaint/internal/registry"
)

const DefaultPath = "storypaint.yaml"

// DefaultMaxFrameBytes is the editor bridge's inbound frame limit.
const DefaultMaxFrameBytes = 8 << 20

type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

type ProjectConfig struct {
	Project   string       `yaml:"project"`
	Version   int          `yaml:"version"`
	LogLevel  LogLevel     `yaml:"log_level"`
	Timezone  string       `yaml:"timezone"`
	Importers []string     `yaml:"importers"`
	Palette   []string     `yaml:"palette"`
	Editor    EditorConfig `yaml:"editor"`
	Export    ExportConfig `yaml:"export"`
	Sources   []Source     `yaml:"sources"`
	Exclude   []string     `yaml:"exclude"`
}

type EditorConfig struct {
	ListenAddr    string `yaml:"listen_addr"`
	Metrics       bool   `yaml:"metrics"`
	MaxFrameBytes int64  `yaml:"max_frame_bytes"`
}

type ExportConfig struct {
	DiceTag      bool `yaml:"dice_tag"`
	UserIDHide   bool `yaml:"user_id_hide"`
	YearHide     bool `yaml:"year_hide"`
	TimeHide     bool `yaml:"time_hide"`
	CommandHide  bool `yaml:"command_hide"`
	ImageHide    bool `yaml:"image_hide"`
	OffTopicHide bool `yaml:"off_topic_hide"`
}

// Source is a set of log files converted together by `storypaint convert`.
type Source struct {
	Name   string   `yaml:"name"`
	Paths  []string `yaml:"paths"`
	Output string   `yaml:"output"`
	Format string   `yaml:"format"`
}

var outputFormats = map[string]struct{}{"canonical": {}, "json": {}, "qq": {}, "irc": {}}

// Default returns the configuration used when no project file exists.
func Default() *ProjectConfig {
	cfg := &ProjectConfig{Project: "storypaint", Version: 1}
	applyDefaults(cfg)
	return cfg
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	applyDefaults(&cfg)

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when path is the default
// location and does not exist.
func LoadOrDefault(path string) (*ProjectConfig, error) {
	cfg, err := LoadProjectConfig(path)
	if err != nil && path == DefaultPath && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if len(cfg.Importers) == 0 {
		for _, k := range importer.DefaultOrder {
			cfg.Importers = append(cfg.Importers, k.String())
		}
	}
	if len(cfg.Palette) == 0 {
		cfg.Palette = append([]string(nil), registry.DefaultPalette...)
	}
	if cfg.Editor.ListenAddr == "" {
		cfg.Editor.ListenAddr = "127.0.0.1:8787"
	}
	if cfg.Editor.MaxFrameBytes == 0 {
		cfg.Editor.MaxFrameBytes = DefaultMaxFrameBytes
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Format == "" {
			cfg.Sources[i].Format = "canonical"
		}
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if !cfg.LogLevel.IsValid() {
		return fmt.Errorf("invalid log level: %q", cfg.LogLevel)
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	if cfg.Editor.MaxFrameBytes < 0 {
		return fmt.Errorf("editor max_frame_bytes must be positive: %d", cfg.Editor.MaxFrameBytes)
	}
	if _, err := importer.ParseKinds(cfg.Importers); err != nil {
		return fmt.Errorf("importers: %w", err)
	}

	seen := make(map[string]struct{})
	for i, source := range cfg.Sources {
		if strings.TrimSpace(source.Name) == "" {
			return fmt.Errorf("source %d name is required", i)
		}
		if len(source.Paths) == 0 {
			return fmt.Errorf("source %d paths are required", i)
		}
		if strings.TrimSpace(source.Output) == "" {
			return fmt.Errorf("source %d output is required", i)
		}
		if _, ok := outputFormats[source.Format]; !ok {
			return fmt.Errorf("source %d has unknown format: %s", i, source.Format)
		}
		key := strings.ToLower(source.Name)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate source name: %s", source.Name)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// Location resolves the configured time zone. An empty zone means local
// time.
func (c *ProjectConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Pipeline builds an import pipeline in the configured order.
func (c *ProjectConfig) Pipeline(opts ...importer.Option) (*importer.Pipeline, error) {
	kinds, err := importer.ParseKinds(c.Importers)
	if err != nil {
		return nil, err
	}
	return importer.NewPipeline(append([]importer.Option{importer.WithOrder(kinds...)}, opts...)...), nil
}

func (c *ProjectConfig) PlainOptions(loc *time.Location) exporter.PlainOptions {
	return exporter.PlainOptions{
		Location:     loc,
		UserIDHide:   c.Export.UserIDHide,
		YearHide:     c.Export.YearHide,
		TimeHide:     c.Export.TimeHide,
		CommandHide:  c.Export.CommandHide,
		ImageHide:    c.Export.ImageHide,
		OffTopicHide: c.Export.OffTopicHide,
	}
}
