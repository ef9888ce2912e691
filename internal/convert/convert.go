// Package convert rewrites the log files of each configured source into a
// single output format. Unchanged inputs are skipped using a content hash
// manifest kept next to the outputs.
package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storypaint/internal/config"
	"storypaint/internal/exporter"
	"storypaint/internal/importer"
	"storypaint/internal/logitem"
	"storypaint/internal/registry"
)

const ManifestName = ".storypaint-manifest.json"

var logExtensions = map[string]struct{}{".txt": {}, ".log": {}, ".json": {}}

type Result struct {
	FilesConverted int
	FilesSkipped   int
	FilesRemoved   int
	Errors         []error
}

type Options struct {
	Full   bool
	Logger *slog.Logger
}

// Manifest maps each converted input path to the hash of the content it was
// converted from.
type Manifest struct {
	Files map[string]string `json:"files"`
}

type logFile struct {
	path string
	rel  string
}

func Run(ctx context.Context, cfg *config.ProjectConfig, options Options) (*Result, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	pipeline, err := cfg.Pipeline(importer.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	result := &Result{}
	for _, source := range cfg.Sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := os.MkdirAll(source.Output, 0o755); err != nil {
			return nil, fmt.Errorf("creating output for source %s: %w", source.Name, err)
		}

		manifestPath := filepath.Join(source.Output, ManifestName)
		manifest := &Manifest{Files: map[string]string{}}
		if !options.Full {
			manifest, err = loadManifest(manifestPath)
			if err != nil {
				return nil, fmt.Errorf("loading manifest for source %s: %w", source.Name, err)
			}
		}

		excludes := append(append([]string(nil), cfg.Exclude...), source.Output)
		files, err := walkLogFiles(source.Paths, excludes)
		if err != nil {
			return nil, fmt.Errorf("walking files for source %s: %w", source.Name, err)
		}

		seen := make(map[string]struct{}, len(files))
		for _, file := range files {
			seen[file.path] = struct{}{}
			hash, err := computeHash(file.path)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("hashing %s: %w", file.path, err))
				continue
			}
			if !options.Full {
				if existing, ok := manifest.Files[file.path]; ok && existing == hash {
					result.FilesSkipped++
					continue
				}
			}

			out, err := convertFile(file.path, pipeline, cfg, source.Format, loc)
			if errors.Is(err, importer.ErrUnparsed) {
				logger.Debug("no importer matched, skipping", "path", file.path)
				result.FilesSkipped++
				continue
			}
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("converting %s: %w", file.path, err))
				continue
			}

			target := outputPath(source.Output, file.rel, source.Format)
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("writing %s: %w", target, err))
				continue
			}
			if err := os.WriteFile(target, out, 0o644); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("writing %s: %w", target, err))
				continue
			}
			manifest.Files[file.path] = hash
			result.FilesConverted++
			logger.Info("converted log", "source", source.Name, "path", file.path, "output", target)
		}

		for path := range manifest.Files {
			if _, ok := seen[path]; ok {
				continue
			}
			delete(manifest.Files, path)
			result.FilesRemoved++
		}

		if err := saveManifest(manifestPath, manifest); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("saving manifest for source %s: %w", source.Name, err))
		}
	}

	return result, nil
}

func convertFile(path string, pipeline *importer.Pipeline, cfg *config.ProjectConfig, format string, loc *time.Location) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := pipeline.Import(importer.NormalizeNewlines(string(data)), loc)
	if err != nil {
		return nil, err
	}
	return Render(res, cfg, format, loc)
}

// Render writes an import result in one of the output formats.
func Render(res *importer.Result, cfg *config.ProjectConfig, format string, loc *time.Location) ([]byte, error) {
	switch format {
	case "canonical", "":
		ex := exporter.Canonical{Location: loc, DiceTag: cfg.Export.DiceTag}
		return []byte(ex.Export(res.Items, 0).Text), nil
	case "json":
		reg := registry.New(cfg.Palette)
		reg.Merge(res.Chars)
		items := append([]logitem.LogItem(nil), res.Items...)
		for i := range items {
			reg.Decorate(&items[i])
		}
		data, err := json.MarshalIndent(logitem.Document{Items: items}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding items: %w", err)
		}
		return append(data, '\n'), nil
	}
	style, ok := exporter.ParseStyle(format)
	if !ok {
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
	return []byte(exporter.Plain(res.Items, style, cfg.PlainOptions(loc))), nil
}

func outputPath(dir, rel, format string) string {
	ext := ".txt"
	if format == "json" {
		ext = ".json"
	}
	return filepath.Join(dir, strings.TrimSuffix(rel, filepath.Ext(rel))+ext)
}

func loadManifest(path string) (*Manifest, error) {
	manifest := &Manifest{Files: map[string]string{}}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return manifest, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, err
	}
	if manifest.Files == nil {
		manifest.Files = map[string]string{}
	}
	return manifest, nil
}

func saveManifest(path string, manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func walkLogFiles(roots []string, excludes []string) ([]logFile, error) {
	excluded := make([]string, 0, len(excludes))
	for _, path := range excludes {
		if path == "" {
			continue
		}
		excluded = append(excluded, filepath.Clean(path))
	}

	var files []logFile
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && isExcluded(path, excluded) {
				return filepath.SkipDir
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := logExtensions[strings.ToLower(filepath.Ext(d.Name()))]; !ok {
				return nil
			}
			if isExcluded(path, excluded) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil || rel == "." {
				rel = d.Name()
			}
			files = append(files, logFile{path: path, rel: rel})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

func computeHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
