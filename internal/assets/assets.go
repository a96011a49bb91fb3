// Package assets writes opaque configuration payloads (editor settings, mirror
// configs, proxy configs) to disk without ever clobbering a user's file.
package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Format names how a payload is validated before it is written.
type Format string

const (
	FormatRaw  Format = "raw"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// File is a payload destined for Path.
type File struct {
	Path    string `yaml:"path"`
	Format  Format `yaml:"format"`
	Content string `yaml:"content"`
}

// ExpandHome replaces a leading "~" with home.
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks that content parses in the given format.
func Validate(format Format, content []byte) error {
	switch format {
	case "", FormatRaw:
		return nil
	case FormatJSON:
		var v any
		if err := json.Unmarshal(content, &v); err != nil {
			return fmt.Errorf("invalid json: %w", err)
		}
	case FormatTOML:
		var v map[string]any
		if err := toml.Unmarshal(content, &v); err != nil {
			return fmt.Errorf("invalid toml: %w", err)
		}
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(content, &v); err != nil {
			return fmt.Errorf("invalid yaml: %w", err)
		}
	default:
		return fmt.Errorf("unknown payload format %q", format)
	}
	return nil
}

// WriteIfAbsent validates content and writes it to path unless something
// already exists there. Parent directories are created. It reports whether
// the file was written.
func WriteIfAbsent(fsys afero.Fs, path string, content []byte, format Format) (bool, error) {
	if path == "" {
		return false, errors.New("payload path is empty")
	}
	if err := Validate(format, content); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}

	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", path, err)
	}
	if exists {
		return false, nil
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fsys, path, content, 0644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
