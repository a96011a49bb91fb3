package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"devsetup/internal/assets"
)

// defaultManifest is the component list shipped with the binary.
//
//go:embed components.yaml
var defaultManifest []byte

// LoadManifest reads the component manifest at path, or the embedded default
// when path is empty, and validates it.
func LoadManifest(path string) (*Manifest, error) {
	raw := defaultManifest
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		raw = data
	}
	return ParseManifest(raw)
}

// ParseManifest decodes and validates a manifest document.
func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names are unique and every component carries what its
// source needs.
func (m *Manifest) Validate() error {
	if len(m.Components) == 0 {
		return fmt.Errorf("manifest has no components")
	}

	seen := make(map[string]bool, len(m.Components))
	for i, c := range m.Components {
		if c.Name == "" {
			return fmt.Errorf("component #%d has no name", i+1)
		}
		if seen[c.Name] {
			return fmt.Errorf("component %q is declared twice", c.Name)
		}
		seen[c.Name] = true

		switch c.Source {
		case SourceBrew, SourceCask:
		case SourceGitHub:
			if c.Repo == "" {
				return fmt.Errorf("component %q: github source needs a repo", c.Name)
			}
		case SourceScript:
			if len(c.Install) == 0 {
				return fmt.Errorf("component %q: script source needs install commands", c.Name)
			}
		default:
			return fmt.Errorf("component %q: unknown source %q", c.Name, c.Source)
		}

		for _, cmd := range append(append([][]string{}, c.Install...), c.PostInstall...) {
			if len(cmd) == 0 {
				return fmt.Errorf("component %q: empty command", c.Name)
			}
		}
		for _, b := range c.Profile {
			if b.Description == "" {
				return fmt.Errorf("component %q: profile block without description", c.Name)
			}
		}
		for _, f := range c.Files {
			if f.Path == "" {
				return fmt.Errorf("component %q: payload file without path", c.Name)
			}
			if err := assets.Validate(f.Format, []byte(f.Content)); err != nil {
				return fmt.Errorf("component %q: payload %s: %w", c.Name, f.Path, err)
			}
		}
	}
	return nil
}

// Names returns component names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Components))
	for _, c := range m.Components {
		names = append(names, c.Name)
	}
	return names
}
