package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultManifest(t *testing.T) {
	m, err := LoadManifest("")
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"go", "python", "java", "rust", "node", "iterm2", "ohmyzsh", "vscode", "singbox"},
		m.Names())

	byName := map[string]Component{}
	for _, c := range m.Components {
		byName[c.Name] = c
		assert.NotEmpty(t, c.Description, c.Name)
		assert.NotEmpty(t, c.Verify, c.Name)
	}
	assert.Equal(t, "openjdk@17", byName["java"].PackageName())
	assert.Equal(t, "go", byName["go"].PackageName())
	assert.Equal(t, SourceGitHub, byName["singbox"].Source)
	assert.Equal(t, "~/.oh-my-zsh", byName["ohmyzsh"].Creates)
}

func TestLoadManifestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "components.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
components:
  - name: jq
    description: JSON processor
    source: brew
  - name: dotfiles
    description: Personal dotfiles
    source: script
    creates: ~/.dotfiles
    install:
      - [git, clone, https://example.com/dotfiles.git, ~/.dotfiles]
`), 0644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"jq", "dotfiles"}, m.Names())
	assert.Equal(t, [][]string{{"git", "clone", "https://example.com/dotfiles.git", "~/.dotfiles"}}, m.Components[1].Install)
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestManifestValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", "components: []"},
		{"no name", "components:\n  - source: brew"},
		{"duplicate", "components:\n  - {name: go, source: brew}\n  - {name: go, source: brew}"},
		{"unknown source", "components:\n  - {name: go, source: apt}"},
		{"github without repo", "components:\n  - {name: sb, source: github}"},
		{"script without install", "components:\n  - {name: omz, source: script}"},
		{"empty post install", "components:\n  - {name: go, source: brew, post_install: [[]]}"},
		{"block without description", "components:\n  - name: go\n    source: brew\n    profile:\n      - content: export X=1"},
		{"bad payload", "components:\n  - name: go\n    source: brew\n    files:\n      - {path: /tmp/x.json, format: json, content: '{'}"},
		{"not yaml", "components: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SHELL", "/bin/zsh")

	s, err := LoadSettings(filepath.Join(home, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/bin/zsh", s.Shell)
	assert.Equal(t, home, s.Home)
	assert.Equal(t, "/usr/local/bin", s.BinDir)
	assert.Equal(t, "state.json", filepath.Base(s.StateFile))
	assert.Equal(t, "logs", filepath.Base(s.LogDir))
	assert.Empty(t, s.Manifest)
}

func TestLoadSettingsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("shell: /bin/bash\nbin_dir: /opt/bin\nlog_dir: /var/log/devsetup\n"), 0644))
	t.Setenv("DEVSETUP_BIN_DIR", "/from/env")

	s, err := LoadSettings(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/bin/bash", s.Shell)
	assert.Equal(t, "/from/env", s.BinDir)
	assert.Equal(t, "/var/log/devsetup", s.LogDir)
}

func TestLoadSettingsBadFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("shell: [unterminated"), 0644))

	_, err := LoadSettings(cfg)
	assert.Error(t, err)
}

func TestSettingStateKey(t *testing.T) {
	s := Setting{Domain: "com.googlecode.iterm2", Key: "PromptOnQuit"}
	assert.Equal(t, "com.googlecode.iterm2:PromptOnQuit", s.StateKey())
}
