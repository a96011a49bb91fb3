package config

import (
	"devsetup/internal/assets"
	"devsetup/internal/profile"
)

// Component sources. They decide how a component is installed and how its
// installed and latest versions are discovered.
const (
	SourceBrew   = "brew"   // Homebrew formula
	SourceCask   = "cask"   // Homebrew cask
	SourceGitHub = "github" // release archive from GitHub
	SourceScript = "script" // arbitrary install commands, guarded by Creates
)

// Manifest is the ordered list of components devsetup knows about. Order is
// install order: anything a later component shells out to must come first.
type Manifest struct {
	Components []Component `yaml:"components"`
}

// Component describes one installable piece of the workstation.
//   - Name: identity used on the command line (e.g. "go").
//   - Source/Package: how to install; Package defaults to Name.
//   - Repo/Tag/Binaries: GitHub release lookup for the "github" source.
//   - Install/Creates: commands for the "script" source, skipped when Creates exists.
//   - Requires: commands that must be on PATH before anything runs.
//   - Version: how to read the installed version from the tool itself.
//   - PostInstall/Profile/Files/Settings: configuration applied after install.
//   - Verify: smoke-test command.
type Component struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Source      string          `yaml:"source"`
	Package     string          `yaml:"package"`
	Repo        string          `yaml:"repo"`
	Tag         string          `yaml:"tag"`
	Binaries    []string        `yaml:"binaries"`
	Install     [][]string      `yaml:"install"`
	Creates     string          `yaml:"creates"`
	Requires    []string        `yaml:"requires"`
	Version     VersionProbe    `yaml:"version"`
	PostInstall [][]string      `yaml:"post_install"`
	Profile     []profile.Block `yaml:"profile"`
	Files       []assets.File   `yaml:"files"`
	Settings    []Setting       `yaml:"settings"`
	Verify      []string        `yaml:"verify"`
}

// PackageName returns the Homebrew package name for the component.
func (c Component) PackageName() string {
	if c.Package != "" {
		return c.Package
	}
	return c.Name
}

// VersionProbe runs Command and extracts the version with Pattern.
type VersionProbe struct {
	Command []string `yaml:"command"`
	Pattern string   `yaml:"pattern"`
}

// Setting represents a macOS `defaults` system setting.
// - Domain: macOS domain (e.g., com.googlecode.iterm2).
// - Key: Specific setting key.
// - Value: Desired setting value as a string.
// - Type: Value type ("bool", "int", "string", "float").
type Setting struct {
	Domain string `yaml:"domain"`
	Key    string `yaml:"key"`
	Value  string `yaml:"value"`
	Type   string `yaml:"type"`
}

// StateKey identifies the setting in the state file.
func (s Setting) StateKey() string {
	return s.Domain + ":" + s.Key
}

// Settings are the user-level knobs of devsetup itself, read by viper from
// the environment (DEVSETUP_*) and an optional config file.
type Settings struct {
	Manifest  string `mapstructure:"manifest"`
	LogDir    string `mapstructure:"log_dir"`
	StateFile string `mapstructure:"state_file"`
	Shell     string `mapstructure:"shell"`
	Home      string `mapstructure:"home"`
	BinDir    string `mapstructure:"bin_dir"`
}
