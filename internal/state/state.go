package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Component outcomes recorded in the state file.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// ComponentState is what the last run learned about one component.
type ComponentState struct {
	Version      string   `json:"version"`                 // Version found after the last install, or "unknown"
	Source       string   `json:"source"`                  // brew, cask, github or script
	InstallPaths []string `json:"install_paths,omitempty"` // Binaries copied by github installs
	// InstallPath is the single binary path older state files recorded.
	InstallPath string    `json:"install_path,omitempty"`
	Outcome     string    `json:"outcome"` // succeeded or failed
	UpdatedAt   time.Time `json:"updated_at"`
}

// SettingState represents the saved state of a macOS system setting that was applied.
// It stores the domain and key for the `defaults` system, plus the string value last applied.
type SettingState struct {
	Domain string `json:"domain"` // The domain string, e.g., "com.googlecode.iterm2"
	Key    string `json:"key"`    // The key string within that domain, e.g., "PromptOnQuit"
	Value  string `json:"value"`  // The value last written to that key, stored as string
}

// RunRecord summarizes the most recent install run.
type RunRecord struct {
	StartedAt time.Time `json:"started_at"`
	Total     int       `json:"total"`
	Succeeded []string  `json:"succeeded"`
	Failed    []string  `json:"failed"`
	LogFile   string    `json:"log_file,omitempty"`
}

// State holds the entire saved state for devsetup.
type State struct {
	Components map[string]ComponentState `json:"components"` // Map from component name to its state
	Settings   map[string]SettingState   `json:"settings"`   // Map from "domain:key" string to SettingState
	LastRun    *RunRecord                `json:"last_run,omitempty"`
}

// New returns an empty state with initialized maps.
func New() *State {
	return &State{
		Components: make(map[string]ComponentState),
		Settings:   make(map[string]SettingState),
	}
}

// LoadState loads the saved state from a JSON file at the given path.
// A missing or unreadable file yields an empty state; so does a corrupt one,
// which would otherwise block every future run.
func LoadState(path string) *State {
	file, err := os.ReadFile(path)
	if err != nil {
		return New()
	}

	var st State
	if err := json.Unmarshal(file, &st); err != nil {
		return New()
	}

	// JSON may contain null for these fields
	if st.Components == nil {
		st.Components = make(map[string]ComponentState)
	}
	if st.Settings == nil {
		st.Settings = make(map[string]SettingState)
	}
	return &st
}

// SaveState writes the state as indented JSON, creating the parent directory.
func SaveState(path string, st *State) error {
	file, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(path, file, 0644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", path, err)
	}
	return nil
}

// Record stores the outcome of installing a component. A failed run keeps
// the previously known version.
func (st *State) Record(name string, cs ComponentState) {
	if prev, ok := st.Components[name]; ok && cs.Outcome == OutcomeFailed && cs.Version == "" {
		cs.Version = prev.Version
		if len(cs.Paths()) == 0 {
			cs.InstallPaths = prev.Paths()
		}
	}
	st.Components[name] = cs
}

// Paths returns every installed binary, reading the legacy single path when
// that is all the state file has.
func (cs ComponentState) Paths() []string {
	if len(cs.InstallPaths) > 0 {
		return cs.InstallPaths
	}
	if cs.InstallPath != "" {
		return []string{cs.InstallPath}
	}
	return nil
}

// Forget drops everything known about a component, including its settings.
func (st *State) Forget(name string, settingKeys ...string) {
	delete(st.Components, name)
	for _, k := range settingKeys {
		delete(st.Settings, k)
	}
}

// SettingApplied reports whether key was last written with value.
func (st *State) SettingApplied(key, value string) bool {
	prev, ok := st.Settings[key]
	return ok && prev.Value == value
}
