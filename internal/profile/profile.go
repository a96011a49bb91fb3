// Package profile keeps marked configuration blocks in the user's shell
// profile. Blocks are appended once and removed by literal line filtering,
// always after a timestamped backup of the file.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"devsetup/internal/logger"
)

// backupTimeFormat is appended to the profile path to name backups.
const backupTimeFormat = "20060102_150405"

// ResolvePath maps a shell identity (usually $SHELL) to the profile file the
// shell reads: zsh to ~/.zshrc, bash to ~/.bash_profile, anything else to
// ~/.profile.
func ResolvePath(shell, home string) string {
	switch filepath.Base(strings.TrimSpace(shell)) {
	case "zsh":
		return filepath.Join(home, ".zshrc")
	case "bash":
		return filepath.Join(home, ".bash_profile")
	default:
		return filepath.Join(home, ".profile")
	}
}

// Block is a named chunk of profile configuration. Description is the
// uniqueness key and is written as a "# <description>" header line.
type Block struct {
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

// Patterns returns the literal patterns that identify the block's lines: its
// description and every non-empty content line.
func (b Block) Patterns() []string {
	patterns := []string{b.Description}
	for _, line := range strings.Split(b.Content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}

// Mutator edits one profile file.
type Mutator struct {
	fs   afero.Fs
	path string
	log  *logger.Logger
	now  func() time.Time
}

// Option customizes a Mutator.
type Option func(*Mutator)

// WithClock overrides time.Now for backup names.
func WithClock(now func() time.Time) Option {
	return func(m *Mutator) { m.now = now }
}

// WithLogger sets the logger used to report changes.
func WithLogger(l *logger.Logger) Option {
	return func(m *Mutator) { m.log = l }
}

// NewMutator returns a Mutator for the profile at path on fsys.
func NewMutator(fsys afero.Fs, path string, opts ...Option) *Mutator {
	m := &Mutator{fs: fsys, path: path, log: logger.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the profile file being edited.
func (m *Mutator) Path() string { return m.path }

func (m *Mutator) read() (string, error) {
	data, err := afero.ReadFile(m.fs, m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", m.path, err)
	}
	return string(data), nil
}

// HasBlock reports whether any line of the profile contains description.
func (m *Mutator) HasBlock(description string) (bool, error) {
	content, err := m.read()
	if err != nil {
		return false, err
	}
	return containsLine(content, description), nil
}

func containsLine(content, needle string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}

// EnsureBlock appends the block unless a line containing its description is
// already present. The file and its directory are created when missing. It
// reports whether the file changed.
func (m *Mutator) EnsureBlock(b Block) (bool, error) {
	if strings.TrimSpace(b.Description) == "" {
		return false, errors.New("profile block needs a description")
	}

	content, err := m.read()
	if err != nil {
		return false, err
	}
	if containsLine(content, b.Description) {
		m.log.Debug("profile block %q already present in %s", b.Description, m.path)
		return false, nil
	}

	var sb strings.Builder
	if content != "" {
		if !strings.HasSuffix(content, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("# ")
	sb.WriteString(b.Description)
	sb.WriteString("\n")
	sb.WriteString(strings.TrimRight(b.Content, "\n"))
	sb.WriteString("\n")

	if err := m.fs.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return false, fmt.Errorf("create %s: %w", filepath.Dir(m.path), err)
	}
	f, err := m.fs.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", m.path, err)
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("append to %s: %w", m.path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close %s: %w", m.path, err)
	}

	m.log.Info("Added %q to %s", b.Description, m.path)
	return true, nil
}

// RemoveResult describes what RemoveBlock did.
type RemoveResult struct {
	BackupPath string
	Removed    int
}

// RemoveBlock snapshots the profile to a timestamped backup, then drops every
// line containing any of patterns, along with the blank separator line
// directly above a removed "# " header. Remaining lines keep their order. A
// missing profile is left alone and no backup is made.
func (m *Mutator) RemoveBlock(patterns ...string) (RemoveResult, error) {
	var active []string
	for _, p := range patterns {
		if p != "" {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return RemoveResult{}, errors.New("no pattern to remove")
	}

	info, err := m.fs.Stat(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		m.log.Debug("profile %s does not exist, nothing to remove", m.path)
		return RemoveResult{}, nil
	}
	if err != nil {
		return RemoveResult{}, fmt.Errorf("stat %s: %w", m.path, err)
	}

	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return RemoveResult{}, fmt.Errorf("read %s: %w", m.path, err)
	}

	backup, err := m.backupPath()
	if err != nil {
		return RemoveResult{}, err
	}
	if err := afero.WriteFile(m.fs, backup, data, info.Mode().Perm()); err != nil {
		return RemoveResult{}, fmt.Errorf("write backup %s: %w", backup, err)
	}
	m.log.Info("Backed up %s to %s", m.path, backup)

	lines := strings.SplitAfter(string(data), "\n")
	kept := make([]string, 0, len(lines))
	removed := 0
	for _, line := range lines {
		if line == "" {
			continue
		}
		if matchesAny(line, active) {
			removed++
			// EnsureBlock puts one blank line before each header; take it
			// back with the header.
			if isHeader(line) && len(kept) > 0 && strings.TrimSpace(kept[len(kept)-1]) == "" {
				kept = kept[:len(kept)-1]
			}
			continue
		}
		kept = append(kept, line)
	}

	if removed == 0 {
		return RemoveResult{BackupPath: backup}, nil
	}
	if err := afero.WriteFile(m.fs, m.path, []byte(strings.Join(kept, "")), info.Mode().Perm()); err != nil {
		return RemoveResult{BackupPath: backup}, fmt.Errorf("rewrite %s: %w", m.path, err)
	}

	m.log.Info("Removed %d line(s) from %s", removed, m.path)
	return RemoveResult{BackupPath: backup, Removed: removed}, nil
}

func isHeader(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "# ")
}

func matchesAny(line string, patterns []string) bool {
	line = strings.TrimRight(line, "\n")
	for _, p := range patterns {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}

// backupPath picks <profile>.backup.<timestamp>, adding a numeric suffix when
// a backup from the same second already exists.
func (m *Mutator) backupPath() (string, error) {
	base := m.path + ".backup." + m.now().Format(backupTimeFormat)
	candidate := base
	for i := 1; ; i++ {
		exists, err := afero.Exists(m.fs, candidate)
		if err != nil {
			return "", fmt.Errorf("check backup %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s.%d", base, i)
	}
}
