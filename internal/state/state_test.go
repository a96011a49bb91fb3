package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStateMissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()

	st := LoadState(filepath.Join(dir, "missing.json"))
	assert.NotNil(t, st.Components)
	assert.NotNil(t, st.Settings)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0644))
	st = LoadState(corrupt)
	assert.Empty(t, st.Components)

	nulls := filepath.Join(dir, "nulls.json")
	require.NoError(t, os.WriteFile(nulls, []byte(`{"components":null,"settings":null}`), 0644))
	st = LoadState(nulls)
	assert.NotNil(t, st.Components)
	assert.NotNil(t, st.Settings)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	st := New()
	st.Record("go", ComponentState{Version: "1.22.1", Source: "brew", Outcome: OutcomeSucceeded, UpdatedAt: now})
	st.Settings["com.googlecode.iterm2:PromptOnQuit"] = SettingState{Domain: "com.googlecode.iterm2", Key: "PromptOnQuit", Value: "false"}
	st.LastRun = &RunRecord{StartedAt: now, Total: 2, Succeeded: []string{"go"}, Failed: []string{"java"}}

	require.NoError(t, SaveState(path, st))

	loaded := LoadState(path)
	assert.Equal(t, st.Components, loaded.Components)
	assert.Equal(t, st.Settings, loaded.Settings)
	require.NotNil(t, loaded.LastRun)
	assert.Equal(t, []string{"java"}, loaded.LastRun.Failed)
	assert.True(t, loaded.SettingApplied("com.googlecode.iterm2:PromptOnQuit", "false"))
	assert.False(t, loaded.SettingApplied("com.googlecode.iterm2:PromptOnQuit", "true"))
}

func TestRecordFailureKeepsVersion(t *testing.T) {
	st := New()
	paths := []string{"/usr/local/bin/sing-box", "/usr/local/bin/sing-box-helper"}
	st.Record("singbox", ComponentState{Version: "1.9.0", InstallPaths: paths, Outcome: OutcomeSucceeded})
	st.Record("singbox", ComponentState{Outcome: OutcomeFailed})

	got := st.Components["singbox"]
	assert.Equal(t, OutcomeFailed, got.Outcome)
	assert.Equal(t, "1.9.0", got.Version)
	assert.Equal(t, paths, got.Paths())
}

func TestLegacyInstallPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	legacy := `{"components":{"singbox":{"version":"1.9.0","source":"github","install_path":"/usr/local/bin/sing-box","outcome":"succeeded"}}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	st := LoadState(path)
	assert.Equal(t, []string{"/usr/local/bin/sing-box"}, st.Components["singbox"].Paths())
	assert.Nil(t, ComponentState{}.Paths())
}

func TestForget(t *testing.T) {
	st := New()
	st.Record("iterm2", ComponentState{Outcome: OutcomeSucceeded})
	st.Settings["a:b"] = SettingState{Domain: "a", Key: "b", Value: "1"}
	st.Settings["c:d"] = SettingState{Domain: "c", Key: "d", Value: "1"}

	st.Forget("iterm2", "a:b")
	assert.NotContains(t, st.Components, "iterm2")
	assert.NotContains(t, st.Settings, "a:b")
	assert.Contains(t, st.Settings, "c:d")
}
