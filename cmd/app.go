package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"devsetup/internal/config"
	"devsetup/internal/installer"
	"devsetup/internal/logger"
	"devsetup/internal/profile"
	"devsetup/internal/registry"
	"devsetup/internal/runner"
	"devsetup/internal/state"
)

// app is everything a command needs, resolved once per invocation.
type app struct {
	settings *config.Settings
	log      *logger.Logger
	manifest *config.Manifest
	state    *state.State
	driver   *registry.Driver
}

// newApp loads settings, opens the run log and wires the installer into a
// registry driver.
func newApp() (*app, error) {
	settings, err := config.LoadSettings(configFile)
	if err != nil {
		return nil, err
	}
	if manifestPath != "" {
		settings.Manifest = manifestPath
	}

	log, err := logger.Init(debug, settings.LogDir)
	if err != nil {
		log.Warn("Run log disabled: %v", err)
	}

	manifest, err := config.LoadManifest(settings.Manifest)
	if err != nil {
		log.Close()
		return nil, err
	}

	st := state.LoadState(settings.StateFile)
	fsys := afero.NewOsFs()
	profilePath := profile.ResolvePath(settings.Shell, settings.Home)
	log.Debug("Using shell profile %s, state file %s", profilePath, settings.StateFile)

	in := installer.New(installer.Options{
		Runner:  runner.New(log),
		Profile: profile.NewMutator(fsys, profilePath, profile.WithLogger(log)),
		State:   st,
		Log:     log,
		Fs:      fsys,
		Home:    settings.Home,
		BinDir:  settings.BinDir,
	})

	reg, err := registry.New(in.Components(manifest)...)
	if err != nil {
		log.Close()
		return nil, err
	}

	return &app{
		settings: settings,
		log:      log,
		manifest: manifest,
		state:    st,
		driver:   registry.NewDriver(reg, log),
	}, nil
}

// finish prints the summary, persists state and closes the log.
func (a *app) finish(s registry.Summary, record bool) error {
	fmt.Fprintln(os.Stdout, s.Render(binaryName))

	if record {
		a.state.LastRun = &state.RunRecord{
			StartedAt: s.StartedAt,
			Total:     s.Total,
			Succeeded: s.Succeeded,
			Failed:    s.FailedNames(),
			LogFile:   a.log.Path(),
		}
	}
	err := state.SaveState(a.settings.StateFile, a.state)
	if err != nil {
		a.log.Error("%v", err)
	}

	if p := a.log.Path(); p != "" {
		fmt.Fprintf(os.Stdout, "Full log: %s\n", p)
	}
	a.log.Close()
	return err
}

// printList writes one line per known component with its last recorded
// version.
func (a *app) printList() {
	for _, c := range a.manifest.Components {
		recorded := "-"
		if cs, ok := a.state.Components[c.Name]; ok && cs.Version != "" {
			recorded = cs.Version
			if cs.Outcome == state.OutcomeFailed {
				recorded += " (last run failed)"
			}
		}
		fmt.Fprintf(os.Stdout, "%-10s %-8s %-40s %s\n", c.Name, c.Source, c.Description, recorded)
	}
	fmt.Fprintf(os.Stdout, "\nRun `%s <component>...` to install a subset.\n", binaryName)
}
