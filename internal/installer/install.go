package installer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/afero"

	"devsetup/internal/assets"
	"devsetup/internal/config"
	"devsetup/internal/logger"
	"devsetup/internal/profile"
	"devsetup/internal/registry"
	"devsetup/internal/runner"
	"devsetup/internal/state"
	"devsetup/internal/version"
)

// ErrPrecondition marks a missing external tool. Retrying cannot fix it, so
// the component fails at once.
var ErrPrecondition = errors.New("missing precondition")

// Options wires an Installer to its collaborators. Everything environment
// dependent is resolved once by the caller and passed in here.
type Options struct {
	Runner  *runner.Runner
	Profile *profile.Mutator
	State   *state.State
	Log     *logger.Logger
	Fs      afero.Fs
	Home    string
	BinDir  string

	// Test seams; zero values use the real thing.
	LookPath   func(name string) bool
	HTTPClient *http.Client
	GitHubAPI  string
	TempDir    string
	GOOS       string
	GOARCH     string
	Now        func() time.Time
}

// Installer turns manifest components into registry operations.
type Installer struct {
	run       *runner.Runner
	profile   *profile.Mutator
	state     *state.State
	log       *logger.Logger
	fs        afero.Fs
	home      string
	binDir    string
	lookPath  func(string) bool
	http      *http.Client
	githubAPI string
	tempDir   string
	goos      string
	goarch    string
	now       func() time.Time
}

// New returns an Installer.
func New(opts Options) *Installer {
	in := &Installer{
		run:       opts.Runner,
		profile:   opts.Profile,
		state:     opts.State,
		log:       opts.Log,
		fs:        opts.Fs,
		home:      opts.Home,
		binDir:    opts.BinDir,
		lookPath:  opts.LookPath,
		http:      opts.HTTPClient,
		githubAPI: opts.GitHubAPI,
		tempDir:   opts.TempDir,
		goos:      opts.GOOS,
		goarch:    opts.GOARCH,
		now:       opts.Now,
	}
	if in.log == nil {
		in.log = logger.Discard()
	}
	if in.run == nil {
		in.run = runner.New(in.log)
	}
	if in.state == nil {
		in.state = state.New()
	}
	if in.fs == nil {
		in.fs = afero.NewOsFs()
	}
	if in.lookPath == nil {
		in.lookPath = runner.LookPath
	}
	if in.http == nil {
		in.http = &http.Client{Timeout: 30 * time.Second}
	}
	if in.githubAPI == "" {
		in.githubAPI = "https://api.github.com"
	}
	if in.tempDir == "" {
		in.tempDir = os.TempDir()
	}
	if in.goos == "" {
		in.goos = runtime.GOOS
	}
	if in.goarch == "" {
		in.goarch = runtime.GOARCH
	}
	if in.now == nil {
		in.now = time.Now
	}
	return in
}

// Components builds registry components from the manifest, keeping its order.
func (in *Installer) Components(m *config.Manifest) []registry.Component {
	out := make([]registry.Component, 0, len(m.Components))
	for _, c := range m.Components {
		c := c
		out = append(out, registry.Component{
			Name:        c.Name,
			Description: c.Description,
			Install:     func(ctx context.Context) error { return in.Install(ctx, c) },
			Uninstall:   func(ctx context.Context) error { return in.Uninstall(ctx, c) },
			Verify:      func(ctx context.Context) error { return in.Verify(ctx, c) },
		})
	}
	return out
}

// requirements lists the commands a component needs on PATH.
func requirements(c config.Component) []string {
	var reqs []string
	switch c.Source {
	case config.SourceBrew, config.SourceCask:
		reqs = append(reqs, "brew")
	case config.SourceGitHub:
		reqs = append(reqs, "curl")
	}
	for _, r := range c.Requires {
		if !contains(reqs, r) {
			reqs = append(reqs, r)
		}
	}
	return reqs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CheckRequirements fails with ErrPrecondition if a needed command is absent.
func (in *Installer) CheckRequirements(c config.Component) error {
	for _, r := range requirements(c) {
		if !in.lookPath(r) {
			return fmt.Errorf("%w: %s needs %q on PATH", ErrPrecondition, c.Name, r)
		}
	}
	return nil
}

// Install brings one component up to date and applies its configuration.
// Configuration steps are idempotent, so a component that is already current
// is still checked for missing profile blocks, payload files and settings.
func (in *Installer) Install(ctx context.Context, c config.Component) error {
	if err := in.CheckRequirements(c); err != nil {
		return err
	}

	var (
		changed bool
		cs      state.ComponentState
		err     error
	)
	switch c.Source {
	case config.SourceBrew, config.SourceCask:
		changed, cs, err = in.installBrew(ctx, c)
	case config.SourceGitHub:
		changed, cs, err = in.installGitHub(ctx, c)
	case config.SourceScript:
		changed, cs, err = in.installScript(ctx, c)
	default:
		err = fmt.Errorf("unknown source %q", c.Source)
	}
	cs.Source = c.Source
	cs.UpdatedAt = in.now()
	if err != nil {
		cs.Outcome = state.OutcomeFailed
		if cs.Version == version.Unknown {
			cs.Version = ""
		}
		in.state.Record(c.Name, cs)
		return err
	}

	if err := in.configure(ctx, c, changed); err != nil {
		cs.Outcome = state.OutcomeFailed
		in.state.Record(c.Name, cs)
		return err
	}

	cs.Outcome = state.OutcomeSucceeded
	in.state.Record(c.Name, cs)
	return nil
}

// installScript runs the component's install commands unless the path it
// creates is already there.
func (in *Installer) installScript(ctx context.Context, c config.Component) (bool, state.ComponentState, error) {
	cs := state.ComponentState{Version: version.Unknown}
	if c.Creates != "" {
		exists, err := afero.Exists(in.fs, in.expand(c.Creates))
		if err != nil {
			return false, cs, err
		}
		if exists {
			in.log.Info("%s already present at %s. Skipping.", c.Name, c.Creates)
			cs.Version = in.probeVersion(ctx, c)
			return false, cs, nil
		}
	}

	for i, cmd := range c.Install {
		label := fmt.Sprintf("install %s (step %d/%d)", c.Name, i+1, len(c.Install))
		if err := in.runCommand(ctx, label, cmd); err != nil {
			return false, cs, err
		}
	}
	cs.Version = in.probeVersion(ctx, c)
	return true, cs, nil
}

// probeVersion asks the tool itself for its version.
func (in *Installer) probeVersion(ctx context.Context, c config.Component) string {
	if len(c.Version.Command) == 0 {
		return version.Unknown
	}
	args := in.expandArgs(c.Version.Command)
	out, err := in.run.Output(ctx, args[0], args[1:]...)
	if err != nil {
		in.log.Debug("version probe for %s failed: %v", c.Name, err)
		return version.Unknown
	}
	pattern := c.Version.Pattern
	if pattern == "" {
		pattern = `\d+(?:\.\d+)+`
	}
	return version.Extract(out, pattern)
}

func (in *Installer) runCommand(ctx context.Context, label string, cmd []string) error {
	args := in.expandArgs(cmd)
	_, err := in.run.Run(ctx, label, args[0], args[1:]...)
	return err
}

func (in *Installer) expand(path string) string {
	return assets.ExpandHome(path, in.home)
}

func (in *Installer) expandArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = in.expand(a)
	}
	return out
}

func (in *Installer) fallbackBinDir() string {
	return filepath.Join(in.home, "bin")
}
