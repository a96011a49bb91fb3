package installer

import (
	"context"
	"encoding/json"
	"fmt"

	"devsetup/internal/config"
	"devsetup/internal/state"
	"devsetup/internal/version"
)

// brewInfo is the subset of `brew info --json=v2` we read.
type brewInfo struct {
	Formulae []struct {
		Name     string `json:"name"`
		Versions struct {
			Stable string `json:"stable"`
		} `json:"versions"`
		Installed []struct {
			Version string `json:"version"`
		} `json:"installed"`
	} `json:"formulae"`
	Casks []struct {
		Token     string  `json:"token"`
		Version   string  `json:"version"`
		Installed *string `json:"installed"`
	} `json:"casks"`
}

// parseBrewInfo turns brew's JSON into a version pair. Anything missing is
// reported as unknown.
func parseBrewInfo(raw []byte, cask bool) version.Pair {
	p := version.Pair{Current: version.Unknown, Latest: version.Unknown}

	var info brewInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return p
	}

	if cask {
		if len(info.Casks) == 0 {
			return p
		}
		c := info.Casks[0]
		if c.Version != "" {
			p.Latest = c.Version
		}
		if c.Installed != nil && *c.Installed != "" {
			p.Current = *c.Installed
		}
		return p
	}

	if len(info.Formulae) == 0 {
		return p
	}
	f := info.Formulae[0]
	if f.Versions.Stable != "" {
		p.Latest = f.Versions.Stable
	}
	if n := len(f.Installed); n > 0 && f.Installed[n-1].Version != "" {
		p.Current = f.Installed[n-1].Version
	}
	return p
}

// brewVersions asks Homebrew what is installed and what is available. A
// failing query is not an error: the component simply gets installed.
func (in *Installer) brewVersions(ctx context.Context, c config.Component) version.Pair {
	args := []string{"info", "--json=v2"}
	cask := c.Source == config.SourceCask
	if cask {
		args = append(args, "--cask")
	}
	args = append(args, c.PackageName())

	out, err := in.run.Output(ctx, "brew", args...)
	if err != nil {
		in.log.Debug("brew info %s failed: %v", c.PackageName(), err)
		return version.Pair{Current: version.Unknown, Latest: version.Unknown}
	}
	return parseBrewInfo([]byte(out), cask)
}

// installBrew installs or upgrades a formula or cask. An up to date package
// is left alone.
func (in *Installer) installBrew(ctx context.Context, c config.Component) (bool, state.ComponentState, error) {
	pkg := c.PackageName()
	pair := in.brewVersions(ctx, c)
	cs := state.ComponentState{Version: pair.Current}

	if pair.IsCurrent() {
		in.log.Info("%s %s is current. Skipping.", pkg, pair.Current)
		return false, cs, nil
	}

	verb := "install"
	if pair.Current != version.Unknown {
		verb = "upgrade"
		in.log.Info("Upgrading %s from %s to %s", pkg, pair.Current, pair.Latest)
	} else {
		in.log.Info("Installing %s", pkg)
	}

	args := []string{verb}
	if c.Source == config.SourceCask {
		args = append(args, "--cask")
	}
	args = append(args, pkg)
	if _, err := in.run.Run(ctx, fmt.Sprintf("brew %s %s", verb, pkg), "brew", args...); err != nil {
		return false, cs, err
	}

	cs.Version = in.brewVersions(ctx, c).Current
	if cs.Version == version.Unknown && pair.Latest != version.Unknown {
		cs.Version = pair.Latest
	}
	return true, cs, nil
}
