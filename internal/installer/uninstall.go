package installer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"devsetup/internal/config"
	"devsetup/internal/version"
)

// Uninstall removes a component and the shell configuration it added. The
// profile is backed up once before any block is removed. Payload files are
// left in place since the user may have edited them.
func (in *Installer) Uninstall(ctx context.Context, c config.Component) error {
	in.log.Info("Uninstalling %s...", c.Name)

	// Removal only needs brew. Curl and script requirements do not apply.
	if (c.Source == config.SourceBrew || c.Source == config.SourceCask) && !in.lookPath("brew") {
		return fmt.Errorf("%w: %s needs %q on PATH", ErrPrecondition, c.Name, "brew")
	}
	if err := in.removeProfileBlocks(c); err != nil {
		return err
	}

	var err error
	switch c.Source {
	case config.SourceBrew, config.SourceCask:
		err = in.uninstallBrew(ctx, c)
	case config.SourceGitHub:
		err = in.uninstallGitHub(c)
	case config.SourceScript:
		err = in.uninstallScript(c)
	default:
		err = fmt.Errorf("unknown source %q", c.Source)
	}
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(c.Settings))
	for _, s := range c.Settings {
		keys = append(keys, s.StateKey())
	}
	in.state.Forget(c.Name, keys...)
	return nil
}

func (in *Installer) removeProfileBlocks(c config.Component) error {
	if len(c.Profile) == 0 || in.profile == nil {
		return nil
	}
	var patterns []string
	for _, b := range c.Profile {
		patterns = append(patterns, b.Patterns()...)
	}
	res, err := in.profile.RemoveBlock(patterns...)
	if err != nil {
		return fmt.Errorf("clean %s: %w", in.profile.Path(), err)
	}
	if res.Removed == 0 {
		in.log.Info("Nothing of %s found in %s", c.Name, in.profile.Path())
	}
	return nil
}

func (in *Installer) uninstallBrew(ctx context.Context, c config.Component) error {
	pkg := c.PackageName()
	if in.brewVersions(ctx, c).Current == version.Unknown {
		in.log.Info("%s is not installed. Nothing to remove.", pkg)
		return nil
	}

	args := []string{"uninstall"}
	if c.Source == config.SourceCask {
		args = append(args, "--cask")
	}
	args = append(args, pkg)
	_, err := in.run.Run(ctx, "brew uninstall "+pkg, "brew", args...)
	return err
}

// uninstallGitHub removes every binary recorded at install time.
func (in *Installer) uninstallGitHub(c config.Component) error {
	paths := in.state.Components[c.Name].Paths()
	if len(paths) == 0 {
		in.log.Warn("No install path recorded for %s. Manual cleanup may be required.", c.Name)
		return nil
	}
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", p, err))
			continue
		}
		in.log.Info("Removed %s", p)
	}
	return errors.Join(errs...)
}

// uninstallScript removes whatever the install script created.
func (in *Installer) uninstallScript(c config.Component) error {
	if c.Creates == "" {
		in.log.Warn("%s does not declare what it creates. Manual cleanup may be required.", c.Name)
		return nil
	}
	p := in.expand(c.Creates)
	if err := in.fs.RemoveAll(p); err != nil {
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	in.log.Info("Removed %s", p)
	return nil
}
