package installer

import (
	"context"
	"fmt"

	"devsetup/internal/assets"
	"devsetup/internal/config"
	"devsetup/internal/state"
)

// configure applies everything a component needs after its package is in
// place. Post-install commands only run when something was installed or
// upgraded; the rest is idempotent and always checked.
func (in *Installer) configure(ctx context.Context, c config.Component, changed bool) error {
	if changed {
		for i, cmd := range c.PostInstall {
			label := fmt.Sprintf("post-install %s (step %d/%d)", c.Name, i+1, len(c.PostInstall))
			if err := in.runCommand(ctx, label, cmd); err != nil {
				return err
			}
		}
	}

	if err := in.syncProfile(c); err != nil {
		return err
	}
	if err := in.syncFiles(c); err != nil {
		return err
	}
	return in.SyncSettings(ctx, c.Settings)
}

// syncProfile appends the component's shell profile blocks that are missing.
func (in *Installer) syncProfile(c config.Component) error {
	if len(c.Profile) == 0 {
		return nil
	}
	if in.profile == nil {
		return fmt.Errorf("%s has profile blocks but no shell profile is configured", c.Name)
	}
	for _, b := range c.Profile {
		if _, err := in.profile.EnsureBlock(b); err != nil {
			return fmt.Errorf("update %s: %w", in.profile.Path(), err)
		}
	}
	return nil
}

// syncFiles writes payload files that do not exist yet. Existing files
// belong to the user and are never touched.
func (in *Installer) syncFiles(c config.Component) error {
	for _, f := range c.Files {
		p := in.expand(f.Path)
		written, err := assets.WriteIfAbsent(in.fs, p, []byte(f.Content), f.Format)
		if err != nil {
			return err
		}
		if written {
			in.log.Info("Wrote %s", p)
		} else {
			in.log.Info("%s already exists. Leaving it alone.", p)
		}
	}
	return nil
}

// defaultsArgs builds the `defaults write` arguments for a setting.
func defaultsArgs(s config.Setting) []string {
	args := []string{"write", s.Domain, s.Key}
	switch s.Type {
	case "bool":
		args = append(args, "-bool", s.Value)
	case "int":
		args = append(args, "-int", s.Value)
	case "float":
		args = append(args, "-float", s.Value)
	default:
		args = append(args, "-string", s.Value)
	}
	return args
}

// SyncSettings applies macOS user defaults settings, and updates the state
// with applied settings to avoid redundant changes.
func (in *Installer) SyncSettings(ctx context.Context, settings []config.Setting) error {
	for _, s := range settings {
		key := s.StateKey()
		in.log.Debug("Considering setting %s = %s (%s)", key, s.Value, s.Type)

		if in.state.SettingApplied(key, s.Value) {
			in.log.Info("Skipping already applied setting %s = %s", key, s.Value)
			continue
		}

		if _, err := in.run.Run(ctx, "defaults write "+key, "defaults", defaultsArgs(s)...); err != nil {
			return fmt.Errorf("apply setting %s: %w", key, err)
		}
		in.log.Info("Applied setting: %s = %s", key, s.Value)

		in.state.Settings[key] = state.SettingState{
			Domain: s.Domain,
			Key:    s.Key,
			Value:  s.Value,
		}
	}
	return nil
}
