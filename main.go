package main

import (
	"devsetup/cmd"
)

// main is the program entry point. It delegates to cmd.Execute(), which
// parses the command line and provisions the workstation.
//
// devsetup installs developer tooling on macOS from a YAML manifest:
//   - Homebrew formulae and casks, upgraded only when a newer version exists
//   - GitHub release binaries, unpacked and copied onto PATH
//   - Install scripts, guarded by the path they create
//
// Each component then gets its shell profile blocks, configuration files and
// `defaults` settings. Every step is idempotent, so re-running is always safe.
// External commands are retried with exponential backoff and one failing
// component never stops the others. A JSON state file remembers installed
// versions and applied settings between runs.
func main() {
	cmd.Execute()
}
