package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"devsetup/internal/logger"
	"devsetup/internal/registry"
	"devsetup/internal/runner"
)

const binaryName = "devsetup"

var (
	// debug enables debug lines on the console. The log file always has them.
	debug        bool
	list         bool
	selective    bool
	manifestPath string
	configFile   string
)

// rootCmd installs components. With no arguments it installs everything in
// manifest order.
var rootCmd = &cobra.Command{
	Use:   binaryName + " [component...]",
	Short: "Provision a macOS development workstation",
	Long: `devsetup installs and configures development tooling through Homebrew,
GitHub releases and install scripts. Every step is idempotent: components
that are already current are skipped and shell profile blocks are only
appended once. Failed components are listed at the end with a command to
retry each one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInstall,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "Component manifest (defaults to the built-in one)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "devsetup settings file (default $XDG_CONFIG_HOME/devsetup/config.yaml)")
	rootCmd.Flags().BoolVar(&list, "list", false, "List available components and exit")
	rootCmd.Flags().BoolVarP(&selective, "selective", "s", false, "Pick components from an interactive checklist")
}

// selectionFor maps command-line input onto a selection.
func selectionFor(args []string, interactive, tty bool) (registry.Selection, error) {
	switch {
	case interactive && len(args) > 0:
		return registry.Selection{}, errors.New("--selective cannot be combined with component names")
	case interactive && !tty:
		return registry.Selection{}, errors.New("--selective needs an interactive terminal")
	case interactive:
		return registry.Interactive(), nil
	case len(args) > 0:
		return registry.Named(args...), nil
	default:
		return registry.All(), nil
	}
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var errNoBrew = errors.New("homebrew not found on PATH")

// preflight rejects unknown component names first, then a missing brew.
func preflight(d *registry.Driver, sel registry.Selection, lookPath func(string) bool) error {
	if err := d.Validate(sel); err != nil {
		return err
	}
	if !lookPath("brew") {
		return errNoBrew
	}
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if list {
		a.printList()
		a.log.Close()
		return nil
	}

	sel, err := selectionFor(args, selective, stdinIsTerminal())
	if err != nil {
		a.log.Close()
		return err
	}

	if err := preflight(a.driver, sel, runner.LookPath); err != nil {
		if errors.Is(err, errNoBrew) {
			a.log.Error("Homebrew is not installed. Install it from https://brew.sh and re-run.")
		}
		a.log.Close()
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := a.driver.Run(ctx, sel)
	if errors.Is(err, registry.ErrCancelled) {
		a.log.Info("Nothing selected. Exiting.")
		a.log.Close()
		return nil
	}
	if err != nil {
		a.log.Close()
		return err
	}
	return a.finish(summary, true)
}

// Execute runs the CLI and exits non-zero on invalid input or a missing
// precondition. Component failures are reported in the summary only.
func Execute() {
	rootCmd.AddCommand(uninstallCmd, verifyCmd)
	if err := rootCmd.Execute(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
