package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"devsetup/internal/registry"
)

var uninstallSelective bool

// uninstallCmd removes components in reverse manifest order. Shell profiles
// are backed up before any block is removed.
var uninstallCmd = &cobra.Command{
	Use:   "uninstall [component...]",
	Short: "Remove components and the shell configuration they added",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := selectionFor(args, uninstallSelective, stdinIsTerminal())
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		summary, err := a.driver.Uninstall(ctx, sel)
		if errors.Is(err, registry.ErrCancelled) {
			a.log.Info("Nothing selected. Exiting.")
			a.log.Close()
			return nil
		}
		if err != nil {
			a.log.Close()
			return err
		}
		return a.finish(summary, false)
	},
}

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallSelective, "selective", "s", false, "Pick components from an interactive checklist")
}
