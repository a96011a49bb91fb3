package cmd

import (
	"github.com/spf13/cobra"
)

// verifyCmd smoke-tests installed components without changing anything.
var verifyCmd = &cobra.Command{
	Use:   "verify [component...]",
	Short: "Check that components work and their profile blocks are present",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := selectionFor(args, false, false)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		summary, err := a.driver.Verify(ctx, sel)
		if err != nil {
			a.log.Close()
			return err
		}
		return a.finish(summary, false)
	},
}
