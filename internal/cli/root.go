// Package cli is the command line front end of the master image store.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

type appKey struct{}

// command is the root command plus the app its PersistentPreRunE opened.
// Cobra skips post-run hooks when RunE fails, so execute closes the app.
type command struct {
	root *cobra.Command
	app  *app
}

func newCommand() *command {
	c := &command{}
	c.root = &cobra.Command{
		Use:           "masterimage",
		Short:         "Store and render master images for records",
		Long:          "Attach a master image to a record, render derived outputs from it and manage its lifecycle.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			c.app = a
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
	}

	c.root.AddCommand(newAttachCmd())
	c.root.AddCommand(newRenderCmd())
	c.root.AddCommand(newShowCmd())
	c.root.AddCommand(newDeleteCmd())
	c.root.AddCommand(newSweepCmd())
	return c
}

func (c *command) execute(ctx context.Context) error {
	err := c.root.ExecuteContext(ctx)
	if c.app != nil {
		c.app.logMetrics()
		if closeErr := c.app.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

func Execute(ctx context.Context) error {
	return newCommand().execute(ctx)
}
