package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove abandoned temp uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			n, err := a.cache.Sweep(cmd.Context(), maxAge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d temp uploads from %s\n", n, a.cache.Root())
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "older-than", 24*time.Hour, "Only remove uploads older than this")
	return cmd
}
