package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <record-id>",
		Short: "Show a record and whether it has a master image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			rec, has, err := a.service.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Id: %s\n", rec.ID)
			fmt.Fprintf(out, "Created At: %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Has Image: %t\n", has)
			if has {
				fmt.Fprintf(out, "Location: %s\n", a.service.Location(rec))
			}
			if rec.Width > 0 || rec.Height > 0 {
				fmt.Fprintf(out, "Size: %dx%d\n", rec.Width, rec.Height)
			}
			if rec.Filename != "" {
				fmt.Fprintf(out, "Filename: %s\n", rec.Filename)
			}
			return nil
		},
	}
}
