package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"masterimage/internal/files"
	"masterimage/internal/ingest"
	"masterimage/internal/storage"
)

func newAttachCmd() *cobra.Command {
	var recordID, file, url, temp string

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach a master image to a new or existing record",
		Example: `  masterimage attach --file cover.png
  masterimage attach --record 12 --url https://example.com/a.jpg
  masterimage attach --temp 0b7c.../cover.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := sourceFromFlags(file, url, temp)
			if err != nil {
				return err
			}
			a := appFrom(cmd)
			ctx := cmd.Context()

			var rec *storage.Record
			if recordID != "" {
				rec, _, err = a.service.Get(ctx, recordID)
				if err != nil {
					return err
				}
			}

			res, err := a.service.Attach(ctx, rec, src)
			if err != nil {
				return err
			}
			if len(res.Errors) > 0 {
				for _, verr := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", verr.Field, verr.Message)
				}
				return errors.New("image rejected")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Id: %s\n", res.Record.ID)
			fmt.Fprintf(out, "Created At: %s\n", res.Record.CreatedAt.Format("2006-01-02 15:04:05"))
			if res.Record.Width > 0 {
				fmt.Fprintf(out, "Size: %dx%d\n", res.Record.Width, res.Record.Height)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&recordID, "record", "r", "", "Existing record id")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Image file to attach")
	cmd.Flags().StringVarP(&url, "url", "u", "", "Image URL to fetch")
	cmd.Flags().StringVar(&temp, "temp", "", "Temp token of an earlier upload")
	cmd.MarkFlagsMutuallyExclusive("file", "url", "temp")
	cmd.MarkFlagsOneRequired("file", "url", "temp")
	return cmd
}

func sourceFromFlags(file, url, temp string) (ingest.Source, error) {
	switch {
	case file != "":
		return ingest.FromFile(file), nil
	case url != "":
		return ingest.FromURL(url), nil
	case temp != "":
		_, name, ok := strings.Cut(temp, "/")
		if !ok || name == "" {
			return ingest.Source{}, fmt.Errorf("temp token %q must look like <id>/<filename>", temp)
		}
		return ingest.FromTemp(files.TempToken{Token: temp, OriginalFilename: name}), nil
	}
	return ingest.Source{}, errors.New("one of --file, --url or --temp is required")
}
