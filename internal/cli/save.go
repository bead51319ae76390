package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"laplog/internal/services"
)

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	FieldLaps int
	GymLaps   int
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <owner> <date> <activity>",
		Short: "Record the laps walked or run on a day",
		Long: `Record the laps walked or run on a day.

The distance is field laps x 120 m plus gym laps x 50 m. Saving the same
owner, date and activity again replaces the earlier distance.

Example:
  laplog save Alice 2025-03-05 walk --field-laps 2 --gym-laps 4`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, opts, args)
		},
	}

	cmd.Flags().IntVar(&opts.FieldLaps, "field-laps", 0, "laps on the 120 m field")
	cmd.Flags().IntVar(&opts.GymLaps, "gym-laps", 0, "laps on the 50 m gym track")

	return cmd
}

func runSave(cmd *cobra.Command, opts *SaveOptions, args []string) error {
	out := opts.formatter(cmd)
	svc, closeAll, err := opts.openService(cmd.Context())
	if err != nil {
		return out.Fail("open store", err)
	}
	defer closeAll()

	rec, err := svc.Save(cmd.Context(), services.SaveInput{
		Owner:     args[0],
		Date:      args[1],
		Activity:  args[2],
		FieldLaps: opts.FieldLaps,
		GymLaps:   opts.GymLaps,
	})
	if err != nil {
		return out.Fail("save", err)
	}
	out.VerboseLog("stored under key %s", rec.Key())
	return out.Success(rec, func(w io.Writer) {
		fmt.Fprintf(w, "Saved %s %d m for %s on %s\n", rec.Activity, rec.Distance, rec.Owner, rec.Date)
	})
}
