package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"laplog/internal/core"
	"laplog/internal/services"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Activity string
	Yes      bool
}

var errNotConfirmed = fmt.Errorf("%w: refusing to delete without --yes", core.ErrInvalidInput)

type deleteResult struct {
	Owner    string `json:"owner"`
	Date     string `json:"date"`
	Activity string `json:"activity,omitempty"`
	Removed  int    `json:"removed"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <owner> <date>",
		Short: "Delete one activity or a whole day",
		Long: `Delete one activity or a whole day.

With --activity only that record goes; without it every record of the day
is removed. Deleting requires --yes.

Example:
  laplog delete Alice 2025-03-05 --activity run --yes`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Activity, "activity", "", "only delete this activity (walk|run)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "confirm the deletion")

	return cmd
}

func runDelete(cmd *cobra.Command, opts *DeleteOptions, args []string) error {
	out := opts.formatter(cmd)
	if !opts.Yes {
		return out.Fail("delete", errNotConfirmed)
	}

	svc, closeAll, err := opts.openService(cmd.Context())
	if err != nil {
		return out.Fail("open store", err)
	}
	defer closeAll()

	in := services.DeleteInput{Owner: args[0], Date: args[1], Activity: opts.Activity}
	removed, err := svc.RequestDelete(cmd.Context(), in)
	if err != nil {
		return out.Fail("delete", err)
	}

	owner := core.NormalizeOwner(in.Owner)
	res := deleteResult{Owner: owner, Date: in.Date, Activity: in.Activity, Removed: removed}
	return out.Success(res, func(w io.Writer) {
		if removed == 0 {
			fmt.Fprintln(w, "Nothing to delete")
			return
		}
		fmt.Fprintf(w, "Deleted %d record(s) for %s on %s\n", removed, owner, in.Date)
	})
}
