package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"laplog/internal/core"
)

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "records <owner>",
		Short:         "List every record of an owner",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			svc, closeAll, err := rootOpts.openService(cmd.Context())
			if err != nil {
				return out.Fail("open store", err)
			}
			defer closeAll()

			records, err := svc.Records(cmd.Context(), args[0])
			if err != nil {
				return out.Fail("records", err)
			}
			if records == nil {
				records = []core.Record{}
			}
			return out.Success(records, func(w io.Writer) {
				if len(records) == 0 {
					fmt.Fprintln(w, "No records")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "date\tactivity\tdistance")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%d m\n", r.Date, r.Activity, r.Distance)
				}
				tw.Flush()
			})
		},
	}
}

// NewOwnersCommand creates the owners command.
func NewOwnersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "owners",
		Short:         "List the owners that have records",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			svc, closeAll, err := rootOpts.openService(cmd.Context())
			if err != nil {
				return out.Fail("open store", err)
			}
			defer closeAll()

			owners := svc.Owners(cmd.Context())
			if owners == nil {
				owners = []string{}
			}
			return out.Success(owners, func(w io.Writer) {
				for _, o := range owners {
					fmt.Fprintln(w, o)
				}
			})
		},
	}
}
