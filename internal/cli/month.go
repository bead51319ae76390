package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"laplog/internal/core"
	"laplog/internal/services"
)

// NewMonthCommand creates the month command.
func NewMonthCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "month <owner> [YYYY-MM]",
		Short: "Show the daily distances of a month",
		Long: `Show the daily distances of a month, one row per day, with running
totals. The month defaults to the current one.

Example:
  laplog month Alice 2025-03`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonth(cmd, rootOpts, args)
		},
	}
}

func runMonth(cmd *cobra.Command, opts *RootOptions, args []string) error {
	out := opts.formatter(cmd)

	month := core.CurrentYearMonth(opts.now())
	if len(args) == 2 {
		var err error
		if month, err = core.ParseYearMonth(args[1]); err != nil {
			return out.Fail("month", err)
		}
	}

	svc, closeAll, err := opts.openService(cmd.Context())
	if err != nil {
		return out.Fail("open store", err)
	}
	defer closeAll()

	view, err := svc.ViewMonth(cmd.Context(), args[0], month)
	if err != nil {
		return out.Fail("month", err)
	}
	return out.Success(view, func(w io.Writer) { printMonth(w, view) })
}

func printMonth(w io.Writer, v services.MonthView) {
	fmt.Fprintf(w, "%s, %s\n\n", v.Owner, v.Month)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "date\twalk\trun\twalk total\trun total\t")
	for i, p := range v.Points {
		c := v.Cumulative[i]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t\n", p.Date, p.Walk, p.Run, c.Walk, c.Run)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nwalk %d m, run %d m, total %d m over %d active day(s)\n",
		v.Totals.Walk, v.Totals.Run, v.Totals.Total, v.Totals.ActiveDays)
}
