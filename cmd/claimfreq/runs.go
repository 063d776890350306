package main

import (
	"fmt"
	"math"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/claimfreq/store"
)

func newRunsCmd() *cobra.Command {
	var (
		ledgerPath string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded training runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := store.Open(ledgerPath)
			if err != nil {
				return err
			}
			defer ledger.Close()

			runs, err := ledger.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tWINNER\tVAL_MSE\tTEST_MSE\tTEST_MAE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.RunID, r.StartedAt.Local().Format(time.DateTime), r.Status, dash(r.Winner),
					metric(r.ValMSE), metric(r.TestMSE), metric(r.TestMAE))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&ledgerPath, "ledger", "runs.db", "SQLite run ledger")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list; 0 lists all")
	return cmd
}

func metric(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.6f", v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
