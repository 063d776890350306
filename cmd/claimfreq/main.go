// Command claimfreq trains, selects and applies claim-frequency models.
//
//	claimfreq train --data policies.csv --config run.yaml
//	claimfreq predict --model models/model.gob --data new.csv --out pred.csv
//	claimfreq runs --ledger runs.db
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/claimfreq/pkg/log"
)

type rootOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "claimfreq",
		Short:         "Train and select insurance claim-frequency models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logLevel == "" {
				return nil
			}
			return log.SetupLogger(opts.logLevel, cmd.ErrOrStderr())
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Log level (debug|info|warn|error); overrides the config file")

	cmd.AddCommand(newTrainCmd(opts), newPredictCmd(), newRunsCmd())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "claimfreq: %v\n", err)
		os.Exit(1)
	}
}
