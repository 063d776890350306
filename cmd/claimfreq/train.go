package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/claimfreq/config"
	"github.com/YuminosukeSato/claimfreq/dataset"
	"github.com/YuminosukeSato/claimfreq/pipeline"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
	"github.com/YuminosukeSato/claimfreq/pkg/log"
	"github.com/YuminosukeSato/claimfreq/store"
)

type trainOptions struct {
	data    string
	config  string
	out     string
	ledger  string
	seed    int
	workers int
}

func newTrainCmd(root *rootOptions) *cobra.Command {
	opts := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run the search, select a winner and persist it",
		Long: `Split the data 80/10/10, search the Poisson GLM, Tweedie GLM and
gradient boosted trees families with weighted k-fold cross-validation,
pick the winner on the validation partition, refit it on train+validation
and write the artifact and reports to the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, root, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.data, "data", "", "Cleaned claims CSV (required)")
	f.StringVar(&opts.config, "config", "", "YAML run configuration; defaults apply when empty")
	f.StringVar(&opts.out, "out", "", "Output directory; overrides output_dir")
	f.StringVar(&opts.ledger, "ledger", "", "SQLite run ledger; overrides ledger")
	f.IntVar(&opts.seed, "seed", 0, "Random seed; overrides seed when set")
	f.IntVar(&opts.workers, "workers", -1, "Concurrent fits; overrides workers when >= 0")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runTrain(cmd *cobra.Command, root *rootOptions, opts *trainOptions) error {
	cfg, err := loadConfig(opts.config)
	if err != nil {
		return err
	}
	if opts.out != "" {
		cfg.OutputDir = opts.out
	}
	if opts.ledger != "" {
		cfg.Ledger = opts.ledger
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = opts.seed
	}
	if opts.workers >= 0 {
		cfg.Workers = opts.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if root.logLevel == "" {
		if err := log.SetupLogger(cfg.LogLevel, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	ds, err := dataset.ReadCSVFile(opts.data, cfg.Schema)
	if err != nil {
		return err
	}

	var runnerOpts []pipeline.RunnerOption
	if cfg.Ledger != "" {
		ledger, err := store.Open(cfg.Ledger)
		if err != nil {
			return err
		}
		defer ledger.Close()
		runnerOpts = append(runnerOpts, pipeline.WithLedger(ledger))
	}

	runner, err := pipeline.NewRunner(cfg, runnerOpts...)
	if err != nil {
		return err
	}
	res, err := runner.Run(cmd.Context(), ds)
	if err != nil {
		return errors.Wrap(err, "train")
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "run       %s\n", res.RunID)
	for _, fr := range res.Families {
		fmt.Fprintf(w, "%-12s cv_mse=%.6f val_mse=%.6f val_mae=%.6f  %s\n",
			fr.Family, fr.Search.BestScore, fr.Validation.WeightedMSE, fr.Validation.WeightedMAE, fr.Params)
	}
	fmt.Fprintf(w, "winner    %s\n", res.Final.Family)
	fmt.Fprintf(w, "test      mse=%.6f mae=%.6f deviance=%.6f\n",
		res.Test.WeightedMSE, res.Test.WeightedMAE, res.Test.WeightedPoissonDeviance)
	fmt.Fprintf(w, "artifact  %s\n", res.ArtifactPath)
	return nil
}
