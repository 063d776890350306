package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/claimfreq/dataset"
	"github.com/YuminosukeSato/claimfreq/pipeline"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

type predictOptions struct {
	model string
	data  string
	out   string
}

func newPredictCmd() *cobra.Command {
	opts := &predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict claim frequency with a persisted model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.model, "model", "", "Artifact written by train (required)")
	f.StringVar(&opts.data, "data", "", "CSV with the feature columns the model was trained on (required)")
	f.StringVar(&opts.out, "out", "", "Output CSV; stdout when empty")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func runPredict(cmd *cobra.Command, opts *predictOptions) error {
	m, err := pipeline.LoadArtifact(opts.model)
	if err != nil {
		return err
	}

	in, err := os.Open(opts.data)
	if err != nil {
		return errors.Wrapf(err, "open %s", opts.data)
	}
	defer in.Close()
	frame, err := dataset.ReadFeaturesCSV(in, m.Schema())
	if err != nil {
		return errors.Wrapf(err, "read %s", opts.data)
	}

	pred, err := m.Predict(frame)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return errors.Wrapf(err, "create %s", opts.out)
		}
		defer f.Close()
		w = f
	}
	return writePredictions(w, pred)
}

// writePredictions writes one "row,predicted_frequency" record per input row.
func writePredictions(w io.Writer, pred []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"row", "predicted_frequency"}); err != nil {
		return errors.Wrap(err, "write predictions")
	}
	for i, p := range pred {
		rec := []string{strconv.Itoa(i), strconv.FormatFloat(p, 'g', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write predictions")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "write predictions")
}
