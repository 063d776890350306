package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/dataset"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
	"github.com/YuminosukeSato/claimfreq/pkg/log"
)

// FeatureEncoder turns a dataset.Frame into the model matrix
// [one-hot block | scaled numerics]. It is fit on the training partition
// only; afterwards the column count and order are fixed.
type FeatureEncoder struct {
	*model.StateManager

	OneHot *OneHotEncoder
	Scaler *StandardScaler

	CategoricalColumns []string
	NumericColumns     []string
}

// NewFeatureEncoder は未学習のFeatureEncoderを作成する
func NewFeatureEncoder() *FeatureEncoder {
	return &FeatureEncoder{
		StateManager: model.NewStateManager(),
		OneHot:       NewOneHotEncoder(),
		Scaler:       NewStandardScalerDefault(),
	}
}

// Fit learns category levels and numeric mean/std from frame.
func (e *FeatureEncoder) Fit(frame *dataset.Frame) error {
	n := frame.NRows()
	if n == 0 {
		return errors.NewModelError("FeatureEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	if err := e.OneHot.Fit(frame.Categorical); err != nil {
		return errors.Wrap(err, "one-hot encoder")
	}
	if len(frame.Numeric) > 0 {
		if err := e.Scaler.Fit(numericMatrix(frame)); err != nil {
			return errors.Wrap(err, "standard scaler")
		}
	}

	e.CategoricalColumns = frame.CategoricalNames()
	e.NumericColumns = frame.NumericNames()
	e.MarkFitted(e.OneHot.NOut()+len(e.NumericColumns), n)

	log.GetLoggerWithName("preprocessing").Debug("FeatureEncoder fitted",
		log.ModelNameKey, "FeatureEncoder",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, e.NOut(),
	)
	return nil
}

// Transform encodes frame with the fitted schema.
func (e *FeatureEncoder) Transform(frame *dataset.Frame) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("FeatureEncoder", "Transform")
	}
	if !equalStrings(frame.CategoricalNames(), e.CategoricalColumns) || !equalStrings(frame.NumericNames(), e.NumericColumns) {
		return nil, errors.NewSchemaMismatchError("FeatureEncoder.Transform",
			append(append([]string(nil), e.CategoricalColumns...), e.NumericColumns...),
			append(frame.CategoricalNames(), frame.NumericNames()...))
	}

	n := frame.NRows()
	if n == 0 {
		return nil, errors.NewModelError("FeatureEncoder.Transform", "empty data", errors.ErrEmptyData)
	}

	out := mat.NewDense(n, e.NOut(), nil)
	if err := e.OneHot.transformInto(out, 0, frame.Categorical); err != nil {
		return nil, err
	}
	if len(e.NumericColumns) > 0 {
		if err := e.Scaler.transformInto(out, e.OneHot.NOut(), numericMatrix(frame)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FitTransform fits on frame and encodes it.
func (e *FeatureEncoder) FitTransform(frame *dataset.Frame) (*mat.Dense, error) {
	if err := e.Fit(frame); err != nil {
		return nil, err
	}
	return e.Transform(frame)
}

// NOut returns the encoded column count.
func (e *FeatureEncoder) NOut() int {
	return e.OneHot.NOut() + len(e.NumericColumns)
}

// FeatureNames returns the encoded column names in matrix order.
func (e *FeatureEncoder) FeatureNames() []string {
	names := e.OneHot.FeatureNamesOut()
	return append(names, e.NumericColumns...)
}

func numericMatrix(frame *dataset.Frame) *mat.Dense {
	n, k := frame.NRows(), len(frame.Numeric)
	m := mat.NewDense(n, k, nil)
	for j, c := range frame.Numeric {
		m.SetCol(j, c.Values)
	}
	return m
}
