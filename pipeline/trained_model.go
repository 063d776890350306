package pipeline

import (
	"encoding/gob"

	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/dataset"
	"github.com/YuminosukeSato/claimfreq/inspection"
	"github.com/YuminosukeSato/claimfreq/metrics"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
	"github.com/YuminosukeSato/claimfreq/preprocessing"
	"github.com/YuminosukeSato/claimfreq/sklearn/ensemble"
	"github.com/YuminosukeSato/claimfreq/sklearn/linear_model"
)

func init() {
	gob.Register(&linear_model.PoissonRegressor{})
	gob.Register(&linear_model.TweedieRegressor{})
	gob.Register(&ensemble.GradientBoostingRegressor{})
}

// TrainedModel is an encoder fitted together with a model. It predicts
// claim frequency for any frame with the schema the encoder was fit on.
type TrainedModel struct {
	Family  string
	Params  model.Params
	Encoder *preprocessing.FeatureEncoder
	Model   model.Fitted
}

// Predict encodes frame and returns one expected frequency per row.
func (m *TrainedModel) Predict(frame *dataset.Frame) ([]float64, error) {
	X, err := m.Encoder.Transform(frame)
	if err != nil {
		return nil, errors.Wrap(err, "encode features")
	}
	pred, err := m.Model.Predict(X)
	if err != nil {
		return nil, errors.Wrapf(err, "%s predict", m.Family)
	}
	return metrics.ColumnValues(pred)
}

// FeatureNames returns the encoded column names.
func (m *TrainedModel) FeatureNames() []string {
	return m.Encoder.FeatureNames()
}

// Schema returns the input columns the model expects, with the default
// target and weight names.
func (m *TrainedModel) Schema() dataset.Schema {
	s := dataset.DefaultSchema()
	s.Categorical = append([]string(nil), m.Encoder.CategoricalColumns...)
	s.Numeric = append([]string(nil), m.Encoder.NumericColumns...)
	return s
}

// FeatureImportance ranks the encoded columns by the model's importance.
func (m *TrainedModel) FeatureImportance() ([]inspection.FeatureScore, error) {
	ip, ok := m.Model.(model.ImportanceProvider)
	if !ok {
		return nil, errors.NewValueError("TrainedModel.FeatureImportance",
			m.Family+" does not provide feature importance")
	}
	return inspection.FeatureImportance(m.FeatureNames(), ip.FeatureImportance())
}

// LinearWeights returns the coefficients of a linear model, or nil.
func (m *TrainedModel) LinearWeights() *model.ModelWeights {
	lm, ok := m.Model.(model.LinearModel)
	if !ok {
		return nil
	}
	return model.NewModelWeights(m.Family, lm, m.FeatureNames(), m.Params)
}

// SaveArtifact writes m to path as gob.
func SaveArtifact(path string, m *TrainedModel) error {
	return errors.Wrapf(model.SaveModel(m, path), "save artifact %s", path)
}

// LoadArtifact reads a TrainedModel written by SaveArtifact.
func LoadArtifact(path string) (*TrainedModel, error) {
	var m TrainedModel
	if err := model.LoadModel(&m, path); err != nil {
		return nil, errors.Wrapf(err, "load artifact %s", path)
	}
	if m.Encoder == nil || m.Model == nil {
		return nil, errors.NewValueError("pipeline.LoadArtifact", path+" holds no fitted model")
	}
	return &m, nil
}
