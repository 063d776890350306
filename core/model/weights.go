package model

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ModelWeights は線形モデルの重みを表す構造体 (JSONレポート用)
type ModelWeights struct {
	// ModelType はモデルの種類 (PoissonRegressor, TweedieRegressor)
	ModelType string `json:"model_type"`

	// Coefficients は重み係数。Features と同じ順序
	Coefficients []float64 `json:"coefficients"`

	// Intercept は切片
	Intercept float64 `json:"intercept"`

	// Features はエンコード後の特徴量名
	Features []string `json:"features,omitempty"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]float64 `json:"hyperparameters"`
}

// NewModelWeights collects the weights of a fitted linear model.
func NewModelWeights(modelType string, lm LinearModel, features []string, params Params) *ModelWeights {
	coef := lm.Coefficients()
	return &ModelWeights{
		ModelType:       modelType,
		Coefficients:    append([]float64(nil), coef...),
		Intercept:       lm.Intercept(),
		Features:        append([]string(nil), features...),
		Hyperparameters: params.Map(),
	}
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.New("model_type is required")
	}
	if len(mw.Coefficients) == 0 {
		return errors.New("fitted model must have coefficients")
	}
	if len(mw.Features) > 0 && len(mw.Features) != len(mw.Coefficients) {
		return errors.Newf("features (%d) and coefficients (%d) differ in length", len(mw.Features), len(mw.Coefficients))
	}
	return nil
}
