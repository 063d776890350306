package linear_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// TweedieFamilyName はTweedie GLMのモデル族名
const TweedieFamilyName = "tweedie_glm"

// TweedieRegressor is a GLM with Tweedie deviance and log link. Power 1 is
// Poisson, 1 < power < 2 compound Poisson-Gamma, power 2 Gamma.
type TweedieRegressor struct {
	GLM
}

// NewTweedieRegressor は新しいTweedieRegressorを作成 (power デフォルト 1.5)
func NewTweedieRegressor(options ...Option) *TweedieRegressor {
	r := &TweedieRegressor{GLM: newGLM("TweedieRegressor", 1.5)}
	for _, opt := range options {
		opt(&r.GLM)
	}
	return r
}

// Fit はpowerが (1, 2] にあることを確認してから学習する
func (r *TweedieRegressor) Fit(X mat.Matrix, y, w []float64) error {
	if !(r.Power > 1 && r.Power <= 2) {
		return errors.NewInvalidHyperparameterError(r.ModelName, "power", r.Power, "(1, 2]")
	}
	return r.GLM.Fit(X, y, w)
}

// FamilyName implements model.Named.
func (r *TweedieRegressor) FamilyName() string { return TweedieFamilyName }

// Params implements model.Named.
func (r *TweedieRegressor) Params() model.Params {
	return model.Params{{Name: "power", Value: r.Power}, {Name: "alpha", Value: r.Alpha}}
}

// TweedieFamily adapts TweedieRegressor to the search engine.
type TweedieFamily struct {
	ParamGrid model.ParamGrid
	MaxIter   int
	Tol       float64
}

// DefaultTweedieGrid は power ∈ {1.2, 1.5, 1.8} × alpha ∈ {0, 0.01, 0.1}
func DefaultTweedieGrid() model.ParamGrid {
	return model.NewParamGrid(
		model.Axis{Name: "power", Values: []float64{1.2, 1.5, 1.8}},
		model.Axis{Name: "alpha", Values: []float64{0, 0.01, 0.1}},
	)
}

// NewTweedieFamily はデフォルト設定のTweedieFamilyを作成
func NewTweedieFamily() *TweedieFamily {
	return &TweedieFamily{ParamGrid: DefaultTweedieGrid(), MaxIter: DefaultMaxIter, Tol: DefaultTol}
}

// Name implements model.Family.
func (f *TweedieFamily) Name() string { return TweedieFamilyName }

// Grid implements model.Family.
func (f *TweedieFamily) Grid() model.ParamGrid { return f.ParamGrid }

// Fit implements model.Family.
func (f *TweedieFamily) Fit(X mat.Matrix, y, w []float64, p model.Params) (model.Fitted, error) {
	r := NewTweedieRegressor(
		WithPower(p.Float("power", 1.5)),
		WithAlpha(p.Float("alpha", 1.0)),
		WithMaxIter(f.MaxIter),
		WithTol(f.Tol),
	)
	if err := r.Fit(X, y, w); err != nil {
		return nil, err
	}
	return r, nil
}

var (
	_ model.Family             = (*TweedieFamily)(nil)
	_ model.Fitted             = (*TweedieRegressor)(nil)
	_ model.ImportanceProvider = (*TweedieRegressor)(nil)
	_ model.LinearModel        = (*TweedieRegressor)(nil)
	_ model.Named              = (*TweedieRegressor)(nil)
)
