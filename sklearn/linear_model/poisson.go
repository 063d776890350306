package linear_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/claimfreq/core/model"
)

// PoissonFamilyName はPoisson GLMのモデル族名
const PoissonFamilyName = "poisson_glm"

// PoissonRegressor is a GLM with Poisson deviance and log link.
type PoissonRegressor struct {
	GLM
}

// NewPoissonRegressor は新しいPoissonRegressorを作成
func NewPoissonRegressor(options ...Option) *PoissonRegressor {
	r := &PoissonRegressor{GLM: newGLM("PoissonRegressor", 1)}
	for _, opt := range options {
		opt(&r.GLM)
	}
	r.Power = 1
	return r
}

// FamilyName implements model.Named.
func (r *PoissonRegressor) FamilyName() string { return PoissonFamilyName }

// Params implements model.Named.
func (r *PoissonRegressor) Params() model.Params {
	return model.Params{{Name: "alpha", Value: r.Alpha}}
}

// PoissonFamily adapts PoissonRegressor to the search engine.
type PoissonFamily struct {
	ParamGrid model.ParamGrid
	MaxIter   int
	Tol       float64
}

// DefaultPoissonGrid は alpha ∈ {0, 0.01, 0.1, 1.0}
func DefaultPoissonGrid() model.ParamGrid {
	return model.NewParamGrid(model.Axis{Name: "alpha", Values: []float64{0, 0.01, 0.1, 1.0}})
}

// NewPoissonFamily はデフォルト設定のPoissonFamilyを作成
func NewPoissonFamily() *PoissonFamily {
	return &PoissonFamily{ParamGrid: DefaultPoissonGrid(), MaxIter: DefaultMaxIter, Tol: DefaultTol}
}

// Name implements model.Family.
func (f *PoissonFamily) Name() string { return PoissonFamilyName }

// Grid implements model.Family.
func (f *PoissonFamily) Grid() model.ParamGrid { return f.ParamGrid }

// Fit implements model.Family.
func (f *PoissonFamily) Fit(X mat.Matrix, y, w []float64, p model.Params) (model.Fitted, error) {
	r := NewPoissonRegressor(
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
	_ model.Family             = (*PoissonFamily)(nil)
	_ model.Fitted             = (*PoissonRegressor)(nil)
	_ model.ImportanceProvider = (*PoissonRegressor)(nil)
	_ model.LinearModel        = (*PoissonRegressor)(nil)
	_ model.Named              = (*PoissonRegressor)(nil)
)
