package linear_model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// twoGroupData has a binary feature; group 0 has claim rate 0.1 and group 1
// has claim rate 0.3.
func twoGroupData() (*mat.Dense, []float64, []float64) {
	n := 20
	X := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 1
		if i >= 10 {
			X.Set(i, 0, 1)
		}
	}
	y[0] = 1
	y[10], y[11], y[12] = 1, 1, 1
	return X, y, w
}

func TestGLMRecoversGroupRates(t *testing.T) {
	tests := []struct {
		name string
		reg  interface {
			Fit(X mat.Matrix, y, w []float64) error
			Predict(X mat.Matrix) (mat.Matrix, error)
		}
	}{
		{"poisson", NewPoissonRegressor(WithAlpha(0))},
		{"tweedie 1.2", NewTweedieRegressor(WithPower(1.2), WithAlpha(0))},
		{"tweedie 1.8", NewTweedieRegressor(WithPower(1.8), WithAlpha(0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			X, y, w := twoGroupData()
			if err := tt.reg.Fit(X, y, w); err != nil {
				t.Fatalf("Fit failed: %v", err)
			}
			pred, err := tt.reg.Predict(X)
			if err != nil {
				t.Fatal(err)
			}
			if got := pred.At(0, 0); math.Abs(got-0.1) > 1e-3 {
				t.Errorf("group 0 prediction = %v, want 0.1", got)
			}
			if got := pred.At(15, 0); math.Abs(got-0.3) > 1e-3 {
				t.Errorf("group 1 prediction = %v, want 0.3", got)
			}
		})
	}
}

func TestPoissonRegressorWeightedMean(t *testing.T) {
	// intercept only: the fitted rate is the weighted mean of y
	X := mat.NewDense(2, 1, []float64{0, 0})
	y := []float64{0, 1}
	w := []float64{3, 1}

	reg := NewPoissonRegressor(WithAlpha(0))
	if err := reg.Fit(X, y, w); err != nil {
		t.Fatal(err)
	}
	if got := math.Exp(reg.Intercept()); math.Abs(got-0.25) > 1e-4 {
		t.Errorf("exp(intercept) = %v, want 0.25", got)
	}
}

func TestPoissonRegressorPenaltyShrinks(t *testing.T) {
	X, y, w := twoGroupData()
	loose := NewPoissonRegressor(WithAlpha(0))
	tight := NewPoissonRegressor(WithAlpha(1))
	if err := loose.Fit(X, y, w); err != nil {
		t.Fatal(err)
	}
	if err := tight.Fit(X, y, w); err != nil {
		t.Fatal(err)
	}
	if math.Abs(tight.Coefficients()[0]) >= math.Abs(loose.Coefficients()[0]) {
		t.Errorf("alpha=1 coefficient %v should be smaller than alpha=0 coefficient %v",
			tight.Coefficients()[0], loose.Coefficients()[0])
	}
}

func TestGLMConvergenceFailureIsReported(t *testing.T) {
	X, y, w := twoGroupData()
	reg := NewPoissonRegressor(WithAlpha(0), WithMaxIter(1), WithTol(1e-14))
	err := reg.Fit(X, y, w)

	var conv *errors.ConvergenceError
	if !errors.As(err, &conv) {
		t.Fatalf("expected ConvergenceError, got %v", err)
	}
	if conv.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", conv.Iterations)
	}
	if reg.State.IsFitted() {
		t.Error("a model that failed to converge must not be marked fitted")
	}
}

func TestGLMInvalidHyperparameters(t *testing.T) {
	X, y, w := twoGroupData()
	tests := []struct {
		name  string
		fit   func() error
		param string
	}{
		{"negative alpha", func() error { return NewPoissonRegressor(WithAlpha(-0.1)).Fit(X, y, w) }, "alpha"},
		{"tweedie power 1", func() error { return NewTweedieRegressor(WithPower(1)).Fit(X, y, w) }, "power"},
		{"tweedie power 2.5", func() error { return NewTweedieRegressor(WithPower(2.5)).Fit(X, y, w) }, "power"},
		{"gamma with zero target", func() error { return NewTweedieRegressor(WithPower(2)).Fit(X, y, w) }, "power"},
		{"zero max_iter", func() error { return NewPoissonRegressor(WithMaxIter(0)).Fit(X, y, w) }, "max_iter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inv *errors.InvalidHyperparameterError
			if err := tt.fit(); !errors.As(err, &inv) {
				t.Fatalf("expected InvalidHyperparameterError, got %v", err)
			}
			if inv.Param != tt.param {
				t.Errorf("Param = %q, want %q", inv.Param, tt.param)
			}
		})
	}
}

func TestGLMInputErrors(t *testing.T) {
	X, y, _ := twoGroupData()
	reg := NewPoissonRegressor()

	if err := reg.Fit(X, y, make([]float64, len(y))); !errors.Is(err, errors.ErrZeroWeight) {
		t.Errorf("expected ErrZeroWeight, got %v", err)
	}
	if err := reg.Fit(X, y[:5], nil); err == nil {
		t.Error("expected a dimension error")
	}

	_, err := reg.Predict(X)
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	if err := reg.Fit(X, y, nil); err != nil {
		t.Fatal(err)
	}
	_, err = reg.Predict(mat.NewDense(1, 2, nil))
	var sm *errors.SchemaMismatchError
	if !errors.As(err, &sm) {
		t.Errorf("expected SchemaMismatchError, got %v", err)
	}
}

func TestGLMCollinearOneHotColumns(t *testing.T) {
	// full one-hot block plus intercept is rank deficient
	n := 30
	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X.Set(i, i%3, 1)
		if i%3 == 2 && i%2 == 0 {
			y[i] = 1
		}
	}
	reg := NewPoissonRegressor(WithAlpha(0))
	if err := reg.Fit(X, y, nil); err != nil {
		t.Fatalf("Fit failed on collinear design: %v", err)
	}
	pred, err := reg.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if got := pred.At(2, 0); math.Abs(got-0.5) > 1e-3 {
		t.Errorf("level 2 rate = %v, want 0.5", got)
	}
}

func TestGLMFeatureImportance(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{1, 0, 0, 1, 1, 1, 0, 0, 1, 0, 0, 1})
	y := []float64{1, 0, 2, 0, 1, 0}
	reg := NewPoissonRegressor(WithAlpha(0.01))
	if err := reg.Fit(X, y, nil); err != nil {
		t.Fatal(err)
	}
	imp := reg.FeatureImportance()
	if len(imp) != 2 {
		t.Fatalf("len = %d, want 2", len(imp))
	}
	if math.Abs(floats.Sum(imp)-1) > 1e-12 {
		t.Errorf("importance sums to %v", floats.Sum(imp))
	}
}

func TestFamiliesReturnFreshModels(t *testing.T) {
	X, y, w := twoGroupData()
	fams := []model.Family{NewPoissonFamily(), NewTweedieFamily()}
	for _, fam := range fams {
		cands := fam.Grid().Candidates()
		a, err := fam.Fit(X, y, w, cands[0])
		if err != nil {
			t.Fatalf("%s: %v", fam.Name(), err)
		}
		b, err := fam.Fit(X, y, w, cands[len(cands)-1])
		if err != nil {
			t.Fatalf("%s: %v", fam.Name(), err)
		}
		if a == b {
			t.Errorf("%s returned the same instance twice", fam.Name())
		}
		named := b.(model.Named)
		if named.FamilyName() != fam.Name() {
			t.Errorf("FamilyName() = %q, want %q", named.FamilyName(), fam.Name())
		}
	}

	if n := NewPoissonFamily().Grid().Len(); n != 4 {
		t.Errorf("poisson grid has %d candidates, want 4", n)
	}
	if n := NewTweedieFamily().Grid().Len(); n != 9 {
		t.Errorf("tweedie grid has %d candidates, want 9", n)
	}
}
