package errors

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "convergence",
			err:      NewConvergenceError("PoissonRegressor", 500, 1e-4, 0.03),
			contains: []string{"claimfreq:", "PoissonRegressor", "500 iterations", "max_iter"},
		},
		{
			name:     "schema mismatch",
			err:      NewSchemaMismatchError("FeatureEncoder.Transform", []string{"Area", "VehAge"}, []string{"Area"}),
			contains: []string{"schema mismatch", "[Area VehAge]", "[Area]"},
		},
		{
			name:     "column count mismatch",
			err:      NewColumnCountMismatch("Predict", 12, 11),
			contains: []string{"12 columns", "11 columns"},
		},
		{
			name:     "empty fold",
			err:      NewEmptyFoldError(2, 5, 3, 3, 0),
			contains: []string{"fold 2 of 5 is empty", "held-out=0", "samples=3"},
		},
		{
			name:     "invalid hyperparameter",
			err:      NewInvalidHyperparameterError("tweedie", "power", 3.0, "(1, 2]"),
			contains: []string{"tweedie", "power=3", "(1, 2]"},
		},
		{
			name:     "not fitted",
			err:      NewNotFittedError("FeatureEncoder", "Transform"),
			contains: []string{"not fitted", "Transform()"},
		},
		{
			name:     "dimension rows",
			err:      NewDimensionError("Fit", 10, 9, 0),
			contains: []string{"axis 0 (rows)", "Expected 10, got 9"},
		},
		{
			name:     "numerical instability truncates",
			err:      NewNumericalInstabilityError("irls", []float64{1, 2, 3, 4, 5, 6, 7}, 3),
			contains: []string{"iteration 3", "..."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("message %q does not contain %q", msg, want)
				}
			}
		})
	}
}

func TestErrorTypesAreDetectableThroughWrapping(t *testing.T) {
	base := NewEmptyFoldError(0, 5, 4, 4, 0)
	wrapped := Wrapf(base, "search %s", "poisson")

	var emptyFold *EmptyFoldError
	if !As(wrapped, &emptyFold) {
		t.Fatalf("expected EmptyFoldError, got %T", wrapped)
	}
	if emptyFold.NSplits != 5 || emptyFold.TestRows != 0 {
		t.Errorf("unexpected fields: %+v", emptyFold)
	}

	var conv *ConvergenceError
	if As(wrapped, &conv) {
		t.Error("EmptyFoldError must not match ConvergenceError")
	}

	joined := Join(NewConvergenceError("GLM", 10, 1e-4, 1), NewInvalidHyperparameterError("glm", "alpha", -1.0, "[0, inf)"))
	var inv *InvalidHyperparameterError
	if !As(joined, &inv) || inv.Param != "alpha" {
		t.Errorf("expected InvalidHyperparameterError in joined error, got %v", joined)
	}
	if !As(joined, &conv) {
		t.Error("expected ConvergenceError in joined error")
	}
}

func TestModelErrorUnwrap(t *testing.T) {
	err := NewModelError("Artifact.Save", "io", ErrEmptyData)
	if !Is(err, ErrEmptyData) {
		t.Error("ModelError should unwrap to its cause")
	}
}

func TestStackTraceIncluded(t *testing.T) {
	err := NewConvergenceError("GLM", 1, 1e-4, 1)
	detailed := fmt.Sprintf("%+v", err)
	if !strings.Contains(detailed, "errors_test.go") {
		t.Errorf("expected stack trace to reference the test file, got:\n%s", detailed)
	}
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var conv *ConvergenceError
	err := NewConvergenceError("TweedieRegressor", 500, 1e-4, 0.5)
	if !As(err, &conv) {
		t.Fatal("expected ConvergenceError")
	}
	logger.Error().EmbedObject(conv).Msg("fit failed")

	out := buf.String()
	for _, want := range []string{`"algorithm":"TweedieRegressor"`, `"iterations":500`, `"type":"ConvergenceError"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %s missing %s", out, want)
		}
	}
}

func TestWarnHandler(t *testing.T) {
	var got []error
	prev := warningHandler
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(prev)

	Warn(New("fold skipped"))
	if len(got) != 1 || got[0].Error() != "fold skipped" {
		t.Errorf("expected one captured warning, got %v", got)
	}
}

func TestNumericalHelpers(t *testing.T) {
	if err := CheckNumericalStability("ok", []float64{1, 2}, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckNumericalStability("nan", []float64{1, math.NaN()}, 4); err == nil {
		t.Error("expected NaN to be detected")
	}
	if err := CheckScalar("inf", math.Inf(1), 0); err == nil {
		t.Error("expected Inf to be detected")
	}
	if SafeDivide(1, 0) != 0 {
		t.Error("SafeDivide by zero should return 0")
	}
	if v := StabilizeExp(1e6); math.IsInf(v, 0) {
		t.Error("StabilizeExp must not overflow")
	}
	if v := StabilizeLog(0); math.IsInf(v, 0) {
		t.Error("StabilizeLog must not return -Inf")
	}
}
