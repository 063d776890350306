package model

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
	"testing"

	scierrors "github.com/YuminosukeSato/claimfreq/pkg/errors"
)

func TestStateManagerRequireFitted(t *testing.T) {
	s := NewStateManager()

	err := s.RequireFitted("PoissonRegressor", "Predict")
	var nf *scierrors.NotFittedError
	if !scierrors.As(err, &nf) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}
	if nf.ModelName != "PoissonRegressor" || nf.Method != "Predict" {
		t.Errorf("unexpected fields %+v", nf)
	}

	s.MarkFitted(12, 100)
	if err := s.RequireFitted("PoissonRegressor", "Predict"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err = s.RequireFeatures("PoissonRegressor", "Predict", 11)
	var sm *scierrors.SchemaMismatchError
	if !scierrors.As(err, &sm) {
		t.Errorf("expected SchemaMismatchError, got %v", err)
	}
	if err := s.RequireFeatures("PoissonRegressor", "Predict", 12); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	s.Reset()
	if s.IsFitted() {
		t.Error("Reset should clear the fitted flag")
	}
}

type persisted struct {
	State *StateManager
	Coef  []float64
}

func TestSaveLoadRoundTrip(t *testing.T) {
	in := persisted{State: NewStateManager(), Coef: []float64{0.5, -1.25}}
	in.State.MarkFitted(2, 10)

	var buf bytes.Buffer
	if err := SaveModelToWriter(&in, &buf); err != nil {
		t.Fatal(err)
	}

	var out persisted
	if err := LoadModelFromReader(&out, &buf); err != nil {
		t.Fatal(err)
	}
	if !out.State.IsFitted() {
		t.Error("fitted flag lost")
	}
	if nf, ns := out.State.Dimensions(); nf != 2 || ns != 10 {
		t.Errorf("dimensions = (%d, %d)", nf, ns)
	}
	if len(out.Coef) != 2 || out.Coef[1] != -1.25 {
		t.Errorf("coefficients = %v", out.Coef)
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	var out persisted
	if err := LoadModel(&out, t.TempDir()+"/missing.gob"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadModelRejectsForeignGob(t *testing.T) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(persisted{Coef: []float64{1}}); err != nil {
		t.Fatal(err)
	}
	var out persisted
	if err := LoadModelFromReader(&out, &buf); err == nil {
		t.Error("expected an error for a gob stream without header")
	}
}

func TestSaveModelWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob")
	in := persisted{State: NewStateManager(), Coef: []float64{3}}
	if err := SaveModel(&in, path); err != nil {
		t.Fatal(err)
	}
	var out persisted
	if err := LoadModel(&out, path); err != nil {
		t.Fatal(err)
	}
	if len(out.Coef) != 1 || out.Coef[0] != 3 {
		t.Errorf("coefficients = %v", out.Coef)
	}
	matches, _ := filepath.Glob(path + ".*.tmp")
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}
