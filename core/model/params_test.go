package model

import (
	"testing"
)

func TestParamGridCandidatesOrder(t *testing.T) {
	grid := NewParamGrid(
		Axis{Name: "power", Values: []float64{1.2, 1.5, 1.8}},
		Axis{Name: "alpha", Values: []float64{0, 0.01, 0.1}},
	)

	if grid.Len() != 9 {
		t.Fatalf("Len() = %d, want 9", grid.Len())
	}

	cands := grid.Candidates()
	if len(cands) != 9 {
		t.Fatalf("len(Candidates()) = %d, want 9", len(cands))
	}

	// last axis varies fastest
	want := [][2]float64{
		{1.2, 0}, {1.2, 0.01}, {1.2, 0.1},
		{1.5, 0}, {1.5, 0.01}, {1.5, 0.1},
		{1.8, 0}, {1.8, 0.01}, {1.8, 0.1},
	}
	for i, c := range cands {
		if c[0].Name != "power" || c[1].Name != "alpha" {
			t.Fatalf("candidate %d has axes %v", i, c)
		}
		if c[0].Value != want[i][0] || c[1].Value != want[i][1] {
			t.Errorf("candidate %d = %v, want power=%g alpha=%g", i, c, want[i][0], want[i][1])
		}
	}
}

func TestParamGridEmpty(t *testing.T) {
	if n := (ParamGrid{}).Len(); n != 0 {
		t.Errorf("empty grid Len() = %d", n)
	}
	if c := (ParamGrid{}).Candidates(); c != nil {
		t.Errorf("empty grid Candidates() = %v", c)
	}
	withEmptyAxis := NewParamGrid(Axis{Name: "alpha", Values: nil})
	if withEmptyAxis.Len() != 0 {
		t.Errorf("axis with no values should give no candidates")
	}
}

func TestParamsAccessors(t *testing.T) {
	p := Params{{Name: "max_depth", Value: 5}, {Name: "learning_rate", Value: 0.1}}

	if got := p.Int("max_depth", 3); got != 5 {
		t.Errorf("Int(max_depth) = %d", got)
	}
	if got := p.Float("learning_rate", 0.3); got != 0.1 {
		t.Errorf("Float(learning_rate) = %g", got)
	}
	if got := p.Float("alpha", 1); got != 1 {
		t.Errorf("missing key should return the default, got %g", got)
	}
	if s := p.String(); s != "max_depth=5, learning_rate=0.1" {
		t.Errorf("String() = %q", s)
	}

	q := p.With("n_estimators", 200).With("max_depth", 3)
	if q.Int("max_depth", 0) != 3 || q.Int("n_estimators", 0) != 200 {
		t.Errorf("With() produced %v", q)
	}
	if p.Int("max_depth", 0) != 5 {
		t.Error("With() must not modify the receiver")
	}
	if m := q.Map(); len(m) != 3 || m["learning_rate"] != 0.1 {
		t.Errorf("Map() = %v", m)
	}
}
