package metrics

import (
	"math"
	"testing"
)

func TestUnitDeviances(t *testing.T) {
	tests := []struct {
		name  string
		y, mu float64
		power float64
		want  float64
	}{
		{"poisson zero target", 0, 0.5, 1, 1.0},
		{"poisson exact", 2, 2, 1, 0},
		{"gamma exact", 3, 3, 2, 0},
		{"tweedie exact", 1.5, 1.5, 1.5, 0},
		{"tweedie zero target", 0, 1, 1.5, 2 * (1.0 / 0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TweedieUnitDeviance(tt.y, tt.mu, tt.power)
			if math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("TweedieUnitDeviance(%v, %v, %v) = %v, want %v", tt.y, tt.mu, tt.power, got, tt.want)
			}
		})
	}
}

func TestTweedieDevianceApproachesPoisson(t *testing.T) {
	y, mu := 2.0, 1.3
	poisson := PoissonUnitDeviance(y, mu)
	near := TweedieUnitDeviance(y, mu, 1.0001)
	if math.Abs(poisson-near) > 1e-3 {
		t.Errorf("power→1 deviance %v should approach Poisson %v", near, poisson)
	}
}

func TestDevianceIsNonNegative(t *testing.T) {
	for _, p := range []float64{1, 1.2, 1.5, 1.8} {
		for _, y := range []float64{0, 0.3, 1, 4} {
			for _, mu := range []float64{0.01, 0.5, 1, 10} {
				if d := TweedieUnitDeviance(y, mu, p); d < -1e-12 {
					t.Errorf("deviance(%v, %v, %v) = %v < 0", y, mu, p, d)
				}
			}
		}
	}
}

func TestWeightedMeanDevianceRejectsGammaZero(t *testing.T) {
	if _, err := WeightedMeanDeviance([]float64{0, 1}, []float64{1, 1}, nil, 2); err == nil {
		t.Error("gamma deviance must reject a zero target")
	}
	if _, err := WeightedMeanDeviance([]float64{1}, []float64{1}, nil, 3); err == nil {
		t.Error("power outside [1, 2] must be rejected")
	}
}
