package ensemble

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// DefaultMaxBin bounds the number of histogram bins per feature.
const DefaultMaxBin = 255

// binMapper maps raw feature values to histogram bins. Bounds[j] holds the
// ascending upper bounds of feature j; value v falls in bin k when
// Bounds[j][k-1] < v <= Bounds[j][k]. Values above the last bound fall in
// the final bin.
type binMapper struct {
	Bounds [][]float64
}

// newBinMapper builds bins from the training matrix. Features with at most
// maxBin distinct values get one bin per value; others get equal-frequency
// bins. Bounds are midpoints between adjacent distinct values.
func newBinMapper(X mat.Matrix, maxBin int) *binMapper {
	rows, cols := X.Dims()
	bm := &binMapper{Bounds: make([][]float64, cols)}
	values := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(values, j, X)
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		bm.Bounds[j] = findBinBounds(sorted, maxBin)
	}
	return bm
}

func findBinBounds(sorted []float64, maxBin int) []float64 {
	if len(sorted) == 0 {
		return nil
	}
	unique := []float64{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			unique = append(unique, sorted[i])
		}
	}

	var cuts []float64
	if len(unique) <= maxBin {
		cuts = unique[:len(unique)-1]
	} else {
		n := len(sorted)
		for q := 1; q < maxBin; q++ {
			v := sorted[q*n/maxBin]
			if v >= unique[len(unique)-1] {
				break
			}
			if len(cuts) == 0 || v > cuts[len(cuts)-1] {
				cuts = append(cuts, v)
			}
		}
	}

	bounds := make([]float64, len(cuts))
	for k, c := range cuts {
		next := unique[sort.SearchFloat64s(unique, c)+1]
		bounds[k] = (c + next) / 2
	}
	return bounds
}

// NBins returns the number of bins of feature j.
func (bm *binMapper) NBins(j int) int {
	return len(bm.Bounds[j]) + 1
}

// Bin returns the bin of value v in feature j.
func (bm *binMapper) Bin(j int, v float64) int {
	return sort.SearchFloat64s(bm.Bounds[j], v)
}

// Transform bins X column-major: out[j][i] is the bin of X[i, j].
func (bm *binMapper) Transform(X mat.Matrix) [][]uint16 {
	rows, cols := X.Dims()
	out := make([][]uint16, cols)
	for j := 0; j < cols; j++ {
		col := make([]uint16, rows)
		for i := 0; i < rows; i++ {
			col[i] = uint16(bm.Bin(j, X.At(i, j)))
		}
		out[j] = col
	}
	return out
}

// histogramBin accumulates gradient statistics for one bin.
type histogramBin struct {
	SumGrad float64
	SumHess float64
	Count   int
}

// buildHistogram accumulates grad/hess of rows into the bins of one feature.
func buildHistogram(hist []histogramBin, bins []uint16, rows []int, grad, hess []float64) {
	for k := range hist {
		hist[k] = histogramBin{}
	}
	for _, i := range rows {
		b := &hist[bins[i]]
		b.SumGrad += grad[i]
		b.SumHess += hess[i]
		b.Count++
	}
}
