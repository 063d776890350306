package dataset

import (
	scierrors "github.com/YuminosukeSato/claimfreq/pkg/errors"
	"github.com/YuminosukeSato/claimfreq/sklearn/model_selection"
)

// Dataset is a cleaned set of observations: features, the claim frequency
// target and the exposure used as sample weight.
type Dataset struct {
	Features *Frame
	Target   []float64
	Weight   []float64
}

// New validates row counts and returns a Dataset.
func New(features *Frame, target, weight []float64) (*Dataset, error) {
	n := features.NRows()
	if len(target) != n {
		return nil, scierrors.NewDimensionError("dataset.New", n, len(target), 0)
	}
	if len(weight) != n {
		return nil, scierrors.NewDimensionError("dataset.New", n, len(weight), 0)
	}
	return &Dataset{Features: features, Target: target, Weight: weight}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Target)
}

// Subset returns the given rows as a new Dataset.
func (d *Dataset) Subset(indices []int) *Dataset {
	target := make([]float64, len(indices))
	weight := make([]float64, len(indices))
	for i, idx := range indices {
		target[i] = d.Target[idx]
		weight[i] = d.Weight[idx]
	}
	return &Dataset{Features: d.Features.Subset(indices), Target: target, Weight: weight}
}

// Concat stacks b under a.
func Concat(a, b *Dataset) (*Dataset, error) {
	features, err := ConcatFrames(a.Features, b.Features)
	if err != nil {
		return nil, err
	}
	target := append(append(make([]float64, 0, a.Len()+b.Len()), a.Target...), b.Target...)
	weight := append(append(make([]float64, 0, a.Len()+b.Len()), a.Weight...), b.Weight...)
	return &Dataset{Features: features, Target: target, Weight: weight}, nil
}

// TotalWeight returns the sum of exposure weights.
func (d *Dataset) TotalWeight() float64 {
	var s float64
	for _, w := range d.Weight {
		s += w
	}
	return s
}

// Partitions holds the three disjoint row sets of a run.
type Partitions struct {
	Train      *Dataset
	Validation *Dataset
	Test       *Dataset

	// Row indices into the source dataset.
	TrainIndices      []int
	ValidationIndices []int
	TestIndices       []int
}

// Split partitions ds 80/10/10 with seed: an 80/20 split, then the 20%
// bisected into validation and test. Every row lands in exactly one
// partition.
func Split(ds *Dataset, seed int) (*Partitions, error) {
	train, rest, err := model_selection.TrainTestSplit(ds.Len(), 0.2, seed)
	if err != nil {
		return nil, scierrors.Wrap(err, "train/holdout split")
	}
	valPos, testPos, err := model_selection.TrainTestSplit(len(rest), 0.5, seed)
	if err != nil {
		return nil, scierrors.Wrap(err, "validation/test split")
	}

	val := make([]int, len(valPos))
	for i, p := range valPos {
		val[i] = rest[p]
	}
	test := make([]int, len(testPos))
	for i, p := range testPos {
		test[i] = rest[p]
	}

	return &Partitions{
		Train:             ds.Subset(train),
		Validation:        ds.Subset(val),
		Test:              ds.Subset(test),
		TrainIndices:      train,
		ValidationIndices: val,
		TestIndices:       test,
	}, nil
}
