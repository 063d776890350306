package model_selection

import (
	"math"
	"math/rand/v2"

	scierrors "github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// Fold represents a single fold in cross-validation
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed int) *KFold {
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split partitions row indices [0, nSamples) into NSplits contiguous groups
// of the (optionally shuffled) index order. Group sizes differ by at most one
// and the first nSamples%NSplits groups get the extra row. Each fold holds
// one group out.
//
// A fold with no held-out rows or no training rows yields EmptyFoldError.
func (kf *KFold) Split(nSamples int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, scierrors.NewValueError("KFold.Split", "n_splits must be at least 2")
	}

	indices := permutation(nSamples, kf.Shuffle, kf.RandomSeed)

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		trainSize := nSamples - testSize
		if testSize == 0 || trainSize == 0 {
			return nil, scierrors.NewEmptyFoldError(i, kf.NSplits, nSamples, trainSize, testSize)
		}

		testIndices := make([]int, testSize)
		copy(testIndices, indices[current:current+testSize])

		trainIndices := make([]int, 0, trainSize)
		trainIndices = append(trainIndices, indices[:current]...)
		trainIndices = append(trainIndices, indices[current+testSize:]...)

		folds[i] = Fold{
			TrainIndices: trainIndices,
			TestIndices:  testIndices,
		}
		current += testSize
	}

	return folds, nil
}

// TrainTestSplit shuffles [0, n) with seed and holds out ceil(testSize*n)
// rows. Both sides must be non-empty.
func TrainTestSplit(n int, testSize float64, seed int) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, scierrors.NewValueError("TrainTestSplit", "test_size must be in (0, 1)")
	}
	nTest := int(math.Ceil(testSize*float64(n) - 1e-9))
	if nTest <= 0 || nTest >= n {
		return nil, nil, scierrors.NewValueError("TrainTestSplit",
			"split would leave an empty partition; need more rows")
	}

	indices := permutation(n, true, seed)
	test = append([]int(nil), indices[:nTest]...)
	train = append([]int(nil), indices[nTest:]...)
	return train, test, nil
}

func permutation(n int, shuffle bool, seed int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if shuffle {
		r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}
	return indices
}
