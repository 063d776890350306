package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/claimfreq/pkg/errors"
)

// TrainingParams contains the boosting hyperparameters.
type TrainingParams struct {
	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	MinChildWeight  float64
	Lambda          float64
	Subsample       float64
	ColsampleByTree float64
	MaxDeltaStep    float64
	MaxBin          int
	Seed            int
}

// trainer grows trees on one training set. It owns all of its buffers, so
// concurrent fits never share state.
type trainer struct {
	params TrainingParams
	obj    ObjectiveFunction

	bins   *binMapper
	binned [][]uint16
	y, w   []float64

	// cached raw scores of the training rows
	score []float64
	grad  []float64
	hess  []float64

	hist    []histogramBin
	rng     *rand.Rand
	allRows []int
}

func newTrainer(params TrainingParams, obj ObjectiveFunction, X mat.Matrix, y, w []float64) *trainer {
	n, p := X.Dims()
	bins := newBinMapper(X, params.MaxBin)

	maxBins := 1
	for j := 0; j < p; j++ {
		maxBins = max(maxBins, bins.NBins(j))
	}

	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}

	return &trainer{
		params:  params,
		obj:     obj,
		bins:    bins,
		binned:  bins.Transform(X),
		y:       y,
		w:       w,
		score:   make([]float64, n),
		grad:    make([]float64, n),
		hess:    make([]float64, n),
		hist:    make([]histogramBin, maxBins),
		rng:     rand.New(rand.NewPCG(uint64(params.Seed), uint64(params.Seed))),
		allRows: rows,
	}
}

// init sets every cached score to the initial score.
func (t *trainer) init(initScore float64) {
	for i := range t.score {
		t.score[i] = initScore
	}
}

// boostRound grows one tree on the current scores and folds it into them.
func (t *trainer) boostRound() Tree {
	for i := range t.score {
		t.grad[i] = t.w[i] * t.obj.Gradient(t.score[i], t.y[i])
		t.hess[i] = t.w[i] * t.obj.Hessian(t.score[i], t.y[i])
	}

	rows := t.sampleRows()
	features := t.sampleFeatures()

	tree := Tree{ShrinkageRate: t.params.LearningRate}
	t.buildNode(&tree, rows, features, 0)

	for i := range t.score {
		t.score[i] += tree.predictBinned(t.binned, i)
	}
	return tree
}

func (t *trainer) sampleRows() []int {
	n := len(t.allRows)
	if t.params.Subsample >= 1 {
		return t.allRows
	}
	k := max(1, int(math.Round(t.params.Subsample*float64(n))))
	rows := t.rng.Perm(n)[:k]
	sort.Ints(rows)
	return rows
}

func (t *trainer) sampleFeatures() []int {
	p := len(t.binned)
	if t.params.ColsampleByTree >= 1 {
		features := make([]int, p)
		for j := range features {
			features[j] = j
		}
		return features
	}
	k := max(1, int(math.Round(t.params.ColsampleByTree*float64(p))))
	features := t.rng.Perm(p)[:k]
	sort.Ints(features)
	return features
}

type splitInfo struct {
	feature int
	bin     int
	gain    float64
}

// buildNode grows the subtree over rows depth-first and returns its node id.
func (t *trainer) buildNode(tree *Tree, rows, features []int, depth int) int {
	var sumGrad, sumHess float64
	for _, i := range rows {
		sumGrad += t.grad[i]
		sumHess += t.hess[i]
	}

	id := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{
		Left:  -1,
		Right: -1,
		Value: leafValue(sumGrad, sumHess, t.params.Lambda, t.params.MaxDeltaStep),
		Hess:  sumHess,
	})

	if depth >= t.params.MaxDepth || len(rows) < 2 || sumHess < 2*t.params.MinChildWeight {
		return id
	}

	best := t.findBestSplit(rows, features, sumGrad, sumHess)
	if best.gain <= 0 {
		return id
	}

	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	col := t.binned[best.feature]
	for _, i := range rows {
		if int(col[i]) <= best.bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node := &tree.Nodes[id]
	node.Feature = best.feature
	node.Bin = best.bin
	node.Threshold = t.bins.Bounds[best.feature][best.bin]
	node.Gain = best.gain

	l := t.buildNode(tree, left, features, depth+1)
	r := t.buildNode(tree, right, features, depth+1)
	tree.Nodes[id].Left = l
	tree.Nodes[id].Right = r
	return id
}

// findBestSplit scans the histogram of every sampled feature. Ties keep the
// lower feature index and the lower bin.
func (t *trainer) findBestSplit(rows, features []int, sumGrad, sumHess float64) splitInfo {
	best := splitInfo{feature: -1}
	for _, j := range features {
		nBins := t.bins.NBins(j)
		if nBins < 2 {
			continue
		}
		hist := t.hist[:nBins]
		buildHistogram(hist, t.binned[j], rows, t.grad, t.hess)

		var leftGrad, leftHess float64
		leftCount := 0
		for k := 0; k < nBins-1; k++ {
			leftGrad += hist[k].SumGrad
			leftHess += hist[k].SumHess
			leftCount += hist[k].Count
			rightCount := len(rows) - leftCount
			if leftCount == 0 || rightCount == 0 {
				continue
			}
			rightHess := sumHess - leftHess
			if leftHess < t.params.MinChildWeight || rightHess < t.params.MinChildWeight {
				continue
			}
			g := splitGain(leftGrad, leftHess, sumGrad-leftGrad, rightHess, t.params.Lambda)
			if g > best.gain {
				best = splitInfo{feature: j, bin: k, gain: g}
			}
		}
	}
	return best
}

// loss is the weighted mean objective loss of the cached training scores.
func (t *trainer) loss() float64 {
	var sum, sw float64
	for i, s := range t.score {
		sum += t.w[i] * t.obj.Loss(s, t.y[i])
		sw += t.w[i]
	}
	return errors.SafeDivide(sum, sw)
}
