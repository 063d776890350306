package linear_model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/claimfreq/core/model"
	"github.com/YuminosukeSato/claimfreq/metrics"
	"github.com/YuminosukeSato/claimfreq/pkg/errors"
	"github.com/YuminosukeSato/claimfreq/pkg/log"
)

const (
	// DefaultMaxIter はNewton反復の上限
	DefaultMaxIter = 500
	// DefaultTol は勾配の最大絶対値に対する収束判定閾値
	DefaultTol = 1e-4

	armijoC        = 1e-4
	minStep        = 1e-10
	initialDamping = 1e-8
)

// GLM is a generalized linear model with log link fit by minimizing
//
//	1/(2 Σw) Σ wᵢ d(yᵢ, μᵢ) + α/2 ||β||²,  μ = exp(β₀ + Xβ)
//
// where d is the Tweedie unit deviance of the given power. The intercept is
// not penalized. Fields are exported so that a fitted model survives gob.
type GLM struct {
	State *model.StateManager

	// Hyperparameters
	Power   float64
	Alpha   float64
	MaxIter int
	Tol     float64

	// Learned parameters
	Beta  []float64 // coefficients, one per input column
	Beta0 float64   // intercept
	NIter int       // Newton iterations used

	ModelName string
}

func newGLM(name string, power float64) GLM {
	return GLM{
		State:     model.NewStateManager(),
		Power:     power,
		Alpha:     1.0,
		MaxIter:   DefaultMaxIter,
		Tol:       DefaultTol,
		ModelName: name,
	}
}

// Option は GLM の設定オプション
type Option func(*GLM)

// WithAlpha はL2正則化の強さを設定
func WithAlpha(alpha float64) Option {
	return func(g *GLM) {
		g.Alpha = alpha
	}
}

// WithMaxIter はNewton反復の上限を設定
func WithMaxIter(n int) Option {
	return func(g *GLM) {
		g.MaxIter = n
	}
}

// WithTol は収束判定閾値を設定
func WithTol(tol float64) Option {
	return func(g *GLM) {
		g.Tol = tol
	}
}

// WithPower はTweedieのpowerを設定 (PoissonRegressorでは無視される)
func WithPower(power float64) Option {
	return func(g *GLM) {
		g.Power = power
	}
}

// Fit はモデルを重み付き訓練データで学習する
// y は n 要素、w は n 要素の非負の重み (nil は等重み)
func (g *GLM) Fit(X mat.Matrix, y, w []float64) (err error) {
	defer errors.Recover(&err, g.ModelName+".Fit")

	if err := g.validate(y); err != nil {
		return err
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError(g.ModelName+".Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != n {
		return errors.NewDimensionError(g.ModelName+".Fit", n, len(y), 0)
	}
	sw, err := normalizedWeights(g.ModelName+".Fit", w, n)
	if err != nil {
		return err
	}

	g.State.Reset()
	s := newSolver(X, y, sw, g.Power, g.Alpha)
	theta, iters, err := s.solve(g.MaxIter, g.Tol, g.ModelName)
	if err != nil {
		return err
	}
	if err := errors.CheckNumericalStability(g.ModelName+".Fit", theta, iters); err != nil {
		return err
	}

	g.Beta0 = theta[0]
	g.Beta = append([]float64(nil), theta[1:]...)
	g.NIter = iters
	g.State.MarkFitted(p, n)

	log.GetLoggerWithName("linear_model").Debug("GLM fitted",
		log.ModelNameKey, g.ModelName,
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.IterationKey, iters,
	)
	return nil
}

func (g *GLM) validate(y []float64) error {
	name := g.ModelName
	if math.IsNaN(g.Alpha) || g.Alpha < 0 {
		return errors.NewInvalidHyperparameterError(name, "alpha", g.Alpha, "[0, inf)")
	}
	if !(g.Power >= 1 && g.Power <= 2) {
		return errors.NewInvalidHyperparameterError(name, "power", g.Power, "[1, 2]")
	}
	if g.MaxIter <= 0 {
		return errors.NewInvalidHyperparameterError(name, "max_iter", g.MaxIter, "[1, inf)")
	}
	if !(g.Tol > 0) {
		return errors.NewInvalidHyperparameterError(name, "tol", g.Tol, "(0, inf)")
	}
	for _, v := range y {
		if v < 0 || math.IsNaN(v) {
			return errors.NewValueError(name+".Fit", "target must be non-negative")
		}
		if g.Power == 2 && v == 0 {
			return errors.NewInvalidHyperparameterError(name, "power", g.Power,
				"(1, 2) when the target contains zeros")
		}
	}
	return nil
}

// Predict は期待値 μ = exp(β₀ + Xβ) を n×1 行列で返す
func (g *GLM) Predict(X mat.Matrix) (mat.Matrix, error) {
	_, p := X.Dims()
	if err := g.State.RequireFeatures(g.ModelName, "Predict", p); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	eta := mat.NewVecDense(n, nil)
	eta.MulVec(X, mat.NewVecDense(p, g.Beta))
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, errors.StabilizeExp(eta.AtVec(i)+g.Beta0))
	}
	return out, nil
}

// Coefficients は学習された係数のコピーを返す
func (g *GLM) Coefficients() []float64 {
	return append([]float64(nil), g.Beta...)
}

// Intercept は学習された切片を返す
func (g *GLM) Intercept() float64 {
	return g.Beta0
}

// FeatureImportance returns |β| normalized to sum to 1. On standardized
// inputs this ranks columns by effect size on the log scale.
func (g *GLM) FeatureImportance() []float64 {
	imp := make([]float64, len(g.Beta))
	for i, b := range g.Beta {
		imp[i] = math.Abs(b)
	}
	if total := floats.Sum(imp); total > 0 {
		floats.Scale(1/total, imp)
	}
	return imp
}

// normalizedWeights returns w / Σw, or 1/n when w is nil.
func normalizedWeights(op string, w []float64, n int) ([]float64, error) {
	sw := make([]float64, n)
	if w == nil {
		for i := range sw {
			sw[i] = 1 / float64(n)
		}
		return sw, nil
	}
	if len(w) != n {
		return nil, errors.NewDimensionError(op, n, len(w), 0)
	}
	for _, v := range w {
		if v < 0 || math.IsNaN(v) {
			return nil, errors.NewValueError(op, "sample weights must be non-negative")
		}
	}
	total := floats.Sum(w)
	if total <= 0 {
		return nil, errors.Wrap(errors.ErrZeroWeight, op)
	}
	copy(sw, w)
	floats.Scale(1/total, sw)
	return sw, nil
}

// solver holds the working buffers of one Newton fit. It is not shared
// between fits.
type solver struct {
	xa    *mat.Dense // [1 | X]
	y     []float64
	sw    []float64
	power float64
	alpha float64

	n, k int // rows, parameters (p+1)

	eta  *mat.VecDense
	r    []float64 // dℓ/dη
	h    []float64 // d²ℓ/dη²
	xs   *mat.Dense
	grad *mat.VecDense
	hess *mat.SymDense
}

func newSolver(X mat.Matrix, y, sw []float64, power, alpha float64) *solver {
	n, p := X.Dims()
	k := p + 1
	xa := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		xa.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			xa.Set(i, j+1, X.At(i, j))
		}
	}
	return &solver{
		xa: xa, y: y, sw: sw, power: power, alpha: alpha,
		n: n, k: k,
		eta:  mat.NewVecDense(n, nil),
		r:    make([]float64, n),
		h:    make([]float64, n),
		xs:   mat.NewDense(n, k, nil),
		grad: mat.NewVecDense(k, nil),
		hess: mat.NewSymDense(k, nil),
	}
}

func (s *solver) solve(maxIter int, tol float64, name string) ([]float64, int, error) {
	theta := make([]float64, s.k)
	// 切片を重み付き平均の対数で初期化
	theta[0] = errors.StabilizeLog(floats.Dot(s.sw, s.y))

	f := s.objective(theta)
	step := mat.NewVecDense(s.k, nil)
	candidate := make([]float64, s.k)

	var gradMax float64
	iters := 0
	for ; iters < maxIter; iters++ {
		s.derivatives(theta)
		gradMax = floats.Norm(s.grad.RawVector().Data, math.Inf(1))
		if gradMax <= tol {
			return theta, iters, nil
		}
		if err := errors.CheckScalar(name+" gradient", gradMax, iters); err != nil {
			return nil, iters, err
		}

		if err := s.newtonStep(step); err != nil {
			return nil, iters, err
		}

		// backtracking line search (Armijo)
		slope := mat.Dot(s.grad, step)
		t := 1.0
		var fNew float64
		for {
			for j := range candidate {
				candidate[j] = theta[j] + t*step.AtVec(j)
			}
			fNew = s.objective(candidate)
			if fNew <= f+armijoC*t*slope || t < minStep {
				break
			}
			t /= 2
		}
		if t < minStep {
			// no decrease possible along the Newton direction
			break
		}
		copy(theta, candidate)
		f = fNew
	}

	s.derivatives(theta)
	gradMax = floats.Norm(s.grad.RawVector().Data, math.Inf(1))
	if gradMax <= tol {
		return theta, iters, nil
	}
	return nil, iters, errors.NewConvergenceError(name, iters, tol, gradMax)
}

// linearPredictor fills s.eta = Xa θ.
func (s *solver) linearPredictor(theta []float64) {
	s.eta.MulVec(s.xa, mat.NewVecDense(s.k, theta))
}

func (s *solver) objective(theta []float64) float64 {
	s.linearPredictor(theta)
	var dev float64
	for i := 0; i < s.n; i++ {
		if s.sw[i] == 0 {
			continue
		}
		mu := errors.StabilizeExp(s.eta.AtVec(i))
		dev += s.sw[i] * metrics.TweedieUnitDeviance(s.y[i], mu, s.power)
	}
	penalty := floats.Dot(theta[1:], theta[1:])
	return dev/2 + s.alpha/2*penalty
}

// derivatives fills the gradient and Hessian of the objective at theta.
func (s *solver) derivatives(theta []float64) {
	s.linearPredictor(theta)
	p := s.power
	for i := 0; i < s.n; i++ {
		mu := errors.StabilizeExp(s.eta.AtVec(i))
		mu1p := math.Pow(mu, 1-p)
		s.r[i] = s.sw[i] * (mu - s.y[i]) * mu1p
		s.h[i] = s.sw[i] * ((2-p)*mu*mu1p + (p-1)*s.y[i]*mu1p)
	}

	s.grad.MulVec(s.xa.T(), mat.NewVecDense(s.n, s.r))
	for j := 1; j < s.k; j++ {
		s.grad.SetVec(j, s.grad.AtVec(j)+s.alpha*theta[j])
	}

	for i := 0; i < s.n; i++ {
		sq := math.Sqrt(s.h[i])
		for j := 0; j < s.k; j++ {
			s.xs.Set(i, j, s.xa.At(i, j)*sq)
		}
	}
	s.hess.SymOuterK(1, s.xs.T())
	for j := 1; j < s.k; j++ {
		s.hess.SetSym(j, j, s.hess.At(j, j)+s.alpha)
	}
}

// newtonStep solves H d = −g. Collinear one-hot blocks make H singular
// when alpha is 0, so a growing ridge is added until Cholesky succeeds.
func (s *solver) newtonStep(dst *mat.VecDense) error {
	damping := initialDamping
	neg := mat.NewVecDense(s.k, nil)
	neg.ScaleVec(-1, s.grad)

	h := mat.NewSymDense(s.k, nil)
	for attempt := 0; attempt < 12; attempt++ {
		h.CopySym(s.hess)
		for j := 0; j < s.k; j++ {
			h.SetSym(j, j, h.At(j, j)+damping)
		}
		var chol mat.Cholesky
		if chol.Factorize(h) {
			if err := chol.SolveVecTo(dst, neg); err == nil {
				return nil
			}
		}
		damping *= 10
	}
	return errors.NewModelError("GLM.newtonStep", "hessian is not positive definite", errors.ErrSingularMatrix)
}
