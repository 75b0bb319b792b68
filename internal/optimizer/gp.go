package optimizer

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errNotPositiveDefinite = errors.New("kernel matrix not positive definite")

// lengthScales are the candidate Matern length scales; the one with the
// highest log marginal likelihood is used.
var lengthScales = []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.2, 2.0}

const gpNoise = 1e-6

// gaussianProcess is a zero-mean GP with a Matern 5/2 kernel over the unit
// hypercube, fitted on standardized targets.
type gaussianProcess struct {
	X           [][]float64
	alpha       *mat.VecDense
	chol        *mat.Cholesky
	lengthScale float64
	yMean, yStd float64
}

// fitGP fits the surrogate. Targets must be finite.
func fitGP(X [][]float64, y []float64) (*gaussianProcess, error) {
	mean, std := meanStd(y)
	ys := make([]float64, len(y))
	for i, v := range y {
		ys[i] = (v - mean) / std
	}

	var best *gaussianProcess
	bestLL := math.Inf(-1)
	for _, ls := range lengthScales {
		gp, ll, err := fitWithScale(X, ys, ls)
		if err != nil {
			continue
		}
		if ll > bestLL {
			best, bestLL = gp, ll
		}
	}
	if best == nil {
		return nil, errNotPositiveDefinite
	}
	best.yMean, best.yStd = mean, std
	return best, nil
}

func fitWithScale(X [][]float64, y []float64, ls float64) (*gaussianProcess, float64, error) {
	n := len(X)
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			k.SetSym(i, j, matern52(X[i], X[j], ls))
		}
		k.SetSym(i, i, matern52(X[i], X[i], ls)+gpNoise)
	}
	chol := new(mat.Cholesky)
	if ok := chol.Factorize(k); !ok {
		return nil, 0, errNotPositiveDefinite
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	alpha := new(mat.VecDense)
	if err := solve(chol, alpha, yv); err != nil {
		return nil, 0, err
	}

	// log p(y|X) = -½ yᵀα - ½ log|K| - n/2 log 2π
	ll := -0.5*mat.Dot(yv, alpha) - 0.5*chol.LogDet() - float64(n)/2*math.Log(2*math.Pi)

	return &gaussianProcess{X: X, alpha: alpha, chol: chol, lengthScale: ls}, ll, nil
}

// solve writes K⁻¹b into dst. Condition errors are ignored.
func solve(chol *mat.Cholesky, dst *mat.VecDense, b mat.Vector) error {
	err := chol.SolveVecTo(dst, b)
	var cond mat.Condition
	if err != nil && !errors.As(err, &cond) {
		return err
	}
	return nil
}

// predict returns the posterior mean and standard deviation at x in the
// original target scale.
func (gp *gaussianProcess) predict(x []float64) (mu, sigma float64) {
	n := len(gp.X)
	kStar := mat.NewVecDense(n, nil)
	for i, xi := range gp.X {
		kStar.SetVec(i, matern52(x, xi, gp.lengthScale))
	}
	mu = mat.Dot(kStar, gp.alpha)

	variance := 1.0
	v := new(mat.VecDense)
	if err := solve(gp.chol, v, kStar); err == nil {
		variance -= mat.Dot(kStar, v)
	}
	if variance < 1e-12 {
		variance = 1e-12
	}
	return gp.yMean + mu*gp.yStd, math.Sqrt(variance) * gp.yStd
}

// expectedImprovement over best for maximization, with exploration xi.
func expectedImprovement(mu, sigma, best, xi float64) float64 {
	imp := mu - best - xi
	if sigma <= 0 {
		return math.Max(imp, 0)
	}
	z := imp / sigma
	return imp*normCDF(z) + sigma*normPDF(z)
}

func matern52(a, b []float64, ls float64) float64 {
	d2 := 0.0
	for i := range a {
		d := a[i] - b[i]
		d2 += d * d
	}
	r := math.Sqrt(5*d2) / ls
	return (1 + r + r*r/3) * math.Exp(-r)
}

func meanStd(y []float64) (mean, std float64) {
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	for _, v := range y {
		std += (v - mean) * (v - mean)
	}
	std = math.Sqrt(std / float64(len(y)))
	if std == 0 {
		std = 1
	}
	return mean, std
}

func normPDF(z float64) float64 {
	return math.Exp(-z*z/2) / math.Sqrt(2*math.Pi)
}

func normCDF(z float64) float64 {
	return 0.5 * math.Erfc(-z/math.Sqrt2)
}
