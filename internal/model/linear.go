package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/sajari/regression"
	"gonum.org/v1/gonum/mat"
)

// Linear holds an intercept and coefficients shared by the linear learners.
type Linear struct {
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

func (l *Linear) predict(x []float64) (float64, error) {
	if l.Coef == nil {
		return 0, ErrNotFitted
	}
	if err := checkRow(x, len(l.Coef)); err != nil {
		return 0, err
	}
	out := l.Intercept
	for j, c := range l.Coef {
		out += c * x[j]
	}
	return out, nil
}

// Ridge is L2-regularized least squares with an unpenalized intercept.
type Ridge struct {
	Alpha float64 `json:"alpha"`
	Linear
}

var _ Regressor = (*Ridge)(nil)

// NewRidge creates an unfitted ridge regressor.
func NewRidge(alpha float64) *Ridge {
	return &Ridge{Alpha: alpha}
}

// Fit solves (XcᵀXc + αI)w = Xcᵀyc on centered data.
func (r *Ridge) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, len(y))
	if err != nil {
		return err
	}
	if r.Alpha < 0 {
		return fmt.Errorf("%w: ridge alpha %v", ErrInvalidParams, r.Alpha)
	}

	xMean, yMean := columnMeans(X), mean(y)
	a := mat.NewSymDense(p, nil)
	b := make([]float64, p)

	xc := make([]float64, p)
	for i, row := range X {
		for j := range row {
			xc[j] = row[j] - xMean[j]
		}
		yc := y[i] - yMean
		for j := 0; j < p; j++ {
			b[j] += xc[j] * yc
			for k := 0; k <= j; k++ {
				a.SetSym(j, k, a.At(j, k)+xc[j]*xc[k])
			}
		}
	}
	for j := 0; j < p; j++ {
		a.SetSym(j, j, a.At(j, j)+r.Alpha)
	}

	w, err := solveCholesky(a, b)
	if err != nil {
		return fmt.Errorf("ridge: %w", err)
	}
	r.Coef = w
	r.Intercept = yMean - dot(xMean, w)
	return nil
}

// Predict returns the linear response.
func (r *Ridge) Predict(x []float64) (float64, error) {
	return r.predict(x)
}

// Lasso is L1-regularized least squares fitted by coordinate descent on
// (1/2n)·||y − Xw||² + α·||w||₁.
type Lasso struct {
	Alpha   float64 `json:"alpha"`
	MaxIter int     `json:"max_iter"`
	Tol     float64 `json:"tol"`
	Linear
}

var _ Regressor = (*Lasso)(nil)

// NewLasso creates an unfitted lasso regressor with 1000 iterations.
func NewLasso(alpha float64) *Lasso {
	return &Lasso{Alpha: alpha, MaxIter: 1000, Tol: 1e-4}
}

// Fit runs cyclic coordinate descent until the largest coefficient update
// falls below Tol or MaxIter sweeps complete.
func (l *Lasso) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, len(y))
	if err != nil {
		return err
	}
	if l.Alpha < 0 {
		return fmt.Errorf("%w: lasso alpha %v", ErrInvalidParams, l.Alpha)
	}
	n := float64(len(y))

	xMean, yMean := columnMeans(X), mean(y)
	xc := make([][]float64, len(X))
	for i, row := range X {
		xc[i] = make([]float64, p)
		for j := range row {
			xc[i][j] = row[j] - xMean[j]
		}
	}
	resid := make([]float64, len(y))
	for i := range y {
		resid[i] = y[i] - yMean
	}
	norms := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := range xc {
			norms[j] += xc[i][j] * xc[i][j]
		}
		norms[j] /= n
	}

	w := make([]float64, p)
	for iter := 0; iter < l.MaxIter; iter++ {
		maxDelta, maxW := 0.0, 0.0
		for j := 0; j < p; j++ {
			if norms[j] == 0 {
				continue
			}
			rho := 0.0
			for i := range xc {
				rho += xc[i][j] * (resid[i] + xc[i][j]*w[j])
			}
			rho /= n
			next := softThreshold(rho, l.Alpha) / norms[j]
			if delta := next - w[j]; delta != 0 {
				for i := range xc {
					resid[i] -= xc[i][j] * delta
				}
				maxDelta = math.Max(maxDelta, math.Abs(delta))
			}
			w[j] = next
			maxW = math.Max(maxW, math.Abs(next))
		}
		if maxDelta <= l.Tol*math.Max(maxW, 1e-12) || maxDelta == 0 {
			break
		}
	}

	l.Coef = w
	l.Intercept = yMean - dot(xMean, w)
	return nil
}

// Predict returns the linear response.
func (l *Lasso) Predict(x []float64) (float64, error) {
	return l.predict(x)
}

// OLS is ordinary least squares backed by sajari/regression.
type OLS struct {
	Linear
}

var _ Regressor = (*OLS)(nil)

// Fit trains the regression and copies out its coefficients.
func (o *OLS) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, len(y))
	if err != nil {
		return err
	}

	var r regression.Regression
	r.SetObserved("target")
	for j := 0; j < p; j++ {
		r.SetVar(j, fmt.Sprintf("x%d", j))
	}
	for i := range X {
		r.Train(regression.DataPoint(y[i], X[i]))
	}
	if err := r.Run(); err != nil {
		return fmt.Errorf("ols: %w", err)
	}

	coeffs := r.GetCoeffs()
	if len(coeffs) != p+1 {
		return fmt.Errorf("ols: %w: %d coefficients for %d features", ErrDimension, len(coeffs), p)
	}
	for _, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("ols: %w", ErrSingular)
		}
	}
	o.Intercept = coeffs[0]
	o.Coef = append([]float64(nil), coeffs[1:]...)
	return nil
}

// Predict returns the linear response.
func (o *OLS) Predict(x []float64) (float64, error) {
	return o.predict(x)
}

func softThreshold(v, t float64) float64 {
	switch {
	case v > t:
		return v - t
	case v < -t:
		return v + t
	}
	return 0
}

// solveCholesky solves a·x = b for symmetric positive definite a.
func solveCholesky(a mat.Symmetric, b []float64) ([]float64, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, ErrSingular
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(len(b), b)); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	return mat.Col(nil, 0, &x), nil
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func columnMeans(X [][]float64) []float64 {
	out := make([]float64, len(X[0]))
	for _, row := range X {
		for j, v := range row {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(X))
	}
	return out
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
