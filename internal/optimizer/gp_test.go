package optimizer

import (
	"math"
	"testing"
)

func TestGaussianProcessInterpolates(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i <= 10; i++ {
		x := float64(i) / 10
		X = append(X, []float64{x})
		y = append(y, math.Sin(2*math.Pi*x))
	}
	gp, err := fitGP(X, y)
	if err != nil {
		t.Fatalf("fitGP: %v", err)
	}
	for i, x := range X {
		mu, sigma := gp.predict(x)
		if math.Abs(mu-y[i]) > 0.05 {
			t.Errorf("mu(%v) = %v, want %v", x[0], mu, y[i])
		}
		if sigma > 0.05 {
			t.Errorf("sigma(%v) = %v at an observed point", x[0], sigma)
		}
	}
	mu, _ := gp.predict([]float64{0.25})
	if math.Abs(mu-1) > 0.3 {
		t.Errorf("mu(0.25) = %v, want about 1", mu)
	}
}

func TestFitWithScaleLogLikelihood(t *testing.T) {
	X := [][]float64{{0.2}, {0.6}}
	y := []float64{1, -1}
	const ls = 0.5

	gp, ll, err := fitWithScale(X, y, ls)
	if err != nil {
		t.Fatalf("fitWithScale: %v", err)
	}

	// K = [d k; k d]; y lies on the eigenvector with eigenvalue d-k.
	k := matern52(X[0], X[1], ls)
	d := 1 + gpNoise
	want := -0.5*2/(d-k) - 0.5*math.Log(d*d-k*k) - math.Log(2*math.Pi)
	if math.Abs(ll-want) > 1e-9 {
		t.Errorf("log likelihood = %v, want %v", ll, want)
	}
	for i, wantAlpha := range []float64{1 / (d - k), -1 / (d - k)} {
		if got := gp.alpha.AtVec(i); math.Abs(got-wantAlpha) > 1e-9 {
			t.Errorf("alpha[%d] = %v, want %v", i, got, wantAlpha)
		}
	}
}

func TestFitGPDuplicatePoints(t *testing.T) {
	gp, err := fitGP([][]float64{{0.4}, {0.4}, {0.7}}, []float64{1, 1, 3})
	if err != nil {
		t.Fatalf("fitGP: %v", err)
	}
	mu, sigma := gp.predict([]float64{0.4})
	if math.Abs(mu-1) > 0.05 || math.IsNaN(sigma) {
		t.Errorf("predict(0.4) = %v, %v", mu, sigma)
	}
}

func TestGaussianProcessConstantTargets(t *testing.T) {
	gp, err := fitGP([][]float64{{0.1}, {0.5}, {0.9}}, []float64{2, 2, 2})
	if err != nil {
		t.Fatalf("fitGP: %v", err)
	}
	mu, sigma := gp.predict([]float64{0.3})
	if math.IsNaN(mu) || math.IsNaN(sigma) {
		t.Fatalf("NaN prediction: %v, %v", mu, sigma)
	}
}

func TestExpectedImprovement(t *testing.T) {
	if ei := expectedImprovement(0.2, 0, 0.5, 0); ei != 0 {
		t.Errorf("zero sigma below best: ei = %v, want 0", ei)
	}
	if ei := expectedImprovement(1, 0, 0.5, 0); ei != 0.5 {
		t.Errorf("zero sigma above best: ei = %v, want 0.5", ei)
	}
	low := expectedImprovement(0, 0.1, 1, 0.01)
	high := expectedImprovement(2, 0.1, 1, 0.01)
	if !(high > low) {
		t.Errorf("higher mean should improve more: %v <= %v", high, low)
	}
	narrow := expectedImprovement(0.9, 0.05, 1, 0.01)
	wide := expectedImprovement(0.9, 0.5, 1, 0.01)
	if !(wide > narrow) {
		t.Errorf("higher uncertainty should improve more below the best: %v <= %v", wide, narrow)
	}
}
