// Package model provides the learners behind winner and score prediction.
//
// Learners are exposed through two capability interfaces. Composite models
// (the stacked score ensemble) are built by composition, never inheritance.
// Every learner is deterministic for a fixed seed.
package model

import (
	"errors"
	"fmt"
)

// Classifier is a binary classifier. PredictProba returns P(label == 1).
type Classifier interface {
	Fit(X [][]float64, y []int) error
	PredictProba(x []float64) (float64, error)
}

// Regressor predicts a continuous target.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) (float64, error)
}

// Learner errors.
var (
	ErrEmptyData     = errors.New("empty training data")
	ErrDimension     = errors.New("dimension mismatch")
	ErrNotFitted     = errors.New("model not fitted")
	ErrInvalidParams = errors.New("invalid hyperparameters")
	ErrSingular      = errors.New("singular system")
)

// checkXY validates a design matrix against its target length.
func checkXY(X [][]float64, n int) (features int, err error) {
	if len(X) == 0 {
		return 0, ErrEmptyData
	}
	if len(X) != n {
		return 0, fmt.Errorf("%w: %d rows, %d targets", ErrDimension, len(X), n)
	}
	features = len(X[0])
	if features == 0 {
		return 0, fmt.Errorf("%w: zero features", ErrDimension)
	}
	for i, row := range X {
		if len(row) != features {
			return 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrDimension, i, len(row), features)
		}
	}
	return features, nil
}

func checkRow(x []float64, features int) error {
	if len(x) != features {
		return fmt.Errorf("%w: got %d features, want %d", ErrDimension, len(x), features)
	}
	return nil
}
