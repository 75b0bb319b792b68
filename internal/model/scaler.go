package model

import "math"

// StandardScaler centers columns and scales them to unit variance.
// Constant columns keep scale 1.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit computes column means and population standard deviations.
func (s *StandardScaler) Fit(X [][]float64) error {
	p, err := checkXY(X, len(X))
	if err != nil {
		return err
	}
	s.Mean = columnMeans(X)
	s.Scale = make([]float64, p)
	for _, row := range X {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := range s.Scale {
		sd := math.Sqrt(s.Scale[j] / float64(len(X)))
		if sd == 0 {
			sd = 1
		}
		s.Scale[j] = sd
	}
	return nil
}

// Transform returns a scaled copy of x.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if s.Mean == nil {
		return nil, ErrNotFitted
	}
	if err := checkRow(x, len(s.Mean)); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// TransformAll scales every row.
func (s *StandardScaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		r, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
