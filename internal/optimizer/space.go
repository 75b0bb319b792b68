package optimizer

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrInvalidSpace is returned for malformed dimension declarations.
var ErrInvalidSpace = errors.New("invalid search space")

// Dimension is one named parameter of a search space. Values are mapped to
// and from the unit interval, the coordinate system of the surrogate.
type Dimension interface {
	Name() string
	// Decode maps u in [0,1] to a parameter value.
	Decode(u float64) any
	// Encode maps a parameter value back to [0,1].
	Encode(v any) (float64, error)
	validate() error
}

// Real is a continuous dimension, optionally log-uniform.
type Real struct {
	Key        string
	Low, High  float64
	LogUniform bool
}

// Name returns the parameter name.
func (r Real) Name() string { return r.Key }

// Decode maps u to [Low, High].
func (r Real) Decode(u float64) any {
	u = clamp01(u)
	if r.LogUniform {
		lo, hi := math.Log(r.Low), math.Log(r.High)
		return math.Exp(lo + u*(hi-lo))
	}
	return r.Low + u*(r.High-r.Low)
}

// Encode maps a value in [Low, High] to u.
func (r Real) Encode(v any) (float64, error) {
	x, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%s: expected float64, got %T", r.Key, v)
	}
	if r.LogUniform {
		lo, hi := math.Log(r.Low), math.Log(r.High)
		return clamp01((math.Log(x) - lo) / (hi - lo)), nil
	}
	return clamp01((x - r.Low) / (r.High - r.Low)), nil
}

func (r Real) validate() error {
	if !(r.Low < r.High) {
		return fmt.Errorf("%w: %s: low %v must be below high %v", ErrInvalidSpace, r.Key, r.Low, r.High)
	}
	if r.LogUniform && r.Low <= 0 {
		return fmt.Errorf("%w: %s: log-uniform needs a positive low bound", ErrInvalidSpace, r.Key)
	}
	return nil
}

// Integer is an inclusive integer range.
type Integer struct {
	Key       string
	Low, High int
}

// Name returns the parameter name.
func (d Integer) Name() string { return d.Key }

// Decode maps u to an integer in [Low, High] with equal-width bins.
func (d Integer) Decode(u float64) any {
	n := d.High - d.Low + 1
	i := int(clamp01(u) * float64(n))
	if i >= n {
		i = n - 1
	}
	return d.Low + i
}

// Encode maps v to the centre of its bin.
func (d Integer) Encode(v any) (float64, error) {
	x, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%s: expected int, got %T", d.Key, v)
	}
	n := d.High - d.Low + 1
	return clamp01((float64(x-d.Low) + 0.5) / float64(n)), nil
}

func (d Integer) validate() error {
	if d.Low > d.High {
		return fmt.Errorf("%w: %s: low %d above high %d", ErrInvalidSpace, d.Key, d.Low, d.High)
	}
	return nil
}

// Categorical picks one of a fixed list of values. A nil value stands for
// "none".
type Categorical struct {
	Key    string
	Values []any
}

// Name returns the parameter name.
func (c Categorical) Name() string { return c.Key }

// Decode maps u to a value with equal-width bins.
func (c Categorical) Decode(u float64) any {
	i := int(clamp01(u) * float64(len(c.Values)))
	if i >= len(c.Values) {
		i = len(c.Values) - 1
	}
	return c.Values[i]
}

// Encode maps v to the centre of its bin.
func (c Categorical) Encode(v any) (float64, error) {
	for i, x := range c.Values {
		if x == v {
			return (float64(i) + 0.5) / float64(len(c.Values)), nil
		}
	}
	return 0, fmt.Errorf("%s: %v is not a category", c.Key, v)
}

func (c Categorical) validate() error {
	if len(c.Values) == 0 {
		return fmt.Errorf("%w: %s: no categories", ErrInvalidSpace, c.Key)
	}
	return nil
}

// Space is an ordered list of dimensions.
type Space []Dimension

// Validate checks every dimension and rejects duplicate names.
func (s Space) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSpace)
	}
	seen := make(map[string]bool, len(s))
	for _, d := range s {
		if seen[d.Name()] {
			return fmt.Errorf("%w: duplicate dimension %s", ErrInvalidSpace, d.Name())
		}
		seen[d.Name()] = true
		if err := d.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Sample draws a uniform point of the unit hypercube.
func (s Space) Sample(rng *rand.Rand) []float64 {
	u := make([]float64, len(s))
	for i := range u {
		u[i] = rng.Float64()
	}
	return u
}

// Decode maps a unit point to named parameter values.
func (s Space) Decode(u []float64) map[string]any {
	out := make(map[string]any, len(s))
	for i, d := range s {
		out[d.Name()] = d.Decode(u[i])
	}
	return out
}

// Encode maps named parameter values to a unit point.
func (s Space) Encode(params map[string]any) ([]float64, error) {
	u := make([]float64, len(s))
	for i, d := range s {
		v, ok := params[d.Name()]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrInvalidSpace, d.Name())
		}
		x, err := d.Encode(v)
		if err != nil {
			return nil, err
		}
		u[i] = x
	}
	return u, nil
}

func clamp01(u float64) float64 {
	return math.Min(1, math.Max(0, u))
}
