package optimizer

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestSpaceValidate(t *testing.T) {
	tests := []struct {
		name  string
		space Space
		ok    bool
	}{
		{"winner", WinnerSpace(), true},
		{"score", ScoreSpace(), true},
		{"empty", Space{}, false},
		{"duplicate", Space{Integer{Key: "a", Low: 1, High: 2}, Integer{Key: "a", Low: 1, High: 2}}, false},
		{"inverted real", Space{Real{Key: "a", Low: 2, High: 1}}, false},
		{"log from zero", Space{Real{Key: "a", Low: 0, High: 1, LogUniform: true}}, false},
		{"inverted integer", Space{Integer{Key: "a", Low: 5, High: 1}}, false},
		{"no categories", Space{Categorical{Key: "a"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.space.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidSpace) {
				t.Fatalf("expected ErrInvalidSpace, got %v", err)
			}
		})
	}
}

func TestIntegerBounds(t *testing.T) {
	d := Integer{Key: "n", Low: 3, High: 20}
	if got := d.Decode(0); got != 3 {
		t.Errorf("Decode(0) = %v, want 3", got)
	}
	if got := d.Decode(1); got != 20 {
		t.Errorf("Decode(1) = %v, want 20", got)
	}
	for v := 3; v <= 20; v++ {
		u, err := d.Encode(v)
		if err != nil {
			t.Fatal(err)
		}
		if got := d.Decode(u); got != v {
			t.Errorf("Decode(Encode(%d)) = %v", v, got)
		}
	}
}

func TestRealLogUniform(t *testing.T) {
	d := Real{Key: "lr", Low: 0.01, High: 0.3, LogUniform: true}
	mid := d.Decode(0.5).(float64)
	want := math.Sqrt(0.01 * 0.3)
	if math.Abs(mid-want) > 1e-12 {
		t.Errorf("Decode(0.5) = %v, want geometric mean %v", mid, want)
	}
	u, err := d.Encode(mid)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(u-0.5) > 1e-12 {
		t.Errorf("Encode(mid) = %v, want 0.5", u)
	}
}

func TestCategoricalNone(t *testing.T) {
	d := Categorical{Key: "max_features", Values: []any{"sqrt", "log2", nil}}
	if got := d.Decode(0.99); got != nil {
		t.Errorf("Decode(0.99) = %v, want nil", got)
	}
	u, err := d.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Decode(u); got != nil {
		t.Errorf("round trip of nil = %v", got)
	}
	if _, err := d.Encode("auto"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestSpaceDecodeWithinBounds(t *testing.T) {
	space := ScoreSpace()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		params := space.Decode(space.Sample(rng))
		for _, d := range space {
			switch dim := d.(type) {
			case Real:
				v := params[dim.Key].(float64)
				if v < dim.Low-1e-12 || v > dim.High+1e-12 {
					t.Fatalf("%s = %v outside [%v, %v]", dim.Key, v, dim.Low, dim.High)
				}
			case Integer:
				v := params[dim.Key].(int)
				if v < dim.Low || v > dim.High {
					t.Fatalf("%s = %v outside [%v, %v]", dim.Key, v, dim.Low, dim.High)
				}
			}
		}
	}
}

func TestSpaceEncodeMissing(t *testing.T) {
	_, err := WinnerSpace().Encode(map[string]any{"n_estimators": 100})
	if !errors.Is(err, ErrInvalidSpace) {
		t.Fatalf("expected ErrInvalidSpace, got %v", err)
	}
}
