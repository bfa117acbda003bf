package salinity

import (
	"math"
	"testing"
)

func TestSqrtError(t *testing.T) {
	t.Parallel()

	if got, want := SqrtError(35), 3.559e-10*math.Exp(0.4403*35); math.Abs(got-want) > 1e-15 {
		t.Errorf("SqrtError(35) = %v, want %v", got, want)
	}
	// About 1.75 milli-psu at 35 psu.
	if got := SqrtError(35); math.Abs(got-0.001754) > 1e-6 {
		t.Errorf("SqrtError(35) = %v, want ~0.001754", got)
	}
}

func TestCorrectSqrtError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     []float64
		active []bool
	}{
		{
			name:   "fresh water is always corrected",
			in:     []float64{34.1, 34.5, 34.9},
			active: []bool{true, true, true},
		},
		{
			name:   "salty water is never corrected",
			in:     []float64{35.1, 35.5, 35.01},
			active: []bool{false, false, false},
		},
		{
			name:   "hysteresis band keeps the previous state",
			in:     []float64{35.001, 34.999, 35.001, 35.002, 35.003, 35.001},
			active: []bool{false, true, true, true, false, false},
		},
		{
			name:   "missing samples do not toggle",
			in:     []float64{34.9, math.NaN(), 35.001, 35.5},
			active: []bool{true, false, true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CorrectSqrtError(tt.in)
			if len(got) != len(tt.in) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.in))
			}
			for i, v := range tt.in {
				switch {
				case math.IsNaN(v):
					if !math.IsNaN(got[i]) {
						t.Errorf("index %d: got %v, want missing", i, got[i])
					}
				case tt.active[i]:
					if want := v - SqrtError(v); math.Abs(got[i]-want) > 1e-15 {
						t.Errorf("index %d: got %v, want corrected %v", i, got[i], want)
					}
				default:
					if got[i] != v {
						t.Errorf("index %d: got %v, want unchanged %v", i, got[i], v)
					}
				}
			}
		})
	}
}

func TestCorrectSqrtErrorDoesNotMutate(t *testing.T) {
	t.Parallel()

	in := []float64{34.0, 34.5}
	_ = CorrectSqrtError(in)
	if in[0] != 34.0 || in[1] != 34.5 {
		t.Errorf("input modified: %v", in)
	}
}
