// Package profile holds the sample-series model shared by the processing
// stages: the missing-value marker, time-base validation, linear
// interpolation and the uniform 1 Hz grid the recursive filters run on.
package profile

import (
	"encoding/json"
	"math"
)

// Missing is the "no data" marker. Missing samples keep their position in
// every series but are never used as interpolation source points.
var Missing = math.NaN()

// IsMissing reports whether v is the missing marker. Infinities are
// treated as missing too since they can never be interpolated.
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// MissingSeries returns a series of n missing samples.
func MissingSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = Missing
	}
	return out
}

// Clone returns an independent copy of s.
func Clone(s []float64) []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s))
	copy(out, s)
	return out
}

// CountValid returns the number of non-missing samples in s.
func CountValid(s []float64) int {
	n := 0
	for _, v := range s {
		if !IsMissing(v) {
			n++
		}
	}
	return n
}

// Values is a sample series that round-trips through JSON with missing
// samples encoded as null.
type Values []float64

// MarshalJSON encodes missing samples as null.
func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	out := make([]*float64, len(v))
	for i := range v {
		if IsMissing(v[i]) {
			continue
		}
		x := v[i]
		out[i] = &x
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null entries as Missing.
func (v *Values) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*v = nil
		return nil
	}
	out := make(Values, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = Missing
			continue
		}
		out[i] = *p
	}
	*v = out
	return nil
}
