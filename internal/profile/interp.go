package profile

import (
	"gonum.org/v1/gonum/interp"
)

// Interp evaluates the piecewise-linear interpolant through
// (knownTimes, knownValues) at every query time. Queries outside the known
// range take the nearest end value; a missing query yields Missing.
// knownTimes must be strictly increasing and hold at least two points.
func Interp(query, knownTimes, knownValues []float64) ([]float64, error) {
	if len(knownTimes) != len(knownValues) {
		return nil, &ValidationError{Field: "interp", Reason: ReasonLengthMismatch}
	}
	if len(knownTimes) < 2 {
		return nil, &InsufficientDataError{Stage: "interpolation", Valid: len(knownTimes)}
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(knownTimes, knownValues); err != nil {
		return nil, &ValidationError{Field: "interp", Reason: err.Error()}
	}

	out := make([]float64, len(query))
	for i, q := range query {
		if IsMissing(q) {
			out[i] = Missing
			continue
		}
		out[i] = pl.Predict(q)
	}
	return out, nil
}

// InterpValid interpolates from the subset of (time, values) where both are
// present.
func InterpValid(query, time, values []float64) ([]float64, error) {
	idx := ValidIndices(time, values)
	if len(idx) < 2 {
		return nil, &InsufficientDataError{Stage: "interpolation", Valid: len(idx)}
	}
	return Interp(query, Gather(time, idx), Gather(values, idx))
}
