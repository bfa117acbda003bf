package profile

import (
	"fmt"
	"math"
)

// GridRate is the sampling frequency of the uniform grid, in Hz.
const GridRate = 1.0

// Nyquist is half the grid sampling frequency.
const Nyquist = GridRate / 2

// MaxGridPoints bounds the grid length, about 48 days at 1 Hz. Longer time
// spans are rejected before anything is allocated.
const MaxGridPoints = 1 << 22

// Grid is a 1 Hz resampling of a series with an irregular time base. It
// remembers which source indices were valid so results can be mapped back
// onto exactly those samples.
type Grid struct {
	Times  []float64
	Values []float64

	srcTime  []float64
	srcValid []int
}

// NewGrid validates (time, values) and interpolates the valid samples onto
// integer seconds from floor(min) to ceil(max)+1 inclusive.
func NewGrid(time, values []float64) (*Grid, error) {
	if err := ValidateTimeBase(time, values); err != nil {
		return nil, err
	}
	idx := ValidIndices(time, values)
	if len(idx) < 2 {
		return nil, &InsufficientDataError{Stage: "gridding", Valid: len(idx)}
	}

	t := Gather(time, idx)
	// Valid times are strictly increasing after validation, so the ends
	// hold the extremes.
	start := math.Floor(t[0])
	end := math.Ceil(t[len(t)-1]) + 1
	span := end - start
	if !(span < MaxGridPoints) {
		return nil, &ValidationError{
			Field:  "time",
			Reason: fmt.Sprintf("%s: %g s exceeds %d grid points", ReasonSpanTooLong, span, MaxGridPoints),
		}
	}
	n := int(span) + 1
	times := make([]float64, n)
	for i := range times {
		times[i] = start + float64(i)/GridRate
	}

	vals, err := Interp(times, t, Gather(values, idx))
	if err != nil {
		return nil, err
	}
	return &Grid{
		Times:    times,
		Values:   vals,
		srcTime:  Clone(time),
		srcValid: idx,
	}, nil
}

// Len returns the number of grid points.
func (g *Grid) Len() int { return len(g.Times) }

// ValidIndices returns the source indices the grid was built from.
func (g *Grid) ValidIndices() []int { return append([]int(nil), g.srcValid...) }

// Resample interpolates another quantity sharing the source time base onto
// the grid. Only source indices that were valid for the grid and hold a
// value for this quantity are used.
func (g *Grid) Resample(values []float64) ([]float64, error) {
	if len(values) != len(g.srcTime) {
		return nil, &ValidationError{Field: "resample", Reason: ReasonLengthMismatch}
	}
	idx := make([]int, 0, len(g.srcValid))
	for _, i := range g.srcValid {
		if !IsMissing(values[i]) {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		return nil, &InsufficientDataError{Stage: "resampling", Valid: len(idx)}
	}
	return Interp(g.Times, Gather(g.srcTime, idx), Gather(values, idx))
}

// ToOriginal maps a series defined on the grid back onto the source time
// base. Indices that were not valid when the grid was built are Missing.
func (g *Grid) ToOriginal(gridValues []float64) ([]float64, error) {
	if len(gridValues) != len(g.Times) {
		return nil, &ValidationError{Field: "regrid", Reason: ReasonLengthMismatch}
	}
	at, err := Interp(Gather(g.srcTime, g.srcValid), g.Times, gridValues)
	if err != nil {
		return nil, err
	}
	out := MissingSeries(len(g.srcTime))
	for j, i := range g.srcValid {
		out[i] = at[j]
	}
	return out, nil
}
