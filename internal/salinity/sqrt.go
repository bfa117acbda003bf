// Package salinity post-corrects salinity reported by the RBRargo3 for the
// discontinuity in its onboard square-root salinity computation.
package salinity

import (
	"math"

	"github.com/banshee-data/ctd.report/internal/profile"
)

// The correction switches on below LowerThreshold and off above
// UpperThreshold. Between the two the previous state holds.
const (
	LowerThreshold = 35.000
	UpperThreshold = 35.002

	errorScale    = 3.559e-10
	errorExponent = 0.4403
)

// SqrtError is the salinity error at s while the correction is active.
func SqrtError(s float64) float64 {
	return errorScale * math.Exp(errorExponent*s)
}

// CorrectSqrtError returns a corrected copy of s. Missing samples stay
// missing and leave the correction state unchanged.
func CorrectSqrtError(s []float64) []float64 {
	out := profile.Clone(s)
	active := false
	for i, v := range s {
		if profile.IsMissing(v) {
			continue
		}
		if !active && v < LowerThreshold {
			active = true
		} else if active && v > UpperThreshold {
			active = false
		}
		if active {
			out[i] = v - SqrtError(v)
		}
	}
	return out
}
