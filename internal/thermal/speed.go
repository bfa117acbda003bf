package thermal

import (
	"math"

	"github.com/banshee-data/ctd.report/internal/profile"
	"github.com/banshee-data/ctd.report/internal/units"
)

// ProfilingSpeed estimates the absolute vertical speed of the instrument in
// cm/s from pressure and elapsed time: forward difference at the first
// sample, centred differences inside, backward difference at the last.
func ProfilingSpeed(pres, time []float64) ([]float64, error) {
	if len(pres) != len(time) {
		return nil, &profile.ValidationError{Field: "pressure", Reason: profile.ReasonLengthMismatch}
	}
	n := len(pres)
	if n < 2 {
		return nil, &profile.InsufficientDataError{Stage: "profiling speed", Valid: n}
	}

	vp := make([]float64, n)
	vp[0] = rate(pres[1]-pres[0], time[1]-time[0])
	for i := 1; i < n-1; i++ {
		vp[i] = rate(pres[i+1]-pres[i-1], time[i+1]-time[i-1])
	}
	vp[n-1] = rate(pres[n-1]-pres[n-2], time[n-1]-time[n-2])
	return vp, nil
}

func rate(dp, dt float64) float64 {
	return units.CentimetresPerSecond(math.Abs(dp / dt))
}

// SpeedPolicy decides what happens when the profiling speed is too low for
// the power laws.
type SpeedPolicy int

const (
	// SpeedReject fails the profile with a NumericDegeneracyError.
	SpeedReject SpeedPolicy = iota
	// SpeedClamp raises slow samples to the model's minimum speed.
	SpeedClamp
)

// DefaultMinSpeed is the lowest usable profiling speed in cm/s when no
// minimum is configured.
const DefaultMinSpeed = 1.0

// PowerLaw is y = Scale · Vp^Exponent.
type PowerLaw struct {
	Scale    float64
	Exponent float64
}

// At evaluates the power law.
func (p PowerLaw) At(vp float64) float64 {
	return p.Scale * math.Pow(vp, p.Exponent)
}

// SpeedModel maps profiling speed to the three thermal-mass coefficients.
type SpeedModel struct {
	CTCoeff PowerLaw
	Alpha   PowerLaw
	Tau     PowerLaw

	Policy SpeedPolicy
	// MinSpeed is the lowest usable speed in cm/s. Zero or less selects
	// DefaultMinSpeed.
	MinSpeed float64
}

// DefaultSpeedModel returns the RBRargo3 coefficient model with the reject
// policy.
func DefaultSpeedModel() SpeedModel {
	return SpeedModel{
		CTCoeff: PowerLaw{Scale: 0.14, Exponent: -1.00},
		Alpha:   PowerLaw{Scale: 0.37, Exponent: -1.03},
		Tau:     PowerLaw{Scale: 16.02, Exponent: -0.26},
		Policy:  SpeedReject,
	}
}

// SpeedCoefficients are the per-sample coefficient series derived from Vp.
type SpeedCoefficients struct {
	CTCoeff []float64
	Alpha   []float64
	Tau     []float64
}

// Coefficients evaluates the model for every sample. A missing or infinite
// speed gives missing coefficients at that sample.
func (m SpeedModel) Coefficients(vp []float64) (SpeedCoefficients, error) {
	n := len(vp)
	out := SpeedCoefficients{
		CTCoeff: make([]float64, n),
		Alpha:   make([]float64, n),
		Tau:     make([]float64, n),
	}
	for i, v := range vp {
		if profile.IsMissing(v) {
			out.CTCoeff[i], out.Alpha[i], out.Tau[i] = profile.Missing, profile.Missing, profile.Missing
			continue
		}
		v, err := m.usable(i, v)
		if err != nil {
			return SpeedCoefficients{}, err
		}
		out.CTCoeff[i] = m.CTCoeff.At(v)
		out.Alpha[i] = m.Alpha.At(v)
		out.Tau[i] = m.Tau.At(v)
	}
	return out, nil
}

func (m SpeedModel) usable(i int, v float64) (float64, error) {
	floor := m.MinSpeed
	if floor <= 0 {
		floor = DefaultMinSpeed
	}
	switch m.Policy {
	case SpeedClamp:
		return math.Max(v, floor), nil
	default:
		if v < floor {
			return 0, &profile.NumericDegeneracyError{Index: i, Speed: v}
		}
		return v, nil
	}
}
