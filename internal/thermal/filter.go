package thermal

import (
	"github.com/banshee-data/ctd.report/internal/profile"
)

// Boundary selects how the first output of the recursive filter is set.
type Boundary int

const (
	// ZeroStart leaves y[0] = 0.
	ZeroStart Boundary = iota
	// CopyFirstOutput overwrites y[0] with y[1] after the scan, so a
	// profile that starts while the instrument is already moving does not
	// begin with an artificial zero anomaly.
	CopyFirstOutput
)

func (b Boundary) String() string {
	switch b {
	case ZeroStart:
		return "zero-start"
	case CopyFirstOutput:
		return "copy-first-output"
	default:
		return "unknown"
	}
}

// Coefficients holds the per-sample (a, b) pair of the single-pole filter.
type Coefficients struct {
	A []float64
	B []float64
}

// ConstantCoefficients repeats a single (a, b) pair n times.
func ConstantCoefficients(a, b float64, n int) Coefficients {
	c := Coefficients{A: make([]float64, n), B: make([]float64, n)}
	for i := 0; i < n; i++ {
		c.A[i] = a
		c.B[i] = b
	}
	return c
}

// LueckPicklo returns the filter coefficients for amplitude alpha and time
// constant tau (seconds) on a grid with the given Nyquist frequency (Hz):
//
//	a = 4·fn·alpha·tau / (1 + 4·fn·tau)
//	b = 1 − 2a/alpha
func LueckPicklo(alpha, tau, nyquist float64) (a, b float64) {
	a = 4 * nyquist * alpha * tau / (1 + 4*nyquist*tau)
	b = 1 - 2*a/alpha
	return a, b
}

// LueckPickloSeries applies LueckPicklo elementwise. Missing inputs give
// missing coefficients.
func LueckPickloSeries(alpha, tau []float64, nyquist float64) (Coefficients, error) {
	if len(alpha) != len(tau) {
		return Coefficients{}, &profile.ValidationError{Field: "coefficients", Reason: profile.ReasonLengthMismatch}
	}
	c := Coefficients{A: make([]float64, len(alpha)), B: make([]float64, len(alpha))}
	for i := range alpha {
		c.A[i], c.B[i] = LueckPicklo(alpha[i], tau[i], nyquist)
	}
	return c, nil
}

// Filter runs the recursive thermal-anomaly filter over a uniformly
// gridded series:
//
//	y[0] = 0
//	y[i] = -b[i]·y[i-1] + a[i]·(x[i] − x[i-1])
//
// Each output depends on the previous one, so this is a strict
// left-to-right scan. Only differences of x enter the recursion, so adding
// a constant to x does not change the result.
func Filter(x []float64, c Coefficients, boundary Boundary) ([]float64, error) {
	if len(c.A) != len(x) || len(c.B) != len(x) {
		return nil, &profile.ValidationError{Field: "filter coefficients", Reason: profile.ReasonLengthMismatch}
	}
	if boundary == CopyFirstOutput && len(x) < 2 {
		return nil, &profile.InsufficientDataError{Stage: "thermal anomaly filter", Valid: len(x)}
	}

	y := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		y[i] = -c.B[i]*y[i-1] + c.A[i]*(x[i]-x[i-1])
	}
	if boundary == CopyFirstOutput {
		y[0] = y[1]
	}
	return y, nil
}
