package thermal

import (
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/ctd.report/internal/profile"
)

// Internal-temperature filter constants for the RBRargo3 conductivity cell.
const (
	InternalAlpha = 1.065
	InternalTau   = 154.8 // seconds
)

// InferInternalTemperature estimates the temperature inside the
// conductivity cell (TEMP_CNDC) from the measured water temperature using
// the default constants.
func InferInternalTemperature(temp, time []float64) ([]float64, error) {
	return inferInternalTemperature(temp, time, InternalAlpha, InternalTau)
}

func inferInternalTemperature(temp, time []float64, alpha, tau float64) ([]float64, error) {
	g, err := profile.NewGrid(time, temp)
	if err != nil {
		return nil, err
	}

	a, b := LueckPicklo(alpha, tau, profile.Nyquist)
	anomaly, err := Filter(g.Values, ConstantCoefficients(a, b, g.Len()), ZeroStart)
	if err != nil {
		return nil, err
	}

	cell := make([]float64, g.Len())
	floats.SubTo(cell, g.Values, anomaly)
	return g.ToOriginal(cell)
}
