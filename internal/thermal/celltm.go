// Package thermal implements the conductivity-cell thermal-mass correction
// for RBRargo3 CTD profiles: the Lueck & Picklo (1990) recursive filter,
// the profiling-speed dependent coefficient model, inference of the
// internal cell temperature and the combined corrected temperature used to
// derive salinity.
package thermal

import (
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/ctd.report/internal/profile"
)

// DefaultCTLag is the conductivity-temperature lag in seconds. The lagged
// temperature is sampled at t − CTLag, so a negative lag reads the
// temperature 0.35 s later.
const DefaultCTLag = -0.35

// Corrector applies the three-term thermal-mass correction.
type Corrector struct {
	CTLag float64
	Speed SpeedModel

	// Constants for internal temperature inference.
	InternalAlpha float64
	InternalTau   float64
}

// NewCorrector returns a Corrector with the RBRargo3 defaults.
func NewCorrector() *Corrector {
	return &Corrector{
		CTLag:         DefaultCTLag,
		Speed:         DefaultSpeedModel(),
		InternalAlpha: InternalAlpha,
		InternalTau:   InternalTau,
	}
}

// Input is one profile's series, all on the same elapsed-time base.
type Input struct {
	Temperature         []float64 // TEMP, °C ITS-90
	Pressure            []float64 // PRES, dbar
	InternalTemperature []float64 // TEMP_CNDC, °C
	Time                []float64 // elapsed time, s
}

// Result holds the corrected temperature and the intermediate terms.
type Result struct {
	ProfilingSpeed []float64 // Vp, cm/s
	Coefficients   SpeedCoefficients
	Lagged         []float64 // Tcor
	LongTerm       []float64 // Tlong
	ShortTerm      []float64 // Tshort
	// Cell is TEMPcell = Tcor + Tlong − Tshort. It is only meaningful as an
	// input to salinity, not as a water temperature.
	Cell []float64
}

// InternalTemperature infers TEMP_CNDC with the corrector's constants.
func (c *Corrector) InternalTemperature(temp, time []float64) ([]float64, error) {
	return inferInternalTemperature(temp, time, c.InternalAlpha, c.InternalTau)
}

// Correct computes TEMPcell for one profile. Nothing is returned unless
// every stage succeeds.
func (c *Corrector) Correct(in Input) (*Result, error) {
	if err := profile.ValidateTimeBase(in.Time, in.Temperature, in.Pressure, in.InternalTemperature); err != nil {
		return nil, err
	}
	n := len(in.Time)

	vp, err := ProfilingSpeed(in.Pressure, in.Time)
	if err != nil {
		return nil, err
	}
	coef, err := c.Speed.Coefficients(vp)
	if err != nil {
		return nil, err
	}

	lagged, err := c.lagged(in.Temperature, in.Time)
	if err != nil {
		return nil, err
	}

	long := make([]float64, n)
	floats.SubTo(long, in.InternalTemperature, lagged)
	floats.Mul(long, coef.CTCoeff)

	short, err := shortTermAnomaly(in.Temperature, in.Time, coef)
	if err != nil {
		return nil, err
	}

	cell := make([]float64, n)
	floats.AddTo(cell, lagged, long)
	floats.Sub(cell, short)

	return &Result{
		ProfilingSpeed: vp,
		Coefficients:   coef,
		Lagged:         lagged,
		LongTerm:       long,
		ShortTerm:      short,
		Cell:           cell,
	}, nil
}

// lagged re-aligns temperature with conductivity by sampling it at
// t − CTLag.
func (c *Corrector) lagged(temp, time []float64) ([]float64, error) {
	query := make([]float64, len(time))
	for i, t := range time {
		query[i] = t - c.CTLag
	}
	return profile.InterpValid(query, time, temp)
}

// shortTermAnomaly runs the speed-dependent filter on the 1 Hz grid and maps
// the result back onto the samples that had valid temperature and time.
func shortTermAnomaly(temp, time []float64, coef SpeedCoefficients) ([]float64, error) {
	g, err := profile.NewGrid(time, temp)
	if err != nil {
		return nil, err
	}

	lp, err := LueckPickloSeries(coef.Alpha, coef.Tau, profile.Nyquist)
	if err != nil {
		return nil, err
	}
	a, err := g.Resample(lp.A)
	if err != nil {
		return nil, err
	}
	b, err := g.Resample(lp.B)
	if err != nil {
		return nil, err
	}

	anomaly, err := Filter(g.Values, Coefficients{A: a, B: b}, CopyFirstOutput)
	if err != nil {
		return nil, err
	}
	return g.ToOriginal(anomaly)
}

// CellThermalMass computes TEMPcell with the default corrector.
func CellThermalMass(temp, pres, tempCndc, time []float64) ([]float64, error) {
	res, err := NewCorrector().Correct(Input{
		Temperature:         temp,
		Pressure:            pres,
		InternalTemperature: tempCndc,
		Time:                time,
	})
	if err != nil {
		return nil, err
	}
	return res.Cell, nil
}
