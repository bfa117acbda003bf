package thermal

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/ctd.report/internal/profile"
)

// A short, irregularly sampled ascent through a warming layer at roughly
// 10 cm/s. Expected values were computed independently in double precision
// following the RBRargo3 reference routines.
var (
	fixtureTime = []float64{0, 1.2, 2.1, 3.0, 4.4, 5.0, 6.1, 7.3}
	fixtureTemp = []float64{10, 10.05, 10.2, 10.6, 11.0, 11.1, 11.15, 11.2}
	fixturePres = []float64{100, 99.9, 99.8, 99.7, 99.55, 99.5, 99.4, 99.3}

	fixtureCndc = []float64{
		10.0, 9.995746982783462, 9.98655644422037, 9.964593488036103,
		9.948222946780762, 9.943917554936734, 9.949074872173608, 9.955833762706462,
	}
	fixtureVp = []float64{
		8.333333333333, 9.523809523810, 11.111111111111, 10.869565217391,
		10.000000000000, 8.823529411764, 8.695652173913, 8.333333333334,
	}
	fixtureTcor = []float64{
		10.014583333333, 10.108333333333, 10.355555555556, 10.700000000000,
		11.058333333333, 11.115909090909, 11.164583333333, 11.200000000000,
	}
	fixtureTlong = []float64{
		-0.000245000000, -0.001655019353, -0.004649388803, -0.009472035874,
		-0.015541545412, -0.018595599037, -0.019569686225, -0.020901992787,
	}
	fixtureTshort = []float64{
		0.001468282593, 0.002281452190, 0.006721344677, 0.017406271584,
		0.026801941030, 0.030048584113, 0.028512419081, 0.026641109052,
	}
	fixtureCell = []float64{
		10.012870050740, 10.104396861791, 10.344184822076, 10.673121692542,
		11.015989846892, 11.067264907759, 11.116501228027, 11.152456898161,
	}
)

func TestInferInternalTemperatureReference(t *testing.T) {
	t.Parallel()

	got, err := InferInternalTemperature(fixtureTemp, fixtureTime)
	require.NoError(t, err)
	assert.True(t, floats.EqualApprox(fixtureCndc, got, 1e-9), "got %v", got)
}

func TestInferInternalTemperatureConstant(t *testing.T) {
	t.Parallel()

	temp := []float64{4.2, 4.2, 4.2, 4.2, 4.2, 4.2}
	time := []float64{0, 0.7, 2, 3.1, 4, 6.5}
	got, err := InferInternalTemperature(temp, time)
	require.NoError(t, err)
	require.Len(t, got, len(temp))
	assert.True(t, floats.EqualApprox(temp, got, 1e-12), "got %v", got)
}

func TestInferInternalTemperatureStep(t *testing.T) {
	t.Parallel()

	time := make([]float64, 20)
	temp := make([]float64, 20)
	for i := range time {
		time[i] = float64(i)
		temp[i] = 10
		if i >= 5 {
			temp[i] = 11
		}
	}
	got, err := InferInternalTemperature(temp, time)
	require.NoError(t, err)

	// The cell lags the water: unchanged before the step, then a slow
	// monotonic recovery that is still well short of the new temperature.
	for i := 0; i < 5; i++ {
		assert.InDelta(t, 10, got[i], 1e-12)
	}
	assert.InDelta(t, 9.938429, got[5], 1e-6)
	for i := 6; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
	assert.InDelta(t, 10.030223, got[19], 1e-6)
}

func TestInferInternalTemperatureMissing(t *testing.T) {
	t.Parallel()

	temp := []float64{10, math.NaN(), 10, 10}
	time := []float64{0, 1, 2, 3}
	got, err := InferInternalTemperature(temp, time)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 10, got[3], 1e-12)

	_, err = InferInternalTemperature([]float64{10, math.NaN()}, []float64{0, 1})
	assert.ErrorIs(t, err, profile.ErrInsufficientData)
}

func TestCorrectReference(t *testing.T) {
	t.Parallel()

	res, err := NewCorrector().Correct(Input{
		Temperature:         fixtureTemp,
		Pressure:            fixturePres,
		InternalTemperature: fixtureCndc,
		Time:                fixtureTime,
	})
	require.NoError(t, err)

	const tol = 1e-9
	assert.True(t, floats.EqualApprox(fixtureVp, res.ProfilingSpeed, tol), "Vp %v", res.ProfilingSpeed)
	assert.True(t, floats.EqualApprox(fixtureTcor, res.Lagged, tol), "Tcor %v", res.Lagged)
	assert.True(t, floats.EqualApprox(fixtureTlong, res.LongTerm, tol), "Tlong %v", res.LongTerm)
	assert.True(t, floats.EqualApprox(fixtureTshort, res.ShortTerm, tol), "Tshort %v", res.ShortTerm)
	assert.True(t, floats.EqualApprox(fixtureCell, res.Cell, tol), "TEMPcell %v", res.Cell)
}

func TestCorrectConstantTemperature(t *testing.T) {
	t.Parallel()

	temp := []float64{10, 10, 10, 10, 10}
	pres := []float64{0, 10, 20, 30, 40}
	cndc := []float64{10, 10, 10, 10, 10}
	time := []float64{0, 1, 2, 3, 4}

	res, err := NewCorrector().Correct(Input{Temperature: temp, Pressure: pres, InternalTemperature: cndc, Time: time})
	require.NoError(t, err)

	require.Len(t, res.Cell, len(temp))
	for i := range temp {
		assert.InDelta(t, 1000, res.ProfilingSpeed[i], 1e-9)
		assert.InDelta(t, 10, res.Lagged[i], 1e-12)
		assert.InDelta(t, 0, res.LongTerm[i], 1e-12)
		assert.InDelta(t, 0, res.ShortTerm[i], 1e-12)
		assert.InDelta(t, 10, res.Cell[i], 1e-12)
	}

	cell, err := CellThermalMass(temp, pres, cndc, time)
	require.NoError(t, err)
	assert.Equal(t, res.Cell, cell)
}

func TestCorrectMissingSamples(t *testing.T) {
	t.Parallel()

	temp := append([]float64(nil), fixtureTemp...)
	temp[3] = math.NaN()

	res, err := NewCorrector().Correct(Input{
		Temperature:         temp,
		Pressure:            fixturePres,
		InternalTemperature: fixtureCndc,
		Time:                fixtureTime,
	})
	require.NoError(t, err)
	require.Len(t, res.Cell, len(temp))

	for i, v := range res.Cell {
		if i == 3 {
			assert.True(t, math.IsNaN(v), "TEMPcell[3] should be missing")
			assert.True(t, math.IsNaN(res.ShortTerm[i]))
			continue
		}
		assert.False(t, math.IsNaN(v), "TEMPcell[%d] should be present", i)
	}
}

func TestCorrectValidation(t *testing.T) {
	t.Parallel()

	four := []float64{10, 10, 10, 10}
	pres := []float64{0, 1, 2, 3}

	tests := []struct {
		name   string
		time   []float64
		pres   []float64
		reason string
	}{
		{name: "duplicate time", time: []float64{0, 1, 1, 2}, pres: pres, reason: profile.ReasonNotUnique},
		{name: "non-increasing time", time: []float64{0, 2, 1, 3}, pres: pres, reason: profile.ReasonNotIncreasing},
		{name: "short pressure", time: []float64{0, 1, 2, 3}, pres: pres[:3], reason: profile.ReasonLengthMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := NewCorrector().Correct(Input{Temperature: four, Pressure: tt.pres, InternalTemperature: four, Time: tt.time})
			assert.Nil(t, res)
			var ve *profile.ValidationError
			require.True(t, errors.As(err, &ve), "err = %v", err)
			assert.Equal(t, tt.reason, ve.Reason)
		})
	}
}

func TestCorrectStationaryProfile(t *testing.T) {
	t.Parallel()

	temp := []float64{10, 10.1, 10.2, 10.3}
	pres := []float64{500, 500, 500, 500}
	time := []float64{0, 1, 2, 3}

	c := NewCorrector()
	_, err := c.Correct(Input{Temperature: temp, Pressure: pres, InternalTemperature: temp, Time: time})
	assert.ErrorIs(t, err, profile.ErrNumericDegeneracy)

	c.Speed.Policy = SpeedClamp
	res, err := c.Correct(Input{Temperature: temp, Pressure: pres, InternalTemperature: temp, Time: time})
	require.NoError(t, err)
	for _, v := range res.Cell {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestCorrectRejectsNearStationaryDrift(t *testing.T) {
	t.Parallel()

	temp := []float64{10, 10.1, 10.2, 10.3}
	pres := []float64{500, 500 + 1e-13, 500 + 2e-13, 500 + 3e-13}
	time := []float64{0, 1, 2, 3}

	res, err := NewCorrector().Correct(Input{Temperature: temp, Pressure: pres, InternalTemperature: temp, Time: time})
	assert.Nil(t, res)
	var de *profile.NumericDegeneracyError
	require.True(t, errors.As(err, &de), "err = %v", err)
	assert.Equal(t, 0, de.Index)
	assert.Less(t, de.Speed, DefaultMinSpeed)
}

func TestCorrectDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	temp := append([]float64(nil), fixtureTemp...)
	pres := append([]float64(nil), fixturePres...)
	cndc := append([]float64(nil), fixtureCndc...)
	time := append([]float64(nil), fixtureTime...)

	_, err := CellThermalMass(temp, pres, cndc, time)
	require.NoError(t, err)
	assert.Equal(t, fixtureTemp, temp)
	assert.Equal(t, fixturePres, pres)
	assert.Equal(t, fixtureCndc, cndc)
	assert.Equal(t, fixtureTime, time)
}

func TestCorrectorInternalTemperature(t *testing.T) {
	t.Parallel()

	got, err := NewCorrector().InternalTemperature(fixtureTemp, fixtureTime)
	require.NoError(t, err)
	assert.True(t, floats.EqualApprox(fixtureCndc, got, 1e-9))
}
