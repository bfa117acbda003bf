package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/ctd.report/internal/compressibility"
	"github.com/banshee-data/ctd.report/internal/config"
	"github.com/banshee-data/ctd.report/internal/monitoring"
	"github.com/banshee-data/ctd.report/internal/profile"
	"github.com/banshee-data/ctd.report/internal/thermal"
	"github.com/banshee-data/ctd.report/internal/timeutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// Same ascent as the thermal package reference case.
var wantCell = []float64{
	10.012870050740, 10.104396861791, 10.344184822076, 10.673121692542,
	11.015989846892, 11.067264907759, 11.116501228027, 11.152456898161,
}

func ascent() *profile.Profile {
	return &profile.Profile{
		Platform:    "6990001",
		Cycle:       12,
		ElapsedTime: profile.Values{0, 1.2, 2.1, 3.0, 4.4, 5.0, 6.1, 7.3},
		Temperature: profile.Values{10, 10.05, 10.2, 10.6, 11.0, 11.1, 11.15, 11.2},
		Pressure:    profile.Values{100, 99.9, 99.8, 99.7, 99.55, 99.5, 99.4, 99.3},
	}
}

func newTestProcessor(table compressibility.Table) *Processor {
	pr := NewProcessor(config.DefaultTuningConfig(), table)
	pr.Clock = timeutil.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return pr
}

func TestProcessInfersInternalTemperature(t *testing.T) {
	pr := newTestProcessor(nil)
	in := ascent()

	out, err := pr.Process(in)
	require.NoError(t, err)

	assert.True(t, out.InternalTemperatureInferred)
	assert.Len(t, out.Profile.InternalTemperature, in.Len())
	assert.Nil(t, in.InternalTemperature, "input must not be modified")
	assert.Empty(t, in.ID)
	assert.NotEmpty(t, out.Profile.ID)
	assert.True(t, floats.EqualApprox(wantCell, out.TemperatureCell, 1e-9), "got %v", out.TemperatureCell)
	assert.Nil(t, out.Conductivity)
	assert.Nil(t, out.Salinity)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), out.ProcessedAt)
}

func TestProcessUsesSuppliedInternalTemperature(t *testing.T) {
	pr := newTestProcessor(nil)
	in := ascent()
	in.InternalTemperature = profile.Values{10, 10, 10, 10, 10, 10, 10, 10}

	out, err := pr.Process(in)
	require.NoError(t, err)
	assert.False(t, out.InternalTemperatureInferred)

	direct, err := thermal.NewCorrector().Correct(thermal.Input{
		Temperature:         in.Temperature,
		Pressure:            in.Pressure,
		InternalTemperature: in.InternalTemperature,
		Time:                in.ElapsedTime,
	})
	require.NoError(t, err)
	assert.Equal(t, profile.Values(direct.Cell), out.TemperatureCell)
}

func TestProcessInferenceDisabled(t *testing.T) {
	cfg := config.DefaultTuningConfig()
	off := false
	cfg.InferInternalTemperature = &off
	pr := NewProcessor(cfg, nil)

	_, err := pr.Process(ascent())
	require.Error(t, err)
	assert.True(t, errors.Is(err, profile.ErrValidation))
}

func TestProcessRecalibratesAndCorrectsSalinity(t *testing.T) {
	table := compressibility.NewMemoryTable(map[string]compressibility.Coefficients{
		"6990001": {X2Old: 1e-5, X3Old: 0, X4Old: 0, X2: 2e-5, X3: 0, X4: 0},
	})
	pr := newTestProcessor(table)
	in := ascent()
	in.Conductivity = profile.Values{40, 40, 40, 40, 40, 40, 40, 40}
	in.Salinity = profile.Values{34.9, 35.001, 35.003, 35.001, 34.99, 35.0015, 35.1, 35.0}

	out, err := pr.Process(in)
	require.NoError(t, err)
	require.Len(t, out.Conductivity, in.Len())
	assert.InDelta(t, 40*(1+1e-5*100)/(1+2e-5*100), out.Conductivity[0], 1e-12)

	require.Len(t, out.Salinity, in.Len())
	assert.Less(t, out.Salinity[0], 34.9)
	assert.Less(t, out.Salinity[1], 35.001, "still active below the upper threshold")
	assert.Equal(t, 35.003, out.Salinity[2])
	assert.Equal(t, 35.001, out.Salinity[3], "inactive until salinity drops below the lower threshold")
	assert.Less(t, out.Salinity[4], 34.99)
	assert.Equal(t, 35.1, out.Salinity[6])
	assert.Empty(t, out.Notes)
}

func TestProcessUnknownPlatformAddsNote(t *testing.T) {
	pr := newTestProcessor(compressibility.NewMemoryTable(nil))
	in := ascent()
	in.Conductivity = profile.Values{40, 40, 40, 40, 40, 40, 40, 40}

	out, err := pr.Process(in)
	require.NoError(t, err)
	assert.Nil(t, out.Conductivity)
	require.Len(t, out.Notes, 1)
	assert.Contains(t, out.Notes[0], "not recalibrated")
}

func TestProcessRejectsStationary(t *testing.T) {
	pr := newTestProcessor(nil)
	in := ascent()
	in.Pressure = profile.Values{100, 100, 100, 100, 100, 100, 100, 100}

	_, err := pr.Process(in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, profile.ErrNumericDegeneracy))

	cfg := config.DefaultTuningConfig()
	clamp := config.SpeedPolicyClamp
	cfg.SpeedPolicy = &clamp
	out, err := NewProcessor(cfg, nil).Process(in)
	require.NoError(t, err)
	assert.Len(t, out.TemperatureCell, in.Len())
}

func TestProcessInvalidProfile(t *testing.T) {
	pr := newTestProcessor(nil)

	_, err := pr.Process(nil)
	assert.True(t, errors.Is(err, profile.ErrValidation))

	in := ascent()
	in.Salinity = profile.Values{35}
	_, err = pr.Process(in)
	var verr *profile.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "salinity", verr.Field)
}

func TestProcessAllPreservesOrder(t *testing.T) {
	pr := newTestProcessor(nil)
	profiles := make([]*profile.Profile, 12)
	for i := range profiles {
		p := ascent()
		p.ID = fmt.Sprintf("p-%02d", i)
		profiles[i] = p
	}

	outs, err := pr.ProcessAll(context.Background(), profiles)
	require.NoError(t, err)
	require.Len(t, outs, len(profiles))
	for i, o := range outs {
		assert.Equal(t, profiles[i].ID, o.Profile.ID)
		assert.True(t, floats.EqualApprox(wantCell, o.TemperatureCell, 1e-9))
	}
}

func TestProcessAllFirstErrorWins(t *testing.T) {
	pr := newTestProcessor(nil)
	bad := ascent()
	bad.ElapsedTime = profile.Values{0, 1, 1, 2, 3, 4, 5, 6}
	profiles := []*profile.Profile{ascent(), bad, ascent()}

	outs, err := pr.ProcessAll(context.Background(), profiles)
	require.Error(t, err)
	assert.Nil(t, outs)
	assert.True(t, errors.Is(err, profile.ErrValidation))
	assert.Contains(t, err.Error(), "profile 1")
}

func TestProcessAllRejectsUnboundedTimeSpan(t *testing.T) {
	pr := newTestProcessor(nil)
	huge := &profile.Profile{
		ElapsedTime: profile.Values{0, 1, 1e19},
		Temperature: profile.Values{10, 10.1, 10.2},
		Pressure:    profile.Values{100, 99.9, 99.8},
	}

	outs, err := pr.ProcessAll(context.Background(), []*profile.Profile{ascent(), huge})
	require.Error(t, err)
	assert.Nil(t, outs)
	var verr *profile.ValidationError
	require.True(t, errors.As(err, &verr), "err = %v", err)
	assert.Equal(t, "time", verr.Field)
	assert.Contains(t, err.Error(), "profile 1")

	// With TEMP_CNDC supplied the span is caught at the short-term grid.
	huge.InternalTemperature = profile.Values{10, 10.1, 10.2}
	_, err = pr.Process(huge)
	assert.True(t, errors.Is(err, profile.ErrValidation), "err = %v", err)
}

func TestProcessAllCancelled(t *testing.T) {
	pr := newTestProcessor(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pr.ProcessAll(ctx, []*profile.Profile{ascent(), ascent()})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCorrectorFromConfig(t *testing.T) {
	cfg := config.DefaultTuningConfig()
	lag, minSpeed, clamp := -0.5, 3.0, config.SpeedPolicyClamp
	cfg.CTLagSeconds = &lag
	cfg.MinSpeedCmS = &minSpeed
	cfg.SpeedPolicy = &clamp

	c := CorrectorFromConfig(cfg)
	assert.Equal(t, -0.5, c.CTLag)
	assert.Equal(t, 3.0, c.Speed.MinSpeed)
	assert.Equal(t, thermal.SpeedClamp, c.Speed.Policy)
	assert.Equal(t, 1.065, c.InternalAlpha)
	assert.Equal(t, 154.8, c.InternalTau)
}
