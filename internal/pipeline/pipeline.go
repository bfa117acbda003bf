// Package pipeline runs the full post-processing chain over CTD profiles:
// internal temperature inference, cell thermal-mass correction, pressure
// recalibration of conductivity and the salinity square-root correction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/ctd.report/internal/compressibility"
	"github.com/banshee-data/ctd.report/internal/config"
	"github.com/banshee-data/ctd.report/internal/monitoring"
	"github.com/banshee-data/ctd.report/internal/profile"
	"github.com/banshee-data/ctd.report/internal/salinity"
	"github.com/banshee-data/ctd.report/internal/thermal"
	"github.com/banshee-data/ctd.report/internal/timeutil"
)

// Processor applies the post-processing chain to one profile at a time.
// It holds no per-profile state and is safe for concurrent use.
type Processor struct {
	Corrector *thermal.Corrector
	// Table supplies compressibility coefficients. Nil skips recalibration.
	Table  compressibility.Table
	Config *config.TuningConfig
	Clock  timeutil.Clock
}

// NewProcessor builds a Processor whose corrector follows cfg.
func NewProcessor(cfg *config.TuningConfig, table compressibility.Table) *Processor {
	if cfg == nil {
		cfg = config.DefaultTuningConfig()
	}
	return &Processor{
		Corrector: CorrectorFromConfig(cfg),
		Table:     table,
		Config:    cfg,
		Clock:     timeutil.RealClock{},
	}
}

// CorrectorFromConfig maps tuning values onto a thermal.Corrector.
func CorrectorFromConfig(cfg *config.TuningConfig) *thermal.Corrector {
	c := thermal.NewCorrector()
	c.CTLag = cfg.GetCTLagSeconds()
	c.InternalAlpha = cfg.GetInternalAlpha()
	c.InternalTau = cfg.GetInternalTauSeconds()
	c.Speed.MinSpeed = cfg.GetMinSpeedCmS()
	if cfg.GetSpeedPolicy() == config.SpeedPolicyClamp {
		c.Speed.Policy = thermal.SpeedClamp
	}
	return c
}

// Outcome is the processed form of one profile.
type Outcome struct {
	// Profile is a copy of the input with ID assigned and, when inferred,
	// InternalTemperature filled in.
	Profile                     *profile.Profile `json:"profile"`
	InternalTemperatureInferred bool             `json:"internal_temperature_inferred"`

	ProfilingSpeed    profile.Values `json:"profiling_speed"`
	LaggedTemperature profile.Values `json:"lagged_temperature"`
	LongTerm          profile.Values `json:"long_term_anomaly"`
	ShortTerm         profile.Values `json:"short_term_anomaly"`
	TemperatureCell   profile.Values `json:"temperature_cell"`

	// Conductivity is the recalibrated conductivity, nil when not applied.
	Conductivity profile.Values `json:"conductivity_recalibrated,omitempty"`
	// Salinity is the square-root corrected salinity, nil without input.
	Salinity profile.Values `json:"salinity_corrected,omitempty"`

	Notes       []string      `json:"notes,omitempty"`
	ProcessedAt time.Time     `json:"processed_at"`
	Duration    time.Duration `json:"duration_ns"`
}

// Process runs the chain on p. The input profile is not modified.
func (pr *Processor) Process(p *profile.Profile) (*Outcome, error) {
	if p == nil {
		return nil, &profile.ValidationError{Field: "profile", Reason: profile.ReasonEmpty}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	clock := pr.clock()
	sw := timeutil.StartStopwatch(clock)

	cp := *p
	id := cp.EnsureID()
	out := &Outcome{Profile: &cp}

	if cp.InternalTemperature == nil {
		if !pr.config().GetInferInternalTemperature() {
			return nil, &profile.ValidationError{
				Field:  "internal_temperature",
				Reason: "column absent and inference disabled",
			}
		}
		cndc, err := pr.Corrector.InternalTemperature(cp.Temperature, cp.ElapsedTime)
		if err != nil {
			return nil, fmt.Errorf("infer internal temperature: %w", err)
		}
		cp.InternalTemperature = cndc
		out.InternalTemperatureInferred = true
	}

	res, err := pr.Corrector.Correct(thermal.Input{
		Temperature:         cp.Temperature,
		Pressure:            cp.Pressure,
		InternalTemperature: cp.InternalTemperature,
		Time:                cp.ElapsedTime,
	})
	if err != nil {
		return nil, fmt.Errorf("cell thermal mass: %w", err)
	}
	out.ProfilingSpeed = res.ProfilingSpeed
	out.LaggedTemperature = res.Lagged
	out.LongTerm = res.LongTerm
	out.ShortTerm = res.ShortTerm
	out.TemperatureCell = res.Cell

	if cp.Conductivity != nil && pr.Table != nil && cp.Platform != "" {
		presAdj := cp.PressureAdjusted
		if presAdj == nil {
			presAdj = cp.Pressure
		}
		cond, err := compressibility.RecalibrateFor(pr.Table, cp.Platform, cp.Conductivity, cp.Pressure, presAdj)
		switch {
		case err == nil:
			out.Conductivity = cond
		case errors.Is(err, compressibility.ErrUnknownPlatform), errors.Is(err, compressibility.ErrIncompleteCoefficients):
			out.Notes = append(out.Notes, fmt.Sprintf("conductivity not recalibrated: %v", err))
		default:
			return nil, fmt.Errorf("compressibility: %w", err)
		}
	}

	if cp.Salinity != nil {
		out.Salinity = salinity.CorrectSqrtError(cp.Salinity)
	}

	out.ProcessedAt = clock.Now()
	out.Duration = sw.Elapsed()
	monitoring.ProfileLogf(id, "processed %d samples in %v (inferred TEMP_CNDC: %v)",
		cp.Len(), out.Duration, out.InternalTemperatureInferred)
	return out, nil
}

// ProcessAll processes profiles concurrently, bounded by the configured
// worker count. Outcomes are returned in input order. The first failure
// cancels the remaining work and is returned.
func (pr *Processor) ProcessAll(ctx context.Context, profiles []*profile.Profile) ([]*Outcome, error) {
	cfg := pr.config()
	if timeout := cfg.GetBatchTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	outcomes := make([]*Outcome, len(profiles))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.GetWorkers())

	for i, p := range profiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o, err := pr.Process(p)
			if err != nil {
				return fmt.Errorf("profile %d: %w", i, err)
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	monitoring.Logf("processed %d profiles", len(profiles))
	return outcomes, nil
}

func (pr *Processor) clock() timeutil.Clock {
	if pr.Clock == nil {
		return timeutil.RealClock{}
	}
	return pr.Clock
}

func (pr *Processor) config() *config.TuningConfig {
	if pr.Config == nil {
		return config.DefaultTuningConfig()
	}
	return pr.Config
}
