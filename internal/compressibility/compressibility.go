// Package compressibility applies an updated pressure (compressibility)
// calibration to RBRargo3 conductivity using per-platform coefficients.
package compressibility

import (
	"errors"
	"fmt"

	"github.com/banshee-data/ctd.report/internal/profile"
)

var (
	// ErrUnknownPlatform is returned when a platform has no table entry.
	ErrUnknownPlatform = errors.New("platform not found in coefficient table")
	// ErrIncompleteCoefficients is returned when an entry lacks one of the
	// six coefficients.
	ErrIncompleteCoefficients = errors.New("no complete coefficients for platform")
)

// Coefficients are the cubic pressure terms of the old and new calibration.
// A missing coefficient is NaN.
type Coefficients struct {
	X2Old float64 `json:"x2_old"`
	X3Old float64 `json:"x3_old"`
	X4Old float64 `json:"x4_old"`
	X2    float64 `json:"x2"`
	X3    float64 `json:"x3"`
	X4    float64 `json:"x4"`
}

// Complete reports whether all six coefficients are present.
func (c Coefficients) Complete() bool {
	for _, v := range []float64{c.X2Old, c.X3Old, c.X4Old, c.X2, c.X3, c.X4} {
		if profile.IsMissing(v) {
			return false
		}
	}
	return true
}

// Table looks up coefficients by platform (WMO) identifier.
type Table interface {
	Lookup(platform string) (Coefficients, error)
}

// Recalibrate rescales conductivity from the old calibration at PRES to the
// new one at PRES_ADJUSTED:
//
//	C · (1 + X2old·P + X3old·P² + X4old·P³) / (1 + X2·Padj + X3·Padj² + X4·Padj³)
func Recalibrate(cond, pres, presAdj []float64, c Coefficients) ([]float64, error) {
	if len(cond) != len(pres) || len(cond) != len(presAdj) {
		return nil, &profile.ValidationError{Field: "conductivity", Reason: profile.ReasonLengthMismatch}
	}
	if !c.Complete() {
		return nil, ErrIncompleteCoefficients
	}

	out := make([]float64, len(cond))
	for i := range cond {
		p, pa := pres[i], presAdj[i]
		old := 1 + c.X2Old*p + c.X3Old*p*p + c.X4Old*p*p*p
		cur := 1 + c.X2*pa + c.X3*pa*pa + c.X4*pa*pa*pa
		out[i] = cond[i] * old / cur
	}
	return out, nil
}

// RecalibrateFor looks up platform in t and recalibrates with its entry.
func RecalibrateFor(t Table, platform string, cond, pres, presAdj []float64) ([]float64, error) {
	c, err := t.Lookup(platform)
	if err != nil {
		return nil, err
	}
	out, err := Recalibrate(cond, pres, presAdj, c)
	if err != nil {
		return nil, fmt.Errorf("platform %s: %w", platform, err)
	}
	return out, nil
}
