package profile

import (
	"fmt"

	"github.com/google/uuid"
)

// Profile is one vertical CTD profile: a shared elapsed-time base plus the
// measured and derived columns. Optional columns are nil when absent.
type Profile struct {
	ID       string `json:"id,omitempty"`
	Platform string `json:"platform,omitempty"` // WMO identifier
	Cycle    int    `json:"cycle,omitempty"`

	ElapsedTime         Values `json:"elapsed_time"`
	Temperature         Values `json:"temperature"`
	Pressure            Values `json:"pressure"`
	PressureAdjusted    Values `json:"pressure_adjusted,omitempty"`
	Conductivity        Values `json:"conductivity,omitempty"`
	InternalTemperature Values `json:"internal_temperature,omitempty"`
	Salinity            Values `json:"salinity,omitempty"`
}

// Len returns the number of samples.
func (p *Profile) Len() int { return len(p.ElapsedTime) }

// EnsureID assigns a random ID if the profile has none and returns it.
func (p *Profile) EnsureID() string {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return p.ID
}

// Validate checks that all present columns share the time base.
func (p *Profile) Validate() error {
	if err := ValidateTimeBase(p.ElapsedTime, p.Temperature, p.Pressure); err != nil {
		return err
	}
	optional := map[string]Values{
		"pressure_adjusted":    p.PressureAdjusted,
		"conductivity":         p.Conductivity,
		"internal_temperature": p.InternalTemperature,
		"salinity":             p.Salinity,
	}
	for name, col := range optional {
		if col != nil && len(col) != p.Len() {
			return &ValidationError{
				Field:  name,
				Reason: fmt.Sprintf("%s: have %d samples, want %d", ReasonLengthMismatch, len(col), p.Len()),
			}
		}
	}
	return nil
}
