// Package units provides shared constants and conversions for profiling
// speed units.
package units

// Unit constants
const (
	DBARPS = "dbarps" // pressure rate, dbar/s
	MPS    = "mps"
	CMPS   = "cmps"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{DBARPS, MPS, CMPS}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "dbarps, mps, cmps"
}

// MetresPerDecibar is the depth change per unit of pressure used by the
// thermal-mass coefficients. The coefficients were fitted with this
// hydrostatic approximation, so it is not latitude or density corrected.
const MetresPerDecibar = 1.0

// ConvertSpeed converts a pressure rate in dbar/s to the target units.
// Unknown units return the rate unchanged.
func ConvertSpeed(dbarPerSecond float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return dbarPerSecond * MetresPerDecibar
	case CMPS:
		return dbarPerSecond * MetresPerDecibar * 100
	case DBARPS:
		return dbarPerSecond
	default:
		return dbarPerSecond
	}
}

// CentimetresPerSecond converts a pressure rate in dbar/s to cm/s, the unit
// the thermal-mass power laws are expressed in.
func CentimetresPerSecond(dbarPerSecond float64) float64 {
	return ConvertSpeed(dbarPerSecond, CMPS)
}
