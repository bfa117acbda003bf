package profile

import (
	"errors"
	"fmt"
)

// Sentinel errors. The typed errors below unwrap to these so callers can
// branch with errors.Is without caring about the details.
var (
	ErrValidation        = errors.New("invalid input")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
)

// ValidationError reports malformed input: mismatched lengths or a time
// base that is not strictly increasing and unique. It is raised before any
// computation starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientDataError reports that a stage had fewer than two usable
// (non-missing) points to work with.
type InsufficientDataError struct {
	Stage string
	Valid int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: need at least 2 valid points, have %d", e.Stage, e.Valid)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// NumericDegeneracyError reports a profiling speed that would put a zero in
// the denominator of the speed-dependent coefficient model.
type NumericDegeneracyError struct {
	Index int
	Speed float64
}

func (e *NumericDegeneracyError) Error() string {
	return fmt.Sprintf("profiling speed %g cm/s at sample %d makes thermal-mass coefficients non-finite", e.Speed, e.Index)
}

func (e *NumericDegeneracyError) Unwrap() error { return ErrNumericDegeneracy }

// Reasons used in ValidationError. Exposed so tests and the API can match
// on them.
const (
	ReasonLengthMismatch = "length mismatch"
	ReasonNotIncreasing  = "time is not increasing, try sorting inputs first"
	ReasonNotUnique      = "times are not unique"
	ReasonEmpty          = "series is empty"
	ReasonSpanTooLong    = "time span too long"
)
