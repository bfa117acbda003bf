// Package testutil provides shared test helpers and profile fixtures.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/banshee-data/ctd.report/internal/profile"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// SeriesNear reports whether two series have equal length and agree within
// tol at every sample, treating missing samples as equal to each other.
func SeriesNear(want, got []float64, tol float64) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		wm, gm := profile.IsMissing(want[i]), profile.IsMissing(got[i])
		if wm || gm {
			if wm != gm {
				return false
			}
			continue
		}
		if !scalar.EqualWithinAbsOrRel(want[i], got[i], tol, tol) {
			return false
		}
	}
	return true
}

// AssertSeriesNear fails the test unless SeriesNear(want, got, tol).
func AssertSeriesNear(t *testing.T, want, got []float64, tol float64) {
	t.Helper()
	if !SeriesNear(want, got, tol) {
		t.Errorf("series mismatch (tol %g):\n want %v\n  got %v", tol, want, got)
	}
}

// AscentProfile returns a short, irregularly sampled ascent through a
// warming layer at roughly 10 cm/s.
func AscentProfile() *profile.Profile {
	return &profile.Profile{
		Platform:    "6990001",
		Cycle:       1,
		ElapsedTime: profile.Values{0, 1.2, 2.1, 3.0, 4.4, 5.0, 6.1, 7.3},
		Temperature: profile.Values{10, 10.05, 10.2, 10.6, 11.0, 11.1, 11.15, 11.2},
		Pressure:    profile.Values{100, 99.9, 99.8, 99.7, 99.55, 99.5, 99.4, 99.3},
	}
}

// AscentCell is TEMPcell for AscentProfile with inferred internal
// temperature and default tuning.
var AscentCell = []float64{
	10.012870050740, 10.104396861791, 10.344184822076, 10.673121692542,
	11.015989846892, 11.067264907759, 11.116501228027, 11.152456898161,
}

// StationaryProfile returns a profile whose pressure never changes.
func StationaryProfile() *profile.Profile {
	return &profile.Profile{
		ElapsedTime: profile.Values{0, 1, 2, 3},
		Temperature: profile.Values{10, 10, 10, 10},
		Pressure:    profile.Values{50, 50, 50, 50},
	}
}

// Ramp returns n values start, start+step, ...
func Ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// NaN is a shorthand for a missing sample in fixtures.
var NaN = math.NaN()
