package compressibility

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/ctd.report/internal/profile"
)

const tableCSV = `WMO,SN,X2old,X3old,X4old,X2,X3,X4
6990001,60001,1.8e-5,-3.1e-9,2.2e-13,1.7e-5,-2.9e-9,2.0e-13
6990002,60002,1.8e-5,-3.1e-9,2.2e-13,NaN,,
`

func TestLoadCSV(t *testing.T) {
	tbl, err := LoadCSV(strings.NewReader(tableCSV))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if diff := cmp.Diff([]string{"6990001", "6990002"}, tbl.Platforms()); diff != "" {
		t.Errorf("platforms mismatch (-want +got):\n%s", diff)
	}

	c, err := tbl.Lookup("6990001")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !c.Complete() {
		t.Errorf("coefficients %+v not complete", c)
	}
	if c.X2 != 1.7e-5 || c.X3Old != -3.1e-9 {
		t.Errorf("X2 = %v, X3Old = %v", c.X2, c.X3Old)
	}

	if _, err := tbl.Lookup("6990002"); !errors.Is(err, ErrIncompleteCoefficients) {
		t.Errorf("incomplete row: err = %v", err)
	}
	if _, err := tbl.Lookup("1234567"); !errors.Is(err, ErrUnknownPlatform) {
		t.Errorf("unknown platform: err = %v", err)
	}
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"missing column", "WMO,X2old,X3old,X4old,X2,X3\n1,1,1,1,1,1\n"},
		{"bad number", "WMO,X2old,X3old,X4old,X2,X3,X4\n1,abc,1,1,1,1,1\n"},
		{"duplicate", "WMO,X2old,X3old,X4old,X2,X3,X4\n1,1,1,1,1,1,1\n1,1,1,1,1,1,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadCSV(strings.NewReader(tt.in)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRecalibrate(t *testing.T) {
	c := Coefficients{X2Old: 1e-4, X3Old: 1e-8, X4Old: 0, X2: 2e-4, X3: 0, X4: 1e-12}
	cond := []float64{40, 41, profile.Missing}
	pres := []float64{0, 1000, 2000}
	presAdj := []float64{0, 1001, 2000}

	got, err := Recalibrate(cond, pres, presAdj, c)
	if err != nil {
		t.Fatalf("Recalibrate: %v", err)
	}

	if math.Abs(got[0]-40) > 1e-12 {
		t.Errorf("got[0] = %v, want 40", got[0])
	}
	want := 41 * (1 + 1e-4*1000 + 1e-8*1000*1000) / (1 + 2e-4*1001 + 1e-12*1001*1001*1001)
	if math.Abs(got[1]-want) > 1e-12 {
		t.Errorf("got[1] = %v, want %v", got[1], want)
	}
	if !math.IsNaN(got[2]) {
		t.Errorf("got[2] = %v, want missing", got[2])
	}
}

func TestRecalibrateIdentity(t *testing.T) {
	c := Coefficients{X2Old: 1.8e-5, X3Old: -3.1e-9, X4Old: 2.2e-13, X2: 1.8e-5, X3: -3.1e-9, X4: 2.2e-13}
	cond := []float64{35, 36, 37}
	pres := []float64{10, 500, 1800}

	got, err := Recalibrate(cond, pres, pres, c)
	if err != nil {
		t.Fatalf("Recalibrate: %v", err)
	}
	if !floats.EqualApprox(cond, got, 1e-12) {
		t.Errorf("got %v, want %v", got, cond)
	}
}

func TestRecalibrateErrors(t *testing.T) {
	c := Coefficients{X2Old: 1, X3Old: 1, X4Old: 1, X2: 1, X3: 1, X4: 1}

	if _, err := Recalibrate([]float64{1, 2}, []float64{1}, []float64{1, 2}, c); !errors.Is(err, profile.ErrValidation) {
		t.Errorf("length mismatch: err = %v", err)
	}

	incomplete := c
	incomplete.X4 = math.NaN()
	if _, err := Recalibrate([]float64{1}, []float64{1}, []float64{1}, incomplete); !errors.Is(err, ErrIncompleteCoefficients) {
		t.Errorf("incomplete coefficients: err = %v", err)
	}
}

func TestRecalibrateFor(t *testing.T) {
	tbl := NewMemoryTable(map[string]Coefficients{
		"42": {X2Old: 0, X3Old: 0, X4Old: 0, X2: 0, X3: 0, X4: 0},
	})

	got, err := RecalibrateFor(tbl, "42", []float64{3}, []float64{5}, []float64{5})
	if err != nil {
		t.Fatalf("RecalibrateFor: %v", err)
	}
	if diff := cmp.Diff([]float64{3}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := RecalibrateFor(tbl, "43", []float64{3}, []float64{5}, []float64{5}); !errors.Is(err, ErrUnknownPlatform) {
		t.Errorf("unknown platform: err = %v", err)
	}
}
