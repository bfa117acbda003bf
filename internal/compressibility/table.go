package compressibility

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/ctd.report/internal/profile"
)

// Column names expected in the coefficient CSV. Other columns are ignored.
const (
	ColumnPlatform = "WMO"
	ColumnX2Old    = "X2old"
	ColumnX3Old    = "X3old"
	ColumnX4Old    = "X4old"
	ColumnX2       = "X2"
	ColumnX3       = "X3"
	ColumnX4       = "X4"
)

// MemoryTable is an in-memory, read-only after load, coefficient table.
type MemoryTable struct {
	entries map[string]Coefficients
}

// NewMemoryTable builds a table from a platform→coefficients map.
func NewMemoryTable(entries map[string]Coefficients) *MemoryTable {
	m := make(map[string]Coefficients, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return &MemoryTable{entries: m}
}

// Lookup returns the coefficients for platform.
func (t *MemoryTable) Lookup(platform string) (Coefficients, error) {
	c, ok := t.entries[platform]
	if !ok {
		return Coefficients{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	if !c.Complete() {
		return Coefficients{}, fmt.Errorf("%w: %s", ErrIncompleteCoefficients, platform)
	}
	return c, nil
}

// Platforms returns the platform identifiers in the table, sorted.
func (t *MemoryTable) Platforms() []string {
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Entries returns a copy of the table contents.
func (t *MemoryTable) Entries() map[string]Coefficients {
	out := make(map[string]Coefficients, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

// LoadCSV reads a coefficient table with a header row. Empty or "NaN"
// cells load as missing coefficients; they only fail at lookup time.
func LoadCSV(r io.Reader) (*MemoryTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("coefficient table is empty")
		}
		return nil, fmt.Errorf("failed to read coefficient table header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{ColumnPlatform, ColumnX2Old, ColumnX3Old, ColumnX4Old, ColumnX2, ColumnX3, ColumnX4} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("coefficient table missing column %q", name)
		}
	}

	entries := make(map[string]Coefficients)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read coefficient table line %d: %w", line, err)
		}

		platform := strings.TrimSpace(rec[col[ColumnPlatform]])
		if platform == "" {
			continue
		}
		if _, dup := entries[platform]; dup {
			return nil, fmt.Errorf("coefficient table line %d: duplicate platform %s", line, platform)
		}

		var c Coefficients
		fields := []struct {
			name string
			dst  *float64
		}{
			{ColumnX2Old, &c.X2Old}, {ColumnX3Old, &c.X3Old}, {ColumnX4Old, &c.X4Old},
			{ColumnX2, &c.X2}, {ColumnX3, &c.X3}, {ColumnX4, &c.X4},
		}
		for _, f := range fields {
			v, err := parseCoefficient(rec[col[f.name]])
			if err != nil {
				return nil, fmt.Errorf("coefficient table line %d column %s: %w", line, f.name, err)
			}
			*f.dst = v
		}
		entries[platform] = c
	}
	return &MemoryTable{entries: entries}, nil
}

func parseCoefficient(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return profile.Missing, nil
	}
	return strconv.ParseFloat(s, 64)
}
