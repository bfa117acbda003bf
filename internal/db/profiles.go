package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/ctd.report/internal/pipeline"
	"github.com/banshee-data/ctd.report/internal/profile"
)

// ErrProfileNotFound is returned by GetProfile for an unknown ID.
var ErrProfileNotFound = errors.New("profile not found")

// DefaultListLimit caps ListProfiles when no limit is given.
const DefaultListLimit = 100

// ProfileSummary is the per-profile row without its samples.
type ProfileSummary struct {
	ID                          string        `json:"id"`
	Platform                    string        `json:"platform"`
	Cycle                       int           `json:"cycle"`
	SampleCount                 int           `json:"sample_count"`
	InternalTemperatureInferred bool          `json:"internal_temperature_inferred"`
	Notes                       []string      `json:"notes,omitempty"`
	ProcessedAt                 time.Time     `json:"processed_at"`
	Duration                    time.Duration `json:"duration_ns"`
}

// sampleColumns lists profile_samples value columns in insert/scan order.
var sampleColumns = []string{
	"elapsed_time", "temperature", "pressure", "pressure_adjusted",
	"conductivity", "internal_temperature", "salinity",
	"profiling_speed", "lagged_temperature", "long_term_anomaly",
	"short_term_anomaly", "temperature_cell",
	"conductivity_recalibrated", "salinity_corrected",
}

// outcomeColumns returns pointers to the outcome's series in sampleColumns
// order. Optional columns may point at nil slices.
func outcomeColumns(o *pipeline.Outcome) []*profile.Values {
	p := o.Profile
	return []*profile.Values{
		&p.ElapsedTime, &p.Temperature, &p.Pressure, &p.PressureAdjusted,
		&p.Conductivity, &p.InternalTemperature, &p.Salinity,
		&o.ProfilingSpeed, &o.LaggedTemperature, &o.LongTerm,
		&o.ShortTerm, &o.TemperatureCell,
		&o.Conductivity, &o.Salinity,
	}
}

// nullable maps a missing sample to SQL NULL.
func nullable(col profile.Values, i int) sql.NullFloat64 {
	if i >= len(col) || profile.IsMissing(col[i]) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: col[i], Valid: true}
}

// SaveProfile stores an outcome, replacing any profile with the same ID.
func (db *DB) SaveProfile(ctx context.Context, o *pipeline.Outcome) error {
	if o == nil || o.Profile == nil {
		return errors.New("nil outcome")
	}
	p := o.Profile
	id := p.EnsureID()
	n := p.Len()

	notes, err := json.Marshal(o.Notes)
	if err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}
	if o.Notes == nil {
		notes = []byte("[]")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM profile_samples WHERE profile_id = ?`, id); err != nil {
		return fmt.Errorf("failed to replace profile %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to replace profile %s: %w", id, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (
			id, platform, cycle, sample_count, internal_temperature_inferred,
			notes_json, processed_unix_nanos, duration_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Platform, p.Cycle, n, o.InternalTemperatureInferred,
		string(notes), o.ProcessedAt.UnixNano(), int64(o.Duration),
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile %s: %w", id, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profile_samples (
			profile_id, idx, elapsed_time, temperature, pressure, pressure_adjusted,
			conductivity, internal_temperature, salinity,
			profiling_speed, lagged_temperature, long_term_anomaly,
			short_term_anomaly, temperature_cell,
			conductivity_recalibrated, salinity_corrected
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	cols := outcomeColumns(o)
	args := make([]interface{}, 2+len(cols))
	for i := 0; i < n; i++ {
		args[0], args[1] = id, i
		for c, col := range cols {
			args[2+c] = nullable(*col, i)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert sample %d of profile %s: %w", i, id, err)
		}
	}

	return tx.Commit()
}

// GetProfile loads a stored outcome. Optional columns that are NULL in
// every sample come back nil.
func (db *DB) GetProfile(ctx context.Context, id string) (*pipeline.Outcome, error) {
	var (
		summary ProfileSummary
		notes   string
		nanos   int64
		dur     int64
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, platform, cycle, sample_count, internal_temperature_inferred,
			notes_json, processed_unix_nanos, duration_nanos
		FROM profiles WHERE id = ?`, id,
	).Scan(&summary.ID, &summary.Platform, &summary.Cycle, &summary.SampleCount,
		&summary.InternalTemperatureInferred, &notes, &nanos, &dur)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile %s: %w", id, err)
	}

	o := &pipeline.Outcome{
		Profile: &profile.Profile{
			ID:       summary.ID,
			Platform: summary.Platform,
			Cycle:    summary.Cycle,
		},
		InternalTemperatureInferred: summary.InternalTemperatureInferred,
		ProcessedAt:                 time.Unix(0, nanos).UTC(),
		Duration:                    time.Duration(dur),
	}
	if err := json.Unmarshal([]byte(notes), &o.Notes); err != nil {
		return nil, fmt.Errorf("failed to decode notes for profile %s: %w", id, err)
	}
	if len(o.Notes) == 0 {
		o.Notes = nil
	}

	n := summary.SampleCount
	cols := outcomeColumns(o)
	for _, col := range cols {
		*col = profile.MissingSeries(n)
	}
	seen := make([]bool, len(cols))

	rows, err := db.QueryContext(ctx, `
		SELECT idx, elapsed_time, temperature, pressure, pressure_adjusted,
			conductivity, internal_temperature, salinity,
			profiling_speed, lagged_temperature, long_term_anomaly,
			short_term_anomaly, temperature_cell,
			conductivity_recalibrated, salinity_corrected
		FROM profile_samples WHERE profile_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples for profile %s: %w", id, err)
	}
	defer rows.Close()

	vals := make([]sql.NullFloat64, len(cols))
	dest := make([]interface{}, 1+len(cols))
	var idx int
	dest[0] = &idx
	for c := range vals {
		dest[1+c] = &vals[c]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("profile %s: sample index %d out of range", id, idx)
		}
		for c, v := range vals {
			if v.Valid {
				(*cols[c])[idx] = v.Float64
				seen[c] = true
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Required columns stay even when all missing.
	for c := range cols {
		if !seen[c] && isOptionalColumn(sampleColumns[c]) {
			*cols[c] = nil
		}
	}
	return o, nil
}

func isOptionalColumn(name string) bool {
	switch name {
	case "pressure_adjusted", "conductivity", "internal_temperature", "salinity",
		"conductivity_recalibrated", "salinity_corrected":
		return true
	}
	return false
}

// ListProfiles returns the most recently processed profiles first. A
// non-positive limit uses DefaultListLimit.
func (db *DB) ListProfiles(ctx context.Context, limit int) ([]ProfileSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, platform, cycle, sample_count, internal_temperature_inferred,
			notes_json, processed_unix_nanos, duration_nanos
		FROM profiles
		ORDER BY processed_unix_nanos DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []ProfileSummary
	for rows.Next() {
		var (
			s     ProfileSummary
			notes string
			nanos int64
			dur   int64
		)
		if err := rows.Scan(&s.ID, &s.Platform, &s.Cycle, &s.SampleCount,
			&s.InternalTemperatureInferred, &notes, &nanos, &dur); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(notes), &s.Notes); err != nil {
			return nil, fmt.Errorf("failed to decode notes for profile %s: %w", s.ID, err)
		}
		if len(s.Notes) == 0 {
			s.Notes = nil
		}
		s.ProcessedAt = time.Unix(0, nanos).UTC()
		s.Duration = time.Duration(dur)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteProfile removes a profile and its samples.
func (db *DB) DeleteProfile(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM profile_samples WHERE profile_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete samples of profile %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	return tx.Commit()
}
