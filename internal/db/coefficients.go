package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/banshee-data/ctd.report/internal/compressibility"
	"github.com/banshee-data/ctd.report/internal/profile"
)

func nullableCoefficient(v float64) sql.NullFloat64 {
	if profile.IsMissing(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func coefficientValue(v sql.NullFloat64) float64 {
	if !v.Valid {
		return profile.Missing
	}
	return v.Float64
}

// UpsertCoefficients inserts or replaces the coefficients for platform.
// Missing coefficients are stored as NULL.
func (db *DB) UpsertCoefficients(ctx context.Context, platform string, c compressibility.Coefficients) error {
	return upsertCoefficients(ctx, db.DB, platform, c, db.clock.Now().UnixNano())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsertCoefficients(ctx context.Context, ex execer, platform string, c compressibility.Coefficients, nanos int64) error {
	if platform == "" {
		return errors.New("platform is required")
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO compressibility_coefficients (
			platform, x2_old, x3_old, x4_old, x2, x3, x4, updated_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(platform) DO UPDATE SET
			x2_old = excluded.x2_old,
			x3_old = excluded.x3_old,
			x4_old = excluded.x4_old,
			x2 = excluded.x2,
			x3 = excluded.x3,
			x4 = excluded.x4,
			updated_unix_nanos = excluded.updated_unix_nanos`,
		platform,
		nullableCoefficient(c.X2Old), nullableCoefficient(c.X3Old), nullableCoefficient(c.X4Old),
		nullableCoefficient(c.X2), nullableCoefficient(c.X3), nullableCoefficient(c.X4),
		nanos,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert coefficients for %s: %w", platform, err)
	}
	return nil
}

// ImportCoefficients upserts every entry of t in one transaction and
// returns the number of platforms written.
func (db *DB) ImportCoefficients(ctx context.Context, t *compressibility.MemoryTable) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	nanos := db.clock.Now().UnixNano()
	entries := t.Entries()
	for _, platform := range t.Platforms() {
		if err := upsertCoefficients(ctx, tx, platform, entries[platform], nanos); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Lookup implements compressibility.Table against the stored coefficients.
func (db *DB) Lookup(platform string) (compressibility.Coefficients, error) {
	var x [6]sql.NullFloat64
	err := db.QueryRow(`
		SELECT x2_old, x3_old, x4_old, x2, x3, x4
		FROM compressibility_coefficients WHERE platform = ?`, platform,
	).Scan(&x[0], &x[1], &x[2], &x[3], &x[4], &x[5])
	if errors.Is(err, sql.ErrNoRows) {
		return compressibility.Coefficients{}, fmt.Errorf("%w: %s", compressibility.ErrUnknownPlatform, platform)
	}
	if err != nil {
		return compressibility.Coefficients{}, fmt.Errorf("failed to query coefficients for %s: %w", platform, err)
	}

	c := coefficientsFrom(x)
	if !c.Complete() {
		return compressibility.Coefficients{}, fmt.Errorf("%w: %s", compressibility.ErrIncompleteCoefficients, platform)
	}
	return c, nil
}

func coefficientsFrom(x [6]sql.NullFloat64) compressibility.Coefficients {
	return compressibility.Coefficients{
		X2Old: coefficientValue(x[0]),
		X3Old: coefficientValue(x[1]),
		X4Old: coefficientValue(x[2]),
		X2:    coefficientValue(x[3]),
		X3:    coefficientValue(x[4]),
		X4:    coefficientValue(x[5]),
	}
}

// CoefficientTable loads every stored platform into a MemoryTable snapshot.
func (db *DB) CoefficientTable(ctx context.Context) (*compressibility.MemoryTable, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT platform, x2_old, x3_old, x4_old, x2, x3, x4
		FROM compressibility_coefficients`)
	if err != nil {
		return nil, fmt.Errorf("failed to query coefficients: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]compressibility.Coefficients)
	for rows.Next() {
		var (
			platform string
			x        [6]sql.NullFloat64
		)
		if err := rows.Scan(&platform, &x[0], &x[1], &x[2], &x[3], &x[4], &x[5]); err != nil {
			return nil, err
		}
		entries[platform] = coefficientsFrom(x)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return compressibility.NewMemoryTable(entries), nil
}
