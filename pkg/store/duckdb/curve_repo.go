package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tunogya/salesfactor/pkg/model"
	"github.com/tunogya/salesfactor/pkg/regression"
)

// CurveRepo handles seasonal curve, product fit and factor persistence
type CurveRepo struct {
	client *Client
}

// NewCurveRepo creates a new curve repository
func NewCurveRepo(client *Client) *CurveRepo {
	return &CurveRepo{client: client}
}

// InsertCurve upserts the 366 entries of a run's day-of-year curve
func (r *CurveRepo) InsertCurve(ctx context.Context, runID string, curve model.SeasonalCurve) error {
	tx, err := r.client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO seasonal_curves (run_id, dayofyear, value)
		VALUES (?, ?, ?)
		ON CONFLICT (run_id, dayofyear) DO UPDATE SET value = EXCLUDED.value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for doy := 1; doy <= curve.Len(); doy++ {
		if _, err := stmt.ExecContext(ctx, runID, doy, nullable(curve.At(doy))); err != nil {
			return fmt.Errorf("failed to insert curve day %d: %w", doy, err)
		}
	}

	return tx.Commit()
}

// GetCurve restores the day-of-year curve of a run
func (r *CurveRepo) GetCurve(ctx context.Context, runID string) (model.SeasonalCurve, error) {
	rows, err := r.client.Query(ctx,
		"SELECT value FROM seasonal_curves WHERE run_id = ? ORDER BY dayofyear ASC", runID)
	if err != nil {
		return model.SeasonalCurve{}, fmt.Errorf("failed to query curve: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return model.SeasonalCurve{}, fmt.Errorf("failed to scan curve: %w", err)
		}
		values = append(values, orNaN(v))
	}
	if err := rows.Err(); err != nil {
		return model.SeasonalCurve{}, err
	}

	return model.CurveFromValues(values)
}

// ProductFit is the stored form of one product regression
type ProductFit struct {
	RunID   string
	Product string
	Model   regression.Model
	Profile model.SeasonalCurve
}

// InsertProductFits upserts product regressions in a transaction
func (r *CurveRepo) InsertProductFits(ctx context.Context, fits []ProductFit) error {
	tx, err := r.client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO product_fits (run_id, product, intercept, coef, alpha, samples, profile)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, product) DO UPDATE SET
			intercept = EXCLUDED.intercept,
			coef = EXCLUDED.coef,
			alpha = EXCLUDED.alpha,
			samples = EXCLUDED.samples,
			profile = EXCLUDED.profile
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range fits {
		coef, err := json.Marshal(f.Model.Coef)
		if err != nil {
			return fmt.Errorf("failed to encode coefficients of %s: %w", f.Product, err)
		}
		profile, err := json.Marshal(f.Profile.Values())
		if err != nil {
			return fmt.Errorf("failed to encode profile of %s: %w", f.Product, err)
		}
		_, err = stmt.ExecContext(ctx,
			f.RunID, f.Product, f.Model.Intercept, string(coef), f.Model.Alpha, f.Model.Samples, string(profile),
		)
		if err != nil {
			return fmt.Errorf("failed to insert product fit %s: %w", f.Product, err)
		}
	}

	return tx.Commit()
}

// GetProductFits retrieves the product regressions of a run, by product
func (r *CurveRepo) GetProductFits(ctx context.Context, runID string) ([]ProductFit, error) {
	rows, err := r.client.Query(ctx, `
		SELECT run_id, product, intercept, coef, alpha, samples, profile
		FROM product_fits
		WHERE run_id = ?
		ORDER BY product ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query product fits: %w", err)
	}
	defer rows.Close()

	var fits []ProductFit
	for rows.Next() {
		var f ProductFit
		var coef, profile string
		err := rows.Scan(&f.RunID, &f.Product, &f.Model.Intercept, &coef, &f.Model.Alpha, &f.Model.Samples, &profile)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product fit: %w", err)
		}
		if err := json.Unmarshal([]byte(coef), &f.Model.Coef); err != nil {
			return nil, fmt.Errorf("failed to decode coefficients of %s: %w", f.Product, err)
		}
		var values []float64
		if err := json.Unmarshal([]byte(profile), &values); err != nil {
			return nil, fmt.Errorf("failed to decode profile of %s: %w", f.Product, err)
		}
		if f.Profile, err = model.CurveFromValues(values); err != nil {
			return nil, fmt.Errorf("product %s: %w", f.Product, err)
		}
		fits = append(fits, f)
	}

	return fits, rows.Err()
}

// InsertFactors upserts scalar factors of one kind keyed by scope
func (r *CurveRepo) InsertFactors(ctx context.Context, runID string, kind model.FactorKind, values map[string]float64) error {
	tx, err := r.client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO factors (run_id, kind, scope, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (run_id, kind, scope) DO UPDATE SET value = EXCLUDED.value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for scope, v := range values {
		if _, err := stmt.ExecContext(ctx, runID, string(kind), scope, nullable(v)); err != nil {
			return fmt.Errorf("failed to insert %s factor %s: %w", kind, scope, err)
		}
	}

	return tx.Commit()
}

// GetFactors retrieves the factors of one kind keyed by scope
func (r *CurveRepo) GetFactors(ctx context.Context, runID string, kind model.FactorKind) (map[string]float64, error) {
	rows, err := r.client.Query(ctx,
		"SELECT scope, value FROM factors WHERE run_id = ? AND kind = ?", runID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query factors: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var scope string
		var v sql.NullFloat64
		if err := rows.Scan(&scope, &v); err != nil {
			return nil, fmt.Errorf("failed to scan factor: %w", err)
		}
		out[scope] = orNaN(v)
	}

	return out, rows.Err()
}

// WeekdayScopes renders weekday factors as scope -> value, "0" = Monday
func WeekdayScopes(factors [7]float64) map[string]float64 {
	out := make(map[string]float64, len(factors))
	for d, v := range factors {
		out[strconv.Itoa(d)] = v
	}
	return out
}
