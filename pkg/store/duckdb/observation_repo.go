package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/tunogya/salesfactor/pkg/model"
)

const observationColumns = `run_id, id, date, country, store, product, num_sold, is_test,
	year, month, weekday, dayofyear, daynum, weeknum,
	gdp_factor, store_factor, product_factor, weekday_factor, dayofyear_factor,
	holiday, holiday_response, ratio, total`

// ObservationRepo handles decomposed row persistence
type ObservationRepo struct {
	client *Client
}

// NewObservationRepo creates a new observation repository
func NewObservationRepo(client *Client) *ObservationRepo {
	return &ObservationRepo{client: client}
}

// InsertBatch upserts the rows of a run in a transaction
func (r *ObservationRepo) InsertBatch(ctx context.Context, runID string, rows []model.Observation) error {
	tx, err := r.client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (`+observationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, id) DO UPDATE SET
			num_sold = EXCLUDED.num_sold,
			gdp_factor = EXCLUDED.gdp_factor,
			store_factor = EXCLUDED.store_factor,
			product_factor = EXCLUDED.product_factor,
			weekday_factor = EXCLUDED.weekday_factor,
			dayofyear_factor = EXCLUDED.dayofyear_factor,
			holiday = EXCLUDED.holiday,
			holiday_response = EXCLUDED.holiday_response,
			ratio = EXCLUDED.ratio,
			total = EXCLUDED.total
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		o := &rows[i]
		_, err := stmt.ExecContext(ctx,
			runID, o.ID, o.Date, o.Country, o.Store, o.Product, nullable(o.NumSold), o.IsTest,
			o.Year, o.Month, o.Weekday, o.DayOfYear, o.DayNum, o.WeekNum,
			nullable(o.GDPFactor), nullable(o.StoreFactor), nullable(o.ProductFactor),
			nullable(o.WeekdayFactor), nullable(o.DayOfYearFactor),
			o.Holiday, o.HolidayResponse, nullable(o.Ratio), nullable(o.Total),
		)
		if err != nil {
			return fmt.Errorf("failed to insert observation %d: %w", o.ID, err)
		}
	}

	return tx.Commit()
}

// GetByRun retrieves the rows of a run ordered by id. The harmonic basis
// is not stored.
func (r *ObservationRepo) GetByRun(ctx context.Context, runID string) ([]model.Observation, error) {
	query := `SELECT ` + observationColumns + ` FROM observations WHERE run_id = ? ORDER BY id ASC`

	rows, err := r.client.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var out []model.Observation
	for rows.Next() {
		var o model.Observation
		var rid string
		var numSold, gdp, store, product, weekday, doy, ratio, total sql.NullFloat64

		err := rows.Scan(
			&rid, &o.ID, &o.Date, &o.Country, &o.Store, &o.Product, &numSold, &o.IsTest,
			&o.Year, &o.Month, &o.Weekday, &o.DayOfYear, &o.DayNum, &o.WeekNum,
			&gdp, &store, &product, &weekday, &doy,
			&o.Holiday, &o.HolidayResponse, &ratio, &total,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}

		o.NumSold = orNaN(numSold)
		o.GDPFactor = orNaN(gdp)
		o.StoreFactor = orNaN(store)
		o.ProductFactor = orNaN(product)
		o.WeekdayFactor = orNaN(weekday)
		o.DayOfYearFactor = orNaN(doy)
		o.Ratio = orNaN(ratio)
		o.Total = orNaN(total)
		out = append(out, o)
	}

	return out, rows.Err()
}

// Count returns the number of rows stored for a run
func (r *ObservationRepo) Count(ctx context.Context, runID string) (int64, error) {
	var count int64
	row := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM observations WHERE run_id = ?", runID)
	err := row.Scan(&count)
	return count, err
}

// nullable maps undefined values to SQL NULL
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
