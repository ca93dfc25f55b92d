package duckdb

import (
	"context"
	"fmt"
)

// CreateRunsTable creates the run index table
const CreateRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    run_id VARCHAR PRIMARY KEY,
    fingerprint VARCHAR NOT NULL,
    row_count BIGINT NOT NULL,
    first_date DATE NOT NULL,
    last_date DATE NOT NULL,
    nan_rows BIGINT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// CreateObservationsTable creates the decomposed observation fact table.
// num_sold and total are NULL where undefined.
const CreateObservationsTable = `
CREATE TABLE IF NOT EXISTS observations (
    run_id VARCHAR NOT NULL,
    id BIGINT NOT NULL,
    date DATE NOT NULL,
    country VARCHAR NOT NULL,
    store VARCHAR NOT NULL,
    product VARCHAR NOT NULL,
    num_sold DOUBLE,
    is_test BOOLEAN NOT NULL,
    year INTEGER,
    month INTEGER,
    weekday INTEGER,
    dayofyear INTEGER,
    daynum INTEGER,
    weeknum INTEGER,
    gdp_factor DOUBLE,
    store_factor DOUBLE,
    product_factor DOUBLE,
    weekday_factor DOUBLE,
    dayofyear_factor DOUBLE,
    holiday BOOLEAN,
    holiday_response BOOLEAN,
    ratio DOUBLE,
    total DOUBLE,
    PRIMARY KEY (run_id, id)
);
`

// CreateSeasonalCurvesTable creates the day-of-year curve table
const CreateSeasonalCurvesTable = `
CREATE TABLE IF NOT EXISTS seasonal_curves (
    run_id VARCHAR NOT NULL,
    dayofyear INTEGER NOT NULL,
    value DOUBLE,
    PRIMARY KEY (run_id, dayofyear)
);
`

// CreateProductFitsTable creates the per-product regression table.
// coef and profile are JSON arrays.
const CreateProductFitsTable = `
CREATE TABLE IF NOT EXISTS product_fits (
    run_id VARCHAR NOT NULL,
    product VARCHAR NOT NULL,
    intercept DOUBLE NOT NULL,
    coef VARCHAR NOT NULL,
    alpha DOUBLE NOT NULL,
    samples INTEGER NOT NULL,
    profile VARCHAR NOT NULL,
    PRIMARY KEY (run_id, product)
);
`

// CreateFactorsTable creates the store and weekday factor table
const CreateFactorsTable = `
CREATE TABLE IF NOT EXISTS factors (
    run_id VARCHAR NOT NULL,
    kind VARCHAR NOT NULL,
    scope VARCHAR NOT NULL,
    value DOUBLE,
    PRIMARY KEY (run_id, kind, scope)
);
`

// InitializeSchema creates all required tables
func InitializeSchema(ctx context.Context, c *Client) error {
	schemas := []string{
		CreateRunsTable,
		CreateObservationsTable,
		CreateSeasonalCurvesTable,
		CreateProductFitsTable,
		CreateFactorsTable,
	}

	for _, schema := range schemas {
		if err := c.Exec(ctx, schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// DropAllTables drops all tables (use with caution)
func DropAllTables(ctx context.Context, c *Client) error {
	tables := []string{"factors", "product_fits", "seasonal_curves", "observations", "runs"}
	for _, table := range tables {
		if err := c.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
