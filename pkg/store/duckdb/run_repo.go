package duckdb

import (
	"context"
	"fmt"

	"github.com/tunogya/salesfactor/pkg/model"
)

// RunRepo handles run record persistence
type RunRepo struct {
	client *Client
}

// NewRunRepo creates a new run repository
func NewRunRepo(client *Client) *RunRepo {
	return &RunRepo{client: client}
}

// Insert records a run. Run IDs are deterministic, so a repeated run
// keeps its first record.
func (r *RunRepo) Insert(ctx context.Context, run *model.Run) error {
	query := `
		INSERT INTO runs (run_id, fingerprint, row_count, first_date, last_date, nan_rows, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO NOTHING
	`
	return r.client.Exec(ctx, query,
		run.RunID, run.Fingerprint, run.Rows, run.FirstDate, run.LastDate, run.NaNRows, run.CreatedAt,
	)
}

// Exists checks if a run exists by ID
func (r *RunRepo) Exists(ctx context.Context, runID string) (bool, error) {
	var count int
	row := r.client.QueryRow(ctx, "SELECT COUNT(*) FROM runs WHERE run_id = ?", runID)
	err := row.Scan(&count)
	return count > 0, err
}

// GetByID retrieves a run by ID
func (r *RunRepo) GetByID(ctx context.Context, runID string) (*model.Run, error) {
	query := `
		SELECT run_id, fingerprint, row_count, first_date, last_date, nan_rows, created_at
		FROM runs
		WHERE run_id = ?
	`

	row := r.client.QueryRow(ctx, query, runID)
	var run model.Run
	err := row.Scan(&run.RunID, &run.Fingerprint, &run.Rows, &run.FirstDate, &run.LastDate, &run.NaNRows, &run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}

	return &run, nil
}

// Latest returns the most recently created run
func (r *RunRepo) Latest(ctx context.Context) (*model.Run, error) {
	var runID string
	row := r.client.QueryRow(ctx, "SELECT run_id FROM runs ORDER BY created_at DESC LIMIT 1")
	if err := row.Scan(&runID); err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return r.GetByID(ctx, runID)
}
