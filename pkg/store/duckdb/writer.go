package duckdb

import (
	"context"
	"fmt"

	"github.com/tunogya/salesfactor/pkg/model"
)

// Writer persists every artifact of a run through the repos
type Writer struct {
	Runs         *RunRepo
	Observations *ObservationRepo
	Curves       *CurveRepo
}

// NewWriter creates a writer over one client
func NewWriter(client *Client) *Writer {
	return &Writer{
		Runs:         NewRunRepo(client),
		Observations: NewObservationRepo(client),
		Curves:       NewCurveRepo(client),
	}
}

// Artifacts groups what a run produces besides the row table
type Artifacts struct {
	Curve          model.SeasonalCurve
	ProductFits    []ProductFit
	StoreFactors   map[string]float64
	WeekdayFactors [7]float64
}

// SaveArtifacts stores the curve, product fits and factor tables of a run
func (w *Writer) SaveArtifacts(ctx context.Context, runID string, a Artifacts) error {
	if err := w.Curves.InsertCurve(ctx, runID, a.Curve); err != nil {
		return err
	}
	if len(a.ProductFits) > 0 {
		if err := w.Curves.InsertProductFits(ctx, a.ProductFits); err != nil {
			return err
		}
	}
	if err := w.Curves.InsertFactors(ctx, runID, model.FactorStore, a.StoreFactors); err != nil {
		return err
	}
	return w.Curves.InsertFactors(ctx, runID, model.FactorWeekday, WeekdayScopes(a.WeekdayFactors))
}

// SaveRun stores a complete run in batches of batchSize rows
func (w *Writer) SaveRun(ctx context.Context, run *model.Run, rows []model.Observation, a Artifacts, batchSize int) error {
	if batchSize <= 0 {
		batchSize = len(rows)
	}
	if err := w.Runs.Insert(ctx, run); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		if err := w.Observations.InsertBatch(ctx, run.RunID, rows[start:end]); err != nil {
			return err
		}
	}
	return w.SaveArtifacts(ctx, run.RunID, a)
}
