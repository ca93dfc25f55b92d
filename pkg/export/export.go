// Package export maps a decomposition result onto the shapes of the
// storage, vector index and queue packages.
package export

import (
	"fmt"

	"github.com/tunogya/salesfactor/pkg/decompose"
	"github.com/tunogya/salesfactor/pkg/queue/nats"
	"github.com/tunogya/salesfactor/pkg/store/duckdb"
	"github.com/tunogya/salesfactor/pkg/store/milvus"
)

// Artifacts returns the non-row outputs of a run for DuckDB
func Artifacts(res *decompose.Result) duckdb.Artifacts {
	fits := make([]duckdb.ProductFit, 0, len(res.ProductFits))
	for _, f := range res.ProductFits {
		fits = append(fits, duckdb.ProductFit{
			RunID:   res.Run.RunID,
			Product: f.Product,
			Model:   *f.Model,
			Profile: f.Profile,
		})
	}
	return duckdb.Artifacts{
		Curve:          res.Curve,
		ProductFits:    fits,
		StoreFactors:   res.StoreFactors,
		WeekdayFactors: res.Weekday.Factors,
	}
}

// Profiles returns the vectors to index: the day-of-year curve and one
// profile per product
func Profiles(res *decompose.Result) []*milvus.ProfileData {
	out := make([]*milvus.ProfileData, 0, len(res.ProductFits)+1)
	out = append(out, milvus.NewProfileData(res.Run.RunID, milvus.KindDayOfYear, "", res.Curve))
	for _, f := range res.ProductFits {
		out = append(out, milvus.NewProfileData(res.Run.RunID, milvus.KindProduct, f.Product, f.Profile))
	}
	return out
}

// Messages is a run rendered for the queue, in publication order
type Messages struct {
	Rows      []nats.RowBatchMsg
	Curve     nats.CurveMsg
	Completed nats.RunCompletedMsg
}

// NewMessages renders a run for the queue with batchSize rows per batch
func NewMessages(res *decompose.Result, batchSize int) Messages {
	runID := res.Run.RunID
	rows := nats.RowBatches(runID, res.Table.Rows(), batchSize)

	fits := make([]nats.ProductFitMsg, 0, len(res.ProductFits))
	for _, f := range res.ProductFits {
		fits = append(fits, nats.ProductFitMsg{
			Product: f.Product,
			Model:   *f.Model,
			Profile: nats.CurveValues(f.Profile),
		})
	}

	return Messages{
		Rows: rows,
		Curve: nats.CurveMsg{
			RunID:          runID,
			Curve:          nats.CurveValues(res.Curve),
			ProductFits:    fits,
			StoreFactors:   nats.OptionalMap(res.StoreFactors),
			WeekdayFactors: nats.NewWeekdayFactors(res.Weekday.Factors),
		},
		Completed: nats.RunCompletedMsg{Run: *res.Run, Batches: len(rows)},
	}
}

// ArtifactsFromCurve converts a received curve message for DuckDB
func ArtifactsFromCurve(msg *nats.CurveMsg) (duckdb.Artifacts, error) {
	curve, err := msg.SeasonalCurve()
	if err != nil {
		return duckdb.Artifacts{}, fmt.Errorf("run %s: %w", msg.RunID, err)
	}

	fits := make([]duckdb.ProductFit, 0, len(msg.ProductFits))
	for _, f := range msg.ProductFits {
		profile, err := f.ProfileCurve()
		if err != nil {
			return duckdb.Artifacts{}, fmt.Errorf("run %s, product %s: %w", msg.RunID, f.Product, err)
		}
		fits = append(fits, duckdb.ProductFit{
			RunID:   msg.RunID,
			Product: f.Product,
			Model:   f.Model,
			Profile: profile,
		})
	}

	return duckdb.Artifacts{
		Curve:          curve,
		ProductFits:    fits,
		StoreFactors:   nats.ValueMap(msg.StoreFactors),
		WeekdayFactors: msg.Weekdays(),
	}, nil
}
