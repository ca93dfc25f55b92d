package nats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/salesfactor/pkg/model"
	"github.com/tunogya/salesfactor/pkg/regression"
)

func testRows(n int) []model.Observation {
	date := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]model.Observation, n)
	for i := range rows {
		rows[i] = model.Observation{
			ID: int64(i), Date: date.AddDate(0, 0, i), Country: "Norway", Store: "s", Product: "p",
			NumSold: float64(10 * i), GDPFactor: 1.2, StoreFactor: 50, ProductFactor: 0.2,
			WeekdayFactor: 0.14, DayOfYearFactor: 0.9, Ratio: 1.5, Total: float64(10*i) / 1.5,
			DayOfYear: i + 1, Holiday: i == 0,
		}
	}
	return rows
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, []string{"salesfactor.rows.write", "salesfactor.curves.write", "salesfactor.runs.completed"}, Subjects())
	assert.Equal(t, "salesfactor", DefaultConfig().StreamName)
}

func TestRowBatchCarriesNaNAsNull(t *testing.T) {
	rows := testRows(2)
	rows[1].NumSold = math.NaN()
	rows[1].IsTest = true
	rows[1].Total = math.NaN()

	batches := RowBatches("r1", rows, 10)
	require.Len(t, batches, 1)

	data, err := Encode(batches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"num_sold":null`)

	msg, err := DecodeRowBatch(data)
	require.NoError(t, err)
	assert.Equal(t, "r1", msg.RunID)

	got := msg.Observations()
	require.Len(t, got, 2)
	assert.Equal(t, rows[0].NumSold, got[0].NumSold)
	assert.Equal(t, rows[0].Total, got[0].Total)
	assert.True(t, got[0].Holiday)
	assert.True(t, rows[0].Date.Equal(got[0].Date))
	assert.True(t, math.IsNaN(got[1].NumSold))
	assert.True(t, math.IsNaN(got[1].Total))
	assert.Equal(t, 1.5, got[1].Ratio)
}

func TestRowBatchesSplit(t *testing.T) {
	batches := RowBatches("r1", testRows(5), 2)
	require.Len(t, batches, 3)
	for i, b := range batches {
		assert.Equal(t, i, b.Seq)
	}
	assert.Len(t, batches[2].Rows, 1)
	assert.Equal(t, int64(4), batches[2].Rows[0].ID)

	assert.Len(t, RowBatches("r1", testRows(3), 0), 1)
	assert.Empty(t, RowBatches("r1", nil, 2))
}

func TestCurveMsgRoundTrip(t *testing.T) {
	days := make([]float64, model.CurveLen-1)
	for i := range days {
		days[i] = 100 + float64(i)
	}
	curve, err := model.NewSeasonalCurve(days)
	require.NoError(t, err)

	in := CurveMsg{
		RunID: "r1",
		Curve: CurveValues(curve),
		ProductFits: []ProductFitMsg{{
			Product: "p",
			Model:   regression.Model{Intercept: 0.5, Coef: []float64{0.1}, Alpha: 0.1, Samples: 3},
			Profile: CurveValues(curve),
		}},
		StoreFactors:   OptionalMap(map[string]float64{"s": 100, "new": math.NaN()}),
		WeekdayFactors: NewWeekdayFactors([7]float64{1, 2, 3, 4, 5, 6, math.NaN()}),
	}
	data, err := Encode(in)
	require.NoError(t, err)

	out, err := DecodeCurve(data)
	require.NoError(t, err)

	got, err := out.SeasonalCurve()
	require.NoError(t, err)
	assert.Equal(t, curve.Values(), got.Values())

	profile, err := out.ProductFits[0].ProfileCurve()
	require.NoError(t, err)
	assert.Equal(t, 464.0, profile.At(366))
	assert.Equal(t, in.ProductFits[0].Model, out.ProductFits[0].Model)

	stores := ValueMap(out.StoreFactors)
	assert.Equal(t, 100.0, stores["s"])
	assert.True(t, math.IsNaN(stores["new"]))

	wd := out.Weekdays()
	assert.Equal(t, 1.0, wd[0])
	assert.True(t, math.IsNaN(wd[6]))
}

func TestRunCompletedRoundTrip(t *testing.T) {
	run := model.Run{RunID: "r1", Fingerprint: "fp", Rows: 10, NaNRows: 1,
		FirstDate: time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
		LastDate:  time.Date(2017, 1, 10, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := Encode(RunCompletedMsg{Run: run, Batches: 2})
	require.NoError(t, err)

	msg, err := DecodeRunCompleted(data)
	require.NoError(t, err)
	assert.Equal(t, 2, msg.Batches)
	assert.Equal(t, run.RunID, msg.Run.RunID)
	assert.True(t, run.LastDate.Equal(msg.Run.LastDate))

	_, err = DecodeRunCompleted([]byte("{"))
	assert.ErrorIs(t, err, ErrMalformed)
}
