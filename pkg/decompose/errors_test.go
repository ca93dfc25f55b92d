package decompose

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/salesfactor/pkg/model"
)

func TestRunMissingGDPReference(t *testing.T) {
	gdp := testGDP()
	delete(gdp["B"], 2018)
	e := newTestEngine(t, testConfig(), gdp, nil)
	rows := salesGrid(day(2017, 1, 1), twoYears, []string{"A", "B"}, []string{"s"}, []string{"p"}, constant(100))

	_, err := e.Run(context.Background(), rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingReference))

	var missing *MissingReferenceError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "B", missing.Country)
	assert.Equal(t, 2018, missing.Year)
	assert.Contains(t, err.Error(), `"B"`)
	assert.Contains(t, err.Error(), "2018")
}

func TestRunUnknownLocale(t *testing.T) {
	cfg := testConfig()
	delete(cfg.HolidayLocales, "B")
	e := newTestEngine(t, cfg, nil, nil)
	rows := salesGrid(day(2017, 1, 1), 30, []string{"A", "B"}, []string{"s"}, []string{"p"}, constant(100))

	_, err := e.Run(context.Background(), rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownLocale)

	var unknown *UnknownLocaleError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "B", unknown.Country)
}

func TestRunRejectsBadInput(t *testing.T) {
	e := newTestEngine(t, testConfig(), nil, nil)

	_, err := e.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyTable)

	rows := salesGrid(day(2017, 1, 1), 10, []string{"A", "C"}, []string{"s"}, []string{"p"}, constant(1))
	_, err = e.Run(context.Background(), rows)
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Contains(t, err.Error(), `"C"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rows = salesGrid(day(2017, 1, 1), 10, []string{"A"}, []string{"s"}, []string{"p"}, constant(1))
	_, err = e.Run(ctx, rows)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStageOrder(t *testing.T) {
	e := newTestEngine(t, testConfig(), nil, nil)
	ctx := context.Background()
	raw := model.NewTable(salesGrid(day(2017, 1, 1), 14, []string{"A"}, []string{"s"}, []string{"p"}, constant(1)))

	_, err := e.JoinGDP(ctx, raw)
	assert.ErrorIs(t, err, ErrStageOrder)

	dated, err := e.DeriveDates(raw)
	require.NoError(t, err)
	_, err = e.DeriveDates(dated)
	assert.ErrorIs(t, err, ErrStageOrder)

	tests := []struct {
		name string
		run  func(*model.Table) error
	}{
		{"store before gdp", func(t *model.Table) error { _, _, err := e.EstimateStores(t); return err }},
		{"product before store", func(t *model.Table) error { _, _, err := e.FitProducts(ctx, t); return err }},
		{"weekday before store", func(t *model.Table) error { _, _, err := e.EstimateWeekdays(t); return err }},
		{"dayofyear before weekday", func(t *model.Table) error { _, _, err := e.FitDayOfYear(t); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(dated), ErrStageOrder)
		})
	}

	// holidays only need dates
	_, err = e.TagHolidays(ctx, dated)
	assert.NoError(t, err)
}

func TestNaNRowsAreSummarized(t *testing.T) {
	cfg := testConfig()
	cfg.Stores = []string{"s", "new"}
	e := newTestEngine(t, cfg, nil, nil)

	// store "new" only appears in test rows, so it has no store factor
	sold := func(_, s, _ string, _ time.Time) float64 {
		if s == "new" {
			return math.NaN()
		}
		return 100
	}
	rows := salesGrid(day(2017, 1, 1), twoYears, []string{"A", "B"}, []string{"s", "new"}, []string{"p"}, sold)
	for i := range rows {
		rows[i].IsTest = rows[i].Store == "new"
	}

	res, err := e.Run(context.Background(), rows)
	require.NoError(t, err)

	newRows := len(rows) / 2
	assert.Equal(t, newRows, res.NaN.Rows)
	assert.Equal(t, newRows, res.NaN.ByField[string(model.FactorStore)])
	assert.Equal(t, newRows, res.NaN.ByField["ratio"])
	assert.Zero(t, res.NaN.ByField["total"])
	assert.Equal(t, newRows, res.Run.NaNRows)

	res.Table.Each(func(_ int, o *model.Observation) {
		if o.IsTest {
			require.True(t, math.IsNaN(o.StoreFactor))
			require.True(t, math.IsNaN(o.Total))
			return
		}
		require.Equal(t, 100.0, o.StoreFactor)
	})
}

func TestCompose(t *testing.T) {
	o := &model.Observation{NumSold: 60, GDPFactor: 2, StoreFactor: 3, ProductFactor: 0.5}
	Compose(o, []model.FactorKind{model.FactorGDP, model.FactorStore})
	assert.Equal(t, 6.0, o.Ratio)
	assert.Equal(t, 10.0, o.Total)
	assert.Equal(t, 60.0, Recompose(o, o.Total))

	Compose(o, []model.FactorKind{model.FactorGDP, model.FactorStore, model.FactorProduct})
	assert.Equal(t, 3.0, o.Ratio)
	assert.Equal(t, 20.0, o.Total)

	assert.Equal(t, 1.0, Ratio(o, nil))
}

func TestMedian(t *testing.T) {
	assert.True(t, math.IsNaN(median(nil)))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))

	in := []float64{3, 1, 2}
	median(in)
	assert.Equal(t, []float64{3, 1, 2}, in)

	assert.Equal(t, 2.0, meanDefined([]float64{1, math.NaN(), 3}))
	assert.True(t, math.IsNaN(meanDefined([]float64{math.NaN()})))
}
