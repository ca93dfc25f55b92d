package decompose

import (
	"context"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/salesfactor/pkg/data"
	"github.com/tunogya/salesfactor/pkg/holiday"
	"github.com/tunogya/salesfactor/pkg/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// salesGrid builds a dense grid from start over days with sold(country,
// store, product, date) units per row
func salesGrid(start time.Time, days int, countries, stores, products []string, sold func(c, s, p string, d time.Time) float64) []model.Observation {
	var rows []model.Observation
	id := int64(0)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		for _, c := range countries {
			for _, s := range stores {
				for _, p := range products {
					rows = append(rows, model.Observation{
						ID: id, Date: date, Country: c, Store: s, Product: p,
						NumSold: sold(c, s, p, date),
					})
					id++
				}
			}
		}
	}
	return rows
}

func constant(v float64) func(c, s, p string, d time.Time) float64 {
	return func(string, string, string, time.Time) float64 { return v }
}

func testConfig() Config {
	return Config{
		Countries:            []string{"A", "B"},
		Stores:               []string{"s"},
		Products:             []string{"p"},
		HolidayResponseDays:  3,
		HolidayLocales:       map[string]string{"A": "AA", "B": "BB"},
		RidgeAlpha:           0.1,
		WeekdayTrailingWeeks: 60,
		Workers:              2,
	}
}

func testGDP() data.GDPTable {
	g := data.GDPTable{}
	g.Set("A", 2017, 1.0)
	g.Set("A", 2018, 1.1)
	g.Set("B", 2017, 2.0)
	g.Set("B", 2018, 2.2)
	return g
}

func newTestEngine(t *testing.T, cfg Config, gdp data.GDPProvider, cal holiday.Calendar) *Engine {
	t.Helper()
	if gdp == nil {
		gdp = testGDP()
	}
	if cal == nil {
		cal = holiday.NewStaticCalendar()
	}
	e, err := NewEngine(cfg, gdp, cal, nil)
	require.NoError(t, err)
	return e
}

// twoYears is 2017-01-01 .. 2018-12-31
const twoYears = 730

func TestRunConstantSales(t *testing.T) {
	e := newTestEngine(t, testConfig(), nil, nil)
	rows := salesGrid(day(2017, 1, 1), twoYears, []string{"A", "B"}, []string{"s"}, []string{"p"}, constant(100))

	res, err := e.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, len(rows), res.Table.Len())
	assert.Equal(t, []model.FactorKind{
		model.FactorGDP, model.FactorProduct, model.FactorStore, model.FactorWeekday, model.FactorDayOfYear,
	}, res.Table.Factors())

	assert.Equal(t, map[string]float64{"s": 100}, res.StoreFactors)
	for d, f := range res.Weekday.Factors {
		assert.InDelta(t, 1.0/7, f, 1e-12, "weekday %d", d)
	}
	assert.Len(t, res.Weekday.ByCountry, 2)

	require.Len(t, res.ProductFits, 1)
	assert.Equal(t, "p", res.ProductFits[0].Product)
	assert.Len(t, res.ProductFits[0].Actual, twoYears)

	assert.Equal(t, model.CurveLen, res.Curve.Len())
	assert.Equal(t, res.Curve.At(365), res.Curve.At(366))
	for doy := 1; doy <= model.CurveLen; doy++ {
		require.InDelta(t, 100, res.Curve.At(doy), 1e-6, "day %d", doy)
	}

	gdp := testGDP()
	res.Table.Each(func(_ int, o *model.Observation) {
		want, _ := gdp.Lookup(o.Country, o.Year)
		require.Equal(t, want, o.GDPFactor)
		require.Equal(t, 100.0, o.StoreFactor)
		require.InDelta(t, 1, o.ProductFactor, 1e-9)

		ratio := o.GDPFactor * o.ProductFactor * o.StoreFactor * o.WeekdayFactor * o.DayOfYearFactor
		require.InDelta(t, ratio, o.Ratio, 1e-9)
		require.InDelta(t, o.NumSold/o.Ratio, o.Total, 1e-12)
		require.InDelta(t, o.NumSold, Recompose(o, o.Total), 1e-9)
	})

	assert.Zero(t, res.NaN.Rows)
	require.NotNil(t, res.Run)
	assert.Equal(t, len(rows), res.Run.Rows)
	assert.Equal(t, day(2017, 1, 1), res.Run.FirstDate)
	assert.Equal(t, day(2018, 12, 31), res.Run.LastDate)
}

func TestRunLeavesInputUntouched(t *testing.T) {
	e := newTestEngine(t, testConfig(), nil, nil)
	rows := salesGrid(day(2017, 1, 1), twoYears, []string{"A", "B"}, []string{"s"}, []string{"p"}, constant(100))
	before := make([]model.Observation, len(rows))
	copy(before, rows)

	_, err := e.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, before, rows)
}

func TestRunDeterministic(t *testing.T) {
	sold := func(c, s, p string, d time.Time) float64 {
		v := 50 + 10*math.Sin(2*math.Pi*float64(d.YearDay())/365) + float64(d.Weekday())
		if c == "B" {
			v *= 2
		}
		if p == "q" {
			v /= 3
		}
		return math.Round(v)
	}
	cfg := testConfig()
	cfg.Products = []string{"p", "q"}
	cfg.Workers = 4
	e := newTestEngine(t, cfg, nil, nil)
	rows := salesGrid(day(2017, 1, 1), twoYears, []string{"A", "B"}, []string{"s"}, []string{"p", "q"}, sold)

	first, err := e.Run(context.Background(), rows)
	require.NoError(t, err)
	second, err := e.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, first.Table.Rows(), second.Table.Rows())
	assert.Equal(t, first.Curve.Values(), second.Curve.Values())
	assert.Equal(t, first.Run.RunID, second.Run.RunID)
	require.Len(t, first.ProductFits, 2)
	assert.Equal(t, "p", first.ProductFits[0].Product)
	assert.Equal(t, "q", first.ProductFits[1].Product)
	assert.Equal(t, first.ProductFits[0].Model, second.ProductFits[0].Model)
}

func TestProductShares(t *testing.T) {
	cfg := testConfig()
	cfg.Products = []string{"p", "q"}
	e := newTestEngine(t, cfg, nil, nil)
	sold := func(_, _, p string, _ time.Time) float64 {
		if p == "p" {
			return 75
		}
		return 25
	}
	rows := salesGrid(day(2017, 1, 1), twoYears, []string{"A", "B"}, []string{"s"}, []string{"p", "q"}, sold)

	res, err := e.Run(context.Background(), rows)
	require.NoError(t, err)

	for i, want := range []float64{0.75, 0.25} {
		fit := res.ProductFits[i]
		for doy := 1; doy <= model.CurveLen; doy++ {
			require.InDelta(t, want, fit.Profile.At(doy), 1e-9)
		}
	}
	res.Table.Each(func(_ int, o *model.Observation) {
		if o.Product == "p" {
			require.InDelta(t, 0.75, o.ProductFactor, 1e-9)
		} else {
			require.InDelta(t, 0.25, o.ProductFactor, 1e-9)
		}
	})
}

func TestExcludedCountriesLeftOutOfStoreEstimate(t *testing.T) {
	cfg := testConfig()
	cfg.ExcludedCountries = []string{"B"}
	e := newTestEngine(t, cfg, nil, nil)
	sold := func(c, _, _ string, _ time.Time) float64 {
		if c == "B" {
			return 1000
		}
		return 100
	}
	rows := salesGrid(day(2017, 1, 1), twoYears, []string{"A", "B"}, []string{"s"}, []string{"p"}, sold)

	res, err := e.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.StoreFactors["s"])
	assert.Contains(t, res.Weekday.ByCountry, "A")
	assert.NotContains(t, res.Weekday.ByCountry, "B")
}

func TestHolidayResponseWindow(t *testing.T) {
	cal := holiday.NewStaticCalendar()
	cal.Add("AA", day(2017, 3, 1))
	e := newTestEngine(t, testConfig(), nil, cal)
	rows := salesGrid(day(2017, 1, 1), twoYears, []string{"A", "B"}, []string{"s"}, []string{"p"}, constant(100))

	res, err := e.Run(context.Background(), rows)
	require.NoError(t, err)

	window := map[time.Time]bool{day(2017, 3, 1): true, day(2017, 3, 2): true, day(2017, 3, 3): true}
	res.Table.Each(func(_ int, o *model.Observation) {
		isA := o.Country == "A"
		require.Equal(t, isA && o.Date.Equal(day(2017, 3, 1)), o.Holiday, "%s %s", o.Country, model.DayKey(o.Date))
		require.Equal(t, isA && window[o.Date], o.HolidayResponse, "%s %s", o.Country, model.DayKey(o.Date))
	})
}

func TestExcludeHolidayResponseFromFit(t *testing.T) {
	cal := holiday.NewStaticCalendar()
	cal.Add("AA", day(2017, 3, 1), day(2018, 3, 1))
	cal.Add("BB", day(2017, 3, 1), day(2018, 3, 1))
	cfg := testConfig()
	cfg.HolidayResponseDays = 1
	cfg.ExcludeHolidayResponseFromFit = true
	e := newTestEngine(t, cfg, nil, cal)

	rows := salesGrid(day(2017, 1, 1), twoYears, []string{"A", "B"}, []string{"s"}, []string{"p"}, constant(100))
	res, err := e.Run(context.Background(), rows)
	require.NoError(t, err)

	// March 1st is day 60 in both non-leap years; every country is on
	// holiday so the day has no fit target
	_, fit, err := e.FitDayOfYear(throughWeekdays(t, e, rows))
	require.NoError(t, err)
	assert.NotContains(t, fit.Target, 60)
	assert.Contains(t, fit.Target, 61)
	assert.InDelta(t, 100, res.Curve.At(60), 1e-6)
}

// throughWeekdays applies every stage before day-of-year
func throughWeekdays(t *testing.T, e *Engine, rows []model.Observation) *model.Table {
	t.Helper()
	ctx := context.Background()
	tbl, err := e.DeriveDates(model.NewTable(rows))
	require.NoError(t, err)
	tbl, err = e.JoinGDP(ctx, tbl)
	require.NoError(t, err)
	tbl, _, err = e.EstimateStores(tbl)
	require.NoError(t, err)
	tbl, _, err = e.FitProducts(ctx, tbl)
	require.NoError(t, err)
	tbl, err = e.TagHolidays(ctx, tbl)
	require.NoError(t, err)
	tbl, _, err = e.EstimateWeekdays(tbl)
	require.NoError(t, err)
	return tbl
}

func TestFactorsIgnoreTestRowsAndTrailingWeeks(t *testing.T) {
	gdp := testGDP()
	gdp.Set("A", 2019, 1.2)
	gdp.Set("B", 2019, 2.4)
	e := newTestEngine(t, testConfig(), gdp, nil)

	// Mondays of 2018 fall in the trailing 60 weeks
	sold := func(_, _, _ string, d time.Time) float64 {
		if d.Year() == 2018 && d.Weekday() == time.Monday {
			return 1000
		}
		return 100
	}
	train := salesGrid(day(2017, 1, 1), twoYears, []string{"A", "B"}, []string{"s"}, []string{"p"}, sold)

	test := salesGrid(day(2019, 1, 1), 28, []string{"A", "B"}, []string{"s"}, []string{"p"}, constant(1e9))
	for i := range test {
		test[i].ID += int64(len(train))
		test[i].IsTest = true
	}

	trainOnly, err := e.Run(context.Background(), train)
	require.NoError(t, err)
	withTest, err := e.Run(context.Background(), append(slices.Clone(train), test...))
	require.NoError(t, err)

	var sum float64
	for _, o := range train {
		sum += o.NumSold
	}
	wantStore := sum / float64(len(train))
	assert.InDelta(t, wantStore, withTest.StoreFactors["s"], 1e-9)
	assert.Equal(t, trainOnly.StoreFactors, withTest.StoreFactors)

	for d, f := range withTest.Weekday.Factors {
		assert.InDelta(t, 1.0/7, f, 1e-12, "weekday %d", d)
	}
	assert.Equal(t, trainOnly.Weekday, withTest.Weekday)

	withTest.Table.Each(func(_ int, o *model.Observation) {
		require.InDelta(t, wantStore, o.StoreFactor, 1e-9)
		require.InDelta(t, 1.0/7, o.WeekdayFactor, 1e-12)
	})
}
