package feature

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/salesfactor/pkg/model"
)

func grid(start time.Time, days int, countries, stores, products []string) []model.Observation {
	var rows []model.Observation
	id := int64(0)
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)
		for _, c := range countries {
			for _, s := range stores {
				for _, p := range products {
					rows = append(rows, model.Observation{
						ID: id, Date: date, Country: c, Store: s, Product: p, NumSold: 1,
					})
					id++
				}
			}
		}
	}
	return rows
}

func TestDeriveCalendarFields(t *testing.T) {
	start := time.Date(2015, 12, 28, 0, 0, 0, 0, time.UTC) // Monday
	tbl := model.NewTable(grid(start, 10, []string{"A"}, []string{"s"}, []string{"p"}))

	out := NewDeriver().Derive(tbl)
	require.True(t, out.HasStage(model.StageDates))

	first := out.Row(0)
	assert.Equal(t, 2015, first.Year)
	assert.Equal(t, 12, first.Month)
	assert.Equal(t, 0, first.Weekday)
	assert.Equal(t, 362, first.DayOfYear)
	assert.Equal(t, 0, first.DayNum)
	assert.Equal(t, 0, first.WeekNum)

	last := out.Row(9) // 2016-01-06, Wednesday
	assert.Equal(t, 2016, last.Year)
	assert.Equal(t, 2, last.Weekday)
	assert.Equal(t, 6, last.DayOfYear)
	assert.Equal(t, 9, last.DayNum)
	assert.Equal(t, 1, last.WeekNum)
}

func TestDaysInYearFromGrid(t *testing.T) {
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := grid(start, 365+366, []string{"A", "B"}, []string{"s1", "s2"}, []string{"p"})
	days := DaysInYear(model.NewTable(rows))

	assert.Equal(t, 365, days[2015])
	assert.Equal(t, 366, days[2016])
}

func TestDaysInYearMatchesDerivedYear(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	start := time.Date(2015, 1, 1, 23, 30, 0, 0, zone)
	rows := grid(start, 365+366, []string{"A"}, []string{"s"}, []string{"p"})
	tbl := model.NewTable(rows)

	days := DaysInYear(tbl)
	assert.Equal(t, map[int]int{2015: 365, 2016: 366}, days)

	perYear := make(map[int]int)
	NewDeriver().Derive(tbl).Each(func(_ int, o *model.Observation) {
		perYear[o.Year]++
		require.Equal(t, time.UTC, o.Date.Location())
	})
	assert.Equal(t, days, perYear)
}

func TestBasis(t *testing.T) {
	t.Run("start of year", func(t *testing.T) {
		h := Basis(0, 0)
		for i := 0; i < 8; i += 2 {
			assert.InDelta(t, 0.0, h[i], 1e-12)
			assert.InDelta(t, 1.0, h[i+1], 1e-12)
		}
		assert.InDelta(t, 0.0, h[8], 1e-12)
		assert.InDelta(t, 1.0, h[9], 1e-12)
	})

	t.Run("half-frequency pair spans two years", func(t *testing.T) {
		even := Basis(0.5, 0)
		odd := Basis(0.5, 1)
		assert.InDelta(t, 1.0, even[8], 1e-12)
		assert.InDelta(t, -1.0, odd[8], 1e-12)
		// annual harmonics ignore parity
		for i := 0; i < 8; i++ {
			assert.InDelta(t, even[i], odd[i], 1e-12)
		}
	})

	t.Run("quarter year", func(t *testing.T) {
		h := Basis(0.25, 0)
		assert.InDelta(t, 1.0, h[6], 1e-12) // sin t
		assert.InDelta(t, 0.0, h[7], 1e-12) // cos t
		assert.InDelta(t, math.Sin(math.Pi), h[4], 1e-12)
	})
}

func TestDayOfYearBasisMatchesRowBasisOnEvenYears(t *testing.T) {
	start := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	out := NewDeriver().Derive(model.NewTable(grid(start, 365, []string{"A"}, []string{"s"}, []string{"p"})))

	row := out.Row(100)
	assert.Equal(t, DayOfYearBasis(row.DayOfYear), row.Basis)
}

func TestMondayWeekday(t *testing.T) {
	assert.Equal(t, 0, MondayWeekday(time.Monday))
	assert.Equal(t, 5, MondayWeekday(time.Saturday))
	assert.Equal(t, 6, MondayWeekday(time.Sunday))
}
