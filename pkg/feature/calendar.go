package feature

import (
	"time"

	"github.com/tunogya/salesfactor/pkg/model"
)

// Deriver attaches calendar fields and the harmonic basis to every row
type Deriver struct{}

// NewDeriver creates a new date feature deriver
func NewDeriver() *Deriver {
	return &Deriver{}
}

type comboKey struct {
	country, store, product string
}

// Derive returns a new table with year, month, weekday, dayofyear,
// daynum, weeknum and the harmonic basis populated
func (d *Deriver) Derive(t *model.Table) *model.Table {
	first, _ := t.DateRange()
	daysInYear := DaysInYear(t)

	return t.Derive(model.StageDates, "", func(_ int, o *model.Observation) {
		date := model.CivilDate(o.Date)
		o.Date = date
		o.Year = date.Year()
		o.Month = int(date.Month())
		o.Weekday = MondayWeekday(date.Weekday())
		o.DayOfYear = date.YearDay()
		o.DayNum = DaysBetween(model.CivilDate(first), date)
		o.WeekNum = floorDiv(o.DayNum, 7)

		days := daysInYear[o.Year]
		if days <= 0 {
			days = CurveYearDays
		}
		o.Basis = Basis(float64(o.DayOfYear-1)/float64(days), o.Year%2)
	})
}

// DaysInYear infers the number of days per year from the row count of
// each year divided by the number of distinct country x store x product
// combinations. On a dense grid this is 365 or 366, with no calendar
// lookup.
func DaysInYear(t *model.Table) map[int]int {
	combos := make(map[comboKey]struct{})
	perYear := make(map[int]int)
	t.Each(func(_ int, o *model.Observation) {
		combos[comboKey{o.Country, o.Store, o.Product}] = struct{}{}
		perYear[model.CivilDate(o.Date).Year()]++
	})

	out := make(map[int]int, len(perYear))
	if len(combos) == 0 {
		return out
	}
	for year, n := range perYear {
		out[year] = n / len(combos)
	}
	return out
}

// MondayWeekday converts a time.Weekday to the 0 = Monday convention
func MondayWeekday(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// DaysBetween returns the whole-day offset from a to b
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
