package feature

import (
	"math"

	"github.com/tunogya/salesfactor/pkg/model"
)

// CurveYearDays is the year length used when evaluating a day-of-year curve
const CurveYearDays = 365

// Basis computes the harmonic basis for a fractional position within the
// year (0 <= partOfYear < 1). Four annual frequencies come first, then a
// half-frequency pair whose period spans two years; yearParity (year % 2)
// places the row within that two-year cycle.
func Basis(partOfYear float64, yearParity int) model.Harmonics {
	var h model.Harmonics
	idx := 0
	for k := 4; k >= 1; k-- {
		angle := 2 * math.Pi * float64(k) * partOfYear
		h[idx] = math.Sin(angle)
		h[idx+1] = math.Cos(angle)
		idx += 2
	}

	partOf2Year := partOfYear + float64(yearParity%2)
	h[idx] = math.Sin(math.Pi * partOf2Year)
	h[idx+1] = math.Cos(math.Pi * partOf2Year)
	return h
}

// DayOfYearBasis is the basis used to fit and sample day-of-year curves.
// Aggregates by day-of-year carry no year, so parity is fixed at 0.
func DayOfYearBasis(dayOfYear int) model.Harmonics {
	return Basis(float64(dayOfYear-1)/CurveYearDays, 0)
}
