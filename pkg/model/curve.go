package model

import (
	"fmt"
	"math"
)

// CurveLen is the number of day-of-year slots, covering leap years
const CurveLen = 366

// SeasonalCurve is a fitted function of day-of-year sampled at 1..366
type SeasonalCurve struct {
	values [CurveLen]float64
}

// NewSeasonalCurve builds a curve from predictions for days 1..365.
// Day 366 repeats day 365.
func NewSeasonalCurve(days365 []float64) (SeasonalCurve, error) {
	var c SeasonalCurve
	if len(days365) != CurveLen-1 {
		return c, fmt.Errorf("seasonal curve needs %d values, got %d", CurveLen-1, len(days365))
	}
	copy(c.values[:], days365)
	c.values[CurveLen-1] = days365[len(days365)-1]
	return c, nil
}

// CurveFromValues restores a curve from all 366 stored entries
func CurveFromValues(values []float64) (SeasonalCurve, error) {
	var c SeasonalCurve
	if len(values) != CurveLen {
		return c, fmt.Errorf("seasonal curve needs %d values, got %d", CurveLen, len(values))
	}
	copy(c.values[:], values)
	return c, nil
}

// Len returns the number of entries
func (c SeasonalCurve) Len() int {
	return CurveLen
}

// At returns the value for a 1-based day-of-year, NaN when out of range
func (c SeasonalCurve) At(dayOfYear int) float64 {
	if dayOfYear < 1 || dayOfYear > CurveLen {
		return math.NaN()
	}
	return c.values[dayOfYear-1]
}

// Values returns a copy of the entries; index 0 holds day 1
func (c SeasonalCurve) Values() []float64 {
	out := make([]float64, CurveLen)
	copy(out, c.values[:])
	return out
}

// Float32 returns the entries as a float32 vector for the profile index
func (c SeasonalCurve) Float32() []float32 {
	out := make([]float32, CurveLen)
	for i, v := range c.values {
		out[i] = float32(v)
	}
	return out
}
