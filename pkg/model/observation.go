package model

import (
	"math"
	"time"
)

// HarmonicDim is the width of the harmonic basis vector
const HarmonicDim = 10

// HarmonicColumns names the basis entries in vector order
var HarmonicColumns = [HarmonicDim]string{
	"sin 4t", "cos 4t",
	"sin 3t", "cos 3t",
	"sin 2t", "cos 2t",
	"sin t", "cos t",
	"sin t/2", "cos t/2",
}

// Harmonics is the sin/cos basis of a row's position within its year
type Harmonics [HarmonicDim]float64

// Slice returns the basis as a float64 slice
func (h Harmonics) Slice() []float64 {
	out := make([]float64, HarmonicDim)
	copy(out, h[:])
	return out
}

// Observation is one (date, country, store, product) row plus everything
// the decomposition stages attach to it
type Observation struct {
	// Identifying keys
	ID      int64     `json:"id"`
	Date    time.Time `json:"date"`
	Country string    `json:"country"`
	Store   string    `json:"store"`
	Product string    `json:"product"`

	// Raw measurement, NaN when unknown (test rows)
	NumSold float64 `json:"num_sold"`
	IsTest  bool    `json:"is_test"`

	// Calendar fields
	Year      int `json:"year"`
	Month     int `json:"month"`
	Weekday   int `json:"weekday"` // 0 = Monday
	DayOfYear int `json:"dayofyear"`
	DayNum    int `json:"daynum"`
	WeekNum   int `json:"weeknum"`

	Basis Harmonics `json:"basis"`

	// Factors
	GDPFactor       float64 `json:"gdp_factor"`
	StoreFactor     float64 `json:"store_factor"`
	ProductFactor   float64 `json:"product_factor"`
	WeekdayFactor   float64 `json:"weekday_factor"`
	DayOfYearFactor float64 `json:"dayofyear_factor"`

	Holiday         bool `json:"holiday"`
	HolidayResponse bool `json:"holiday_response"`

	Ratio float64 `json:"ratio"`
	Total float64 `json:"total"`
}

// HasSales reports whether the row carries a usable num_sold value
func (o *Observation) HasSales() bool {
	return !math.IsNaN(o.NumSold) && !math.IsInf(o.NumSold, 0)
}

// IsTrain reports whether the row may be used for factor estimation
func (o *Observation) IsTrain() bool {
	return !o.IsTest && o.HasSales()
}

// Factor returns the value of the given factor kind
func (o *Observation) Factor(kind FactorKind) float64 {
	switch kind {
	case FactorGDP:
		return o.GDPFactor
	case FactorStore:
		return o.StoreFactor
	case FactorProduct:
		return o.ProductFactor
	case FactorWeekday:
		return o.WeekdayFactor
	case FactorDayOfYear:
		return o.DayOfYearFactor
	default:
		return math.NaN()
	}
}

// DayKey returns the calendar date as YYYY-MM-DD
func DayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// CivilDate truncates t to midnight UTC of its calendar date
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
