package nats

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/tunogya/salesfactor/pkg/model"
	"github.com/tunogya/salesfactor/pkg/regression"
)

// Subject constants
const (
	SubjectRowsWrite     = "salesfactor.rows.write"
	SubjectCurvesWrite   = "salesfactor.curves.write"
	SubjectRunsCompleted = "salesfactor.runs.completed"
)

// Subjects returns every subject the stream carries
func Subjects() []string {
	return []string{SubjectRowsWrite, SubjectCurvesWrite, SubjectRunsCompleted}
}

// RowMsg is the wire form of a decomposed observation. JSON has no NaN,
// so undefined values travel as null.
type RowMsg struct {
	ID      int64     `json:"id"`
	Date    time.Time `json:"date"`
	Country string    `json:"country"`
	Store   string    `json:"store"`
	Product string    `json:"product"`
	NumSold *float64  `json:"num_sold"`
	IsTest  bool      `json:"is_test"`

	Year      int `json:"year"`
	Month     int `json:"month"`
	Weekday   int `json:"weekday"`
	DayOfYear int `json:"dayofyear"`
	DayNum    int `json:"daynum"`
	WeekNum   int `json:"weeknum"`

	GDPFactor       *float64 `json:"gdp_factor"`
	StoreFactor     *float64 `json:"store_factor"`
	ProductFactor   *float64 `json:"product_factor"`
	WeekdayFactor   *float64 `json:"weekday_factor"`
	DayOfYearFactor *float64 `json:"dayofyear_factor"`

	Holiday         bool `json:"holiday"`
	HolidayResponse bool `json:"holiday_response"`

	Ratio *float64 `json:"ratio"`
	Total *float64 `json:"total"`
}

// RowBatchMsg represents a batch of rows of one run
type RowBatchMsg struct {
	RunID string   `json:"run_id"`
	Seq   int      `json:"seq"`
	Rows  []RowMsg `json:"rows"`
}

// ProductFitMsg carries one product regression
type ProductFitMsg struct {
	Product string           `json:"product"`
	Model   regression.Model `json:"model"`
	Profile []*float64       `json:"profile"`
}

// CurveMsg carries the curve, product fits and factor tables of a run
type CurveMsg struct {
	RunID          string              `json:"run_id"`
	Curve          []*float64          `json:"curve"`
	ProductFits    []ProductFitMsg     `json:"product_fits"`
	StoreFactors   map[string]*float64 `json:"store_factors"`
	WeekdayFactors [7]*float64         `json:"weekday_factors"`
}

// RunCompletedMsg announces a finished run once all batches are out
type RunCompletedMsg struct {
	Run     model.Run `json:"run"`
	Batches int       `json:"batches"`
}

// Encode serializes a message to JSON bytes
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeRowBatch deserializes a RowBatchMsg from JSON bytes
func DecodeRowBatch(data []byte) (*RowBatchMsg, error) {
	var msg RowBatchMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &msg, nil
}

// DecodeCurve deserializes a CurveMsg from JSON bytes
func DecodeCurve(data []byte) (*CurveMsg, error) {
	var msg CurveMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &msg, nil
}

// DecodeRunCompleted deserializes a RunCompletedMsg from JSON bytes
func DecodeRunCompleted(data []byte) (*RunCompletedMsg, error) {
	var msg RunCompletedMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &msg, nil
}

// NewRowMsg converts an observation to its wire form
func NewRowMsg(o *model.Observation) RowMsg {
	return RowMsg{
		ID: o.ID, Date: o.Date, Country: o.Country, Store: o.Store, Product: o.Product,
		NumSold: optional(o.NumSold), IsTest: o.IsTest,
		Year: o.Year, Month: o.Month, Weekday: o.Weekday, DayOfYear: o.DayOfYear, DayNum: o.DayNum, WeekNum: o.WeekNum,
		GDPFactor:       optional(o.GDPFactor),
		StoreFactor:     optional(o.StoreFactor),
		ProductFactor:   optional(o.ProductFactor),
		WeekdayFactor:   optional(o.WeekdayFactor),
		DayOfYearFactor: optional(o.DayOfYearFactor),
		Holiday:         o.Holiday,
		HolidayResponse: o.HolidayResponse,
		Ratio:           optional(o.Ratio),
		Total:           optional(o.Total),
	}
}

// Observation converts the wire form back; the harmonic basis is not
// carried
func (m RowMsg) Observation() model.Observation {
	return model.Observation{
		ID: m.ID, Date: m.Date, Country: m.Country, Store: m.Store, Product: m.Product,
		NumSold: value(m.NumSold), IsTest: m.IsTest,
		Year: m.Year, Month: m.Month, Weekday: m.Weekday, DayOfYear: m.DayOfYear, DayNum: m.DayNum, WeekNum: m.WeekNum,
		GDPFactor:       value(m.GDPFactor),
		StoreFactor:     value(m.StoreFactor),
		ProductFactor:   value(m.ProductFactor),
		WeekdayFactor:   value(m.WeekdayFactor),
		DayOfYearFactor: value(m.DayOfYearFactor),
		Holiday:         m.Holiday,
		HolidayResponse: m.HolidayResponse,
		Ratio:           value(m.Ratio),
		Total:           value(m.Total),
	}
}

// RowBatches splits rows into messages of at most size rows
func RowBatches(runID string, rows []model.Observation, size int) []RowBatchMsg {
	if size <= 0 {
		size = len(rows)
	}
	var out []RowBatchMsg
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		msg := RowBatchMsg{RunID: runID, Seq: len(out), Rows: make([]RowMsg, 0, end-start)}
		for i := start; i < end; i++ {
			msg.Rows = append(msg.Rows, NewRowMsg(&rows[i]))
		}
		out = append(out, msg)
	}
	return out
}

// Observations converts every row of the batch
func (m *RowBatchMsg) Observations() []model.Observation {
	out := make([]model.Observation, len(m.Rows))
	for i, r := range m.Rows {
		out[i] = r.Observation()
	}
	return out
}

// CurveValues renders a curve for the wire
func CurveValues(c model.SeasonalCurve) []*float64 {
	return OptionalSlice(c.Values())
}

// OptionalSlice maps undefined entries to nil
func OptionalSlice(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = optional(v)
	}
	return out
}

// ValueSlice is the inverse of OptionalSlice: nil becomes NaN
func ValueSlice(values []*float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = value(v)
	}
	return out
}

// OptionalMap maps undefined values to nil
func OptionalMap(values map[string]float64) map[string]*float64 {
	out := make(map[string]*float64, len(values))
	for k, v := range values {
		out[k] = optional(v)
	}
	return out
}

// ValueMap is the inverse of OptionalMap
func ValueMap(values map[string]*float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for k, v := range values {
		out[k] = value(v)
	}
	return out
}

func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// SeasonalCurve restores the day-of-year curve of the message
func (m *CurveMsg) SeasonalCurve() (model.SeasonalCurve, error) {
	return model.CurveFromValues(ValueSlice(m.Curve))
}

// Weekdays restores the weekday factors, index 0 = Monday
func (m *CurveMsg) Weekdays() [7]float64 {
	var out [7]float64
	for d, v := range m.WeekdayFactors {
		out[d] = value(v)
	}
	return out
}

// NewWeekdayFactors renders weekday factors for the wire
func NewWeekdayFactors(factors [7]float64) [7]*float64 {
	var out [7]*float64
	for d, v := range factors {
		out[d] = optional(v)
	}
	return out
}

// ProfileCurve restores the product's seasonal profile
func (m ProductFitMsg) ProfileCurve() (model.SeasonalCurve, error) {
	return model.CurveFromValues(ValueSlice(m.Profile))
}
