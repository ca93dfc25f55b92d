package model

import (
	"sort"
	"time"
)

// FactorKind names one multiplicative factor
type FactorKind string

const (
	FactorGDP       FactorKind = "gdp_factor"
	FactorStore     FactorKind = "store_factor"
	FactorProduct   FactorKind = "product_factor"
	FactorWeekday   FactorKind = "weekday_factor"
	FactorDayOfYear FactorKind = "dayofyear_factor"
)

// AllFactors lists every factor kind in composition order
var AllFactors = []FactorKind{FactorGDP, FactorProduct, FactorStore, FactorWeekday, FactorDayOfYear}

// StageName identifies a pipeline stage
type StageName string

const (
	StageDates     StageName = "dates"
	StageGDP       StageName = "gdp"
	StageStore     StageName = "store"
	StageProduct   StageName = "product"
	StageHoliday   StageName = "holiday"
	StageWeekday   StageName = "weekday"
	StageDayOfYear StageName = "dayofyear"
)

// Table is an immutable snapshot of the observation grid after some
// sequence of stages. Stages never modify a Table in place; they derive
// a new one with Derive.
type Table struct {
	rows    []Observation
	stages  []StageName
	factors []FactorKind
}

// NewTable creates a table owning a copy of rows
func NewTable(rows []Observation) *Table {
	owned := make([]Observation, len(rows))
	copy(owned, rows)
	return &Table{rows: owned}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of row i
func (t *Table) Row(i int) Observation {
	return t.rows[i]
}

// Rows returns a copy of all rows
func (t *Table) Rows() []Observation {
	out := make([]Observation, len(t.rows))
	copy(out, t.rows)
	return out
}

// Each calls fn for every row without copying the slice
func (t *Table) Each(fn func(i int, o *Observation)) {
	for i := range t.rows {
		row := t.rows[i]
		fn(i, &row)
	}
}

// Stages returns the stages already applied, in order
func (t *Table) Stages() []StageName {
	out := make([]StageName, len(t.stages))
	copy(out, t.stages)
	return out
}

// HasStage reports whether stage has been applied
func (t *Table) HasStage(stage StageName) bool {
	for _, s := range t.stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Factors returns the factor kinds estimated so far, in composition order
func (t *Table) Factors() []FactorKind {
	var out []FactorKind
	for _, k := range AllFactors {
		for _, f := range t.factors {
			if f == k {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// Derive builds the next table: fn receives a private copy of every row
// and may set derived fields on it. The stage, and the factor it adds
// (if any), are recorded on the result.
func (t *Table) Derive(stage StageName, factor FactorKind, fn func(i int, o *Observation)) *Table {
	next := &Table{
		rows:    make([]Observation, len(t.rows)),
		stages:  append(t.Stages(), stage),
		factors: append([]FactorKind(nil), t.factors...),
	}
	copy(next.rows, t.rows)
	if factor != "" {
		next.factors = append(next.factors, factor)
	}
	for i := range next.rows {
		fn(i, &next.rows[i])
	}
	return next
}

// Distinct returns the sorted distinct values of key over all rows
func (t *Table) Distinct(key func(o *Observation) string) []string {
	seen := make(map[string]struct{})
	for i := range t.rows {
		seen[key(&t.rows[i])] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DateRange returns the first and last dates in the table
func (t *Table) DateRange() (first, last time.Time) {
	for i := range t.rows {
		d := t.rows[i].Date
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}
	return first, last
}
