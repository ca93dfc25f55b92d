package decompose

import (
	"github.com/tunogya/salesfactor/pkg/model"
)

// Compose sets ratio to the product of the given factors and the
// baseline total to num_sold / ratio. Every stage that adds a factor
// recomposes through here, so the direction is the same everywhere.
func Compose(o *model.Observation, kinds []model.FactorKind) {
	o.Ratio = Ratio(o, kinds)
	o.Total = o.NumSold / o.Ratio
}

// Ratio returns the product of the given factors of a row
func Ratio(o *model.Observation, kinds []model.FactorKind) float64 {
	ratio := 1.0
	for _, k := range kinds {
		ratio *= o.Factor(k)
	}
	return ratio
}

// Recompose turns a baseline back into units: total * ratio
func Recompose(o *model.Observation, total float64) float64 {
	return total * o.Ratio
}

// NaNSummary counts rows whose values are undefined after a run
type NaNSummary struct {
	Rows    int            `json:"rows"`
	ByField map[string]int `json:"by_field"`
}

// summarizeNaN inspects every factor, the ratio, and (for rows with
// sales) the total
func summarizeNaN(t *model.Table) NaNSummary {
	s := NaNSummary{ByField: make(map[string]int)}
	kinds := t.Factors()

	t.Each(func(_ int, o *model.Observation) {
		bad := false
		for _, k := range kinds {
			if undefined(o.Factor(k)) {
				s.ByField[string(k)]++
				bad = true
			}
		}
		if undefined(o.Ratio) || o.Ratio == 0 {
			s.ByField["ratio"]++
			bad = true
		}
		if o.HasSales() && undefined(o.Total) {
			s.ByField["total"]++
			bad = true
		}
		if bad {
			s.Rows++
		}
	})
	return s
}
