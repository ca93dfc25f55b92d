package decompose

import (
	"context"

	"github.com/tunogya/salesfactor/pkg/model"
)

type countryYear struct {
	country string
	year    int
}

// JoinGDP attaches gdp_factor from the country x year reference. A
// missing pair fails the stage with a *MissingReferenceError.
func (e *Engine) JoinGDP(_ context.Context, t *model.Table) (*model.Table, error) {
	if err := checkStage(t, model.StageGDP); err != nil {
		return nil, err
	}

	values := make([]float64, t.Len())
	cache := make(map[countryYear]float64)
	var missing *MissingReferenceError
	t.Each(func(i int, o *model.Observation) {
		if missing != nil {
			return
		}
		key := countryYear{o.Country, o.Year}
		v, ok := cache[key]
		if !ok {
			v, ok = e.gdp.Lookup(o.Country, o.Year)
			if !ok {
				missing = &MissingReferenceError{Country: o.Country, Year: o.Year}
				return
			}
			cache[key] = v
		}
		values[i] = v
	})
	if missing != nil {
		return nil, missing
	}

	return t.Derive(model.StageGDP, model.FactorGDP, func(i int, o *model.Observation) {
		o.GDPFactor = values[i]
	}), nil
}
