package decompose

import (
	"math"

	"github.com/tunogya/salesfactor/pkg/model"
)

// EstimateStores attaches store_factor: the mean num_sold of each store
// over training rows outside the excluded countries
func (e *Engine) EstimateStores(t *model.Table) (*model.Table, map[string]float64, error) {
	if err := checkStage(t, model.StageStore); err != nil {
		return nil, nil, err
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	t.Each(func(_ int, o *model.Observation) {
		if !o.IsTrain() || e.cfg.excluded(o.Country) {
			return
		}
		sums[o.Store] += o.NumSold
		counts[o.Store]++
	})

	factors := make(map[string]float64, len(sums))
	for store, n := range counts {
		factors[store] = sums[store] / float64(n)
	}

	kinds := append(t.Factors(), model.FactorStore)
	out := t.Derive(model.StageStore, model.FactorStore, func(_ int, o *model.Observation) {
		f, ok := factors[o.Store]
		if !ok {
			f = math.NaN()
		}
		o.StoreFactor = f
		Compose(o, kinds)
	})
	return out, factors, nil
}
