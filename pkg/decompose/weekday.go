package decompose

import (
	"math"
	"slices"

	"github.com/tunogya/salesfactor/pkg/model"
)

// WeekdayFactors is the intra-week seasonality, index 0 = Monday
type WeekdayFactors struct {
	Factors [7]float64 `json:"factors"`
	// Median share per country before averaging
	ByCountry map[string][7]float64 `json:"by_country"`
}

// EstimateWeekdays attaches weekday_factor. Training sales are summed per
// (country, week, weekday) and turned into shares of their week's total.
// Each country's most recent WeekdayTrailingWeeks weeks are dropped, the
// median share is taken per (weekday, country), and the defined country
// medians are averaged.
func (e *Engine) EstimateWeekdays(t *model.Table) (*model.Table, WeekdayFactors, error) {
	if err := checkStage(t, model.StageWeekday); err != nil {
		return nil, WeekdayFactors{}, err
	}

	type weekKey struct {
		country string
		week    int
	}
	sums := make(map[weekKey]*[7]float64)
	seen := make(map[weekKey]*[7]bool)
	t.Each(func(_ int, o *model.Observation) {
		if !o.IsTrain() || e.cfg.excluded(o.Country) {
			return
		}
		k := weekKey{o.Country, o.WeekNum}
		if sums[k] == nil {
			sums[k] = new([7]float64)
			seen[k] = new([7]bool)
		}
		sums[k][o.Weekday] += o.NumSold
		seen[k][o.Weekday] = true
	})

	weeks := make(map[string][]int)
	for k := range sums {
		weeks[k.country] = append(weeks[k.country], k.week)
	}

	wf := WeekdayFactors{ByCountry: make(map[string][7]float64, len(weeks))}
	countries := sortedKeys(weeks)
	for _, country := range countries {
		ws := weeks[country]
		slices.Sort(ws)
		keep := len(ws) - e.cfg.WeekdayTrailingWeeks
		if keep < 0 {
			keep = 0
		}

		var shares [7][]float64
		for _, w := range ws[:keep] {
			k := weekKey{country, w}
			var total float64
			for _, v := range sums[k] {
				total += v
			}
			if total == 0 {
				continue
			}
			for d := 0; d < 7; d++ {
				if seen[k][d] {
					shares[d] = append(shares[d], sums[k][d]/total)
				}
			}
		}

		var medians [7]float64
		for d := range medians {
			medians[d] = median(shares[d])
		}
		wf.ByCountry[country] = medians
	}

	for d := 0; d < 7; d++ {
		perCountry := make([]float64, 0, len(countries))
		for _, country := range countries {
			perCountry = append(perCountry, wf.ByCountry[country][d])
		}
		wf.Factors[d] = meanDefined(perCountry)
	}

	kinds := append(t.Factors(), model.FactorWeekday)
	out := t.Derive(model.StageWeekday, model.FactorWeekday, func(_ int, o *model.Observation) {
		if o.Weekday < 0 || o.Weekday > 6 {
			o.WeekdayFactor = math.NaN()
		} else {
			o.WeekdayFactor = wf.Factors[o.Weekday]
		}
		Compose(o, kinds)
	})
	return out, wf, nil
}
