package decompose

import (
	"fmt"

	"github.com/tunogya/salesfactor/pkg/feature"
	"github.com/tunogya/salesfactor/pkg/metrics"
	"github.com/tunogya/salesfactor/pkg/model"
	"github.com/tunogya/salesfactor/pkg/regression"
)

// DayOfYearFit is the terminal seasonal regression
type DayOfYearFit struct {
	Curve model.SeasonalCurve
	Model *regression.Model
	// Cross-country median per day-of-year that the model was fitted to
	Target map[int]float64
}

// FitDayOfYear attaches dayofyear_factor and the final ratio and total.
// Per country, training num_sold is reduced to its median per
// day-of-year; the median of those across countries is regressed on the
// day-of-year basis. The model sampled at 1..365 (366 repeats 365) is
// the seasonal curve every row looks its factor up in.
func (e *Engine) FitDayOfYear(t *model.Table) (*model.Table, *DayOfYearFit, error) {
	if err := checkStage(t, model.StageDayOfYear); err != nil {
		return nil, nil, err
	}

	type countryDay struct {
		country string
		doy     int
	}
	values := make(map[countryDay][]float64)
	t.Each(func(_ int, o *model.Observation) {
		if !o.IsTrain() {
			return
		}
		if e.cfg.ExcludeHolidayResponseFromFit && o.HolidayResponse {
			return
		}
		k := countryDay{o.Country, o.DayOfYear}
		values[k] = append(values[k], o.NumSold)
	})

	byDay := make(map[int][]float64)
	for _, country := range e.countries(t) {
		for doy := 1; doy <= model.CurveLen; doy++ {
			v, ok := values[countryDay{country, doy}]
			if !ok {
				continue
			}
			byDay[doy] = append(byDay[doy], median(v))
		}
	}

	target := make(map[int]float64, len(byDay))
	var x [][]float64
	var y []float64
	for doy := 1; doy <= model.CurveLen; doy++ {
		meds, ok := byDay[doy]
		if !ok {
			continue
		}
		target[doy] = median(meds)
		x = append(x, feature.DayOfYearBasis(doy).Slice())
		y = append(y, target[doy])
	}

	m, err := regression.FitRidge(x, y, e.cfg.RidgeAlpha)
	if err != nil {
		return nil, nil, fmt.Errorf("day-of-year fit: %w", err)
	}
	metrics.RegressionFits.WithLabelValues("dayofyear").Inc()

	curve, err := profileCurve(m)
	if err != nil {
		return nil, nil, err
	}

	kinds := append(t.Factors(), model.FactorDayOfYear)
	out := t.Derive(model.StageDayOfYear, model.FactorDayOfYear, func(_ int, o *model.Observation) {
		o.DayOfYearFactor = curve.At(o.DayOfYear)
		Compose(o, kinds)
	})
	return out, &DayOfYearFit{Curve: curve, Model: m, Target: target}, nil
}
