package decompose

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/tunogya/salesfactor/pkg/feature"
	"github.com/tunogya/salesfactor/pkg/metrics"
	"github.com/tunogya/salesfactor/pkg/model"
	"github.com/tunogya/salesfactor/pkg/regression"
)

// ProductFit is the seasonal share regression of one product
type ProductFit struct {
	Product string            `json:"product"`
	Model   *regression.Model `json:"model"`
	// Per training date: actual share of the grand total and its in-sample fit
	Dates     []time.Time `json:"dates"`
	Actual    []float64   `json:"actual"`
	Predicted []float64   `json:"predicted"`
	// Model evaluated at day-of-year 1..366
	Profile model.SeasonalCurve `json:"-"`
}

// productSeries is the per-date input of one product regression
type productSeries struct {
	dates []time.Time
	x     [][]float64
	share []float64
}

// FitProducts attaches product_factor. For every product the daily share
// of the grand total (training rows, excluded countries removed) is
// regressed by ridge on the date's mean harmonic basis; the model then
// predicts the factor of each row of the product from its own basis.
func (e *Engine) FitProducts(ctx context.Context, t *model.Table) (*model.Table, []ProductFit, error) {
	if err := checkStage(t, model.StageProduct); err != nil {
		return nil, nil, err
	}

	products := e.products(t)
	series := e.productSeries(t, products)

	fits := make([]ProductFit, len(products))
	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Workers > 0 {
		g.SetLimit(e.cfg.Workers)
	}
	for i, product := range products {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fit, err := e.fitProduct(product, series[product])
			if err != nil {
				return err
			}
			fits[i] = fit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	byProduct := make(map[string]*regression.Model, len(fits))
	for _, fit := range fits {
		byProduct[fit.Product] = fit.Model
	}

	kinds := append(t.Factors(), model.FactorProduct)
	out := t.Derive(model.StageProduct, model.FactorProduct, func(_ int, o *model.Observation) {
		m, ok := byProduct[o.Product]
		if !ok {
			o.ProductFactor = math.NaN()
		} else {
			o.ProductFactor = m.Predict(o.Basis.Slice())
		}
		Compose(o, kinds)
	})
	return out, fits, nil
}

func (e *Engine) fitProduct(product string, s *productSeries) (ProductFit, error) {
	if s == nil || len(s.share) == 0 {
		return ProductFit{}, fmt.Errorf("product %q: %w", product, regression.ErrNoSamples)
	}
	m, err := regression.FitRidge(s.x, s.share, e.cfg.RidgeAlpha)
	if err != nil {
		return ProductFit{}, fmt.Errorf("product %q: %w", product, err)
	}
	metrics.RegressionFits.WithLabelValues("product").Inc()

	profile, err := profileCurve(m)
	if err != nil {
		return ProductFit{}, fmt.Errorf("product %q: %w", product, err)
	}
	return ProductFit{
		Product:   product,
		Model:     m,
		Dates:     s.dates,
		Actual:    s.share,
		Predicted: m.PredictAll(s.x),
		Profile:   profile,
	}, nil
}

// productSeries aggregates the included training rows into one share
// series per product, dates ascending
func (e *Engine) productSeries(t *model.Table, products []string) map[string]*productSeries {
	type dayAgg struct {
		date     time.Time
		sold     float64
		basisSum []float64
		rows     int
	}
	grand := make(map[string]float64)
	perProduct := make(map[string]map[string]*dayAgg, len(products))
	for _, p := range products {
		perProduct[p] = make(map[string]*dayAgg)
	}

	t.Each(func(_ int, o *model.Observation) {
		if !o.IsTrain() || e.cfg.excluded(o.Country) {
			return
		}
		key := model.DayKey(o.Date)
		grand[key] += o.NumSold

		days, ok := perProduct[o.Product]
		if !ok {
			return
		}
		agg, ok := days[key]
		if !ok {
			agg = &dayAgg{date: o.Date, basisSum: make([]float64, model.HarmonicDim)}
			days[key] = agg
		}
		agg.sold += o.NumSold
		floats.Add(agg.basisSum, o.Basis[:])
		agg.rows++
	})

	out := make(map[string]*productSeries, len(products))
	for _, p := range products {
		days := perProduct[p]
		keys := make([]string, 0, len(days))
		for k := range days {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		s := &productSeries{}
		for _, k := range keys {
			agg := days[k]
			if grand[k] == 0 {
				continue
			}
			mean := make([]float64, model.HarmonicDim)
			floats.ScaleTo(mean, 1/float64(agg.rows), agg.basisSum)
			s.dates = append(s.dates, agg.date)
			s.x = append(s.x, mean)
			s.share = append(s.share, agg.sold/grand[k])
		}
		out[p] = s
	}
	return out
}

// profileCurve samples a model over day-of-year 1..365 with the
// day-of-year basis
func profileCurve(m *regression.Model) (model.SeasonalCurve, error) {
	days := make([]float64, model.CurveLen-1)
	for d := range days {
		days[d] = m.Predict(feature.DayOfYearBasis(d + 1).Slice())
	}
	return model.NewSeasonalCurve(days)
}
