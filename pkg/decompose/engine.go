// Package decompose splits a dense country x store x product daily sales
// grid into multiplicative factors (GDP, store, product seasonality,
// weekday, day-of-year) and recovers the deseasonalized baseline.
//
// The engine runs a fixed, linear sequence of stages. Each stage takes
// the previous immutable *model.Table and returns a new one with more
// columns; a stage refuses to run before its prerequisites.
//
//	dates -> gdp -> store -> product -> holiday -> weekday -> dayofyear
//
// Factors are estimated from training rows only and broadcast to every
// row. After each factor stage the ratio (product of known factors) and
// total = num_sold / ratio are recomposed.
package decompose

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/tunogya/salesfactor/pkg/data"
	"github.com/tunogya/salesfactor/pkg/feature"
	"github.com/tunogya/salesfactor/pkg/holiday"
	"github.com/tunogya/salesfactor/pkg/metrics"
	"github.com/tunogya/salesfactor/pkg/model"
	"github.com/tunogya/salesfactor/pkg/regression"
)

// Engine runs the decomposition pipeline
type Engine struct {
	cfg      Config
	gdp      data.GDPProvider
	calendar holiday.Calendar
	deriver  *feature.Deriver
	logger   *zap.Logger
}

// NewEngine creates an engine. cfg is copied; later changes to the
// caller's value have no effect.
func NewEngine(cfg Config, gdp data.GDPProvider, calendar holiday.Calendar, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if gdp == nil {
		return nil, fmt.Errorf("GDP provider is required")
	}
	if calendar == nil {
		return nil, fmt.Errorf("holiday calendar is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		cfg:      cfg.clone(),
		gdp:      gdp,
		calendar: calendar,
		deriver:  feature.NewDeriver(),
		logger:   logger,
	}, nil
}

// Config returns a copy of the engine configuration
func (e *Engine) Config() Config {
	return e.cfg.clone()
}

// Result is the deliverable of one run
type Result struct {
	Run            *model.Run
	Table          *model.Table
	Curve          model.SeasonalCurve
	DayOfYearModel *regression.Model
	ProductFits    []ProductFit
	StoreFactors   map[string]float64
	Weekday        WeekdayFactors
	NaN            NaNSummary
}

// stage is one step of the pipeline
type stage struct {
	name  model.StageName
	apply func(ctx context.Context, t *model.Table) (*model.Table, error)
}

var stageRequires = map[model.StageName][]model.StageName{
	model.StageDates:     nil,
	model.StageGDP:       {model.StageDates},
	model.StageStore:     {model.StageDates, model.StageGDP},
	model.StageProduct:   {model.StageDates, model.StageGDP, model.StageStore},
	model.StageHoliday:   {model.StageDates},
	model.StageWeekday:   {model.StageDates, model.StageStore, model.StageHoliday},
	model.StageDayOfYear: {model.StageDates, model.StageGDP, model.StageStore, model.StageProduct, model.StageHoliday, model.StageWeekday},
}

// checkStage returns ErrStageOrder when a prerequisite is missing or the
// stage was already applied
func checkStage(t *model.Table, name model.StageName) error {
	if t.HasStage(name) {
		return fmt.Errorf("%w: %s already applied", ErrStageOrder, name)
	}
	for _, dep := range stageRequires[name] {
		if !t.HasStage(dep) {
			return stageOrderError(name, dep)
		}
	}
	return nil
}

// Run decomposes rows. rows must cover the full date x country x store x
// product grid; the returned Result owns its own copy.
func (e *Engine) Run(ctx context.Context, rows []model.Observation) (*Result, error) {
	start := time.Now()

	if len(rows) == 0 {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, ErrEmptyTable
	}

	table := model.NewTable(rows)
	if err := e.validateKeys(table); err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	e.logger.Info("starting decomposition",
		zap.Int("rows", table.Len()),
		zap.String("fingerprint", e.cfg.Fingerprint()),
	)

	res := &Result{}
	pipeline := []stage{
		{model.StageDates, e.wrap(e.DeriveDates)},
		{model.StageGDP, e.JoinGDP},
		{model.StageStore, func(_ context.Context, t *model.Table) (*model.Table, error) {
			out, factors, err := e.EstimateStores(t)
			res.StoreFactors = factors
			return out, err
		}},
		{model.StageProduct, func(ctx context.Context, t *model.Table) (*model.Table, error) {
			out, fits, err := e.FitProducts(ctx, t)
			res.ProductFits = fits
			return out, err
		}},
		{model.StageHoliday, e.TagHolidays},
		{model.StageWeekday, func(_ context.Context, t *model.Table) (*model.Table, error) {
			out, wf, err := e.EstimateWeekdays(t)
			res.Weekday = wf
			return out, err
		}},
		{model.StageDayOfYear, func(_ context.Context, t *model.Table) (*model.Table, error) {
			out, fit, err := e.FitDayOfYear(t)
			if fit != nil {
				res.Curve = fit.Curve
				res.DayOfYearModel = fit.Model
			}
			return out, err
		}},
	}

	for _, st := range pipeline {
		if err := ctx.Err(); err != nil {
			metrics.RunsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}

		stageStart := time.Now()
		next, err := st.apply(ctx, table)
		if err != nil {
			metrics.RunsTotal.WithLabelValues("failed").Inc()
			e.logger.Error("stage failed", zap.String("stage", string(st.name)), zap.Error(err))
			return nil, fmt.Errorf("stage %s: %w", st.name, err)
		}
		elapsed := time.Since(stageStart)
		metrics.StageDuration.WithLabelValues(string(st.name)).Observe(elapsed.Seconds())
		e.logger.Debug("stage completed",
			zap.String("stage", string(st.name)),
			zap.Int("rows", next.Len()),
			zap.Duration("duration", elapsed),
		)
		table = next
	}

	res.Table = table
	res.NaN = summarizeNaN(table)
	e.reportNaN(res.NaN)
	res.Run = model.NewRun(e.cfg.Fingerprint(), table, res.NaN.Rows)

	metrics.RowsProcessed.Add(float64(table.Len()))
	metrics.RunsTotal.WithLabelValues("succeeded").Inc()
	e.logger.Info("decomposition completed",
		zap.String("run_id", res.Run.RunID),
		zap.Int("rows", table.Len()),
		zap.Int("nan_rows", res.NaN.Rows),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (e *Engine) wrap(fn func(*model.Table) (*model.Table, error)) func(context.Context, *model.Table) (*model.Table, error) {
	return func(_ context.Context, t *model.Table) (*model.Table, error) {
		return fn(t)
	}
}

// reportNaN surfaces undefined rows as a warning instead of failing the
// run
func (e *Engine) reportNaN(s NaNSummary) {
	metrics.NaNRows.Reset()
	for field, n := range s.ByField {
		metrics.NaNRows.WithLabelValues(field).Set(float64(n))
	}
	if s.Rows == 0 {
		return
	}
	fields := make([]zap.Field, 0, len(s.ByField)+1)
	fields = append(fields, zap.Int("nan_rows", s.Rows))
	for _, field := range sortedKeys(s.ByField) {
		fields = append(fields, zap.Int(field, s.ByField[field]))
	}
	e.logger.Warn("rows with undefined values", fields...)
}

// validateKeys rejects rows outside the configured key sets
func (e *Engine) validateKeys(t *model.Table) error {
	var err error
	t.Each(func(_ int, o *model.Observation) {
		if err != nil {
			return
		}
		switch {
		case len(e.cfg.Countries) > 0 && !slices.Contains(e.cfg.Countries, o.Country):
			err = fmt.Errorf("%w: country %q in row %d", ErrUnknownKey, o.Country, o.ID)
		case len(e.cfg.Stores) > 0 && !slices.Contains(e.cfg.Stores, o.Store):
			err = fmt.Errorf("%w: store %q in row %d", ErrUnknownKey, o.Store, o.ID)
		case len(e.cfg.Products) > 0 && !slices.Contains(e.cfg.Products, o.Product):
			err = fmt.Errorf("%w: product %q in row %d", ErrUnknownKey, o.Product, o.ID)
		}
	})
	return err
}

// countries returns the configured countries, or those in the table
func (e *Engine) countries(t *model.Table) []string {
	if len(e.cfg.Countries) > 0 {
		return e.cfg.Countries
	}
	return t.Distinct(func(o *model.Observation) string { return o.Country })
}

func (e *Engine) products(t *model.Table) []string {
	if len(e.cfg.Products) > 0 {
		return e.cfg.Products
	}
	return t.Distinct(func(o *model.Observation) string { return o.Product })
}

func (e *Engine) years(t *model.Table) []int {
	if len(e.cfg.Years) > 0 {
		return e.cfg.Years
	}
	seen := make(map[int]bool)
	var out []int
	t.Each(func(_ int, o *model.Observation) {
		if !seen[o.Year] {
			seen[o.Year] = true
			out = append(out, o.Year)
		}
	})
	slices.Sort(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// DeriveDates attaches calendar fields and the harmonic basis
func (e *Engine) DeriveDates(t *model.Table) (*model.Table, error) {
	if err := checkStage(t, model.StageDates); err != nil {
		return nil, err
	}
	return e.deriver.Derive(t), nil
}
