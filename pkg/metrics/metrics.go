package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "salesfactor_stage_duration_seconds",
		Help:    "Duration of each decomposition stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	RowsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "salesfactor_rows_processed_total",
		Help: "Total number of rows that went through the decomposition engine",
	})

	NaNRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "salesfactor_nan_rows",
		Help: "Rows of the last run with an undefined value, by field",
	}, []string{"field"})

	RegressionFits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salesfactor_regression_fits_total",
		Help: "Total number of ridge regressions fitted",
	}, []string{"kind"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salesfactor_runs_total",
		Help: "Total number of engine runs",
	}, []string{"status"})
)

// Push sends the default registry to a Pushgateway under job
func Push(url, job string) error {
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
