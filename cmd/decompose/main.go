package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tunogya/salesfactor/pkg/config"
	"github.com/tunogya/salesfactor/pkg/data"
	"github.com/tunogya/salesfactor/pkg/decompose"
	"github.com/tunogya/salesfactor/pkg/export"
	"github.com/tunogya/salesfactor/pkg/holiday"
	"github.com/tunogya/salesfactor/pkg/logging"
	"github.com/tunogya/salesfactor/pkg/metrics"
	"github.com/tunogya/salesfactor/pkg/queue/nats"
	"github.com/tunogya/salesfactor/pkg/store/duckdb"
	"github.com/tunogya/salesfactor/pkg/store/milvus"
)

// Flags holds the command line; non-empty values override the config
type Flags struct {
	ConfigPath string
	Train      string
	Test       string
	GDP        string
	Holidays   string
	DuckDBPath string

	Publish bool // send results over NATS instead of writing DuckDB
	Index   bool // index seasonal profiles in Milvus
	Push    bool // push metrics to the Pushgateway
}

func main() {
	flags := parseFlags()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	flags.apply(cfg)

	if err := logging.InitLogger(cfg.Env, cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.SyncLogger()
	logger := logging.GetLogger()

	if err := cfg.ValidateInputs(); err != nil {
		logger.Fatal("Invalid inputs", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := decomposeInputs(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Decomposition failed", zap.Error(err))
	}

	if flags.Publish {
		err = publish(ctx, cfg, res, logger)
	} else {
		err = persist(ctx, cfg, res, logger)
	}
	if err != nil {
		logger.Fatal("Failed to deliver results", zap.String("run_id", res.Run.RunID), zap.Error(err))
	}

	if flags.Index {
		if err := index(ctx, cfg, res, logger); err != nil {
			logger.Error("Failed to index seasonal profiles", zap.Error(err))
		}
	}

	if flags.Push && cfg.Metrics.PushURL != "" {
		if err := metrics.Push(cfg.Metrics.PushURL, cfg.Metrics.Job); err != nil {
			logger.Warn("Metrics push failed", zap.Error(err))
		}
	}

	logger.Info("Run completed",
		zap.String("run_id", res.Run.RunID),
		zap.Int("rows", res.Run.Rows),
		zap.Int("nan_rows", res.Run.NaNRows),
		zap.Float64s("weekday_factors", res.Weekday.Factors[:]),
	)
}

func parseFlags() Flags {
	var f Flags

	flag.StringVar(&f.ConfigPath, "config", "", "Path to YAML config file")
	flag.StringVar(&f.Train, "train", "", "Training CSV (id,date,country,store,product,num_sold)")
	flag.StringVar(&f.Test, "test", "", "Test CSV, num_sold optional")
	flag.StringVar(&f.GDP, "gdp", "", "GDP CSV (country,<year>...)")
	flag.StringVar(&f.Holidays, "holidays", "", "Holiday calendar YAML")
	flag.StringVar(&f.DuckDBPath, "duckdb", "", "DuckDB file path")
	flag.BoolVar(&f.Publish, "publish", false, "Publish results to NATS instead of writing DuckDB")
	flag.BoolVar(&f.Index, "milvus", false, "Index seasonal profiles in Milvus")
	flag.BoolVar(&f.Push, "push", false, "Push metrics to the configured Pushgateway")

	flag.Parse()

	if f.ConfigPath == "" && f.Train == "" {
		fmt.Println("Usage: decompose -config <path> | -train <csv> -gdp <csv> -holidays <yaml> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	return f
}

func (f Flags) apply(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Inputs.Train, f.Train)
	set(&cfg.Inputs.Test, f.Test)
	set(&cfg.Inputs.GDP, f.GDP)
	set(&cfg.Inputs.Holidays, f.Holidays)
	set(&cfg.DuckDB.Path, f.DuckDBPath)
}

// decomposeInputs loads the input files and runs the engine
func decomposeInputs(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*decompose.Result, error) {
	providers := []data.ObservationProvider{data.NewCSVProvider(cfg.Inputs.Train, false)}
	if cfg.Inputs.Test != "" {
		providers = append(providers, data.NewCSVProvider(cfg.Inputs.Test, true))
	}
	rows, err := data.Combine(ctx, providers...)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	logger.Info("Loaded sales", zap.Int("rows", len(rows)))

	gdp, err := data.LoadGDPFile(cfg.Inputs.GDP)
	if err != nil {
		return nil, err
	}
	calendar, err := holiday.LoadCalendarFile(cfg.Inputs.Holidays)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded reference data",
		zap.Int("gdp_countries", len(gdp)),
		zap.Strings("holiday_locales", calendar.Locales()),
	)

	engine, err := decompose.NewEngine(cfg.Engine, gdp, calendar, logger.Named("engine"))
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, rows)
}

// persist writes the run straight into DuckDB
func persist(ctx context.Context, cfg *config.Config, res *decompose.Result, logger *zap.Logger) error {
	client, err := duckdb.NewClient(cfg.DuckDB.Path)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := duckdb.InitializeSchema(ctx, client); err != nil {
		return err
	}

	w := duckdb.NewWriter(client)
	if err := w.SaveRun(ctx, res.Run, res.Table.Rows(), export.Artifacts(res), cfg.DuckDB.BatchSize); err != nil {
		return err
	}
	logger.Info("Stored run in DuckDB", zap.String("path", cfg.DuckDB.Path), zap.String("run_id", res.Run.RunID))
	return nil
}

// publish sends the run over NATS for the writer worker
func publish(ctx context.Context, cfg *config.Config, res *decompose.Result, logger *zap.Logger) error {
	client, err := nats.NewClient(cfg.NATS)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.CreateStream(ctx); err != nil {
		return err
	}

	msgs := export.NewMessages(res, cfg.NATS.BatchSize)
	if err := client.PublishRun(ctx, msgs.Rows, &msgs.Curve, &msgs.Completed); err != nil {
		return err
	}

	logger.Info("Published run", zap.String("run_id", res.Run.RunID), zap.Int("batches", len(msgs.Rows)))
	return nil
}

// index stores the seasonal profiles of the run in Milvus
func index(ctx context.Context, cfg *config.Config, res *decompose.Result, logger *zap.Logger) error {
	client, err := milvus.NewClient(ctx, cfg.Milvus.Config)
	if err != nil {
		return err
	}
	defer client.Close()

	coll := cfg.Milvus.Collection
	if err := client.CreateCollection(ctx, coll); err != nil {
		return err
	}

	if err := client.DeleteRun(ctx, coll.Name, res.Run.RunID); err != nil {
		logger.Warn("Failed to clear previous profiles", zap.String("run_id", res.Run.RunID), zap.Error(err))
	}

	profiles := export.Profiles(res)
	if err := client.InsertBatch(ctx, coll.Name, profiles); err != nil {
		return err
	}
	if err := client.Flush(ctx, coll.Name); err != nil {
		logger.Warn("Failed to flush Milvus", zap.Error(err))
	}
	if err := client.CreateIndex(ctx, coll.Name, milvus.VectorField); err != nil {
		logger.Warn("Failed to create index", zap.Error(err))
	}
	if err := client.LoadCollection(ctx, coll.Name); err != nil {
		logger.Warn("Failed to load collection", zap.Error(err))
	}

	logger.Info("Indexed seasonal profiles", zap.String("collection", coll.Name), zap.Int("profiles", len(profiles)))
	return nil
}
