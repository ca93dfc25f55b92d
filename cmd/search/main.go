package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/tunogya/salesfactor/pkg/config"
	"github.com/tunogya/salesfactor/pkg/logging"
	"github.com/tunogya/salesfactor/pkg/model"
	"github.com/tunogya/salesfactor/pkg/store/duckdb"
	"github.com/tunogya/salesfactor/pkg/store/milvus"
)

type Flags struct {
	ConfigPath string
	RunID      string
	Product    string
	AllRuns    bool
	TopK       int
}

func main() {
	flags := parseFlags()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logging.InitLogger(cfg.Env, cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.SyncLogger()
	logger := logging.GetLogger()

	ctx := context.Background()

	duckClient, err := duckdb.NewClient(cfg.DuckDB.Path)
	if err != nil {
		logger.Fatal("Failed to connect to DuckDB", zap.Error(err))
	}
	defer duckClient.Close()

	run, err := findRun(ctx, duckdb.NewRunRepo(duckClient), flags.RunID)
	if err != nil {
		logger.Fatal("Failed to find run", zap.Error(err))
	}

	query, err := queryProfile(ctx, duckdb.NewCurveRepo(duckClient), run.RunID, flags.Product)
	if err != nil {
		logger.Fatal("Failed to load query profile", zap.Error(err))
	}
	queryID := milvus.ProfileID(run.RunID, milvus.KindDayOfYear, "")
	if flags.Product != "" {
		queryID = milvus.ProfileID(run.RunID, milvus.KindProduct, flags.Product)
	}
	logger.Info("Query profile", zap.String("profile_id", queryID), zap.Time("first_date", run.FirstDate), zap.Time("last_date", run.LastDate))

	milvusClient, err := milvus.NewClient(ctx, cfg.Milvus.Config)
	if err != nil {
		logger.Fatal("Failed to connect to Milvus", zap.Error(err))
	}
	defer milvusClient.Close()

	coll := cfg.Milvus.Collection.Name
	if err := milvusClient.LoadCollection(ctx, coll); err != nil {
		logger.Fatal("Failed to load collection", zap.Error(err))
	}

	filterRun := run.RunID
	if flags.AllRuns {
		filterRun = ""
	}
	// one extra hit: the query profile finds itself
	results, err := milvusClient.Search(ctx, coll, query.Float32(), milvus.Filter(filterRun, milvus.KindProduct), flags.TopK+1)
	if err != nil {
		logger.Fatal("Search failed", zap.Error(err))
	}

	fmt.Printf("%-5s %-34s %-24s %-10s\n", "Rank", "Run", "Product", "Cosine")
	fmt.Println("--------------------------------------------------------------------------------")

	rank := 0
	for _, r := range results {
		if r.ProfileID == queryID || rank == flags.TopK {
			continue
		}
		rank++
		fmt.Printf("%-5d %-34s %-24s %-.4f\n", rank, r.RunID, r.Product, r.Score)
	}
}

func parseFlags() Flags {
	var f Flags

	flag.StringVar(&f.ConfigPath, "config", "", "Path to YAML config file")
	flag.StringVar(&f.RunID, "run", "", "Run ID (default: latest run)")
	flag.StringVar(&f.Product, "product", "", "Product whose profile to query (default: day-of-year curve)")
	flag.BoolVar(&f.AllRuns, "all", false, "Search profiles of every run")
	flag.IntVar(&f.TopK, "topk", 5, "Top K results")

	flag.Parse()
	return f
}

func findRun(ctx context.Context, runs *duckdb.RunRepo, runID string) (*model.Run, error) {
	if runID == "" {
		return runs.Latest(ctx)
	}
	return runs.GetByID(ctx, runID)
}

// queryProfile loads the stored profile of a product, or the run's
// day-of-year curve
func queryProfile(ctx context.Context, curves *duckdb.CurveRepo, runID, product string) (model.SeasonalCurve, error) {
	if product == "" {
		return curves.GetCurve(ctx, runID)
	}
	fits, err := curves.GetProductFits(ctx, runID)
	if err != nil {
		return model.SeasonalCurve{}, err
	}
	for _, f := range fits {
		if f.Product == product {
			return f.Profile, nil
		}
	}
	return model.SeasonalCurve{}, fmt.Errorf("run %s has no fit for product %q", runID, product)
}
