package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/tunogya/salesfactor/pkg/config"
	"github.com/tunogya/salesfactor/pkg/export"
	"github.com/tunogya/salesfactor/pkg/logging"
	"github.com/tunogya/salesfactor/pkg/queue/nats"
	"github.com/tunogya/salesfactor/pkg/store/duckdb"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	duckdbPath := flag.String("duckdb", "", "DuckDB file path (overrides config)")
	natsURL := flag.String("nats", "", "NATS server URL (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *duckdbPath != "" {
		cfg.DuckDB.Path = *duckdbPath
	}
	if *natsURL != "" {
		cfg.NATS.URL = *natsURL
	}

	if err := logging.InitLogger(cfg.Env, cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.SyncLogger()
	logger := logging.GetLogger()

	logger.Info("Starting writer worker", zap.String("nats", cfg.NATS.URL), zap.String("duckdb", cfg.DuckDB.Path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	duckClient, err := duckdb.NewClient(cfg.DuckDB.Path)
	if err != nil {
		logger.Fatal("Failed to connect to DuckDB", zap.Error(err))
	}
	defer duckClient.Close()

	if err := duckdb.InitializeSchema(ctx, duckClient); err != nil {
		logger.Fatal("Failed to initialize schema", zap.Error(err))
	}
	writer := duckdb.NewWriter(duckClient)

	natsClient, err := nats.NewClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsClient.Close()

	if err := natsClient.CreateStream(ctx); err != nil {
		logger.Fatal("Failed to create stream", zap.Error(err))
	}

	handlers := []struct {
		subject  string
		consumer string
		handle   nats.MessageHandler
	}{
		{nats.SubjectRowsWrite, "rows-writer", func(msg jetstream.Msg) error {
			batch, err := nats.DecodeRowBatch(msg.Data())
			if err != nil {
				logger.Error("Failed to decode row batch", zap.Error(err))
				return err
			}
			if len(batch.Rows) == 0 {
				return nil
			}
			if err := writer.Observations.InsertBatch(ctx, batch.RunID, batch.Observations()); err != nil {
				logger.Error("Failed to insert rows", zap.String("run_id", batch.RunID), zap.Error(err))
				return err
			}
			logger.Debug("Inserted rows", zap.String("run_id", batch.RunID), zap.Int("seq", batch.Seq), zap.Int("rows", len(batch.Rows)))
			return nil
		}},
		{nats.SubjectCurvesWrite, "curves-writer", func(msg jetstream.Msg) error {
			curve, err := nats.DecodeCurve(msg.Data())
			if err != nil {
				logger.Error("Failed to decode curve", zap.Error(err))
				return err
			}
			artifacts, err := export.ArtifactsFromCurve(curve)
			if err != nil {
				logger.Error("Invalid curve message", zap.Error(err))
				return fmt.Errorf("%w: %v", nats.ErrMalformed, err)
			}
			if err := writer.SaveArtifacts(ctx, curve.RunID, artifacts); err != nil {
				logger.Error("Failed to store curve", zap.String("run_id", curve.RunID), zap.Error(err))
				return err
			}
			logger.Info("Stored curve and factors", zap.String("run_id", curve.RunID), zap.Int("products", len(curve.ProductFits)))
			return nil
		}},
		{nats.SubjectRunsCompleted, "runs-writer", func(msg jetstream.Msg) error {
			done, err := nats.DecodeRunCompleted(msg.Data())
			if err != nil {
				logger.Error("Failed to decode run", zap.Error(err))
				return err
			}
			if err := writer.Runs.Insert(ctx, &done.Run); err != nil {
				logger.Error("Failed to insert run", zap.String("run_id", done.Run.RunID), zap.Error(err))
				return err
			}
			logger.Info("Run recorded", zap.String("run_id", done.Run.RunID), zap.Int("batches", done.Batches))
			return nil
		}},
	}

	for _, h := range handlers {
		consumer, err := natsClient.Subscribe(ctx, h.subject, h.consumer, h.handle)
		if err != nil {
			logger.Fatal("Failed to subscribe", zap.String("subject", h.subject), zap.Error(err))
		}
		defer consumer.Stop()
	}

	logger.Info("Writer worker started, waiting for messages")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down writer worker")
}
