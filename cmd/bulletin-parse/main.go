package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/price-bulletin/internal/common"
	"github.com/joseph-ayodele/price-bulletin/internal/export"
	"github.com/joseph-ayodele/price-bulletin/internal/pipeline"
	repo "github.com/joseph-ayodele/price-bulletin/internal/repository"
	svc "github.com/joseph-ayodele/price-bulletin/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := common.LoadConfig()

	var (
		in       = flag.String("in", "", "bulletin document to parse, .pdf or .txt (required)")
		date     = flag.String("date", "", "publication date YYYY-MM-DD (defaults to the date in the file name)")
		out      = flag.String("out", cfg.Output.JSONPath, "output JSON file path")
		xlsx     = flag.String("xlsx", cfg.Output.XLSXPath, "optional XLSX file path")
		dsn      = flag.String("db", "", "optional database DSN to record the run (postgres:// or a SQLite path)")
		parallel = flag.Bool("parallel", cfg.Parser.ParallelPages, "parse pages concurrently")
	)
	flag.Parse()

	if *in == "" {
		printError("Error: -in is required\n")
		return 1
	}
	if err := common.ISODate("date", *date); err != nil {
		printError("Error: invalid -date, use YYYY-MM-DD: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg.Parser.ParallelPages = *parallel

	processor, err := pipeline.NewProcessorFromConfig(cfg, nil, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return 1
	}

	outputs := pipeline.Outputs{JSONPath: *out, XLSXPath: *xlsx}
	var reader export.BulletinReader
	if *dsn != "" {
		dbCfg := cfg.Database
		dbCfg.DSN = *dsn
		db, err := svc.ConnectDB(ctx, dbCfg, logger)
		if err != nil {
			return 1
		}
		defer svc.CloseDB(db)
		prices := repo.NewPriceRepository(db, logger)
		outputs.Runs = repo.NewRunRepository(db, logger)
		outputs.Prices = prices
		reader = prices
	}
	outputs.Writer = export.NewService(reader, logger)

	runID, outcome, err := pipeline.NewPublisher(processor, outputs, logger).Publish(ctx, pipeline.Request{Path: *in, Date: *date})
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}

	fmt.Printf("run %s: %d products (%d lines discarded) for %s -> %s\n",
		runID, len(outcome.Bulletin.Products), outcome.Discarded(), outcome.Bulletin.Date, *out)
	return 0
}
