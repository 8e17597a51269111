package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/price-bulletin/internal/async"
	"github.com/joseph-ayodele/price-bulletin/internal/common"
	"github.com/joseph-ayodele/price-bulletin/internal/export"
	"github.com/joseph-ayodele/price-bulletin/internal/ingest"
	"github.com/joseph-ayodele/price-bulletin/internal/observability"
	"github.com/joseph-ayodele/price-bulletin/internal/pipeline"
	repo "github.com/joseph-ayodele/price-bulletin/internal/repository"
	svc "github.com/joseph-ayodele/price-bulletin/internal/server"
)

func main() {
	// Setup structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := svc.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		os.Exit(1)
	}
	defer svc.CloseDB(db)

	if err := svc.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)
	if cfg.Server.MetricsAddr != "" {
		observability.Start(ctx, cfg.Server.MetricsAddr, reg, logger)
	}

	runsRepo := repo.NewRunRepository(db, logger)
	pricesRepo := repo.NewPriceRepository(db, logger)
	exporter := export.NewService(pricesRepo, logger)

	processor, err := pipeline.NewProcessorFromConfig(cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	publisher := pipeline.NewPublisher(processor, pipeline.Outputs{
		JSONPath: cfg.Output.JSONPath,
		XLSXPath: cfg.Output.XLSXPath,
		Runs:     runsRepo,
		Prices:   pricesRepo,
		Writer:   exporter,
	}, logger)

	queue := async.NewProcessorQueue(publisher, logger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithProcessTimeout(cfg.Server.RunTimeout),
	)
	ingestor := ingest.NewFSIngestor(queue, logger)

	if inbox := cfg.Output.InboxDir; inbox != "" {
		if err := os.MkdirAll(inbox, 0o755); err != nil {
			logger.Error("failed to create inbox", "dir", inbox, "error", err)
			os.Exit(1)
		}
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{inbox},
			InitialScan: true,
			Debounce:    500 * time.Millisecond,
		}, logger)
		if err != nil {
			logger.Error("failed to start inbox watcher", "dir", inbox, "error", err)
			os.Exit(1)
		}
		go func() {
			for path := range events {
				if _, err := ingestor.IngestPath(ctx, path, "", false); err != nil {
					logger.Warn("inbox ingest failed", "path", path, "error", err)
				}
			}
		}()
		go func() {
			for err := range errs {
				logger.Error("inbox watcher error", "error", err)
			}
		}()
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()

	bulletinService := svc.NewBulletinService(publisher, pricesRepo, runsRepo, ingestor, exporter, logger)
	svc.RegisterBulletinServer(grpcServer, bulletinService)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	// empty string means overall server health
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(svc.BulletinServiceDesc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	logger.Info("bulletind listening", "addr", cfg.Server.GRPCAddr, "inbox", cfg.Output.InboxDir)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	healthServer.Shutdown()
	queue.Shutdown(context.Background())
	grpcServer.GracefulStop()
}
