// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"wildfire-dashboard/internal/config"
	"wildfire-dashboard/internal/domain/ports/adapter"
	"wildfire-dashboard/internal/domain/ports/repository"
	"wildfire-dashboard/internal/infra/adapters/columnar"
	"wildfire-dashboard/internal/infra/adapters/forecast"
	"wildfire-dashboard/internal/infra/adapters/predict"
	"wildfire-dashboard/internal/infra/adapters/storage"
	pg "wildfire-dashboard/internal/infra/db/postgres"
	httpserver "wildfire-dashboard/internal/infra/http"
	"wildfire-dashboard/internal/infra/logging"
	"wildfire-dashboard/internal/infra/metrics"
	"wildfire-dashboard/internal/infra/monitor"
	"wildfire-dashboard/internal/infra/progress"
	red "wildfire-dashboard/internal/infra/redis"
	"wildfire-dashboard/internal/infra/results"
	"wildfire-dashboard/internal/infra/scheduler"
	"wildfire-dashboard/internal/infra/web"
	"wildfire-dashboard/internal/infra/worker"
	"wildfire-dashboard/internal/usecase"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Bool("dev", cfg.Runtime.Dev).Msg("starting wildfire dashboard")

	// ---- Results ----
	var resultStore repository.ResultStore
	switch strings.ToLower(cfg.Results.Backend) {
	case "redis":
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		resultStore = red.NewResultStore(redisClient, cfg.Results.TTL)
	default:
		resultStore = results.NewMemoryStore(cfg.Results.TTL)
	}

	// ---- Job history (optional) ----
	var history repository.JobHistoryRepository
	var poolStats scheduler.PoolReporter
	if cfg.Database.URL != "" {
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 5)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		repo := pg.NewJobHistoryRepo(pool)
		if err := repo.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("postgres migrate")
		}
		history, poolStats = repo, repo
	} else {
		logger.Info().Msg("database.url not set; job history disabled")
	}

	// ---- Object storage (optional) ----
	var objects adapter.ObjectStorage
	if cfg.Storage.Endpoint != "" {
		s, err := storage.NewMinioStorage(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("object storage")
		}
		objects = s
		logger.Info().
			Str("endpoint", cfg.Storage.Endpoint).
			Str("bucket", cfg.Storage.Bucket).
			Str("access_key", logging.Redact(cfg.Storage.AccessKey, cfg.Runtime.Dev)).
			Msg("object storage configured")
	} else {
		logger.Warn().Msg("storage.endpoint not set; download jobs will fail")
	}

	// ---- Resource monitor ----
	var sampler adapter.ResourceSampler
	if !cfg.Throttle.Disabled {
		m, err := monitor.NewProcMonitor(cfg.Throttle.SampleWindow)
		if err != nil {
			logger.Warn().Err(err).Msg("resource monitor unavailable; throttling disabled")
		} else {
			sampler = m
		}
	}

	// ---- Jobs ----
	table := progress.NewTable()
	jobPool := worker.NewPool(cfg.Jobs.Workers, cfg.Jobs.QueueSize, logging.Component(logger, "WorkerPool"))
	jobPool.Start(ctx)

	catalog := usecase.NewCatalog(usecase.CatalogDeps{
		Storage:    objects,
		Columnar:   columnar.NewParquetStore(cfg.Data.Root),
		Tables:     columnar.NewCSVStore(),
		Forecaster: forecast.NewHoltWinters(),
		Data:       cfg.Data,
		Objects:    cfg.Storage,
	}, logging.Component(logger, "JobCatalog"))

	jobUC := usecase.NewJobUseCase(ctx, catalog, table, resultStore, history, jobPool, sampler,
		monitor.PolicyFromConfig(cfg.Throttle), logging.Component(logger, "JobRunner"))
	streamUC := usecase.NewProgressStream(table, cfg.Stream, logging.Component(logger, "ProgressStream"))
	datasetUC := usecase.NewDatasetUseCase(columnar.NewCSVStore(), cfg.Data, logging.Component(logger, "Dataset"))
	predictUC := usecase.NewPredictUseCase(predict.NewJSONLoader(), cfg.Data.Path(cfg.Data.ModelFile), logging.Component(logger, "Predict"))

	// ---- Janitor ----
	janitor := scheduler.NewJanitor(cfg.Results.SweepCron, resultStore, table, 2*cfg.Stream.StaleAfter, poolStats, logger)
	if err := janitor.Start(); err != nil {
		logger.Fatal().Err(err).Msg("janitor")
	}

	// ---- HTTP ----
	srv := web.NewServer(jobUC, streamUC, datasetUC, predictUC, cfg.HTTP, logging.Component(logger, "HTTP"))
	server := httpserver.NewServer(cfg.HTTP, srv.Routes(), logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	janitor.Stop()
	cancel()
	jobPool.Stop()
	logger.Info().Msg("bye")
}
