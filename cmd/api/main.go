package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/access"
	"github.com/coffeetech/transactions/internal/api"
	"github.com/coffeetech/transactions/internal/archive"
	"github.com/coffeetech/transactions/internal/clients"
	"github.com/coffeetech/transactions/internal/config"
	infraBQ "github.com/coffeetech/transactions/internal/infra/bigquery"
	"github.com/coffeetech/transactions/internal/infra/sqldb"
	"github.com/coffeetech/transactions/internal/jobs"
	"github.com/coffeetech/transactions/internal/jobs/inmemory"
	"github.com/coffeetech/transactions/internal/logger"
	"github.com/coffeetech/transactions/internal/report"
	"github.com/coffeetech/transactions/internal/store"
	"github.com/coffeetech/transactions/internal/transactions"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT)")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	db, err := sqldb.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer sqldb.Close(db)
	repo := sqldb.NewRepository(db)

	source, closeSource := reportSource(ctx, cfg, repo, log)
	defer closeSource()

	users := clients.NewUsersClient(cfg.UsersService, log)
	farms := clients.NewFarmsClient(cfg.FarmsService, log)
	gate := access.NewGate(farms, users, log)

	deps := report.Deps{
		Plots:           farms,
		Farms:           farms,
		Gate:            gate,
		Source:          source,
		Users:           users,
		PlotConcurrency: cfg.PlotVerifyConcurrency,
	}

	// Report archiving runs on an in-process queue when a bucket is configured.
	var jobStore jobs.JobStore
	var jobQueue *inmemory.Queue
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if cfg.ReportArchiveBucket != "" {
		storage, err := archive.NewGCSStorage(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer storage.Close()

		memStore := inmemory.NewStore()
		jobStore = memStore
		jobQueue = inmemory.NewQueue(100, 0, memStore, log)

		if err := jobQueue.Start(workerCtx, archive.NewJobHandler(storage, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job worker")
		}

		deps.Archiver = archive.NewScheduler(jobQueue, cfg.ReportArchiveBucket, log)
		log.Info().Str("bucket", cfg.ReportArchiveBucket).Msg("Report archiving enabled")
	} else {
		log.Warn().Msg("No REPORT_ARCHIVE_BUCKET configured - report archiving disabled")
	}

	handler := api.NewRouter(api.Services{
		Sessions:     users,
		Transactions: transactions.NewService(repo, farms, gate, log),
		Catalog:      transactions.NewCatalog(repo),
		Reports:      report.NewService(deps, log),
		Gate:         gate,
		Jobs:         jobStore,
	}, log)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Str("report_source", cfg.ReportSource).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight uploads
	if jobQueue != nil {
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}

// reportSource picks where report transactions are read from.
func reportSource(ctx context.Context, cfg *config.Config, repo *sqldb.Repository, log zerolog.Logger) (store.ReportSource, func()) {
	if cfg.ReportSource != config.ReportSourceBigQuery {
		return repo, func() {}
	}

	bq, err := infraBQ.NewBigQueryReportSource(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery report source")
	}
	log.Info().Str("project", cfg.BigQueryProject).Str("dataset", cfg.BigQueryDataset).Msg("Reading reports from BigQuery")

	return bq, func() {
		if err := bq.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close BigQuery client")
		}
	}
}
