package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/config"
	"github.com/coffeetech/transactions/internal/infra/sqldb"
	"github.com/coffeetech/transactions/internal/logger"
)

func main() {
	log := logger.New()

	if err := config.LoadEnvFile(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}

	var (
		target        = flag.String("target", "sql", "Schema to migrate: sql or bigquery")
		driver        = flag.String("driver", envOr("DATABASE_DRIVER", "postgres"), "SQL driver: postgres or sqlite")
		dsn           = flag.String("dsn", os.Getenv("DATABASE_URL"), "SQL connection string (or set DATABASE_URL)")
		seed          = flag.Bool("seed", true, "Seed transaction states and default types (sql target)")
		projectID     = flag.String("project", os.Getenv("BIGQUERY_PROJECT"), "GCP project ID (bigquery target)")
		datasetID     = flag.String("dataset", envOr("BIGQUERY_DATASET", "transactions"), "BigQuery dataset ID")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to BigQuery migrations directory")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	switch *target {
	case "sql":
		runSQL(ctx, log, *driver, *dsn, *seed)
	case "bigquery":
		if *projectID == "" {
			log.Fatal().Msg("Error: -project flag is required. Please specify your GCP project ID.")
		}
		runBigQuery(ctx, log, bigQueryOptions{
			ProjectID:     *projectID,
			DatasetID:     *datasetID,
			AppliedBy:     *appliedBy,
			MigrationsDir: *migrationsDir,
		})
	default:
		log.Fatal().Str("target", *target).Msg("Unknown target, expected sql or bigquery")
	}
}

func runSQL(ctx context.Context, log zerolog.Logger, driver, dsn string, seed bool) {
	if dsn == "" {
		log.Fatal().Msg("Error: -dsn flag or DATABASE_URL is required")
	}

	db, err := sqldb.Open(driver, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer sqldb.Close(db)

	log.Info().Str("driver", driver).Msg("Migrating transaction tables")
	if err := sqldb.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if seed {
		if err := sqldb.SeedReferenceData(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Seeding reference data failed")
		}
		log.Info().Msg("Reference data seeded")
	}

	log.Info().Msg("Database is up to date")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
