package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

type bigQueryOptions struct {
	ProjectID     string
	DatasetID     string
	AppliedBy     string
	MigrationsDir string
}

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

func runBigQuery(ctx context.Context, log zerolog.Logger, opts bigQueryOptions) {
	client, err := bigquery.NewClient(ctx, opts.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", opts.ProjectID).Str("dataset", opts.DatasetID).Msg("Connected to BigQuery")

	if err := ensureSchemaMigrationsTable(ctx, client, opts); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	dir, err := resolveMigrationsDir(opts.MigrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to locate migrations")
	}

	migrations, err := readMigrations(log, dir, opts.ProjectID, opts.DatasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	appliedMigrations, err := getAppliedMigrations(ctx, client, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get applied migrations")
	}

	pending := pendingMigrations(migrations, appliedMigrations)
	for _, m := range migrations {
		if !containsVersion(pending, m.Version) {
			log.Info().Msgf("  [SKIP] %04d_%s (already applied)", m.Version, m.Name)
		}
	}

	for _, m := range pending {
		log.Info().Msgf("  [RUN]  %04d_%s", m.Version, m.Name)

		if err := runStatement(ctx, client.Query(m.SQL)); err != nil {
			log.Fatal().Err(err).Msgf("Failed to execute migration %04d_%s", m.Version, m.Name)
		}

		if err := recordMigration(ctx, client, opts, m); err != nil {
			log.Fatal().Err(err).Msgf("Failed to record migration %04d_%s", m.Version, m.Name)
		}

		log.Info().Msgf("  [OK]   %04d_%s", m.Version, m.Name)
	}

	if len(pending) == 0 {
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
	} else {
		log.Info().Int("applied", len(pending)).Msg("Migrations applied")
	}
}

// resolveMigrationsDir accepts the path relative to the repository root or to cmd/migrate.
func resolveMigrationsDir(dir string) (string, error) {
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}
	alt := filepath.Join("..", "..", dir)
	if _, err := os.Stat(alt); err == nil {
		return alt, nil
	}
	return "", fmt.Errorf("migrations directory not found: %s", dir)
}

// parseMigrationFilename extracts version and name from a migration file name.
func parseMigrationFilename(filename string) (int, string, bool) {
	matches := migrationPattern.FindStringSubmatch(filename)
	if matches == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", false
	}
	return version, matches[2], true
}

// readMigrations reads all migration files from dir, sorted by version.
func readMigrations(log zerolog.Logger, dir, projectID, datasetID string) ([]Migration, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		version, name, ok := parseMigrationFilename(file.Name())
		if !ok {
			log.Warn().Str("file", file.Name()).Msg("Skipping file with invalid format")
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		// Checksum is taken before placeholder substitution so that it tracks the
		// migration itself rather than the dataset it was applied to.
		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: file.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// pendingMigrations returns the migrations whose version has not been applied.
func pendingMigrations(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, am := range applied {
		done[am.Version] = true
	}

	var pending []Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

func containsVersion(ms []Migration, version int) bool {
	for _, m := range ms {
		if m.Version == version {
			return true
		}
	}
	return false
}

func schemaMigrationsTable(opts bigQueryOptions) string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", opts.ProjectID, opts.DatasetID)
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client, opts bigQueryOptions) error {
	return runStatement(ctx, client.Query(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, schemaMigrationsTable(opts))))
}

// getAppliedMigrations retrieves the list of already applied migrations
func getAppliedMigrations(ctx context.Context, client *bigquery.Client, opts bigQueryOptions) ([]AppliedMigration, error) {
	query := client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, schemaMigrationsTable(opts)))

	it, err := query.Read(ctx)
	if err != nil {
		// If table doesn't exist yet, return empty list
		if strings.Contains(err.Error(), "Not found") {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		am := AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
		}
		if row.Checksum.Valid {
			am.Checksum = row.Checksum.StringVal
		}
		if row.AppliedBy.Valid {
			am.AppliedBy = row.AppliedBy.StringVal
		}

		applied = append(applied, am)
	}

	return applied, nil
}

// recordMigration records a successfully applied migration in schema_migrations
func recordMigration(ctx context.Context, client *bigquery.Client, opts bigQueryOptions, migration Migration) error {
	query := client.Query(fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, schemaMigrationsTable(opts)))
	query.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: migration.Version},
		{Name: "name", Value: migration.Name},
		{Name: "checksum", Value: migration.Checksum},
		{Name: "applied_by", Value: opts.AppliedBy},
	}

	return runStatement(ctx, query)
}

// runStatement runs a DDL/DML query and waits for it to finish.
func runStatement(ctx context.Context, query *bigquery.Query) error {
	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
