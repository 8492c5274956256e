package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/access"
	"github.com/coffeetech/transactions/internal/archive"
	"github.com/coffeetech/transactions/internal/clients"
	"github.com/coffeetech/transactions/internal/config"
	"github.com/coffeetech/transactions/internal/domain"
	infraBQ "github.com/coffeetech/transactions/internal/infra/bigquery"
	"github.com/coffeetech/transactions/internal/infra/sqldb"
	"github.com/coffeetech/transactions/internal/logger"
	"github.com/coffeetech/transactions/internal/report"
	"github.com/coffeetech/transactions/internal/store"
	"github.com/coffeetech/transactions/internal/transactions"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "report":
		runReport(log)
	case "transactions":
		runTransactions(log)
	case "archive":
		runArchive(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Transactions CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  report        Generate a financial report for a set of plots")
	fmt.Println("  transactions  List the active transactions of a plot")
	fmt.Println("  archive       Print an archived report from GCS")
	fmt.Println("  help          Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// env bundles the collaborators every command needs.
type env struct {
	cfg   *config.Config
	repo  *sqldb.Repository
	users *clients.UsersClient
	farms *clients.FarmsClient
	gate  *access.Gate
	close func()
}

func setup(log zerolog.Logger) *env {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := sqldb.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}

	users := clients.NewUsersClient(cfg.UsersService, log)
	farms := clients.NewFarmsClient(cfg.FarmsService, log)

	return &env{
		cfg:   cfg,
		repo:  sqldb.NewRepository(db),
		users: users,
		farms: farms,
		gate:  access.NewGate(farms, users, log),
		close: func() { _ = sqldb.Close(db) },
	}
}

// lookupUser acts on behalf of userID the way a verified session would.
func (e *env) lookupUser(ctx context.Context, log zerolog.Logger, userID int64) *domain.UserInfo {
	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up user")
	}
	if user == nil {
		log.Fatal().Int64("user_id", userID).Msg("User not found")
	}
	return user
}

func runReport(log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	userID := fs.Int64("user", 0, "ID of the user requesting the report")
	plots := fs.String("plots", "", "Comma-separated plot IDs")
	start := fs.String("start", "", "Period start (YYYY-MM-DD)")
	end := fs.String("end", "", "Period end (YYYY-MM-DD)")
	history := fs.Bool("history", false, "Include the transaction history")
	fs.Parse(os.Args[2:])

	if *userID == 0 || *plots == "" || *start == "" || *end == "" {
		log.Fatal().Msg("Usage: cli report -user ID -plots 1,2 -start 2024-01-01 -end 2024-12-31 [-history]")
	}

	plotIDs, err := parseIDList(*plots)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -plots")
	}
	periodStart, err := civil.ParseDate(*start)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -start")
	}
	periodEnd, err := civil.ParseDate(*end)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -end")
	}

	e := setup(log)
	defer e.close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var source store.ReportSource = e.repo
	if e.cfg.ReportSource == config.ReportSourceBigQuery {
		bq, err := infraBQ.NewBigQueryReportSource(ctx, e.cfg.BigQueryProject, e.cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery report source")
		}
		defer bq.Close()
		source = bq
	}

	svc := report.NewService(report.Deps{
		Plots:           e.farms,
		Farms:           e.farms,
		Gate:            e.gate,
		Source:          source,
		Users:           e.users,
		PlotConcurrency: e.cfg.PlotVerifyConcurrency,
	}, log)

	resp, err := svc.GenerateFinancialReport(ctx, e.lookupUser(ctx, log, *userID), domain.FinancialReportRequest{
		PlotIDs:                   plotIDs,
		PeriodStart:               periodStart,
		PeriodEnd:                 periodEnd,
		IncludeTransactionHistory: *history,
	})
	if err != nil {
		log.Fatal().Err(err).Str("kind", domain.KindOf(err).String()).Msg("Report failed")
	}

	printJSON(log, resp)
}

func runTransactions(log zerolog.Logger) {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	userID := fs.Int64("user", 0, "ID of the user listing the transactions")
	plotID := fs.Int64("plot", 0, "Plot ID")
	fs.Parse(os.Args[2:])

	if *userID == 0 || *plotID == 0 {
		log.Fatal().Msg("Usage: cli transactions -user ID -plot ID")
	}

	e := setup(log)
	defer e.close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	svc := transactions.NewService(e.repo, e.farms, e.gate, log)
	list, err := svc.List(ctx, e.lookupUser(ctx, log, *userID), *plotID)
	if err != nil {
		log.Fatal().Err(err).Str("kind", domain.KindOf(err).String()).Msg("Listing failed")
	}

	fmt.Printf("\n=== Plot %d: %d transaction(s) ===\n", *plotID, len(list))
	for _, t := range list {
		desc := ""
		if t.Description != nil {
			desc = *t.Description
		}
		fmt.Printf("%-6d %s  %-10s %-24s %12s  %s\n",
			t.TransactionID, t.TransactionDate, t.TransactionTypeName, t.TransactionCategoryName, t.Value.StringFixed(2), desc)
	}
}

func runArchive(log zerolog.Logger) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	uri := fs.String("uri", "", "gs:// URI of an archived report")
	fs.Parse(os.Args[2:])

	if *uri == "" {
		log.Fatal().Msg("Usage: cli archive -uri gs://bucket/reports/...")
	}

	bucket, object, err := archive.ParseURI(*uri)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -uri")
	}

	ctx := context.Background()
	storage, err := archive.NewGCSStorage(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storage.Close()

	data, err := storage.Download(ctx, bucket, object)
	if err != nil {
		log.Fatal().Err(err).Msg("Download failed")
	}

	var resp domain.FinancialReportResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		log.Fatal().Err(err).Msg("Object is not a financial report")
	}

	printJSON(log, resp)
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid plot id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no plot ids given")
	}
	return ids, nil
}

func printJSON(log zerolog.Logger, v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode output")
	}
	fmt.Println(string(out))
}
