// Package api wires the HTTP handlers and middleware into one http.Handler.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/api/handlers"
	"github.com/coffeetech/transactions/internal/api/middleware"
	"github.com/coffeetech/transactions/internal/jobs"
)

// HealthPath is served without authentication.
const HealthPath = "/health"

// Services are the collaborators behind the HTTP API.
// Jobs may be nil when report archiving is disabled; Gate scopes job access to farms.
type Services struct {
	Sessions     middleware.SessionVerifier
	Transactions handlers.TransactionService
	Catalog      handlers.CatalogService
	Reports      handlers.ReportGenerator
	Gate         handlers.Authorizer
	Jobs         jobs.JobStore
}

// NewRouter builds the routes and wraps them in the middleware chain.
func NewRouter(svc Services, log zerolog.Logger) http.Handler {
	transactionsHandler := handlers.NewTransactionsHandler(svc.Transactions, log)
	catalogHandler := handlers.NewCatalogHandler(svc.Catalog, log)
	reportsHandler := handlers.NewReportsHandler(svc.Reports, log)

	mux := http.NewServeMux()

	// Transactions endpoints
	mux.HandleFunc("/transaction/create-transaction", only(http.MethodPost, transactionsHandler.CreateTransaction))
	mux.HandleFunc("/transaction/edit-transaction", only(http.MethodPost, transactionsHandler.EditTransaction))
	mux.HandleFunc("/transaction/delete-transaction", only(http.MethodPost, transactionsHandler.DeleteTransaction))
	mux.HandleFunc("/transaction/list-transactions/", only(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		plotID := strings.TrimPrefix(r.URL.Path, "/transaction/list-transactions/")
		if plotID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "plot_id is required")
			return
		}
		transactionsHandler.ListTransactions(w, r, plotID)
	}))

	// Catalog endpoints
	mux.HandleFunc("/transaction/list-transaction-types", only(http.MethodGet, catalogHandler.ListTransactionTypes))
	mux.HandleFunc("/transaction/list-transaction-categories", only(http.MethodGet, catalogHandler.ListTransactionCategories))

	// Reports endpoints
	mux.HandleFunc("/reports/financial-report", only(http.MethodPost, reportsHandler.FinancialReport))

	// Jobs endpoints
	if svc.Jobs != nil {
		jobsHandler := handlers.NewJobsHandler(svc.Jobs, svc.Gate, log)

		mux.HandleFunc("/api/jobs", only(http.MethodGet, jobsHandler.ListJobs))
		mux.HandleFunc("/api/jobs/", only(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "job id is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		}))
	}

	// Health check endpoint
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(svc.Sessions, log, HealthPath)(mux),
				),
			),
		),
	)
}

// only rejects requests whose method is not method.
func only(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h(w, r)
	}
}
