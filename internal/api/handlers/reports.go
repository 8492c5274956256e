package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/api/middleware"
	"github.com/coffeetech/transactions/internal/domain"
)

// ReportGenerator builds financial reports.
type ReportGenerator interface {
	GenerateFinancialReport(ctx context.Context, user *domain.UserInfo, req domain.FinancialReportRequest) (*domain.FinancialReportResponse, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	reports ReportGenerator
	log     zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(reports ReportGenerator, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		reports: reports,
		log:     log,
	}
}

// FinancialReport handles POST /reports/financial-report
func (h *ReportsHandler) FinancialReport(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req domain.FinancialReportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := h.reports.GenerateFinancialReport(r.Context(), user, req)
	if err != nil {
		middleware.WriteServiceError(w, requestLog(r, h.log), err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, "financial report generated", report)
}
