package domain

import (
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
)

// FinancialReportRequest asks for a farm report over a set of plots and a closed date range.
type FinancialReportRequest struct {
	PlotIDs                   []int64    `json:"plot_ids"`
	PeriodStart               civil.Date `json:"period_start"`
	PeriodEnd                 civil.Date `json:"period_end"`
	IncludeTransactionHistory bool       `json:"include_transaction_history"`
}

// UnmarshalJSON also accepts the legacy fechaInicio/fechaFin keys.
func (r *FinancialReportRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		PlotIDs                   []int64     `json:"plot_ids"`
		PeriodStart               *civil.Date `json:"period_start"`
		PeriodEnd                 *civil.Date `json:"period_end"`
		LegacyStart               *civil.Date `json:"fechaInicio"`
		LegacyEnd                 *civil.Date `json:"fechaFin"`
		IncludeTransactionHistory bool        `json:"include_transaction_history"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.PlotIDs = raw.PlotIDs
	r.IncludeTransactionHistory = raw.IncludeTransactionHistory
	switch {
	case raw.PeriodStart != nil:
		r.PeriodStart = *raw.PeriodStart
	case raw.LegacyStart != nil:
		r.PeriodStart = *raw.LegacyStart
	}
	switch {
	case raw.PeriodEnd != nil:
		r.PeriodEnd = *raw.PeriodEnd
	case raw.LegacyEnd != nil:
		r.PeriodEnd = *raw.LegacyEnd
	}
	return nil
}

// Validate checks the request shape before any collaborator is called.
func (r FinancialReportRequest) Validate() error {
	if len(r.PlotIDs) == 0 {
		return Invalid("plot_ids must not be empty")
	}
	if !r.PeriodStart.IsValid() || !r.PeriodEnd.IsValid() {
		return Invalid("period_start and period_end are required dates")
	}
	if r.PeriodEnd.Before(r.PeriodStart) {
		return Invalid("period_start must not be after period_end")
	}
	return nil
}

// Period renders the reporting window the way existing clients display it.
func (r FinancialReportRequest) Period() string {
	return FormatPeriod(r.PeriodStart, r.PeriodEnd)
}

// FormatPeriod renders "<start> a <end>".
func FormatPeriod(start, end civil.Date) string {
	return fmt.Sprintf("%s a %s", start, end)
}

// FinancialCategoryBreakdown is the total of one category within a plot or the farm.
type FinancialCategoryBreakdown struct {
	CategoryName string `json:"category_name"`
	Amount       Money  `json:"amount"`
}

// PlotFinancialData holds the totals of one plot.
type PlotFinancialData struct {
	PlotID            int64                        `json:"plot_id"`
	PlotName          string                       `json:"plot_name"`
	IncomeTotal       Money                        `json:"income_total"`
	ExpenseTotal      Money                        `json:"expense_total"`
	Balance           Money                        `json:"balance"`
	IncomeByCategory  []FinancialCategoryBreakdown `json:"income_by_category"`
	ExpenseByCategory []FinancialCategoryBreakdown `json:"expense_by_category"`
}

// FarmFinancialSummary holds the totals across every plot of the report.
type FarmFinancialSummary struct {
	IncomeTotal       Money                        `json:"income_total"`
	ExpenseTotal      Money                        `json:"expense_total"`
	Balance           Money                        `json:"balance"`
	IncomeByCategory  []FinancialCategoryBreakdown `json:"income_by_category"`
	ExpenseByCategory []FinancialCategoryBreakdown `json:"expense_by_category"`
}

// TransactionHistoryItem is one line of the optional audit list.
type TransactionHistoryItem struct {
	Date                civil.Date `json:"date"`
	PlotName            string     `json:"plot_name"`
	FarmName            string     `json:"farm_name"`
	TransactionTypeName string     `json:"transaction_type_name"`
	CategoryName        string     `json:"category_name"`
	CreatorDisplayName  string     `json:"creator_display_name"`
	Value               Money      `json:"value"`
}

// FinancialReportResponse is the complete report for one farm.
// TransactionHistory is nil unless history was requested.
type FinancialReportResponse struct {
	FarmName           string                   `json:"farm_name"`
	PlotsIncluded      []string                 `json:"plots_included"`
	Period             string                   `json:"period"`
	PlotFinancials     []PlotFinancialData      `json:"plot_financials"`
	FarmSummary        FarmFinancialSummary     `json:"farm_summary"`
	Analysis           *string                  `json:"analysis"`
	TransactionHistory []TransactionHistoryItem `json:"transaction_history"`
}
