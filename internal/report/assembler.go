package report

import (
	"github.com/coffeetech/transactions/internal/domain"
)

// Assemble converts the accumulators into the report shape. history is attached only
// when includeHistory is set; analysis is always nil.
func Assemble(farm *domain.FarmInfo, resolved *ResolvedPlots, agg *Aggregator, period string, includeHistory bool, history []domain.TransactionHistoryItem) *domain.FinancialReportResponse {
	resp := &domain.FinancialReportResponse{
		FarmName:       farm.Name,
		PlotsIncluded:  make([]string, 0, len(resolved.Plots)),
		Period:         period,
		PlotFinancials: make([]domain.PlotFinancialData, 0, len(agg.order)),
	}

	for _, p := range resolved.Plots {
		resp.PlotsIncluded = append(resp.PlotsIncluded, p.Name)
	}

	for _, id := range agg.order {
		pl := agg.plots[id]
		resp.PlotFinancials = append(resp.PlotFinancials, domain.PlotFinancialData{
			PlotID:            pl.plotID,
			PlotName:          pl.plotName,
			IncomeTotal:       domain.NewMoney(pl.income),
			ExpenseTotal:      domain.NewMoney(pl.expense),
			Balance:           domain.NewMoney(pl.income.Sub(pl.expense)),
			IncomeByCategory:  pl.incomeByCategory.breakdown(),
			ExpenseByCategory: pl.expenseByCategory.breakdown(),
		})
	}

	resp.FarmSummary = domain.FarmFinancialSummary{
		IncomeTotal:       domain.NewMoney(agg.farm.income),
		ExpenseTotal:      domain.NewMoney(agg.farm.expense),
		Balance:           domain.NewMoney(agg.farm.income.Sub(agg.farm.expense)),
		IncomeByCategory:  agg.farm.incomeByCategory.breakdown(),
		ExpenseByCategory: agg.farm.expenseByCategory.breakdown(),
	}

	if includeHistory {
		if history == nil {
			history = []domain.TransactionHistoryItem{}
		}
		resp.TransactionHistory = history
	}
	return resp
}
