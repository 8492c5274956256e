package report

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/store"
)

// categoryTotals sums amounts per category name, remembering first-seen order.
type categoryTotals struct {
	order []string
	sums  map[string]decimal.Decimal
}

func newCategoryTotals() *categoryTotals {
	return &categoryTotals{sums: make(map[string]decimal.Decimal)}
}

func (c *categoryTotals) add(name string, v decimal.Decimal) {
	cur, ok := c.sums[name]
	if !ok {
		c.order = append(c.order, name)
	}
	c.sums[name] = cur.Add(v)
}

func (c *categoryTotals) breakdown() []domain.FinancialCategoryBreakdown {
	out := make([]domain.FinancialCategoryBreakdown, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, domain.FinancialCategoryBreakdown{
			CategoryName: name,
			Amount:       domain.NewMoney(c.sums[name]),
		})
	}
	return out
}

// ledger is the accumulator for one scope: a plot or the whole farm.
type ledger struct {
	income            decimal.Decimal
	expense           decimal.Decimal
	incomeByCategory  *categoryTotals
	expenseByCategory *categoryTotals
}

func newLedger() *ledger {
	return &ledger{
		incomeByCategory:  newCategoryTotals(),
		expenseByCategory: newCategoryTotals(),
	}
}

func (l *ledger) add(dir Direction, category string, v decimal.Decimal) {
	switch dir {
	case Income:
		l.income = l.income.Add(v)
		l.incomeByCategory.add(category, v)
	case Expense:
		l.expense = l.expense.Add(v)
		l.expenseByCategory.add(category, v)
	}
}

type plotLedger struct {
	plotID   int64
	plotName string
	*ledger
}

// Aggregator accumulates plot and farm totals for one report.
// It is not safe for concurrent use.
type Aggregator struct {
	plots map[int64]*plotLedger
	order []int64
	farm  *ledger
	log   zerolog.Logger
}

// NewAggregator creates empty accumulators for every resolved plot.
func NewAggregator(plots []domain.PlotInfo, log zerolog.Logger) *Aggregator {
	a := &Aggregator{
		plots: make(map[int64]*plotLedger, len(plots)),
		farm:  newLedger(),
		log:   log,
	}
	for _, p := range plots {
		if _, ok := a.plots[p.PlotID]; ok {
			continue
		}
		a.plots[p.PlotID] = &plotLedger{plotID: p.PlotID, plotName: p.Name, ledger: newLedger()}
		a.order = append(a.order, p.PlotID)
	}
	return a
}

// Process adds one transaction to its plot and to the farm. Transactions with an
// unknown category, a category without type, an unknown plot or an unrecognized
// type name are logged and skipped. It reports whether the transaction was counted.
func (a *Aggregator) Process(txn *store.TransactionRow, categories map[int64]CategoryInfo) bool {
	cat, ok := resolveCategory(txn, categories)
	if !ok {
		a.log.Warn().
			Int64("transaction_id", txn.TransactionID).
			Int64("category_id", txn.TransactionCategoryID).
			Msg("Transaction has no category or type, skipping")
		return false
	}

	pl, ok := a.plots[txn.PlotID]
	if !ok {
		a.log.Warn().
			Int64("transaction_id", txn.TransactionID).
			Int64("plot_id", txn.PlotID).
			Msg("Transaction belongs to a plot outside the report, skipping")
		return false
	}

	dir := Classify(cat.TypeName)
	if dir == Unclassified {
		a.log.Warn().
			Int64("transaction_id", txn.TransactionID).
			Str("type", cat.TypeName).
			Msg("Unrecognized transaction type, skipping")
		return false
	}

	pl.add(dir, cat.CategoryName, txn.Value)
	a.farm.add(dir, cat.CategoryName, txn.Value)
	return true
}

// resolveCategory finds the category of txn and requires it to have a type.
func resolveCategory(txn *store.TransactionRow, categories map[int64]CategoryInfo) (CategoryInfo, bool) {
	cat, ok := categories[txn.TransactionCategoryID]
	if !ok || cat.TypeName == "" {
		return CategoryInfo{}, false
	}
	return cat, true
}
