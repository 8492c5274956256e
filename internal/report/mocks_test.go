package report

import (
	"context"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/store"
)

type mockPlots struct {
	mu             sync.Mutex
	calls          []int64
	VerifyPlotFunc func(ctx context.Context, plotID int64) (*domain.PlotInfo, error)
}

func (m *mockPlots) VerifyPlot(ctx context.Context, plotID int64) (*domain.PlotInfo, error) {
	m.mu.Lock()
	m.calls = append(m.calls, plotID)
	m.mu.Unlock()
	return m.VerifyPlotFunc(ctx, plotID)
}

// plotsIn returns a verifier that knows the given plots.
func plotsIn(plots ...domain.PlotInfo) *mockPlots {
	byID := make(map[int64]domain.PlotInfo)
	for _, p := range plots {
		byID[p.PlotID] = p
	}
	return &mockPlots{VerifyPlotFunc: func(ctx context.Context, plotID int64) (*domain.PlotInfo, error) {
		p, ok := byID[plotID]
		if !ok {
			return nil, nil
		}
		return &p, nil
	}}
}

type mockFarms struct {
	GetFarmByIDFunc func(ctx context.Context, farmID int64) (*domain.FarmInfo, error)
}

func (m *mockFarms) GetFarmByID(ctx context.Context, farmID int64) (*domain.FarmInfo, error) {
	return m.GetFarmByIDFunc(ctx, farmID)
}

type mockGate struct {
	AuthorizeFunc func(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error
}

func (m *mockGate) Authorize(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error {
	return m.AuthorizeFunc(ctx, user, farmID, permission)
}

func allowAll() *mockGate {
	return &mockGate{AuthorizeFunc: func(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error {
		return nil
	}}
}

type mockSource struct {
	categoryCalls [][]int64
	queryCalls    int

	GetTransactionStateByNameFunc func(ctx context.Context, name string) (*store.TransactionStateRow, error)
	QueryReportTransactionsFunc   func(ctx context.Context, plotIDs []int64, start, end civil.Date, stateID int64) ([]*store.TransactionRow, error)
	GetCategoriesWithTypesFunc    func(ctx context.Context, categoryIDs []int64) ([]store.CategoryRow, error)
}

func (m *mockSource) GetTransactionStateByName(ctx context.Context, name string) (*store.TransactionStateRow, error) {
	return m.GetTransactionStateByNameFunc(ctx, name)
}

func (m *mockSource) QueryReportTransactions(ctx context.Context, plotIDs []int64, start, end civil.Date, stateID int64) ([]*store.TransactionRow, error) {
	m.queryCalls++
	return m.QueryReportTransactionsFunc(ctx, plotIDs, start, end, stateID)
}

func (m *mockSource) GetCategoriesWithTypes(ctx context.Context, categoryIDs []int64) ([]store.CategoryRow, error) {
	m.categoryCalls = append(m.categoryCalls, categoryIDs)
	return m.GetCategoriesWithTypesFunc(ctx, categoryIDs)
}

// sourceWith serves txns filtered by plot, window and state like the real stores do.
func sourceWith(txns []*store.TransactionRow, categories []store.CategoryRow) *mockSource {
	return &mockSource{
		GetTransactionStateByNameFunc: func(ctx context.Context, name string) (*store.TransactionStateRow, error) {
			if name == domain.StateActive {
				return &store.TransactionStateRow{TransactionStateID: 1, Name: name}, nil
			}
			return &store.TransactionStateRow{TransactionStateID: 2, Name: name}, nil
		},
		QueryReportTransactionsFunc: func(ctx context.Context, plotIDs []int64, start, end civil.Date, stateID int64) ([]*store.TransactionRow, error) {
			wanted := make(map[int64]bool)
			for _, id := range plotIDs {
				wanted[id] = true
			}
			var out []*store.TransactionRow
			for _, t := range txns {
				d := t.Date()
				if wanted[t.PlotID] && !d.Before(start) && !d.After(end) && t.TransactionStateID == stateID {
					out = append(out, t)
				}
			}
			return out, nil
		},
		GetCategoriesWithTypesFunc: func(ctx context.Context, categoryIDs []int64) ([]store.CategoryRow, error) {
			wanted := make(map[int64]bool)
			for _, id := range categoryIDs {
				wanted[id] = true
			}
			var out []store.CategoryRow
			for _, c := range categories {
				if wanted[c.TransactionCategoryID] {
					out = append(out, c)
				}
			}
			return out, nil
		},
	}
}

type mockUsers struct {
	mu              sync.Mutex
	calls           map[int64]int
	GetUserByIDFunc func(ctx context.Context, userID int64) (*domain.UserInfo, error)
}

func (m *mockUsers) GetUserByID(ctx context.Context, userID int64) (*domain.UserInfo, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[int64]int)
	}
	m.calls[userID]++
	m.mu.Unlock()
	return m.GetUserByIDFunc(ctx, userID)
}

type mockArchiver struct {
	ArchiveReportFunc func(ctx context.Context, farmID int64, report *domain.FinancialReportResponse) error
}

func (m *mockArchiver) ArchiveReport(ctx context.Context, farmID int64, report *domain.FinancialReportResponse) error {
	return m.ArchiveReportFunc(ctx, farmID, report)
}

var (
	june15   = civil.Date{Year: 2023, Month: 6, Day: 15}
	yearFrom = civil.Date{Year: 2023, Month: 1, Day: 1}
	yearTo   = civil.Date{Year: 2023, Month: 12, Day: 31}
)

func category(id int64, name string, typeID int64, typeName string) store.CategoryRow {
	c := store.CategoryRow{TransactionCategoryID: id, Name: name, TransactionTypeID: typeID}
	if typeName != "" {
		c.TransactionType = &store.TransactionTypeRow{TransactionTypeID: typeID, Name: typeName}
	}
	return c
}

func txn(id, plotID, categoryID int64, value string, date civil.Date, creatorID int64) *store.TransactionRow {
	return &store.TransactionRow{
		TransactionID:         id,
		PlotID:                plotID,
		TransactionCategoryID: categoryID,
		Value:                 decimal.RequireFromString(value),
		TransactionDate:       store.DateTime(date),
		TransactionStateID:    1,
		CreatorID:             creatorID,
	}
}

func money(s string) domain.Money {
	return domain.MustMoney(s)
}
