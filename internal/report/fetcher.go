package report

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/store"
)

// CategoryInfo is the category and type name pair used to classify a transaction.
// TypeName is empty when the category has no type.
type CategoryInfo struct {
	CategoryName string
	TypeName     string
}

// FetchResult is the report window with the metadata needed to classify it.
type FetchResult struct {
	Transactions []*store.TransactionRow
	Categories   map[int64]CategoryInfo
}

// TransactionFetcher loads the active transactions of a report window.
type TransactionFetcher struct {
	source store.ReportSource
	log    zerolog.Logger
}

// NewTransactionFetcher creates a fetcher over source.
func NewTransactionFetcher(source store.ReportSource, log zerolog.Logger) *TransactionFetcher {
	return &TransactionFetcher{source: source, log: log}
}

// Fetch loads the active transactions of plotIDs dated within [start, end] and the
// categories they reference. Categories are loaded with one batched lookup.
func (f *TransactionFetcher) Fetch(ctx context.Context, plotIDs []int64, start, end civil.Date) (*FetchResult, error) {
	state, err := f.source.GetTransactionStateByName(ctx, domain.StateActive)
	if err != nil {
		return nil, fmt.Errorf("Fetch: active state: %w", err)
	}
	if state == nil {
		f.log.Error().Str("state", domain.StateActive).Msg("Transaction state missing from reference data")
		return nil, domain.ErrActiveStateMissing
	}

	txns, err := f.source.QueryReportTransactions(ctx, plotIDs, start, end, state.TransactionStateID)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	result := &FetchResult{
		Transactions: txns,
		Categories:   make(map[int64]CategoryInfo),
	}

	categoryIDs := distinctCategoryIDs(txns)
	if len(categoryIDs) == 0 {
		return result, nil
	}

	categories, err := f.source.GetCategoriesWithTypes(ctx, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}
	for i := range categories {
		c := &categories[i]
		result.Categories[c.TransactionCategoryID] = CategoryInfo{
			CategoryName: c.Name,
			TypeName:     c.TypeName(),
		}
	}

	f.log.Debug().
		Int("transactions", len(txns)).
		Int("categories", len(result.Categories)).
		Msg("Fetched report window")
	return result, nil
}

func distinctCategoryIDs(txns []*store.TransactionRow) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, t := range txns {
		if seen[t.TransactionCategoryID] {
			continue
		}
		seen[t.TransactionCategoryID] = true
		ids = append(ids, t.TransactionCategoryID)
	}
	return ids
}
