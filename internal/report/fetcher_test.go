package report

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/logger"
	"github.com/coffeetech/transactions/internal/store"
)

func TestTransactionFetcher_BatchesCategoryLookup(t *testing.T) {
	txns := []*store.TransactionRow{
		txn(1, 1, 10, "1", june15, 7),
		txn(2, 1, 20, "2", june15, 7),
		txn(3, 2, 10, "3", june15, 7),
		txn(4, 2, 10, "4", june15, 7),
		txn(5, 2, 20, "5", june15, 7),
	}
	source := sourceWith(txns, []store.CategoryRow{
		category(10, "Venta de café", 1, "Ingreso"),
		category(20, "Fertilizante", 2, "Gasto"),
	})
	f := NewTransactionFetcher(source, logger.Nop())

	res, err := f.Fetch(context.Background(), []int64{1, 2}, yearFrom, yearTo)
	require.NoError(t, err)

	assert.Len(t, res.Transactions, 5)
	require.Len(t, source.categoryCalls, 1, "categories must be loaded with one batched call")
	assert.ElementsMatch(t, []int64{10, 20}, source.categoryCalls[0])
	assert.Equal(t, CategoryInfo{CategoryName: "Fertilizante", TypeName: "Gasto"}, res.Categories[20])
}

func TestTransactionFetcher_InclusiveBoundsAndStateFilter(t *testing.T) {
	inactive := txn(4, 1, 10, "4", june15, 7)
	inactive.TransactionStateID = 2
	txns := []*store.TransactionRow{
		txn(1, 1, 10, "1", yearFrom, 7),
		txn(2, 1, 10, "2", yearTo, 7),
		txn(3, 1, 10, "3", civil.Date{Year: 2024, Month: 1, Day: 1}, 7),
		inactive,
		txn(5, 3, 10, "5", june15, 7),
	}
	source := sourceWith(txns, []store.CategoryRow{category(10, "Venta de café", 1, "Ingreso")})
	f := NewTransactionFetcher(source, logger.Nop())

	res, err := f.Fetch(context.Background(), []int64{1}, yearFrom, yearTo)
	require.NoError(t, err)

	var ids []int64
	for _, t := range res.Transactions {
		ids = append(ids, t.TransactionID)
	}
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestTransactionFetcher_NoTransactionsSkipsCategoryLookup(t *testing.T) {
	source := sourceWith(nil, nil)
	f := NewTransactionFetcher(source, logger.Nop())

	res, err := f.Fetch(context.Background(), []int64{1}, yearFrom, yearTo)
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
	assert.Empty(t, source.categoryCalls)
}

func TestTransactionFetcher_ActiveStateMissing(t *testing.T) {
	source := sourceWith(nil, nil)
	source.GetTransactionStateByNameFunc = func(ctx context.Context, name string) (*store.TransactionStateRow, error) {
		return nil, nil
	}
	f := NewTransactionFetcher(source, logger.Nop())

	_, err := f.Fetch(context.Background(), []int64{1}, yearFrom, yearTo)
	require.ErrorIs(t, err, domain.ErrActiveStateMissing)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Zero(t, source.queryCalls)
}

func TestTransactionFetcher_QueryError(t *testing.T) {
	dbErr := errors.New("connection refused")
	source := sourceWith(nil, nil)
	source.QueryReportTransactionsFunc = func(ctx context.Context, plotIDs []int64, start, end civil.Date, stateID int64) ([]*store.TransactionRow, error) {
		return nil, dbErr
	}
	f := NewTransactionFetcher(source, logger.Nop())

	_, err := f.Fetch(context.Background(), []int64{1}, yearFrom, yearTo)
	assert.ErrorIs(t, err, dbErr)
}
