package transactions

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/coffeetech/transactions/internal/access"
	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/infra/sqldb"
	"github.com/coffeetech/transactions/internal/logger"
	"github.com/coffeetech/transactions/internal/report"
	"github.com/coffeetech/transactions/internal/store"
)

type mockPlots struct {
	VerifyPlotFunc func(ctx context.Context, plotID int64) (*domain.PlotInfo, error)
}

func (m *mockPlots) VerifyPlot(ctx context.Context, plotID int64) (*domain.PlotInfo, error) {
	return m.VerifyPlotFunc(ctx, plotID)
}

type mockGate struct {
	calls         []string
	AuthorizeFunc func(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error
}

func (m *mockGate) Authorize(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error {
	m.calls = append(m.calls, permission)
	if m.AuthorizeFunc == nil {
		return nil
	}
	return m.AuthorizeFunc(ctx, user, farmID, permission)
}

type mockFarms struct{}

func (mockFarms) GetFarmByID(ctx context.Context, farmID int64) (*domain.FarmInfo, error) {
	return &domain.FarmInfo{FarmID: farmID, Name: "La Esperanza"}, nil
}

type mockUsers struct{}

func (mockUsers) GetUserByID(ctx context.Context, userID int64) (*domain.UserInfo, error) {
	return &domain.UserInfo{UserID: userID, Name: "Ana"}, nil
}

type fixture struct {
	svc      *Service
	repo     *sqldb.Repository
	db       *gorm.DB
	gate     *mockGate
	plots    *mockPlots
	sale     store.CategoryRow
	fert     store.CategoryRow
	transfer store.CategoryRow
}

// untypedCategoryRepo serves a category whose type row is missing.
type untypedCategoryRepo struct {
	store.TransactionRepository
}

func (untypedCategoryRepo) GetCategoryWithType(ctx context.Context, categoryID int64) (*store.CategoryRow, error) {
	return &store.CategoryRow{TransactionCategoryID: categoryID, Name: "Huérfana", TransactionTypeID: 999}, nil
}

var (
	ana   = &domain.UserInfo{UserID: 7, Name: "Ana"}
	day   = civil.Date{Year: 2023, Month: 6, Day: 15}
	plots = map[int64]domain.PlotInfo{
		1: {PlotID: 1, Name: "Lote 1", FarmID: 100},
		2: {PlotID: 2, Name: "Lote 2", FarmID: 100},
	}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqldb.Open("sqlite", filepath.Join(t.TempDir(), "tx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close(db) })
	require.NoError(t, sqldb.Migrate(ctx, db))
	require.NoError(t, sqldb.SeedReferenceData(ctx, db))

	var income, expense store.TransactionTypeRow
	require.NoError(t, db.Where("name = ?", "Ingreso").First(&income).Error)
	require.NoError(t, db.Where("name = ?", "Gasto").First(&expense).Error)
	transferType := store.TransactionTypeRow{Name: "Transferencia"}
	require.NoError(t, db.Create(&transferType).Error)

	f := &fixture{
		db:       db,
		repo:     sqldb.NewRepository(db),
		gate:     &mockGate{},
		sale:     store.CategoryRow{Name: "Venta de café", TransactionTypeID: income.TransactionTypeID},
		fert:     store.CategoryRow{Name: "Fertilizante", TransactionTypeID: expense.TransactionTypeID},
		transfer: store.CategoryRow{Name: "Traslado", TransactionTypeID: transferType.TransactionTypeID},
	}
	for _, c := range []*store.CategoryRow{&f.sale, &f.fert, &f.transfer} {
		require.NoError(t, db.Omit("TransactionType").Create(c).Error)
	}

	f.plots = &mockPlots{VerifyPlotFunc: func(ctx context.Context, plotID int64) (*domain.PlotInfo, error) {
		p, ok := plots[plotID]
		if !ok {
			return nil, nil
		}
		return &p, nil
	}}
	f.svc = NewService(f.repo, f.plots, f.gate, logger.Nop())
	return f
}

func (f *fixture) create(t *testing.T, plotID int64, category store.CategoryRow, value string) *domain.TransactionResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), ana, domain.CreateTransactionRequest{
		PlotID:          plotID,
		CategoryID:      category.TransactionCategoryID,
		Value:           domain.MustMoney(value),
		TransactionDate: day,
	})
	require.NoError(t, err)
	return resp
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	desc := "cosecha de junio"

	resp, err := f.svc.Create(context.Background(), ana, domain.CreateTransactionRequest{
		PlotID:          1,
		CategoryID:      f.sale.TransactionCategoryID,
		Description:     &desc,
		Value:           domain.MustMoney("1000.50"),
		TransactionDate: day,
	})
	require.NoError(t, err)

	assert.NotZero(t, resp.TransactionID)
	assert.Equal(t, "Venta de café", resp.TransactionCategoryName)
	assert.Equal(t, "Ingreso", resp.TransactionTypeName)
	assert.Equal(t, domain.StateActive, resp.TransactionState)
	assert.Equal(t, day, resp.TransactionDate)
	assert.Equal(t, []string{access.PermissionAddTransaction}, f.gate.calls)

	stored, err := f.repo.GetTransactionByID(context.Background(), resp.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stored.CreatorID)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("a", domain.MaxDescriptionLength+1)

	tests := []struct {
		name     string
		req      domain.CreateTransactionRequest
		wantErr  error
		wantKind domain.Kind
	}{
		{name: "zero value", req: domain.CreateTransactionRequest{PlotID: 1, CategoryID: f.sale.TransactionCategoryID, Value: domain.MustMoney("0"), TransactionDate: day}, wantErr: domain.ErrNonPositiveValue, wantKind: domain.KindInvalid},
		{name: "negative value", req: domain.CreateTransactionRequest{PlotID: 1, CategoryID: f.sale.TransactionCategoryID, Value: domain.MustMoney("-3"), TransactionDate: day}, wantErr: domain.ErrNonPositiveValue, wantKind: domain.KindInvalid},
		{name: "long description", req: domain.CreateTransactionRequest{PlotID: 1, CategoryID: f.sale.TransactionCategoryID, Description: &long, Value: domain.MustMoney("1"), TransactionDate: day}, wantKind: domain.KindInvalid},
		{name: "missing date", req: domain.CreateTransactionRequest{PlotID: 1, CategoryID: f.sale.TransactionCategoryID, Value: domain.MustMoney("1")}, wantKind: domain.KindInvalid},
		{name: "unknown plot", req: domain.CreateTransactionRequest{PlotID: 9, CategoryID: f.sale.TransactionCategoryID, Value: domain.MustMoney("1"), TransactionDate: day}, wantErr: domain.ErrPlotNotFound, wantKind: domain.KindNotFound},
		{name: "unknown category", req: domain.CreateTransactionRequest{PlotID: 1, CategoryID: 12345, Value: domain.MustMoney("1"), TransactionDate: day}, wantErr: domain.ErrCategoryNotFound, wantKind: domain.KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), ana, tt.req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
		})
	}
}

func TestCreate_CategoryWithoutType(t *testing.T) {
	f := newFixture(t)
	svc := NewService(untypedCategoryRepo{TransactionRepository: f.repo}, f.plots, f.gate, logger.Nop())

	_, err := svc.Create(context.Background(), ana, domain.CreateTransactionRequest{
		PlotID: 1, CategoryID: 55, Value: domain.MustMoney("1"), TransactionDate: day,
	})
	require.ErrorIs(t, err, domain.ErrTypeNotFound)
	assert.Equal(t, domain.KindInvalid, domain.KindOf(err))
}

func TestCreate_Forbidden(t *testing.T) {
	f := newFixture(t)
	f.gate.AuthorizeFunc = func(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error {
		return domain.ErrInsufficientPermission
	}

	_, err := f.svc.Create(context.Background(), ana, domain.CreateTransactionRequest{
		PlotID: 1, CategoryID: f.sale.TransactionCategoryID, Value: domain.MustMoney("1"), TransactionDate: day,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientPermission)
}

func TestEdit_OnlyProvidedFieldsChange(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, 1, f.sale, "10")

	newValue := domain.MustMoney("25.75")
	fertID := f.fert.TransactionCategoryID
	resp, err := f.svc.Edit(context.Background(), ana, domain.UpdateTransactionRequest{
		TransactionID: created.TransactionID,
		CategoryID:    &fertID,
		Value:         &newValue,
	})
	require.NoError(t, err)

	assert.Equal(t, "Fertilizante", resp.TransactionCategoryName)
	assert.Equal(t, "Gasto", resp.TransactionTypeName)
	assert.True(t, resp.Value.Equal(newValue.Decimal))
	assert.Equal(t, day, resp.TransactionDate)
	assert.Nil(t, resp.Description)
	assert.Equal(t, access.PermissionEditTransaction, f.gate.calls[len(f.gate.calls)-1])
}

func TestEdit_Errors(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, 1, f.sale, "10")
	zero := domain.MustMoney("0")

	_, err := f.svc.Edit(context.Background(), ana, domain.UpdateTransactionRequest{TransactionID: 424242})
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	_, err = f.svc.Edit(context.Background(), ana, domain.UpdateTransactionRequest{TransactionID: created.TransactionID, Value: &zero})
	assert.ErrorIs(t, err, domain.ErrNonPositiveValue)

	require.NoError(t, f.svc.Delete(context.Background(), ana, domain.DeleteTransactionRequest{TransactionID: created.TransactionID}))

	desc := "too late"
	_, err = f.svc.Edit(context.Background(), ana, domain.UpdateTransactionRequest{TransactionID: created.TransactionID, Description: &desc})
	require.ErrorIs(t, err, domain.ErrTransactionInactive)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

	stored, err := f.repo.GetTransactionByID(context.Background(), created.TransactionID)
	require.NoError(t, err)
	assert.Nil(t, stored.Description, "inactive transactions must not be mutated")
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, 1, f.sale, "10")
	ctx := context.Background()

	require.NoError(t, f.svc.Delete(ctx, ana, domain.DeleteTransactionRequest{TransactionID: created.TransactionID}))
	assert.Equal(t, access.PermissionDeleteTransaction, f.gate.calls[len(f.gate.calls)-1])

	stored, err := f.repo.GetTransactionByID(ctx, created.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateInactive, stored.State.Name)

	err = f.svc.Delete(ctx, ana, domain.DeleteTransactionRequest{TransactionID: created.TransactionID})
	require.ErrorIs(t, err, domain.ErrTransactionAlreadyDeleted)
	assert.Equal(t, domain.KindInvalid, domain.KindOf(err))

	err = f.svc.Delete(ctx, ana, domain.DeleteTransactionRequest{TransactionID: 31337})
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestEdit_ConcurrentDeleteIsNotUndone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, 1, f.sale, "10")

	// The delete commits after Edit has loaded the row but before it writes.
	f.gate.AuthorizeFunc = func(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error {
		if permission != access.PermissionEditTransaction {
			return nil
		}
		return f.svc.Delete(ctx, user, domain.DeleteTransactionRequest{TransactionID: created.TransactionID})
	}

	value := domain.MustMoney("999")
	_, err := f.svc.Edit(ctx, ana, domain.UpdateTransactionRequest{TransactionID: created.TransactionID, Value: &value})
	require.ErrorIs(t, err, domain.ErrTransactionInactive)

	stored, err := f.repo.GetTransactionByID(ctx, created.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateInactive, stored.State.Name)
	assert.True(t, stored.Value.Equal(domain.MustMoney("10").Decimal))
}

func TestDelete_KeepsConcurrentEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, 1, f.sale, "10")

	value := domain.MustMoney("42")
	f.gate.AuthorizeFunc = func(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error {
		if permission != access.PermissionDeleteTransaction {
			return nil
		}
		_, err := f.svc.Edit(ctx, user, domain.UpdateTransactionRequest{TransactionID: created.TransactionID, Value: &value})
		return err
	}

	require.NoError(t, f.svc.Delete(ctx, ana, domain.DeleteTransactionRequest{TransactionID: created.TransactionID}))

	stored, err := f.repo.GetTransactionByID(ctx, created.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateInactive, stored.State.Name)
	assert.True(t, stored.Value.Equal(value.Decimal))
}

func TestDelete_ConcurrentDeleteReportsAlreadyDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, 1, f.sale, "10")

	nested := false
	f.gate.AuthorizeFunc = func(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error {
		if nested {
			return nil
		}
		nested = true
		return f.svc.Delete(ctx, user, domain.DeleteTransactionRequest{TransactionID: created.TransactionID})
	}

	err := f.svc.Delete(ctx, ana, domain.DeleteTransactionRequest{TransactionID: created.TransactionID})
	assert.ErrorIs(t, err, domain.ErrTransactionAlreadyDeleted)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, 1, f.sale, "10")
	f.create(t, 1, f.fert, "5")
	f.create(t, 2, f.fert, "7")
	require.NoError(t, f.svc.Delete(ctx, ana, domain.DeleteTransactionRequest{TransactionID: first.TransactionID}))

	list, err := f.svc.List(ctx, ana, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Fertilizante", list[0].TransactionCategoryName)
	assert.Equal(t, domain.StateActive, list[0].TransactionState)
	assert.Equal(t, access.PermissionReadTransaction, f.gate.calls[len(f.gate.calls)-1])

	_, err = f.svc.List(ctx, ana, 9)
	assert.ErrorIs(t, err, domain.ErrPlotNotFound)
}

func TestToResponse_UnknownNames(t *testing.T) {
	resp := toResponse(&store.TransactionRow{TransactionID: 1, TransactionDate: store.DateTime(day)})
	assert.Equal(t, domain.UnknownName, resp.TransactionCategoryName)
	assert.Equal(t, domain.UnknownName, resp.TransactionTypeName)
	assert.Equal(t, domain.UnknownName, resp.TransactionState)
}

// Created transactions show up in the matching bucket of a report covering their date.
func TestCreatedTransactionsAppearInReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, 1, f.sale, "1000.50")
	f.create(t, 2, f.fert, "500.25")
	f.create(t, 2, f.transfer, "80")

	reports := report.NewService(report.Deps{
		Plots:  f.plots,
		Farms:  mockFarms{},
		Gate:   f.gate,
		Source: f.repo,
		Users:  mockUsers{},
	}, logger.Nop())

	resp, err := reports.GenerateFinancialReport(ctx, ana, domain.FinancialReportRequest{
		PlotIDs:                   []int64{1, 2},
		PeriodStart:               civil.Date{Year: 2023, Month: 1, Day: 1},
		PeriodEnd:                 civil.Date{Year: 2023, Month: 12, Day: 31},
		IncludeTransactionHistory: true,
	})
	require.NoError(t, err)

	assert.True(t, resp.PlotFinancials[0].IncomeTotal.Equal(domain.MustMoney("1000.50").Decimal))
	assert.True(t, resp.PlotFinancials[0].ExpenseTotal.IsZero())
	assert.True(t, resp.PlotFinancials[1].IncomeTotal.IsZero())
	assert.True(t, resp.PlotFinancials[1].ExpenseTotal.Equal(domain.MustMoney("500.25").Decimal))
	assert.True(t, resp.FarmSummary.Balance.Equal(domain.MustMoney("500.25").Decimal))
	assert.Len(t, resp.TransactionHistory, 2)
}
