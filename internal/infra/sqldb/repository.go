package sqldb

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"gorm.io/gorm"

	"github.com/coffeetech/transactions/internal/store"
)

// Repository implements the transaction, catalog and report stores on a relational database.
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps an open connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var (
	_ store.TransactionRepository = (*Repository)(nil)
	_ store.CatalogRepository     = (*Repository)(nil)
	_ store.ReportSource          = (*Repository)(nil)
)

// GetTransactionStateByName returns the state row or nil when it is not configured.
func (r *Repository) GetTransactionStateByName(ctx context.Context, name string) (*store.TransactionStateRow, error) {
	var row store.TransactionStateRow
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransactionStateByName: %w", err)
	}
	return &row, nil
}

// QueryReportTransactions selects the report window for a set of plots in a single query.
func (r *Repository) QueryReportTransactions(ctx context.Context, plotIDs []int64, start, end civil.Date, stateID int64) ([]*store.TransactionRow, error) {
	if len(plotIDs) == 0 {
		return nil, nil
	}

	var rows []*store.TransactionRow
	err := r.db.WithContext(ctx).
		Where("plot_id IN ?", plotIDs).
		Where("transaction_date >= ? AND transaction_date <= ?", store.DateTime(start), store.DateTime(end)).
		Where("transaction_state_id = ?", stateID).
		Order("transaction_date, transaction_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("QueryReportTransactions: %w", err)
	}
	return rows, nil
}

// GetCategoriesWithTypes loads categories by id with their types preloaded.
// Preload issues one IN query for the types, so the cost does not grow with len(categoryIDs).
func (r *Repository) GetCategoriesWithTypes(ctx context.Context, categoryIDs []int64) ([]store.CategoryRow, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	var rows []store.CategoryRow
	err := r.db.WithContext(ctx).
		Preload("TransactionType").
		Where("transaction_category_id IN ?", categoryIDs).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("GetCategoriesWithTypes: %w", err)
	}
	return rows, nil
}

// InsertTransaction stores a new transaction.
func (r *Repository) InsertTransaction(ctx context.Context, row *store.TransactionRow) error {
	if err := r.db.WithContext(ctx).Omit("Category", "State").Create(row).Error; err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// GetTransactionByID loads one transaction with its category, type and state.
func (r *Repository) GetTransactionByID(ctx context.Context, transactionID int64) (*store.TransactionRow, error) {
	var row store.TransactionRow
	err := r.db.WithContext(ctx).
		Preload("Category.TransactionType").
		Preload("State").
		Where("transaction_id = ?", transactionID).
		First(&row).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransactionByID: %w", err)
	}
	return &row, nil
}

// UpdateActiveTransaction writes the provided columns in a single conditional UPDATE, so a
// concurrent delete is never undone.
func (r *Repository) UpdateActiveTransaction(ctx context.Context, transactionID, inactiveStateID int64, upd store.TransactionUpdate) (bool, error) {
	cols := make(map[string]interface{}, 4)
	if upd.CategoryID != nil {
		cols["transaction_category_id"] = *upd.CategoryID
	}
	if upd.Description != nil {
		cols["description"] = *upd.Description
	}
	if upd.Value != nil {
		cols["value"] = *upd.Value
	}
	if upd.Date != nil {
		cols["transaction_date"] = *upd.Date
	}

	q := r.db.WithContext(ctx).
		Model(&store.TransactionRow{}).
		Where("transaction_id = ? AND transaction_state_id <> ?", transactionID, inactiveStateID)

	if len(cols) == 0 {
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return false, fmt.Errorf("UpdateActiveTransaction: %w", err)
		}
		return n > 0, nil
	}

	result := q.Updates(cols)
	if result.Error != nil {
		return false, fmt.Errorf("UpdateActiveTransaction: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeactivateTransaction changes only the state column.
func (r *Repository) DeactivateTransaction(ctx context.Context, transactionID, inactiveStateID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&store.TransactionRow{}).
		Where("transaction_id = ? AND transaction_state_id <> ?", transactionID, inactiveStateID).
		Update("transaction_state_id", inactiveStateID)
	if result.Error != nil {
		return false, fmt.Errorf("DeactivateTransaction: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListTransactionsByPlot returns a plot's transactions, skipping those in excludedStateID.
func (r *Repository) ListTransactionsByPlot(ctx context.Context, plotID, excludedStateID int64) ([]*store.TransactionRow, error) {
	var rows []*store.TransactionRow
	err := r.db.WithContext(ctx).
		Preload("Category.TransactionType").
		Preload("State").
		Where("plot_id = ? AND transaction_state_id <> ?", plotID, excludedStateID).
		Order("transaction_date, transaction_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsByPlot: %w", err)
	}
	return rows, nil
}

// GetCategoryWithType loads one category with its type.
func (r *Repository) GetCategoryWithType(ctx context.Context, categoryID int64) (*store.CategoryRow, error) {
	var row store.CategoryRow
	err := r.db.WithContext(ctx).
		Preload("TransactionType").
		Where("transaction_category_id = ?", categoryID).
		First(&row).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetCategoryWithType: %w", err)
	}
	return &row, nil
}

// ListTransactionTypes returns the type catalog.
func (r *Repository) ListTransactionTypes(ctx context.Context) ([]store.TransactionTypeRow, error) {
	var rows []store.TransactionTypeRow
	if err := r.db.WithContext(ctx).Order("transaction_type_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListTransactionTypes: %w", err)
	}
	return rows, nil
}

// ListCategoriesWithTypes returns the category catalog.
func (r *Repository) ListCategoriesWithTypes(ctx context.Context) ([]store.CategoryRow, error) {
	var rows []store.CategoryRow
	err := r.db.WithContext(ctx).
		Preload("TransactionType").
		Order("transaction_category_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ListCategoriesWithTypes: %w", err)
	}
	return rows, nil
}
