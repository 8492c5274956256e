package store

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ReportSource provides the read paths used to build financial reports.
// It is implemented by the relational repository and by the BigQuery warehouse.
type ReportSource interface {
	// GetTransactionStateByName returns the state row with the given name, or nil if absent.
	GetTransactionStateByName(ctx context.Context, name string) (*TransactionStateRow, error)

	// QueryReportTransactions returns the transactions of the given plots whose date lies in
	// [start, end] (both inclusive) and whose state is stateID, ordered by date then id.
	QueryReportTransactions(ctx context.Context, plotIDs []int64, start, end civil.Date, stateID int64) ([]*TransactionRow, error)

	// GetCategoriesWithTypes loads the given categories and their types in one round-trip.
	GetCategoriesWithTypes(ctx context.Context, categoryIDs []int64) ([]CategoryRow, error)
}

// TransactionRepository provides the write and lookup paths of the transaction lifecycle.
type TransactionRepository interface {
	ReportSource

	// InsertTransaction stores row and sets its TransactionID.
	InsertTransaction(ctx context.Context, row *TransactionRow) error

	// GetTransactionByID returns the transaction with its category, type and state loaded,
	// or nil if it does not exist.
	GetTransactionByID(ctx context.Context, transactionID int64) (*TransactionRow, error)

	// UpdateActiveTransaction writes the columns set in upd, provided the transaction is not in
	// inactiveStateID. It reports false when no writable transaction matched.
	UpdateActiveTransaction(ctx context.Context, transactionID, inactiveStateID int64, upd TransactionUpdate) (bool, error)

	// DeactivateTransaction moves the transaction to inactiveStateID. It reports false when the
	// transaction does not exist or is already inactive.
	DeactivateTransaction(ctx context.Context, transactionID, inactiveStateID int64) (bool, error)

	// ListTransactionsByPlot returns the transactions of a plot whose state is not excludedStateID.
	ListTransactionsByPlot(ctx context.Context, plotID, excludedStateID int64) ([]*TransactionRow, error)

	// GetCategoryWithType returns one category with its type, or nil if it does not exist.
	GetCategoryWithType(ctx context.Context, categoryID int64) (*CategoryRow, error)
}

// CatalogRepository lists reference data.
type CatalogRepository interface {
	// ListTransactionTypes returns every transaction type ordered by id.
	ListTransactionTypes(ctx context.Context) ([]TransactionTypeRow, error)

	// ListCategoriesWithTypes returns every category with its type ordered by id.
	ListCategoriesWithTypes(ctx context.Context) ([]CategoryRow, error)
}

// TransactionUpdate holds the columns an edit changes. Nil fields are left untouched.
type TransactionUpdate struct {
	CategoryID  *int64
	Description *string
	Value       *decimal.Decimal
	Date        *time.Time
}

// TransactionStateRow is a row of transaction_states.
type TransactionStateRow struct {
	TransactionStateID int64  `gorm:"column:transaction_state_id;primaryKey"`
	Name               string `gorm:"column:name;size:50;not null;uniqueIndex"`
}

func (TransactionStateRow) TableName() string { return "transaction_states" }

// TransactionTypeRow is a row of transaction_types.
type TransactionTypeRow struct {
	TransactionTypeID int64  `gorm:"column:transaction_type_id;primaryKey"`
	Name              string `gorm:"column:name;size:50;not null;uniqueIndex"`
}

func (TransactionTypeRow) TableName() string { return "transaction_types" }

// CategoryRow is a row of transaction_categories. TransactionType is loaded on demand.
type CategoryRow struct {
	TransactionCategoryID int64  `gorm:"column:transaction_category_id;primaryKey"`
	Name                  string `gorm:"column:name;size:50;not null;uniqueIndex:uq_category_name_type"`
	TransactionTypeID     int64  `gorm:"column:transaction_type_id;not null;uniqueIndex:uq_category_name_type"`

	TransactionType *TransactionTypeRow `gorm:"foreignKey:TransactionTypeID;references:TransactionTypeID"`
}

func (CategoryRow) TableName() string { return "transaction_categories" }

// TypeName returns the name of the loaded type, or "" when it is missing.
func (c *CategoryRow) TypeName() string {
	if c == nil || c.TransactionType == nil {
		return ""
	}
	return c.TransactionType.Name
}

// TransactionRow is a row of transactions.
type TransactionRow struct {
	TransactionID         int64           `gorm:"column:transaction_id;primaryKey"`
	PlotID                int64           `gorm:"column:plot_id;not null;index"`
	Description           *string         `gorm:"column:description;size:255"`
	TransactionDate       time.Time       `gorm:"column:transaction_date;type:date;not null;index"`
	TransactionStateID    int64           `gorm:"column:transaction_state_id;not null"`
	Value                 decimal.Decimal `gorm:"column:value;type:numeric(15,2);not null"`
	TransactionCategoryID int64           `gorm:"column:transaction_category_id;not null"`
	CreatorID             int64           `gorm:"column:creator_id;not null"`

	Category *CategoryRow         `gorm:"foreignKey:TransactionCategoryID;references:TransactionCategoryID"`
	State    *TransactionStateRow `gorm:"foreignKey:TransactionStateID;references:TransactionStateID"`
}

func (TransactionRow) TableName() string { return "transactions" }

// Date returns the calendar date of the transaction.
func (t *TransactionRow) Date() civil.Date {
	return civil.DateOf(t.TransactionDate)
}

// DateTime converts a calendar date to the midnight-UTC value stored in TransactionDate.
func DateTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}
