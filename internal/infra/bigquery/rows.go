package bigquery

import (
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/coffeetech/transactions/internal/store"
)

// TransactionRow is the warehouse copy of a transactions row.
type TransactionRow struct {
	TransactionID         int64               `bigquery:"transaction_id"`
	PlotID                int64               `bigquery:"plot_id"`
	Description           bigquery.NullString `bigquery:"description"`
	TransactionDate       civil.Date          `bigquery:"transaction_date"`
	TransactionStateID    int64               `bigquery:"transaction_state_id"`
	Value                 *big.Rat            `bigquery:"value"` // NUMERIC
	TransactionCategoryID int64               `bigquery:"transaction_category_id"`
	CreatorID             int64               `bigquery:"creator_id"`
}

// CategoryRow is a category joined with its (nullable) type.
type CategoryRow struct {
	TransactionCategoryID int64               `bigquery:"transaction_category_id"`
	Name                  string              `bigquery:"name"`
	TransactionTypeID     bigquery.NullInt64  `bigquery:"transaction_type_id"`
	TypeName              bigquery.NullString `bigquery:"type_name"`
}

// StateRow is a row of transaction_states.
type StateRow struct {
	TransactionStateID int64  `bigquery:"transaction_state_id"`
	Name               string `bigquery:"name"`
}

func (r *TransactionRow) toStore() (*store.TransactionRow, error) {
	value := decimal.Zero
	if r.Value != nil {
		v, err := decimal.NewFromString(r.Value.FloatString(2))
		if err != nil {
			return nil, fmt.Errorf("transaction %d: value: %w", r.TransactionID, err)
		}
		value = v
	}

	row := &store.TransactionRow{
		TransactionID:         r.TransactionID,
		PlotID:                r.PlotID,
		TransactionDate:       store.DateTime(r.TransactionDate),
		TransactionStateID:    r.TransactionStateID,
		Value:                 value,
		TransactionCategoryID: r.TransactionCategoryID,
		CreatorID:             r.CreatorID,
	}
	if r.Description.Valid {
		desc := r.Description.StringVal
		row.Description = &desc
	}
	return row, nil
}

func (r *CategoryRow) toStore() store.CategoryRow {
	row := store.CategoryRow{
		TransactionCategoryID: r.TransactionCategoryID,
		Name:                  r.Name,
	}
	if r.TransactionTypeID.Valid {
		row.TransactionTypeID = r.TransactionTypeID.Int64
		if r.TypeName.Valid {
			row.TransactionType = &store.TransactionTypeRow{
				TransactionTypeID: r.TransactionTypeID.Int64,
				Name:              r.TypeName.StringVal,
			}
		}
	}
	return row
}
