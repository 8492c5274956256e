package domain

import (
	"cloud.google.com/go/civil"
)

// Names of the rows in the transaction_states reference table.
const (
	StateActive   = "Activo"
	StateInactive = "Inactivo"
)

// MaxDescriptionLength is the column width of transactions.description.
const MaxDescriptionLength = 255

// UnknownName is shown when a related category, type or state cannot be loaded.
const UnknownName = "Unknown"

// CreateTransactionRequest is the payload for recording a new transaction.
type CreateTransactionRequest struct {
	PlotID          int64      `json:"plot_id"`
	CategoryID      int64      `json:"transaction_category_id"`
	Description     *string    `json:"description,omitempty"`
	Value           Money      `json:"value"`
	TransactionDate civil.Date `json:"transaction_date"`
}

// UpdateTransactionRequest edits an existing transaction.
// Only non-nil fields are applied.
type UpdateTransactionRequest struct {
	TransactionID   int64       `json:"transaction_id"`
	CategoryID      *int64      `json:"transaction_category_id,omitempty"`
	Description     *string     `json:"description,omitempty"`
	Value           *Money      `json:"value,omitempty"`
	TransactionDate *civil.Date `json:"transaction_date,omitempty"`
}

// DeleteTransactionRequest soft-deletes a transaction.
type DeleteTransactionRequest struct {
	TransactionID int64 `json:"transaction_id"`
}

// TransactionResponse is the client view of one transaction with its related names resolved.
type TransactionResponse struct {
	TransactionID           int64      `json:"transaction_id"`
	PlotID                  int64      `json:"plot_id"`
	TransactionTypeName     string     `json:"transaction_type_name"`
	TransactionCategoryName string     `json:"transaction_category_name"`
	Description             *string    `json:"description"`
	Value                   Money      `json:"value"`
	TransactionDate         civil.Date `json:"transaction_date"`
	TransactionState        string     `json:"transaction_state"`
}

// TransactionTypeView is one entry of the transaction type catalog.
type TransactionTypeView struct {
	TransactionTypeID int64  `json:"transaction_type_id"`
	Name              string `json:"name"`
}

// TransactionCategoryView is one entry of the category catalog.
type TransactionCategoryView struct {
	TransactionCategoryID int64  `json:"transaction_category_id"`
	Name                  string `json:"name"`
	TransactionTypeID     int64  `json:"transaction_type_id"`
	TransactionTypeName   string `json:"transaction_type_name"`
}
