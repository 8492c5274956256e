package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/api/middleware"
	"github.com/coffeetech/transactions/internal/domain"
)

// TransactionService is the transaction lifecycle used by the handlers.
type TransactionService interface {
	Create(ctx context.Context, user *domain.UserInfo, req domain.CreateTransactionRequest) (*domain.TransactionResponse, error)
	Edit(ctx context.Context, user *domain.UserInfo, req domain.UpdateTransactionRequest) (*domain.TransactionResponse, error)
	Delete(ctx context.Context, user *domain.UserInfo, req domain.DeleteTransactionRequest) error
	List(ctx context.Context, user *domain.UserInfo, plotID int64) ([]domain.TransactionResponse, error)
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	svc TransactionService
	log zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc TransactionService, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		svc: svc,
		log: log,
	}
}

// CreateTransaction handles POST /transaction/create-transaction
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req domain.CreateTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.PlotID <= 0 || req.CategoryID <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "plot_id and transaction_category_id are required")
		return
	}

	txn, err := h.svc.Create(r.Context(), user, req)
	if err != nil {
		middleware.WriteServiceError(w, requestLog(r, h.log), err)
		return
	}

	reqLog := requestLog(r, h.log)
	reqLog.Info().
		Int64("transaction_id", txn.TransactionID).
		Int64("plot_id", txn.PlotID).
		Int64("user_id", user.UserID).
		Msg("Transaction created")

	middleware.WriteSuccess(w, http.StatusOK, "transaction created", map[string]interface{}{
		"transaction": txn,
	})
}

// EditTransaction handles POST /transaction/edit-transaction
func (h *TransactionsHandler) EditTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req domain.UpdateTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.TransactionID <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "transaction_id is required")
		return
	}

	txn, err := h.svc.Edit(r.Context(), user, req)
	if err != nil {
		middleware.WriteServiceError(w, requestLog(r, h.log), err)
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, "transaction updated", map[string]interface{}{
		"transaction": txn,
	})
}

// DeleteTransaction handles POST /transaction/delete-transaction
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req domain.DeleteTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.TransactionID <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "transaction_id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), user, req); err != nil {
		middleware.WriteServiceError(w, requestLog(r, h.log), err)
		return
	}

	reqLog := requestLog(r, h.log)
	reqLog.Info().
		Int64("transaction_id", req.TransactionID).
		Int64("user_id", user.UserID).
		Msg("Transaction deleted")

	middleware.WriteSuccess(w, http.StatusOK, "transaction deleted", nil)
}

// ListTransactions handles GET /transaction/list-transactions/{plot_id}
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request, rawPlotID string) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	plotID, ok := parseID(rawPlotID)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "invalid plot_id")
		return
	}

	transactions, err := h.svc.List(r.Context(), user, plotID)
	if err != nil {
		middleware.WriteServiceError(w, requestLog(r, h.log), err)
		return
	}

	// Always an array, never null.
	if transactions == nil {
		transactions = []domain.TransactionResponse{}
	}

	message := "transactions retrieved"
	if len(transactions) == 0 {
		message = "no transactions found for the plot"
	}

	middleware.WriteSuccess(w, http.StatusOK, message, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}
