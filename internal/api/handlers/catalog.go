package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/api/middleware"
	"github.com/coffeetech/transactions/internal/domain"
)

// CatalogService lists reference data.
type CatalogService interface {
	Types(ctx context.Context) ([]domain.TransactionTypeView, error)
	Categories(ctx context.Context) ([]domain.TransactionCategoryView, error)
}

// CatalogHandler handles the transaction type and category listings.
type CatalogHandler struct {
	catalog CatalogService
	log     zerolog.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalog CatalogService, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		log:     log,
	}
}

// ListTransactionTypes handles GET /transaction/list-transaction-types
func (h *CatalogHandler) ListTransactionTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.Types(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transaction types")
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list transaction types")
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, "transaction types retrieved", map[string]interface{}{
		"transaction_types": types,
	})
}

// ListTransactionCategories handles GET /transaction/list-transaction-categories
func (h *CatalogHandler) ListTransactionCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transaction categories")
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list transaction categories")
		return
	}

	middleware.WriteSuccess(w, http.StatusOK, "transaction categories retrieved", map[string]interface{}{
		"transaction_categories": categories,
	})
}
