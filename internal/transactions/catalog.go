package transactions

import (
	"context"

	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/store"
)

// Catalog exposes the transaction type and category reference data.
type Catalog struct {
	repo store.CatalogRepository
}

// NewCatalog creates a Catalog.
func NewCatalog(repo store.CatalogRepository) *Catalog {
	return &Catalog{repo: repo}
}

// Types lists every transaction type.
func (c *Catalog) Types(ctx context.Context) ([]domain.TransactionTypeView, error) {
	rows, err := c.repo.ListTransactionTypes(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]domain.TransactionTypeView, 0, len(rows))
	for _, row := range rows {
		views = append(views, domain.TransactionTypeView{
			TransactionTypeID: row.TransactionTypeID,
			Name:              row.Name,
		})
	}
	return views, nil
}

// Categories lists every category with the name of its type.
func (c *Catalog) Categories(ctx context.Context) ([]domain.TransactionCategoryView, error) {
	rows, err := c.repo.ListCategoriesWithTypes(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]domain.TransactionCategoryView, 0, len(rows))
	for i := range rows {
		typeName := rows[i].TypeName()
		if typeName == "" {
			typeName = domain.UnknownName
		}
		views = append(views, domain.TransactionCategoryView{
			TransactionCategoryID: rows[i].TransactionCategoryID,
			Name:                  rows[i].Name,
			TransactionTypeID:     rows[i].TransactionTypeID,
			TransactionTypeName:   typeName,
		})
	}
	return views, nil
}
