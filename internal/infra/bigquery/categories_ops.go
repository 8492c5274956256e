package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/coffeetech/transactions/internal/store"
)

// GetCategoriesWithTypesWithClient loads categories and their type names with one join query.
func GetCategoriesWithTypesWithClient(ctx context.Context, client *bigquery.Client, datasetID string, categoryIDs []int64) ([]store.CategoryRow, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			c.transaction_category_id,
			c.name,
			c.transaction_type_id,
			t.name AS type_name
		FROM %s c
		LEFT JOIN %s t
		  ON c.transaction_type_id = t.transaction_type_id
		WHERE c.transaction_category_id IN UNNEST(@category_ids)
	`, table(client, datasetID, "transaction_categories"), table(client, datasetID, "transaction_types")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "category_ids", Value: categoryIDs},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetCategoriesWithTypes: query read: %w", err)
	}

	var rows []store.CategoryRow
	for {
		var r CategoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("GetCategoriesWithTypes: iter next: %w", err)
		}
		rows = append(rows, r.toStore())
	}

	return rows, nil
}

// GetTransactionStateByNameWithClient returns the state row named name, or nil.
func GetTransactionStateByNameWithClient(ctx context.Context, client *bigquery.Client, datasetID, name string) (*store.TransactionStateRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT transaction_state_id, name
		FROM %s
		WHERE name = @name
		LIMIT 1
	`, table(client, datasetID, "transaction_states")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "name", Value: name},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTransactionStateByName: query read: %w", err)
	}

	var r StateRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransactionStateByName: iter next: %w", err)
	}
	return &store.TransactionStateRow{TransactionStateID: r.TransactionStateID, Name: r.Name}, nil
}
