package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/coffeetech/transactions/internal/store"
)

// QueryReportTransactionsWithClient selects the transactions of plotIDs dated within
// [start, end] and in state stateID, ordered by date then id.
func QueryReportTransactionsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, plotIDs []int64, start, end civil.Date, stateID int64) ([]*store.TransactionRow, error) {
	if len(plotIDs) == 0 {
		return nil, nil
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			plot_id,
			description,
			transaction_date,
			transaction_state_id,
			value,
			transaction_category_id,
			creator_id
		FROM %s
		WHERE plot_id IN UNNEST(@plot_ids)
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		  AND transaction_state_id = @state_id
		ORDER BY transaction_date, transaction_id
	`, table(client, datasetID, "transactions")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "plot_ids", Value: plotIDs},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
		{Name: "state_id", Value: stateID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryReportTransactions: query read: %w", err)
	}

	var rows []*store.TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryReportTransactions: iter next: %w", err)
		}
		row, err := r.toStore()
		if err != nil {
			return nil, fmt.Errorf("QueryReportTransactions: %w", err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}
