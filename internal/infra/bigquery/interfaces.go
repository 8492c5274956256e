package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/coffeetech/transactions/internal/store"
)

// BigQueryReportSource reads report data from the analytics warehouse, which holds
// a replicated copy of the transaction tables.
type BigQueryReportSource struct {
	client    *bigquery.Client
	datasetID string
}

var _ store.ReportSource = (*BigQueryReportSource)(nil)

// NewBigQueryReportSource creates a report source with a shared BigQuery client.
func NewBigQueryReportSource(ctx context.Context, projectID, datasetID string) (*BigQueryReportSource, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryReportSource: creating client: %w", err)
	}
	return &BigQueryReportSource{
		client:    client,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryReportSource) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// GetTransactionStateByName delegates to GetTransactionStateByNameWithClient.
func (r *BigQueryReportSource) GetTransactionStateByName(ctx context.Context, name string) (*store.TransactionStateRow, error) {
	return GetTransactionStateByNameWithClient(ctx, r.client, r.datasetID, name)
}

// QueryReportTransactions delegates to QueryReportTransactionsWithClient.
func (r *BigQueryReportSource) QueryReportTransactions(ctx context.Context, plotIDs []int64, start, end civil.Date, stateID int64) ([]*store.TransactionRow, error) {
	return QueryReportTransactionsWithClient(ctx, r.client, r.datasetID, plotIDs, start, end, stateID)
}

// GetCategoriesWithTypes delegates to GetCategoriesWithTypesWithClient.
func (r *BigQueryReportSource) GetCategoriesWithTypes(ctx context.Context, categoryIDs []int64) ([]store.CategoryRow, error) {
	return GetCategoriesWithTypesWithClient(ctx, r.client, r.datasetID, categoryIDs)
}

func table(client *bigquery.Client, datasetID, name string) string {
	return "`" + client.Project() + "." + datasetID + "." + name + "`"
}
