package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/store"
)

// UserLookup resolves users by id. A nil user means unknown.
type UserLookup interface {
	GetUserByID(ctx context.Context, userID int64) (*domain.UserInfo, error)
}

// CreatorNames memoizes creator display names for a single report.
// Each distinct id is looked up at most once, including ids that resolve to the fallback.
type CreatorNames struct {
	users UserLookup
	names map[int64]string
	log   zerolog.Logger
}

// NewCreatorNames creates an empty cache. Create one per report and discard it afterwards.
func NewCreatorNames(users UserLookup, log zerolog.Logger) *CreatorNames {
	return &CreatorNames{users: users, names: make(map[int64]string), log: log}
}

// Name returns the display name of a creator, or "User #<id>" when it cannot be resolved.
func (c *CreatorNames) Name(ctx context.Context, creatorID int64) string {
	if name, ok := c.names[creatorID]; ok {
		return name
	}

	name := fmt.Sprintf("User #%d", creatorID)
	user, err := c.users.GetUserByID(ctx, creatorID)
	switch {
	case err != nil:
		c.log.Warn().Err(err).Int64("creator_id", creatorID).Msg("Creator lookup failed, using fallback name")
	case user == nil:
		c.log.Debug().Int64("creator_id", creatorID).Msg("Creator not found, using fallback name")
	case user.Name != "":
		name = user.Name
	}

	c.names[creatorID] = name
	return name
}

// HistoryBuilder expands report transactions into audit lines.
type HistoryBuilder struct {
	log zerolog.Logger
}

// NewHistoryBuilder creates a HistoryBuilder.
func NewHistoryBuilder(log zerolog.Logger) *HistoryBuilder {
	return &HistoryBuilder{log: log}
}

// Build returns one item per transaction that the Aggregator would count, in fetch order.
// A failure while building one item drops that item only.
func (b *HistoryBuilder) Build(ctx context.Context, txns []*store.TransactionRow, categories map[int64]CategoryInfo, plotNames map[int64]string, farmName string, creators *CreatorNames) []domain.TransactionHistoryItem {
	items := make([]domain.TransactionHistoryItem, 0, len(txns))
	for _, txn := range txns {
		item, ok, err := b.buildItem(ctx, txn, categories, plotNames, farmName, creators)
		if err != nil {
			b.log.Error().Err(err).Int64("transaction_id", txn.TransactionID).Msg("Failed to build history item, skipping")
			continue
		}
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items
}

func (b *HistoryBuilder) buildItem(ctx context.Context, txn *store.TransactionRow, categories map[int64]CategoryInfo, plotNames map[int64]string, farmName string, creators *CreatorNames) (item domain.TransactionHistoryItem, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("building history item: %v", r)
			ok = false
		}
	}()

	cat, found := resolveCategory(txn, categories)
	if !found {
		b.log.Warn().
			Int64("transaction_id", txn.TransactionID).
			Int64("category_id", txn.TransactionCategoryID).
			Msg("History: transaction has no category or type, skipping")
		return item, false, nil
	}
	if Classify(cat.TypeName) == Unclassified {
		b.log.Warn().
			Int64("transaction_id", txn.TransactionID).
			Str("type", cat.TypeName).
			Msg("History: unrecognized transaction type, skipping")
		return item, false, nil
	}

	plotName, found := plotNames[txn.PlotID]
	if !found {
		b.log.Warn().
			Int64("transaction_id", txn.TransactionID).
			Int64("plot_id", txn.PlotID).
			Msg("History: transaction belongs to a plot outside the report, skipping")
		return item, false, nil
	}

	return domain.TransactionHistoryItem{
		Date:                txn.Date(),
		PlotName:            plotName,
		FarmName:            farmName,
		TransactionTypeName: cat.TypeName,
		CategoryName:        cat.CategoryName,
		CreatorDisplayName:  creators.Name(ctx, txn.CreatorID),
		Value:               domain.NewMoney(txn.Value),
	}, true, nil
}
