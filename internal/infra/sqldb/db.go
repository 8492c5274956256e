package sqldb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/store"
)

// Open connects to the database with the named driver ("postgres" or "sqlite").
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("Open: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("Open: failed to connect to database: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("Close: %w", err)
	}
	return sqlDB.Close()
}

// Migrate creates or updates the four transaction tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&store.TransactionStateRow{},
		&store.TransactionTypeRow{},
		&store.CategoryRow{},
		&store.TransactionRow{},
	)
	if err != nil {
		return fmt.Errorf("Migrate: failed to migrate schema: %w", err)
	}
	return nil
}

// DefaultTransactionTypes are the types every installation starts with.
var DefaultTransactionTypes = []string{"Ingreso", "Gasto"}

// SeedReferenceData inserts the transaction states and default types when missing.
// Running it twice is a no-op.
func SeedReferenceData(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx)
	for _, name := range []string{domain.StateActive, domain.StateInactive} {
		row := store.TransactionStateRow{Name: name}
		if err := tx.Where(&store.TransactionStateRow{Name: name}).FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("SeedReferenceData: state %q: %w", name, err)
		}
	}
	for _, name := range DefaultTransactionTypes {
		row := store.TransactionTypeRow{Name: name}
		if err := tx.Where(&store.TransactionTypeRow{Name: name}).FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("SeedReferenceData: type %q: %w", name, err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
