package persistence

import (
	"context"

	"github.com/larder/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Every repository handed to fn writes through the same database transaction.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos inventory.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx))
	})
}

// NewGormRepositories bundles repositories bound to db, which may be a
// transaction handle.
func NewGormRepositories(db *gorm.DB) inventory.Repositories {
	return inventory.Repositories{
		Items:        NewGormInventoryItemRepository(db),
		Levels:       NewGormStockLevelRepository(db),
		Batches:      NewGormStockBatchRepository(db),
		Transactions: NewGormInventoryTransactionRepository(db),
		Reservations: NewGormReservationRepository(db),
	}
}

// Ensure GormTransactionScope implements TransactionScope
var _ inventory.TransactionScope = (*GormTransactionScope)(nil)
