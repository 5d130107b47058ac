package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInventoryTransactionRepository implements TransactionRepository using GORM
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new GormInventoryTransactionRepository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// Save writes the transaction header and replaces its lines
func (r *GormInventoryTransactionRepository) Save(ctx context.Context, tx *inventory.Transaction) error {
	model := models.InventoryTransactionModelFromDomain(tx)
	db := r.db.WithContext(ctx)
	if err := db.Omit("Lines").Save(model).Error; err != nil {
		return err
	}
	if err := db.Where("transaction_id = ?", tx.ID).Delete(&models.InventoryTransactionLineModel{}).Error; err != nil {
		return err
	}
	if len(model.Lines) == 0 {
		return nil
	}
	return db.Create(&model.Lines).Error
}

// FindByID finds a transaction with its lines
func (r *GormInventoryTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Transaction, error) {
	var model models.InventoryTransactionModel
	if err := r.withLines(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrTransactionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByReference finds the most recent transaction carrying reference
func (r *GormInventoryTransactionRepository) FindByReference(ctx context.Context, reference string) (*inventory.Transaction, error) {
	if reference == "" {
		return nil, inventory.ErrTransactionNotFound
	}
	var model models.InventoryTransactionModel
	if err := r.withLines(r.db.WithContext(ctx)).
		Where("reference = ?", reference).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrTransactionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindSince finds transactions dated after since, oldest first
func (r *GormInventoryTransactionRepository) FindSince(ctx context.Context, since time.Time, types ...inventory.TransactionType) ([]inventory.Transaction, error) {
	query := r.withLines(r.db.WithContext(ctx)).Where("date > ?", since)
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		query = query.Where("type IN ?", names)
	}

	var txModels []models.InventoryTransactionModel
	if err := query.Order("date ASC, created_at ASC").Find(&txModels).Error; err != nil {
		return nil, err
	}
	txs := make([]inventory.Transaction, len(txModels))
	for i := range txModels {
		txs[i] = *txModels[i].ToDomain()
	}
	return txs, nil
}

// LatestReceiptCost returns the unit cost on the item's last committed receive line
func (r *GormInventoryTransactionRepository) LatestReceiptCost(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, bool, error) {
	var rows []struct {
		UnitCost decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Table("inventory_transaction_lines AS l").
		Select("l.unit_cost").
		Joins("JOIN inventory_transactions AS t ON t.id = l.transaction_id").
		Where("t.type = ? AND t.committed_at IS NOT NULL", string(inventory.TransactionTypeReceive)).
		Where("l.item_id = ? AND l.status = ? AND l.unit_cost IS NOT NULL", itemID, string(inventory.LineStatusCommitted)).
		Order("t.date DESC, t.created_at DESC, l.line_no DESC").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return decimal.Zero, false, err
	}
	if len(rows) == 0 || !rows[0].UnitCost.Valid {
		return decimal.Zero, false, nil
	}
	return rows[0].UnitCost.Decimal, true, nil
}

func (r *GormInventoryTransactionRepository) withLines(query *gorm.DB) *gorm.DB {
	return query.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_no ASC")
	})
}

// Ensure GormInventoryTransactionRepository implements TransactionRepository
var _ inventory.TransactionRepository = (*GormInventoryTransactionRepository)(nil)
