package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockLevelRepository implements StockLevelRepository using GORM.
// Writes are guarded by the version column.
type GormStockLevelRepository struct {
	db *gorm.DB
}

// NewGormStockLevelRepository creates a new GormStockLevelRepository
func NewGormStockLevelRepository(db *gorm.DB) *GormStockLevelRepository {
	return &GormStockLevelRepository{db: db}
}

// Find finds the stock level at key
func (r *GormStockLevelRepository) Find(ctx context.Context, key inventory.StockKey) (*inventory.StockLevel, error) {
	var model models.StockLevelModel
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND location_id = ?", key.ItemID, key.LocationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrStockLevelNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts a level at version 1, or updates the row still holding
// version-1. Losing either race is a concurrency conflict.
func (r *GormStockLevelRepository) Save(ctx context.Context, level *inventory.StockLevel) error {
	key := level.Key()
	if level.Version < 1 {
		return fmt.Errorf("%w: stock level %s has version %d", shared.ErrInvalidState, key, level.Version)
	}

	if level.Version == 1 {
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(models.StockLevelModelFromDomain(level))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: stock level %s already exists", shared.ErrConcurrencyConflict, key)
		}
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.StockLevelModel{}).
		Where("item_id = ? AND location_id = ? AND version = ?", level.ItemID, level.LocationID, level.Version-1).
		Updates(map[string]interface{}{
			"current_quantity":  level.CurrentQuantity,
			"reserved_quantity": level.ReservedQuantity,
			"version":           level.Version,
			"updated_at":        level.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: stock level %s", shared.ErrConcurrencyConflict, key)
	}
	return nil
}

// FindByLocation finds every level at the location
func (r *GormStockLevelRepository) FindByLocation(ctx context.Context, locationID uuid.UUID) ([]inventory.StockLevel, error) {
	return r.find(r.db.WithContext(ctx).Where("location_id = ?", locationID))
}

// FindByItem finds every level of the item
func (r *GormStockLevelRepository) FindByItem(ctx context.Context, itemID uuid.UUID) ([]inventory.StockLevel, error) {
	return r.find(r.db.WithContext(ctx).Where("item_id = ?", itemID))
}

// FindAll finds every level
func (r *GormStockLevelRepository) FindAll(ctx context.Context) ([]inventory.StockLevel, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *GormStockLevelRepository) find(query *gorm.DB) ([]inventory.StockLevel, error) {
	var levelModels []models.StockLevelModel
	if err := query.Order("item_id ASC, location_id ASC").Find(&levelModels).Error; err != nil {
		return nil, err
	}
	levels := make([]inventory.StockLevel, len(levelModels))
	for i := range levelModels {
		levels[i] = *levelModels[i].ToDomain()
	}
	return levels, nil
}

// Ensure GormStockLevelRepository implements StockLevelRepository
var _ inventory.StockLevelRepository = (*GormStockLevelRepository)(nil)
