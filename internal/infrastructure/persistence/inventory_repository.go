package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInventoryItemRepository implements ItemRepository using GORM
type GormInventoryItemRepository struct {
	db *gorm.DB
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db}
}

// GetItem finds an item by ID
func (r *GormInventoryItemRepository) GetItem(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	var model models.InventoryItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrItemNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySku finds an item by SKU, ignoring case
func (r *GormInventoryItemRepository) FindBySku(ctx context.Context, sku string) (*inventory.InventoryItem, error) {
	var model models.InventoryItemModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(sku) = ?", strings.ToLower(strings.TrimSpace(sku))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrItemNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all items matching the filter, ordered by the filter's sort key
// with SKU breaking ties
func (r *GormInventoryItemRepository) FindAll(ctx context.Context, filter inventory.ItemFilter) ([]inventory.InventoryItem, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryItemModel{})
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if len(filter.Categories) > 0 {
		lowered := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			lowered[i] = strings.ToLower(strings.TrimSpace(c))
		}
		query = query.Where("LOWER(category) IN ?", lowered)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var itemModels []models.InventoryItemModel
	if err := query.Order(itemOrderClause(filter)).Find(&itemModels).Error; err != nil {
		return nil, err
	}
	items := make([]inventory.InventoryItem, len(itemModels))
	for i := range itemModels {
		items[i] = *itemModels[i].ToDomain()
	}
	return items, nil
}

// Save creates or updates an item. A SKU held by another item is refused.
func (r *GormInventoryItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryItemModel{}).
		Where("LOWER(sku) = ? AND id <> ?", strings.ToLower(item.SKU), item.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return inventory.ErrDuplicateSKU
	}
	return r.db.WithContext(ctx).Save(models.InventoryItemModelFromDomain(item)).Error
}

// Ensure GormInventoryItemRepository implements ItemRepository
var _ inventory.ItemRepository = (*GormInventoryItemRepository)(nil)
