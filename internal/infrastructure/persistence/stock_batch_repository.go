package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockBatchRepository implements BatchRepository using GORM
type GormStockBatchRepository struct {
	db *gorm.DB
}

// NewGormStockBatchRepository creates a new GormStockBatchRepository
func NewGormStockBatchRepository(db *gorm.DB) *GormStockBatchRepository {
	return &GormStockBatchRepository{db: db}
}

// FindByID finds a lot by its ID
func (r *GormStockBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	var model models.BatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrBatchNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an item's lot by batch number
func (r *GormStockBatchRepository) FindByNumber(ctx context.Context, itemID uuid.UUID, number string) (*inventory.Batch, error) {
	var model models.BatchModel
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND batch_number = ?", itemID, number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrBatchNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds lots matching the filter, ordered by receipt date then number
func (r *GormStockBatchRepository) FindAll(ctx context.Context, filter inventory.BatchFilter) ([]inventory.Batch, error) {
	query := r.db.WithContext(ctx).Model(&models.BatchModel{})
	if filter.ItemID != nil {
		query = query.Where("item_id = ?", *filter.ItemID)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.OnlyRemaining {
		query = query.Where("remaining_quantity > 0")
	}

	var batchModels []models.BatchModel
	if err := query.Order("received_date ASC, batch_number ASC").Find(&batchModels).Error; err != nil {
		return nil, err
	}
	batches := make([]inventory.Batch, len(batchModels))
	for i := range batchModels {
		batches[i] = *batchModels[i].ToDomain()
	}
	return batches, nil
}

// Save creates or updates a lot. A batch number held by another lot of the
// same item is refused.
func (r *GormStockBatchRepository) Save(ctx context.Context, batch *inventory.Batch) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BatchModel{}).
		Where("item_id = ? AND batch_number = ? AND id <> ?", batch.ItemID, batch.BatchNumber, batch.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return inventory.ErrDuplicateBatchNumber
	}
	return r.db.WithContext(ctx).Save(models.BatchModelFromDomain(batch)).Error
}

// Ensure GormStockBatchRepository implements BatchRepository
var _ inventory.BatchRepository = (*GormStockBatchRepository)(nil)
