package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVendorRepository implements VendorCatalog using GORM
type GormVendorRepository struct {
	db *gorm.DB
}

// NewGormVendorRepository creates a new GormVendorRepository
func NewGormVendorRepository(db *gorm.DB) *GormVendorRepository {
	return &GormVendorRepository{db: db}
}

// GetPreferredVendor finds the active vendor marked preferred for the item
func (r *GormVendorRepository) GetPreferredVendor(ctx context.Context, itemID uuid.UUID) (*inventory.Vendor, error) {
	var model models.VendorModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN vendor_items ON vendor_items.vendor_id = vendors.id").
		Where("vendor_items.item_id = ? AND vendor_items.preferred = ? AND vendors.is_active = ?", itemID, true, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrVendorNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UnitCost returns what the vendor charges for the item
func (r *GormVendorRepository) UnitCost(ctx context.Context, vendorID, itemID uuid.UUID) (decimal.Decimal, error) {
	var model models.VendorItemModel
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND item_id = ?", vendorID, itemID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, inventory.ErrVendorNotFound
		}
		return decimal.Zero, err
	}
	return model.UnitCost, nil
}

// Create registers a new active vendor
func (r *GormVendorRepository) Create(ctx context.Context, name string, now time.Time) (*inventory.Vendor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor name is required")
	}
	model := &models.VendorModel{
		BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:      name,
		IsActive:  true,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// SetPrice records the vendor's price for an item. Marking the vendor
// preferred clears the flag on the item's other vendors.
func (r *GormVendorRepository) SetPrice(ctx context.Context, vendorID, itemID uuid.UUID, unitCost decimal.Decimal, preferred bool, now time.Time) error {
	if unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_UNIT_COST", "Unit cost cannot be negative")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.VendorModel{}).Where("id = ?", vendorID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return inventory.ErrVendorNotFound
		}
		if preferred {
			if err := tx.Model(&models.VendorItemModel{}).
				Where("item_id = ? AND vendor_id <> ?", itemID, vendorID).
				Updates(map[string]interface{}{"preferred": false, "updated_at": now}).Error; err != nil {
				return err
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor_id"}, {Name: "item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"unit_cost", "preferred", "updated_at"}),
		}).Create(&models.VendorItemModel{
			VendorID:  vendorID,
			ItemID:    itemID,
			UnitCost:  unitCost,
			Preferred: preferred,
			UpdatedAt: now,
		}).Error
	})
}

// Ensure GormVendorRepository implements VendorCatalog
var _ inventory.VendorCatalog = (*GormVendorRepository)(nil)
