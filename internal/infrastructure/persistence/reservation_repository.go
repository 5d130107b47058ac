package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReservationRepository implements ReservationRepository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID finds a reservation by its ID
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Reservation, error) {
	var model models.ReservationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrReservationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive finds the active reservations on key, oldest first
func (r *GormReservationRepository) FindActive(ctx context.Context, key inventory.StockKey) ([]inventory.Reservation, error) {
	var resModels []models.ReservationModel
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND location_id = ? AND status = ?", key.ItemID, key.LocationID, string(inventory.ReservationStatusActive)).
		Order("created_at ASC").
		Find(&resModels).Error; err != nil {
		return nil, err
	}
	reservations := make([]inventory.Reservation, len(resModels))
	for i := range resModels {
		reservations[i] = *resModels[i].ToDomain()
	}
	return reservations, nil
}

// Save creates or updates a reservation
func (r *GormReservationRepository) Save(ctx context.Context, reservation *inventory.Reservation) error {
	return r.db.WithContext(ctx).Save(models.ReservationModelFromDomain(reservation)).Error
}

// Ensure GormReservationRepository implements ReservationRepository
var _ inventory.ReservationRepository = (*GormReservationRepository)(nil)
