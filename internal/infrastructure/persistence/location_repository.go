package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// Location is a storage area stock can be held at
type Location struct {
	ID       uuid.UUID `json:"id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	IsActive bool      `json:"is_active"`
}

// ErrDuplicateLocationCode is returned when a location code is taken
var ErrDuplicateLocationCode = shared.NewDomainError("DUPLICATE_LOCATION_CODE", "Location code already exists")

// GormLocationRepository implements LocationDirectory using GORM
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a new GormLocationRepository
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// Exists reports whether an active location has id
func (r *GormLocationRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LocationModel{}).
		Where("id = ? AND is_active = ?", id, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByCode finds a location by its code
func (r *GormLocationRepository) FindByCode(ctx context.Context, code string) (*Location, error) {
	var model models.LocationModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return locationFromModel(&model), nil
}

// FindAll lists locations ordered by code
func (r *GormLocationRepository) FindAll(ctx context.Context) ([]Location, error) {
	var locationModels []models.LocationModel
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&locationModels).Error; err != nil {
		return nil, err
	}
	locations := make([]Location, len(locationModels))
	for i := range locationModels {
		locations[i] = *locationFromModel(&locationModels[i])
	}
	return locations, nil
}

// Create registers a new active location. Codes are stored upper-cased.
func (r *GormLocationRepository) Create(ctx context.Context, code, name string, now time.Time) (*Location, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location code and name are required")
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.LocationModel{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateLocationCode
	}
	model := &models.LocationModel{
		BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Code:      code,
		Name:      name,
		IsActive:  true,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return locationFromModel(model), nil
}

// SetActive enables or disables a location
func (r *GormLocationRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.LocationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func locationFromModel(m *models.LocationModel) *Location {
	return &Location{ID: m.ID, Code: m.Code, Name: m.Name, IsActive: m.IsActive}
}
