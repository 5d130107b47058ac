package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/domain/shared"
)

// StockLevelRepository is an in-memory inventory.StockLevelRepository with
// the same version check as the database
type StockLevelRepository struct {
	mu     sync.RWMutex
	levels map[inventory.StockKey]inventory.StockLevel
}

// NewStockLevelRepository creates an empty repository
func NewStockLevelRepository() *StockLevelRepository {
	return &StockLevelRepository{levels: make(map[inventory.StockKey]inventory.StockLevel)}
}

// Find returns a copy of the level at key
func (r *StockLevelRepository) Find(_ context.Context, key inventory.StockKey) (*inventory.StockLevel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	level, ok := r.levels[key]
	if !ok {
		return nil, inventory.ErrStockLevelNotFound
	}
	return &level, nil
}

// Save inserts at version 1 or updates from version-1
func (r *StockLevelRepository) Save(_ context.Context, level *inventory.StockLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := level.Key()
	stored, exists := r.levels[key]
	switch {
	case level.Version == 1 && exists:
		return fmt.Errorf("%w: stock level %s already exists", shared.ErrConcurrencyConflict, key)
	case level.Version > 1 && (!exists || stored.Version != level.Version-1):
		return fmt.Errorf("%w: stock level %s", shared.ErrConcurrencyConflict, key)
	case level.Version < 1:
		return fmt.Errorf("%w: stock level %s has version %d", shared.ErrInvalidState, key, level.Version)
	}
	r.levels[key] = *level
	return nil
}

// FindByLocation returns every level at the location
func (r *StockLevelRepository) FindByLocation(_ context.Context, locationID uuid.UUID) ([]inventory.StockLevel, error) {
	return r.collect(func(l inventory.StockLevel) bool { return l.LocationID == locationID }), nil
}

// FindByItem returns every level of the item
func (r *StockLevelRepository) FindByItem(_ context.Context, itemID uuid.UUID) ([]inventory.StockLevel, error) {
	return r.collect(func(l inventory.StockLevel) bool { return l.ItemID == itemID }), nil
}

// FindAll returns every level
func (r *StockLevelRepository) FindAll(_ context.Context) ([]inventory.StockLevel, error) {
	return r.collect(func(inventory.StockLevel) bool { return true }), nil
}

func (r *StockLevelRepository) collect(match func(inventory.StockLevel) bool) []inventory.StockLevel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]inventory.StockLevel, 0)
	for _, level := range r.levels {
		if match(level) {
			result = append(result, level)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key().Less(result[j].Key()) })
	return result
}

var _ inventory.StockLevelRepository = (*StockLevelRepository)(nil)
