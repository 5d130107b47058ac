package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
)

// BatchRepository is an in-memory inventory.BatchRepository
type BatchRepository struct {
	mu      sync.RWMutex
	batches map[uuid.UUID]inventory.Batch
}

// NewBatchRepository creates an empty repository
func NewBatchRepository() *BatchRepository {
	return &BatchRepository{batches: make(map[uuid.UUID]inventory.Batch)}
}

// FindByID returns a copy of the lot
func (r *BatchRepository) FindByID(_ context.Context, id uuid.UUID) (*inventory.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, inventory.ErrBatchNotFound
	}
	c := cloneBatch(&b)
	return &c, nil
}

// FindByNumber looks a lot up by the item's batch number
func (r *BatchRepository) FindByNumber(_ context.Context, itemID uuid.UUID, number string) (*inventory.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.batches {
		if b.ItemID == itemID && b.BatchNumber == number {
			c := cloneBatch(&b)
			return &c, nil
		}
	}
	return nil, inventory.ErrBatchNotFound
}

// FindAll returns matching lots ordered by receipt date, then number
func (r *BatchRepository) FindAll(_ context.Context, filter inventory.BatchFilter) ([]inventory.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]inventory.Batch, 0)
	for _, b := range r.batches {
		if filter.ItemID != nil && b.ItemID != *filter.ItemID {
			continue
		}
		if filter.LocationID != nil && b.LocationID != *filter.LocationID {
			continue
		}
		if filter.OnlyRemaining && !b.HasRemaining() {
			continue
		}
		result = append(result, cloneBatch(&b))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ReceivedDate.Equal(result[j].ReceivedDate) {
			return result[i].ReceivedDate.Before(result[j].ReceivedDate)
		}
		return result[i].BatchNumber < result[j].BatchNumber
	})
	return result, nil
}

// Save inserts or replaces the lot
func (r *BatchRepository) Save(_ context.Context, batch *inventory.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.batches {
		if id != batch.ID && existing.ItemID == batch.ItemID && existing.BatchNumber == batch.BatchNumber {
			return inventory.ErrDuplicateBatchNumber
		}
	}
	r.batches[batch.ID] = cloneBatch(batch)
	return nil
}

var _ inventory.BatchRepository = (*BatchRepository)(nil)
