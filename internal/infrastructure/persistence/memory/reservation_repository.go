package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
)

// ReservationRepository is an in-memory inventory.ReservationRepository
type ReservationRepository struct {
	mu           sync.RWMutex
	reservations map[uuid.UUID]inventory.Reservation
}

// NewReservationRepository creates an empty repository
func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{reservations: make(map[uuid.UUID]inventory.Reservation)}
}

// FindByID returns a copy of the reservation
func (r *ReservationRepository) FindByID(_ context.Context, id uuid.UUID) (*inventory.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, inventory.ErrReservationNotFound
	}
	c := cloneReservation(&res)
	return &c, nil
}

// FindActive returns active reservations on key, oldest first
func (r *ReservationRepository) FindActive(_ context.Context, key inventory.StockKey) ([]inventory.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]inventory.Reservation, 0)
	for _, res := range r.reservations {
		if res.Key() == key && res.IsActive() {
			result = append(result, cloneReservation(&res))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// Save inserts or replaces the reservation
func (r *ReservationRepository) Save(_ context.Context, reservation *inventory.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[reservation.ID] = cloneReservation(reservation)
	return nil
}

var _ inventory.ReservationRepository = (*ReservationRepository)(nil)
