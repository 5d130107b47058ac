package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
)

// Store bundles one repository of each kind
type Store struct {
	mu sync.Mutex

	Items        *ItemRepository
	Levels       *StockLevelRepository
	Batches      *BatchRepository
	Transactions *TransactionRepository
	Reservations *ReservationRepository
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		Items:        NewItemRepository(),
		Levels:       NewStockLevelRepository(),
		Batches:      NewBatchRepository(),
		Transactions: NewTransactionRepository(),
		Reservations: NewReservationRepository(),
	}
}

// Repositories returns the store's repositories as the domain bundle
func (s *Store) Repositories() inventory.Repositories {
	return inventory.Repositories{
		Items:        s.Items,
		Levels:       s.Levels,
		Batches:      s.Batches,
		Transactions: s.Transactions,
		Reservations: s.Reservations,
	}
}

// Execute runs fn against the store, one call at a time. When fn fails every
// repository is put back as it was before the call, so a retried unit of
// work starts from clean state. Direct repository writes made while a
// failing Execute runs are undone with it.
func (s *Store) Execute(_ context.Context, fn func(repos inventory.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(s.Repositories()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	items        map[uuid.UUID]inventory.InventoryItem
	levels       map[inventory.StockKey]inventory.StockLevel
	batches      map[uuid.UUID]inventory.Batch
	txs          map[uuid.UUID]inventory.Transaction
	reservations map[uuid.UUID]inventory.Reservation
}

// snapshot copies the maps shallowly. Stored values are replaced on write,
// never mutated in place, so sharing their nested pointers is safe.
func (s *Store) snapshot() storeSnapshot {
	var snap storeSnapshot
	s.Items.mu.RLock()
	snap.items = maps.Clone(s.Items.items)
	s.Items.mu.RUnlock()
	s.Levels.mu.RLock()
	snap.levels = maps.Clone(s.Levels.levels)
	s.Levels.mu.RUnlock()
	s.Batches.mu.RLock()
	snap.batches = maps.Clone(s.Batches.batches)
	s.Batches.mu.RUnlock()
	s.Transactions.mu.RLock()
	snap.txs = maps.Clone(s.Transactions.txs)
	s.Transactions.mu.RUnlock()
	s.Reservations.mu.RLock()
	snap.reservations = maps.Clone(s.Reservations.reservations)
	s.Reservations.mu.RUnlock()
	return snap
}

func (s *Store) restore(snap storeSnapshot) {
	s.Items.mu.Lock()
	s.Items.items = snap.items
	s.Items.mu.Unlock()
	s.Levels.mu.Lock()
	s.Levels.levels = snap.levels
	s.Levels.mu.Unlock()
	s.Batches.mu.Lock()
	s.Batches.batches = snap.batches
	s.Batches.mu.Unlock()
	s.Transactions.mu.Lock()
	s.Transactions.txs = snap.txs
	s.Transactions.mu.Unlock()
	s.Reservations.mu.Lock()
	s.Reservations.reservations = snap.reservations
	s.Reservations.mu.Unlock()
}

var _ inventory.TransactionScope = (*Store)(nil)
