package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// TransactionRepository is an in-memory inventory.TransactionRepository
type TransactionRepository struct {
	mu  sync.RWMutex
	txs map[uuid.UUID]inventory.Transaction
}

// NewTransactionRepository creates an empty repository
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{txs: make(map[uuid.UUID]inventory.Transaction)}
}

// Save inserts or replaces the transaction
func (r *TransactionRepository) Save(_ context.Context, tx *inventory.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs[tx.ID] = cloneTransaction(tx)
	return nil
}

// FindByID returns a copy of the transaction
func (r *TransactionRepository) FindByID(_ context.Context, id uuid.UUID) (*inventory.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, inventory.ErrTransactionNotFound
	}
	c := cloneTransaction(&tx)
	return &c, nil
}

// FindByReference returns the most recent transaction carrying reference
func (r *TransactionRepository) FindByReference(_ context.Context, reference string) (*inventory.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *inventory.Transaction
	for _, tx := range r.txs {
		if reference == "" || tx.Reference != reference {
			continue
		}
		if found == nil || tx.CreatedAt.After(found.CreatedAt) {
			c := cloneTransaction(&tx)
			found = &c
		}
	}
	if found == nil {
		return nil, inventory.ErrTransactionNotFound
	}
	return found, nil
}

// FindSince returns transactions dated after since, oldest first
func (r *TransactionRepository) FindSince(_ context.Context, since time.Time, types ...inventory.TransactionType) ([]inventory.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]inventory.Transaction, 0)
	for _, tx := range r.txs {
		if !tx.Date.After(since) || !hasType(types, tx.Type) {
			continue
		}
		result = append(result, cloneTransaction(&tx))
	}
	sortTransactions(result)
	return result, nil
}

// LatestReceiptCost returns the unit cost of the item's last committed receipt
func (r *TransactionRepository) LatestReceiptCost(_ context.Context, itemID uuid.UUID) (decimal.Decimal, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	receipts := make([]inventory.Transaction, 0)
	for _, tx := range r.txs {
		if tx.Type == inventory.TransactionTypeReceive && tx.IsCommitted() {
			receipts = append(receipts, tx)
		}
	}
	sortTransactions(receipts)
	for i := len(receipts) - 1; i >= 0; i-- {
		lines := receipts[i].Items
		for j := len(lines) - 1; j >= 0; j-- {
			line := lines[j]
			if line.ItemID == itemID && line.Status == inventory.LineStatusCommitted && line.UnitCost != nil {
				return *line.UnitCost, true, nil
			}
		}
	}
	return decimal.Zero, false, nil
}

func hasType(types []inventory.TransactionType, t inventory.TransactionType) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func sortTransactions(txs []inventory.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
}

var _ inventory.TransactionRepository = (*TransactionRepository)(nil)
