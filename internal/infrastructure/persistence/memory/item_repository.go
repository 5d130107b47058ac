package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
)

// ItemRepository is an in-memory inventory.ItemRepository
type ItemRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]inventory.InventoryItem
}

// NewItemRepository creates an empty repository
func NewItemRepository() *ItemRepository {
	return &ItemRepository{items: make(map[uuid.UUID]inventory.InventoryItem)}
}

// GetItem returns a copy of the item
func (r *ItemRepository) GetItem(_ context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, inventory.ErrItemNotFound
	}
	c := cloneItem(&item)
	return &c, nil
}

// FindBySku matches SKUs case-insensitively
func (r *ItemRepository) FindBySku(_ context.Context, sku string) (*inventory.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if strings.EqualFold(item.SKU, strings.TrimSpace(sku)) {
			c := cloneItem(&item)
			return &c, nil
		}
	}
	return nil, inventory.ErrItemNotFound
}

// FindAll returns matching items ordered like the SQL repository: by the
// filter's sort key, then SKU
func (r *ItemRepository) FindAll(_ context.Context, filter inventory.ItemFilter) ([]inventory.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids map[uuid.UUID]struct{}
	if len(filter.IDs) > 0 {
		ids = make(map[uuid.UUID]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	result := make([]inventory.InventoryItem, 0, len(r.items))
	for _, item := range r.items {
		if ids != nil {
			if _, ok := ids[item.ID]; !ok {
				continue
			}
		}
		if filter.ActiveOnly && !item.IsActive {
			continue
		}
		if !item.InCategory(filter.Categories) {
			continue
		}
		result = append(result, cloneItem(&item))
	}
	sort.SliceStable(result, func(i, j int) bool { return lessItem(&result[i], &result[j], filter) })
	return result, nil
}

func lessItem(a, b *inventory.InventoryItem, filter inventory.ItemFilter) bool {
	var c int
	switch filter.SortBy {
	case inventory.ItemSortName:
		c = strings.Compare(a.Name, b.Name)
	case inventory.ItemSortCategory:
		c = strings.Compare(a.Category, b.Category)
	case inventory.ItemSortCreatedAt:
		c = a.CreatedAt.Compare(b.CreatedAt)
	default:
		c = strings.Compare(a.SKU, b.SKU)
	}
	if filter.SortDesc {
		c = -c
	}
	if c == 0 {
		return a.SKU < b.SKU
	}
	return c < 0
}

// Save inserts or replaces the item. A SKU held by another item is refused.
func (r *ItemRepository) Save(_ context.Context, item *inventory.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.items {
		if id != item.ID && strings.EqualFold(existing.SKU, item.SKU) {
			return inventory.ErrDuplicateSKU
		}
	}
	r.items[item.ID] = cloneItem(item)
	return nil
}

var _ inventory.ItemRepository = (*ItemRepository)(nil)
