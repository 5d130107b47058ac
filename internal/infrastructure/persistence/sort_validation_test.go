package persistence

import (
	"context"
	"testing"

	"github.com/larder/backend/internal/domain/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"known key", "name", "name"},
		{"trimmed", " category ", "category"},
		{"empty", "", "sku"},
		{"unknown", "average_cost", "sku"},
		{"case sensitive", "NAME", "sku"},
		{"statement injection", "sku; DROP TABLE inventory_items;--", "sku"},
		{"boolean injection", "sku' OR '1'='1", "sku"},
		{"subquery", "sku, (SELECT secret FROM users)", "sku"},
		{"union", "sku UNION SELECT * FROM vendors", "sku"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, ItemSortColumns, "sku"))
		})
	}
}

func TestItemOrderClause(t *testing.T) {
	tests := []struct {
		filter   inventory.ItemFilter
		expected string
	}{
		{inventory.ItemFilter{}, "sku ASC"},
		{inventory.ItemFilter{SortDesc: true}, "sku DESC"},
		{inventory.ItemFilter{SortBy: inventory.ItemSortName}, "name ASC, sku ASC"},
		{inventory.ItemFilter{SortBy: inventory.ItemSortCreatedAt, SortDesc: true}, "created_at DESC, sku ASC"},
		{inventory.ItemFilter{SortBy: "1=1"}, "sku ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, itemOrderClause(tt.filter))
		})
	}
}

func TestGormInventoryItemRepository_Sorting(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormInventoryItemRepository(db)
	ctx := context.Background()

	newTestItem(t, repo, "C-OIL", "oils")
	newTestItem(t, repo, "A-SALT", "spices")
	newTestItem(t, repo, "B-FLOUR", "dry goods")

	skus := func(items []inventory.InventoryItem) []string {
		out := make([]string, len(items))
		for i := range items {
			out[i] = items[i].SKU
		}
		return out
	}

	tests := []struct {
		name     string
		filter   inventory.ItemFilter
		expected []string
	}{
		{"default by sku", inventory.ItemFilter{}, []string{"A-SALT", "B-FLOUR", "C-OIL"}},
		{"sku descending", inventory.ItemFilter{SortDesc: true}, []string{"C-OIL", "B-FLOUR", "A-SALT"}},
		{"by category", inventory.ItemFilter{SortBy: inventory.ItemSortCategory}, []string{"B-FLOUR", "C-OIL", "A-SALT"}},
		{"created_at ties break on sku", inventory.ItemFilter{SortBy: inventory.ItemSortCreatedAt, SortDesc: true}, []string{"A-SALT", "B-FLOUR", "C-OIL"}},
		{"unknown key", inventory.ItemFilter{SortBy: "sku; DROP TABLE inventory_items"}, []string{"A-SALT", "B-FLOUR", "C-OIL"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := repo.FindAll(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, skus(items))
		})
	}
}
