package persistence

import (
	"strings"

	"github.com/larder/backend/internal/domain/inventory"
)

// ItemSortColumns maps item sort keys to columns. Only names in this map
// ever reach an ORDER BY clause.
var ItemSortColumns = map[string]string{
	inventory.ItemSortSKU:       "sku",
	inventory.ItemSortName:      "name",
	inventory.ItemSortCategory:  "category",
	inventory.ItemSortCreatedAt: "created_at",
}

// ValidateSortField returns the column allowed for sortField, or
// defaultColumn when the field is empty or unknown
func ValidateSortField(sortField string, allowed map[string]string, defaultColumn string) string {
	if column, ok := allowed[strings.TrimSpace(sortField)]; ok {
		return column
	}
	return defaultColumn
}

func itemOrderClause(filter inventory.ItemFilter) string {
	column := ValidateSortField(filter.SortBy, ItemSortColumns, "sku")
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}
	if column == "sku" {
		return "sku " + dir
	}
	return column + " " + dir + ", sku ASC"
}
