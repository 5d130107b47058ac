package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// LocationDirectory is a set of known locations
type LocationDirectory struct {
	mu        sync.RWMutex
	locations map[uuid.UUID]string
}

// NewLocationDirectory creates a directory holding ids
func NewLocationDirectory(ids ...uuid.UUID) *LocationDirectory {
	d := &LocationDirectory{locations: make(map[uuid.UUID]string)}
	for _, id := range ids {
		d.locations[id] = ""
	}
	return d
}

// Add registers a location
func (d *LocationDirectory) Add(id uuid.UUID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locations[id] = name
}

// Exists reports whether the location is known
func (d *LocationDirectory) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.locations[id]
	return ok, nil
}

type vendorItem struct {
	vendorID uuid.UUID
	itemID   uuid.UUID
}

// VendorCatalog keeps preferred vendors and their prices
type VendorCatalog struct {
	mu        sync.RWMutex
	vendors   map[uuid.UUID]inventory.Vendor
	preferred map[uuid.UUID]uuid.UUID
	prices    map[vendorItem]decimal.Decimal
}

// NewVendorCatalog creates an empty catalog
func NewVendorCatalog() *VendorCatalog {
	return &VendorCatalog{
		vendors:   make(map[uuid.UUID]inventory.Vendor),
		preferred: make(map[uuid.UUID]uuid.UUID),
		prices:    make(map[vendorItem]decimal.Decimal),
	}
}

// AddVendor registers a vendor
func (c *VendorCatalog) AddVendor(v inventory.Vendor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vendors[v.ID] = v
}

// SetPrice records what the vendor charges for the item, optionally marking
// the vendor as the item's preferred source
func (c *VendorCatalog) SetPrice(vendorID, itemID uuid.UUID, unitCost decimal.Decimal, preferred bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[vendorItem{vendorID: vendorID, itemID: itemID}] = unitCost
	if preferred {
		c.preferred[itemID] = vendorID
	}
}

// GetPreferredVendor returns the item's preferred vendor
func (c *VendorCatalog) GetPreferredVendor(_ context.Context, itemID uuid.UUID) (*inventory.Vendor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vendorID, ok := c.preferred[itemID]
	if !ok {
		return nil, inventory.ErrVendorNotFound
	}
	v, ok := c.vendors[vendorID]
	if !ok {
		return nil, inventory.ErrVendorNotFound
	}
	return &v, nil
}

// UnitCost returns the vendor's price for the item
func (c *VendorCatalog) UnitCost(_ context.Context, vendorID, itemID uuid.UUID) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cost, ok := c.prices[vendorItem{vendorID: vendorID, itemID: itemID}]
	if !ok {
		return decimal.Zero, inventory.ErrVendorNotFound
	}
	return cost, nil
}

var (
	_ inventory.LocationDirectory = (*LocationDirectory)(nil)
	_ inventory.VendorCatalog     = (*VendorCatalog)(nil)
)
