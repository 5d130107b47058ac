package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	inventoryapp "github.com/larder/backend/internal/application/inventory"
)

// InventoryHandler serves the item, stock, batch, transaction, reservation
// and report endpoints
type InventoryHandler struct {
	BaseHandler
	inventoryService *inventoryapp.InventoryService
	maintenance      *inventoryapp.MaintenanceService
}

// NewInventoryHandler creates a new InventoryHandler. With a nil maintenance
// service the maintenance endpoints answer 503.
func NewInventoryHandler(inventoryService *inventoryapp.InventoryService, maintenance *inventoryapp.MaintenanceService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		maintenance:      maintenance,
	}
}

// ===================== Items =====================

// CreateItem handles POST /items
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var cmd inventoryapp.CreateItemCommand
	if !h.BindJSON(c, &cmd) {
		return
	}
	item, err := h.inventoryService.CreateItem(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// GetItem handles GET /items/:id
func (h *InventoryHandler) GetItem(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	item, err := h.inventoryService.GetItem(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// GetItemBySku handles GET /skus/:sku
func (h *InventoryHandler) GetItemBySku(c *gin.Context) {
	item, err := h.inventoryService.GetItemBySku(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// ListItems handles GET /items?categories=a,b&active_only=true&sort_by=name&sort_order=desc
func (h *InventoryHandler) ListItems(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.Query("active_only"))
	items, err := h.inventoryService.ListItems(c.Request.Context(), inventoryapp.ItemListFilter{
		Categories: parseList(c.Query("categories")),
		ActiveOnly: activeOnly,
		SortBy:     c.Query("sort_by"),
		SortDesc:   strings.EqualFold(strings.TrimSpace(c.Query("sort_order")), "desc"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, items, len(items))
}

// UpdateReorderPolicy handles PUT /items/:id/reorder-policy
func (h *InventoryHandler) UpdateReorderPolicy(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var cmd inventoryapp.UpdateReorderPolicyCommand
	if !h.BindJSON(c, &cmd) {
		return
	}
	item, err := h.inventoryService.UpdateReorderPolicy(c.Request.Context(), id, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// AddAlternative handles POST /items/:id/alternatives/:alternative_id
func (h *InventoryHandler) AddAlternative(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	alternativeID, ok := h.parseUUIDParam(c, "alternative_id")
	if !ok {
		return
	}
	item, err := h.inventoryService.AddAlternative(c.Request.Context(), id, alternativeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// ActivateItem handles POST /items/:id/activate
func (h *InventoryHandler) ActivateItem(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateItem handles POST /items/:id/deactivate
func (h *InventoryHandler) DeactivateItem(c *gin.Context) {
	h.setActive(c, false)
}

func (h *InventoryHandler) setActive(c *gin.Context, active bool) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	item, err := h.inventoryService.SetItemActive(c.Request.Context(), id, active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// ===================== Stock =====================

// AvailabilityResponse answers an availability query
type AvailabilityResponse struct {
	ItemID     string `json:"item_id"`
	LocationID string `json:"location_id"`
	Available  string `json:"available"`
}

// GetStockLevel handles GET /stock/level?item_id=&location_id=
func (h *InventoryHandler) GetStockLevel(c *gin.Context) {
	itemID, ok := h.parseRequiredUUIDQuery(c, "item_id")
	if !ok {
		return
	}
	locationID, ok := h.parseRequiredUUIDQuery(c, "location_id")
	if !ok {
		return
	}
	level, err := h.inventoryService.GetStockLevel(c.Request.Context(), itemID, locationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// GetAvailable handles GET /stock/available?item_id=&location_id=
func (h *InventoryHandler) GetAvailable(c *gin.Context) {
	itemID, ok := h.parseRequiredUUIDQuery(c, "item_id")
	if !ok {
		return
	}
	locationID, ok := h.parseRequiredUUIDQuery(c, "location_id")
	if !ok {
		return
	}
	available, err := h.inventoryService.GetAvailable(c.Request.Context(), itemID, locationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, AvailabilityResponse{
		ItemID:     itemID.String(),
		LocationID: locationID.String(),
		Available:  available.String(),
	})
}

// ListStockLevels handles GET /stock?item_id=&location_id=, both optional
func (h *InventoryHandler) ListStockLevels(c *gin.Context) {
	itemID, ok := h.parseOptionalUUIDQuery(c, "item_id")
	if !ok {
		return
	}
	locationID, ok := h.parseOptionalUUIDQuery(c, "location_id")
	if !ok {
		return
	}
	levels, err := h.inventoryService.ListStockLevels(c.Request.Context(), itemID, locationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, levels, len(levels))
}

// ===================== Batches =====================

// ListBatches handles GET /batches?item_id=&location_id=&only_remaining=
func (h *InventoryHandler) ListBatches(c *gin.Context) {
	filter, ok := h.batchFilter(c)
	if !ok {
		return
	}
	filter.OnlyRemaining, _ = strconv.ParseBool(c.Query("only_remaining"))
	batches, err := h.inventoryService.ListBatches(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, batches, len(batches))
}

// ClassifyBatches handles GET /batches/classification?window_days=
func (h *InventoryHandler) ClassifyBatches(c *gin.Context) {
	filter, ok := h.batchFilter(c)
	if !ok {
		return
	}
	window, err := parseIntQuery(c.Query("window_days"), 0)
	if err != nil {
		h.BadRequest(c, "window_days must be an integer")
		return
	}
	classified, err := h.inventoryService.ClassifyBatches(c.Request.Context(), filter, window)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, classified)
}

func (h *InventoryHandler) batchFilter(c *gin.Context) (inventoryapp.BatchListFilter, bool) {
	itemID, ok := h.parseOptionalUUIDQuery(c, "item_id")
	if !ok {
		return inventoryapp.BatchListFilter{}, false
	}
	locationID, ok := h.parseOptionalUUIDQuery(c, "location_id")
	if !ok {
		return inventoryapp.BatchListFilter{}, false
	}
	return inventoryapp.BatchListFilter{ItemID: itemID, LocationID: locationID}, true
}
