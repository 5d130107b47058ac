package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/larder/backend/internal/interfaces/http/dto"
)

// ExpiryScanResponse summarizes an expiry scan
type ExpiryScanResponse struct {
	Expired      int `json:"expired"`
	ExpiringSoon int `json:"expiring_soon"`
	Active       int `json:"active"`
	Published    int `json:"published"`
}

// InventoryValue handles GET /reports/valuation?location_id=&category=&as_of=
func (h *InventoryHandler) InventoryValue(c *gin.Context) {
	locationID, ok := h.parseOptionalUUIDQuery(c, "location_id")
	if !ok {
		return
	}
	asOf, err := parseOptionalTime(c.Query("as_of"))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "as_of must be a date or RFC3339 timestamp")
		return
	}
	value, err := h.inventoryService.InventoryValue(c.Request.Context(), locationID, c.Query("category"), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, value)
}

// ReorderSuggestions handles GET /reports/reorder-suggestions?location_id=&categories=
func (h *InventoryHandler) ReorderSuggestions(c *gin.Context) {
	locationID, ok := h.parseRequiredUUIDQuery(c, "location_id")
	if !ok {
		return
	}
	suggestions, err := h.inventoryService.GenerateReorderSuggestions(c.Request.Context(), locationID, parseList(c.Query("categories")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, suggestions, len(suggestions))
}

// Turnover handles GET /reports/turnover?item_ids=&location_id=&start=&end=
func (h *InventoryHandler) Turnover(c *gin.Context) {
	itemIDs, err := parseUUIDList(c.Query("item_ids"))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, err.Error())
		return
	}
	locationID, ok := h.parseOptionalUUIDQuery(c, "location_id")
	if !ok {
		return
	}
	start, err := parseDateTime(c.Query("start"))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "start must be a date or RFC3339 timestamp")
		return
	}
	end := time.Now()
	if raw := c.Query("end"); raw != "" {
		if end, err = parseDateTime(raw); err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "end must be a date or RFC3339 timestamp")
			return
		}
	}
	if !end.After(start) {
		h.BadRequest(c, "end must be after start")
		return
	}
	results, err := h.inventoryService.CalculateTurnover(c.Request.Context(), itemIDs, locationID, start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, results, len(results))
}

// ReorderPoints handles GET /reports/reorder-points?item_ids=&location_id=
func (h *InventoryHandler) ReorderPoints(c *gin.Context) {
	itemIDs, err := parseUUIDList(c.Query("item_ids"))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, err.Error())
		return
	}
	locationID, ok := h.parseOptionalUUIDQuery(c, "location_id")
	if !ok {
		return
	}
	points, err := h.inventoryService.CalculateReorderPoints(c.Request.Context(), itemIDs, locationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, points, len(points))
}

// Reconcile handles GET /reports/reconciliation?item_id=&location_id=
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	itemID, ok := h.parseOptionalUUIDQuery(c, "item_id")
	if !ok {
		return
	}
	locationID, ok := h.parseOptionalUUIDQuery(c, "location_id")
	if !ok {
		return
	}
	report, err := h.inventoryService.Reconcile(c.Request.Context(), itemID, locationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ScanExpiry handles POST /maintenance/expiry-scan
func (h *InventoryHandler) ScanExpiry(c *gin.Context) {
	result, err := h.inventoryService.ScanExpiry(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ExpiryScanResponse{
		Expired:      len(result.Classification.Expired),
		ExpiringSoon: len(result.Classification.ExpiringSoon),
		Active:       len(result.Classification.Active),
		Published:    result.Published,
	})
}

// RunMaintenance handles POST /maintenance/run
func (h *InventoryHandler) RunMaintenance(c *gin.Context) {
	if h.maintenance == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInvalidState, "Maintenance is disabled")
		return
	}
	h.Success(c, h.maintenance.RunOnce(c.Request.Context()))
}

// LastMaintenance handles GET /maintenance/last
func (h *InventoryHandler) LastMaintenance(c *gin.Context) {
	if h.maintenance == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInvalidState, "Maintenance is disabled")
		return
	}
	last := h.maintenance.LastRun()
	if last == nil {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "No maintenance pass has run yet")
		return
	}
	h.Success(c, last)
}
