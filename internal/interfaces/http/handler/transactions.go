package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	inventoryapp "github.com/larder/backend/internal/application/inventory"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/interfaces/http/dto"
)

// defaultTransactionWindow bounds ListTransactions when since is absent
const defaultTransactionWindow = 30 * 24 * time.Hour

// SubmitTransaction handles POST /transactions. A new transaction answers
// 201; a replay of a known reference answers 200 with the stored result.
// Partially committed transactions are still 201, with data.success false.
func (h *InventoryHandler) SubmitTransaction(c *gin.Context) {
	var cmd inventoryapp.SubmitTransactionCommand
	if !h.BindJSON(c, &cmd) {
		return
	}
	resp, err := h.inventoryService.SubmitTransaction(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if resp.Replayed {
		h.Success(c, resp)
		return
	}
	h.Created(c, resp)
}

// GetTransaction handles GET /transactions/:id
func (h *InventoryHandler) GetTransaction(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	tx, err := h.inventoryService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// ListTransactions handles GET /transactions?since=&types=RECEIVE,CONSUME
func (h *InventoryHandler) ListTransactions(c *gin.Context) {
	since := time.Now().Add(-defaultTransactionWindow)
	if raw := c.Query("since"); raw != "" {
		parsed, err := parseDateTime(raw)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "since must be a date or RFC3339 timestamp")
			return
		}
		since = parsed
	}
	txs, err := h.inventoryService.ListTransactions(c.Request.Context(), since, parseList(c.Query("types"))...)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, txs, len(txs))
}

// ===================== Reservations =====================

// Reserve handles POST /reservations. An insufficient outcome is not an
// error: it answers 200 with outcome INSUFFICIENT and the available quantity.
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var cmd inventoryapp.ReserveCommand
	if !h.BindJSON(c, &cmd) {
		return
	}
	resp, err := h.inventoryService.Reserve(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if resp.Outcome != string(inventory.ReserveOK) {
		h.Success(c, resp)
		return
	}
	h.Created(c, resp)
}

// ReleaseReservation handles POST /reservations/:id/release
func (h *InventoryHandler) ReleaseReservation(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.inventoryService.ReleaseReservation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetReservation handles GET /reservations/:id
func (h *InventoryHandler) GetReservation(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.inventoryService.GetReservation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListActiveReservations handles GET /reservations?item_id=&location_id=
func (h *InventoryHandler) ListActiveReservations(c *gin.Context) {
	itemID, ok := h.parseRequiredUUIDQuery(c, "item_id")
	if !ok {
		return
	}
	locationID, ok := h.parseRequiredUUIDQuery(c, "location_id")
	if !ok {
		return
	}
	reservations, err := h.inventoryService.ListActiveReservations(c.Request.Context(), itemID, locationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, reservations, len(reservations))
}
