package router

import (
	"github.com/gin-gonic/gin"
	"github.com/larder/backend/internal/infrastructure/auth"
	"github.com/larder/backend/internal/interfaces/http/handler"
	"github.com/larder/backend/internal/interfaces/http/middleware"
)

// InventoryRoutes returns the route groups served by the inventory handler.
// Reads need the inventory:read scope and mutations inventory:write; both
// checks pass when authentication is disabled.
func InventoryRoutes(h *handler.InventoryHandler) []RouteRegistrar {
	read := middleware.RequireScope(auth.ScopeRead)
	write := middleware.RequireScope(auth.ScopeWrite)

	items := NewDomainGroup("items", "/items").
		GET("", read, h.ListItems).
		POST("", write, h.CreateItem).
		GET("/:id", read, h.GetItem).
		PUT("/:id/reorder-policy", write, h.UpdateReorderPolicy).
		POST("/:id/alternatives/:alternative_id", write, h.AddAlternative).
		POST("/:id/activate", write, h.ActivateItem).
		POST("/:id/deactivate", write, h.DeactivateItem)

	skus := NewDomainGroup("skus", "/skus").
		GET("/:sku", read, h.GetItemBySku)

	stock := NewDomainGroup("stock", "/stock").
		GET("", read, h.ListStockLevels).
		GET("/level", read, h.GetStockLevel).
		GET("/available", read, h.GetAvailable)

	batches := NewDomainGroup("batches", "/batches").
		GET("", read, h.ListBatches).
		GET("/classification", read, h.ClassifyBatches)

	transactions := NewDomainGroup("transactions", "/transactions").
		GET("", read, h.ListTransactions).
		POST("", write, h.SubmitTransaction).
		GET("/:id", read, h.GetTransaction)

	reservations := NewDomainGroup("reservations", "/reservations").
		GET("", read, h.ListActiveReservations).
		POST("", write, h.Reserve).
		GET("/:id", read, h.GetReservation).
		POST("/:id/release", write, h.ReleaseReservation)

	reports := NewDomainGroup("reports", "/reports").
		Use(read).
		GET("/valuation", h.InventoryValue).
		GET("/reorder-suggestions", h.ReorderSuggestions).
		GET("/turnover", h.Turnover).
		GET("/reorder-points", h.ReorderPoints).
		GET("/reconciliation", h.Reconcile)

	maintenance := NewDomainGroup("maintenance", "/maintenance").
		POST("/expiry-scan", write, h.ScanExpiry).
		POST("/run", write, h.RunMaintenance).
		GET("/last", read, h.LastMaintenance)

	return []RouteRegistrar{items, skus, stock, batches, transactions, reservations, reports, maintenance}
}

// SystemRoutes mounts the unauthenticated probes at the engine root and the
// info endpoints under /api
func SystemRoutes(engine *gin.Engine, h *handler.SystemHandler) RouteRegistrar {
	engine.GET("/health", h.Health)
	engine.GET("/ready", h.Ready)

	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo).
		GET("/ping", h.Ping)
}
