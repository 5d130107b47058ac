package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/larder/backend/internal/infrastructure/logger"
	"github.com/larder/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// readyTimeout bounds a single readiness probe
const readyTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// SystemHandler serves liveness, readiness and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	checks    map[string]ReadinessCheck
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]ReadinessCheck),
	}
}

// AddCheck registers a named readiness check, e.g. the database ping
func (h *SystemHandler) AddCheck(name string, check ReadinessCheck) *SystemHandler {
	h.checks[name] = check
	return h
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// HealthResponse answers liveness and readiness probes
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// GetSystemInfo handles GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Health handles GET /health. It only proves the process is serving.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready, running every registered check
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string, len(h.checks)),
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.GetGinLogger(c).Warn("Readiness check failed",
				zap.String("check", name),
				zap.Error(err),
			)
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			continue
		}
		resp.Checks[name] = "ok"
	}

	if resp.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ping handles GET /system/ping
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"message":   "pong",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}))
}
