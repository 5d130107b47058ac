package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/infrastructure/logger"
	"github.com/larder/backend/internal/interfaces/http/dto"
	"github.com/larder/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// RequestIDKey is the header and context key for the request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by the logger middleware, falling
// back to the incoming header
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessList sends a list with its count
func (h *BaseHandler) SuccessList(c *gin.Context, data any, total int) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, total))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InvalidID sends a 400 for a malformed uuid path or query parameter
func (h *BaseHandler) InvalidID(c *gin.Context, name string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "Invalid "+name+": must be a UUID")
}

// BindJSON binds the request body into req and answers 400 on failure
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// HandleError converts service errors to HTTP responses. Domain errors keep
// their code; the full wrapped message is returned so clients see which
// field or line failed. Anything else is logged and becomes a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		statusCode := dto.GetHTTPStatus(code)
		if statusCode >= http.StatusInternalServerError {
			logger.GetGinLogger(c).Error("Unmapped domain error", zap.Error(err))
		}
		c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, err.Error(), requestID))
		return
	}

	logger.GetGinLogger(c).Error("Request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}

// parseUUIDParam reads a required uuid path parameter
func (h *BaseHandler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.InvalidID(c, name)
		return uuid.Nil, false
	}
	return id, true
}

// parseOptionalUUIDQuery reads an optional uuid query parameter. An absent
// parameter yields nil.
func (h *BaseHandler) parseOptionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.InvalidID(c, name)
		return nil, false
	}
	return &id, true
}

// parseRequiredUUIDQuery reads a required uuid query parameter
func (h *BaseHandler) parseRequiredUUIDQuery(c *gin.Context, name string) (uuid.UUID, bool) {
	id, ok := h.parseOptionalUUIDQuery(c, name)
	if !ok {
		return uuid.Nil, false
	}
	if id == nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationRequired, name+" is required")
		return uuid.Nil, false
	}
	return *id, true
}
