package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeTooLarge, http.StatusRequestEntityTooLarge},
		{"ITEM_NOT_FOUND", http.StatusNotFound},
		{"LOCATION_NOT_FOUND", http.StatusNotFound},
		{"DUPLICATE_SKU", http.StatusConflict},
		{"DUPLICATE_REFERENCE", http.StatusConflict},
		{"INVALID_TRANSFER_ROUTE", http.StatusBadRequest},
		{"ITEM_INACTIVE", http.StatusUnprocessableEntity},
		{"RESERVATION_NOT_ACTIVE", http.StatusUnprocessableEntity},
		// Unknown code should return 500
		{"KEY_NOT_LOCKED", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{ErrCodeNotFound, ErrCodeNotFound},
		// Inventory codes pass through unchanged
		{"ITEM_NOT_FOUND", "ITEM_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestErrorCodesHaveStatus(t *testing.T) {
	for code, status := range ErrorCodeHTTPStatus {
		assert.Contains(t, code, "ERR_", "Error code should start with ERR_")
		assert.GreaterOrEqual(t, status, 400)
	}
	for code := range DomainErrorHTTPStatus {
		_, clash := ErrorCodeHTTPStatus[code]
		assert.False(t, clash, "domain code %s shadows a standard code", code)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("NOT_FOUND", "Resource not found")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Resource not found", resp.Error.Message)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "sku", Message: "This field is required"},
		{Field: "lead_time_days", Message: "Must be greater than or equal to 0"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "sku", resp.Error.Details[0].Field)
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID("ITEM_NOT_FOUND", "Inventory item not found", "req-test-123")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, "ITEM_NOT_FOUND", decoded.Error.Code)
	assert.Equal(t, "req-test-123", decoded.Error.RequestID)
	assert.NotContains(t, string(data), `"details"`)
}

func TestNewListResponse(t *testing.T) {
	resp := NewListResponse([]string{"a", "b"}, 2)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)
}
