package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/larder/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itemInput struct {
	SKU      string   `json:"sku" binding:"required,max=8"`
	Category string   `json:"category" binding:"omitempty,oneof=dairy dry"`
	Lines    []string `json:"lines" binding:"required,min=1"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req itemInput
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(req.SKU))
	})
	return router
}

func TestHandleValidationError(t *testing.T) {
	router := newValidationRouter()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantFields []string
	}{
		{"valid", `{"sku":"MILK","lines":["a"]}`, http.StatusOK, "", nil},
		{"missing fields", `{"lines":[]}`, http.StatusBadRequest, dto.ErrCodeValidation, []string{"sku", "lines"}},
		{"bad enum", `{"sku":"MILK","category":"frozen","lines":["a"]}`, http.StatusBadRequest, dto.ErrCodeValidation, []string{"category"}},
		{"malformed json", `{"sku":`, http.StatusBadRequest, dto.ErrCodeInvalidJSON, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode == "" {
				return
			}
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)

			fields := make([]string, 0, len(resp.Error.Details))
			for _, d := range resp.Error.Details {
				fields = append(fields, d.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestGetValidationMessage(t *testing.T) {
	type input struct {
		Required string   `validate:"required"`
		Short    string   `validate:"min=5"`
		Lines    []string `validate:"min=1"`
		OneOf    string   `validate:"oneof=a b c"`
		Lead     int      `validate:"gte=0"`
	}

	err := validator.New().Struct(input{Short: "ab", Lines: []string{}, OneOf: "d", Lead: -1})
	require.Error(t, err)

	messages := make(map[string]string)
	for _, e := range err.(validator.ValidationErrors) {
		messages[e.Field()] = getValidationMessage(e)
	}
	assert.Equal(t, "This field is required", messages["Required"])
	assert.Equal(t, "Must be at least 5 characters", messages["Short"])
	assert.Equal(t, "Must contain at least 1 entries", messages["Lines"])
	assert.Equal(t, "Must be one of: a b c", messages["OneOf"])
	assert.Equal(t, "Must be greater than or equal to 0", messages["Lead"])
}
