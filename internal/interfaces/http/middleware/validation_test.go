package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/ledgerflow/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLine struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"gt=0"`
}

type testInvoiceRequest struct {
	Date           string     `json:"date" binding:"required,datetime=2006-01-02"`
	CounterpartyID uuid.UUID  `json:"counterparty_id" binding:"required"`
	Currency       string     `json:"currency" binding:"required,len=3"`
	Lines          []testLine `json:"lines" binding:"required,min=1,dive"`
}

func bindAndRespond(t *testing.T, body string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	SetupValidator()

	router := gin.New()
	router.POST("/invoices", func(c *gin.Context) {
		c.Set("request_id", "req-42")
		var req testInvoiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestHandleValidationError_FieldDetails(t *testing.T) {
	w, resp := bindAndRespond(t, `{
		"date": "19/10/2026",
		"currency": "USD",
		"lines": [{"product_id": "`+uuid.NewString()+`", "quantity": "0"}]
	}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-42", resp.Error.RequestID)

	byField := map[string]string{}
	for _, d := range resp.Error.Details {
		byField[d.Field] = d.Message
	}
	assert.Equal(t, "Must be a date formatted as 2006-01-02", byField["date"])
	assert.Equal(t, "This field is required", byField["counterparty_id"])
	assert.Equal(t, "Must be greater than 0", byField["lines[0].quantity"])
}

func TestHandleValidationError_EmptyLines(t *testing.T) {
	w, resp := bindAndRespond(t, `{
		"date": "2026-10-19",
		"counterparty_id": "`+uuid.NewString()+`",
		"currency": "USD",
		"lines": []
	}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "lines", resp.Error.Details[0].Field)
	assert.Equal(t, "Must be at least 1", resp.Error.Details[0].Message)
}

func TestHandleValidationError_MalformedBody(t *testing.T) {
	w, resp := bindAndRespond(t, `{"date": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}

func TestHandleValidationError_ValidRequestPasses(t *testing.T) {
	w, resp := bindAndRespond(t, `{
		"date": "2026-10-19",
		"counterparty_id": "`+uuid.NewString()+`",
		"currency": "USD",
		"lines": [{"product_id": "`+uuid.NewString()+`", "quantity": "2.5"}]
	}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}
