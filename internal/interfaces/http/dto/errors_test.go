package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeAlreadyExists, http.StatusConflict},
		{shared.CodeConcurrencyConflict, http.StatusConflict},
		{shared.CodeTransient, http.StatusServiceUnavailable},
		{shared.CodeUnbalancedEntry, http.StatusUnprocessableEntity},
		{shared.CodeAlreadyReversed, http.StatusUnprocessableEntity},
		{shared.CodeInsufficientStock, http.StatusUnprocessableEntity},
		{shared.CodeInvalidTransition, http.StatusUnprocessableEntity},
		{shared.CodeAmountMismatch, http.StatusUnprocessableEntity},
		{shared.CodeExceedsOutstanding, http.StatusUnprocessableEntity},
		{shared.CodeInvalidInput, http.StatusUnprocessableEntity},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"number": "SI-000001"})

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"number":"SI-000001"}}`, string(body))
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(shared.CodeAmountMismatch, "pay plus credit must be 1100", "req-1")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, shared.CodeAmountMismatch, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)

	body, err := json.Marshal(NewErrorResponse(ErrCodeBadRequest, "bad id"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"BAD_REQUEST","message":"bad id"}}`, string(body))
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "counterparty_id", Message: "This field is required"},
		{Field: "lines", Message: "Must be at least 1"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-2", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-2", resp.Error.RequestID)
	assert.Equal(t, details, resp.Error.Details)
}
