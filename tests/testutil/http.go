package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/ledgerflow/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// JSONResponse is the envelope every handler answers with, with the data
// left raw so callers decode it into the view they expect
type JSONResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *dto.ErrorInfo  `json:"error,omitempty"`
	Status  int             `json:"-"`
	Header  http.Header     `json:"-"`
}

// DoJSON sends body (marshalled when not nil) to handler and decodes the
// envelope
func DoJSON(t *testing.T, handler http.Handler, method, path string, body any) *JSONResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = ToJSONReader(t, body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := &JSONResponse{Status: w.Code, Header: w.Header()}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), resp), "Response is not JSON: %s", w.Body.String())
	return resp
}

// ToJSONReader marshals v for use as a request body
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// DataAs decodes the data field of a response
func DataAs[T any](t *testing.T, resp *JSONResponse) T {
	t.Helper()

	var out T
	require.NotEmpty(t, resp.Data, "Response has no data")
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

// AssertSuccess checks the status and success flag of a response
func AssertSuccess(t *testing.T, resp *JSONResponse, status int) {
	t.Helper()

	if !assert.Equal(t, status, resp.Status) || !assert.True(t, resp.Success) {
		if resp.Error != nil {
			t.Logf("error: %s %s", resp.Error.Code, resp.Error.Message)
		}
	}
}

// AssertError checks the status and error code of a response
func AssertError(t *testing.T, resp *JSONResponse, status int, code string) {
	t.Helper()

	assert.Equal(t, status, resp.Status)
	assert.False(t, resp.Success)
	if assert.NotNil(t, resp.Error) {
		assert.Equal(t, code, resp.Error.Code)
	}
}
