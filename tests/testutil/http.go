package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/require"
)

// DoJSON sends a request to h. Strings are sent verbatim; other bodies are
// JSON-encoded. A non-empty token is sent as a bearer token.
func DoJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err, "marshal request body")
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Body decodes a flat success body
func Body(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// BodyAs decodes the response into T
func BodyAs[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// ErrorOf decodes the error envelope and fails when there is none
func ErrorOf(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()
	resp := BodyAs[dto.Response](t, w)
	require.NotNil(t, resp.Error, w.Body.String())
	return *resp.Error
}

// RequireStatus fails the test with the response body when the code differs
func RequireStatus(t *testing.T, want int, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, w.Code, w.Body.String())
}
