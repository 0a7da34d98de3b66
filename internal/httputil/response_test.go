package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NotFound(rec, "no such layer")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "no such layer", resp["error"])
}

func TestWriteBody(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteBody(rec, "text/html; charset=utf-8", []byte("<p>hi</p>"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "9", rec.Header().Get("Content-Length"))
	assert.Equal(t, "<p>hi</p>", rec.Body.String())
}

func TestGETOnly(t *testing.T) {
	t.Parallel()

	h := GETOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodHead, http.StatusOK},
		{http.MethodPost, http.StatusMethodNotAllowed},
		{http.MethodDelete, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
