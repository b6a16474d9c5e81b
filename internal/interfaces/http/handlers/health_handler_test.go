package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler("1.2.3", nil, NewChecker("postgres", func(context.Context) error {
		return stderrors.New("should not be called")
	}))
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := NewChecker("postgres", func(context.Context) error { return nil })
	down := NewChecker("redis", func(context.Context) error { return stderrors.New("connection refused") })

	t.Run("no checkers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler("v", nil).Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
	t.Run("all healthy", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler("v", nil, ok).Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Components["postgres"].Status)
	})
	t.Run("one unhealthy", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler("v", nil, ok, down).Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "connection refused", resp.Components["redis"].Error)
	})
}
