package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pubdex/pubdex/internal/log"
)

func TestLiveness(t *testing.T) {
	h := NewHealthHandler(nil, log.NewNop())

	rec := httptest.NewRecorder()
	h.liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReadinessWithoutPool(t *testing.T) {
	h := NewHealthHandler(nil, log.NewNop())

	rec := httptest.NewRecorder()
	h.readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
