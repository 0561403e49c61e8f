// internal/handler/resource_handler_test.go
package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestUnknownResourceRejected(t *testing.T) {
	h := NewResourceHandler(nil, nil, nil, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/{entity}", h.List)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widgets", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown resource")
}
