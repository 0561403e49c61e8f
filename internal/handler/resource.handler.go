// internal/handler/resource.handler.go
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/internal/apiclient"
	"github.com/clivon254/TEO-KICKS-sub002/internal/domain"
	"github.com/clivon254/TEO-KICKS-sub002/internal/querycache"
	"github.com/clivon254/TEO-KICKS-sub002/pkg/response"
)

// Every CRUD page follows one pattern: fetch a collection or entity through
// the cache, submit mutations, invalidate, toast. ResourceHandler is that
// pattern once, mounted per entity.
type ResourceHandler struct {
	api    *apiclient.Client
	cache  *querycache.Cache
	hub    *Hub
	logger *zap.Logger
}

// entities the dashboard exposes. Anything else is a 404 before it reaches
// the backend.
var knownEntities = map[string]bool{
	"products":  true,
	"orders":    true,
	"coupons":   true,
	"packaging": true,
	"customers": true,
	"riders":    true,
	"roles":     true,
	"settings":  true,
}

func NewResourceHandler(api *apiclient.Client, cache *querycache.Cache, hub *Hub, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{api: api, cache: cache, hub: hub, logger: logger}
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entity(w, r)
	if !ok {
		return
	}
	params := r.URL.Query()

	data, err := h.cache.GetOrFetch(r.Context(), entity, params, func(ctx context.Context) (json.RawMessage, error) {
		return h.api.ListResource(ctx, entity, params)
	})
	if err != nil {
		h.logger.Error("list failed", zap.String("entity", entity), zap.Error(err))
		response.Error(w, statusFor(err), "could not load "+entity)
		return
	}
	response.JSON(w, http.StatusOK, data)
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	data, err := h.api.GetResource(r.Context(), entity, id)
	if err != nil {
		h.logger.Error("get failed",
			zap.String("entity", entity),
			zap.String("id", id),
			zap.Error(err))
		response.Error(w, statusFor(err), "could not load "+entity)
		return
	}
	response.JSON(w, http.StatusOK, data)
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entity(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		response.Error(w, http.StatusBadRequest, "request body required")
		return
	}

	data, err := h.api.CreateResource(r.Context(), entity, body)
	if err != nil {
		h.logger.Error("create failed", zap.String("entity", entity), zap.Error(err))
		response.Error(w, statusFor(err), "could not create "+entity)
		return
	}

	h.afterMutation(r.Context(), entity, "created")
	response.JSON(w, http.StatusCreated, data)
}

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		response.Error(w, http.StatusBadRequest, "request body required")
		return
	}

	data, err := h.api.UpdateResource(r.Context(), entity, id, body)
	if err != nil {
		h.logger.Error("update failed",
			zap.String("entity", entity),
			zap.String("id", id),
			zap.Error(err))
		response.Error(w, statusFor(err), "could not update "+entity)
		return
	}

	h.afterMutation(r.Context(), entity, "updated")
	response.JSON(w, http.StatusOK, data)
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entity, ok := h.entity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.api.DeleteResource(r.Context(), entity, id); err != nil {
		h.logger.Error("delete failed",
			zap.String("entity", entity),
			zap.String("id", id),
			zap.Error(err))
		response.Error(w, statusFor(err), "could not delete "+entity)
		return
	}

	h.afterMutation(r.Context(), entity, "deleted")
	response.Message(w, http.StatusOK, entity+" deleted", nil)
}

func (h *ResourceHandler) entity(w http.ResponseWriter, r *http.Request) (string, bool) {
	entity := chi.URLParam(r, "entity")
	if !knownEntities[entity] {
		response.Error(w, statusFor(domain.ErrUnknownResource), domain.ErrUnknownResource.Error())
		return "", false
	}
	return entity, true
}

func (h *ResourceHandler) afterMutation(ctx context.Context, entity, verb string) {
	if err := h.cache.InvalidateEntity(ctx, entity); err != nil {
		h.logger.Warn("cache invalidation failed",
			zap.String("entity", entity),
			zap.Error(err))
	}
	if h.hub != nil {
		h.hub.Notify("success", entity+" "+verb)
	}
}
