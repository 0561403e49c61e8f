// internal/handler/analytics.handler.go
package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/internal/repository"
	"github.com/clivon254/TEO-KICKS-sub002/pkg/response"
)

// AnalyticsHandler serves the payment attempt history recorded by the
// tracker, for the dashboard's payments analytics page.
type AnalyticsHandler struct {
	attempts repository.AttemptRepository
	logger   *zap.Logger
}

func NewAnalyticsHandler(attempts repository.AttemptRepository, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{attempts: attempts, logger: logger}
}

func (h *AnalyticsHandler) HandleAttemptHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.attempts.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("attempt history query failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "could not load attempt history")
		return
	}
	response.JSON(w, http.StatusOK, records)
}
