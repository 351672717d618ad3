package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger — обычно *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	responder
	db Pinger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{responder: newResponder(logger), db: db}
}

// Health godoc
// @Summary Проверка доступности сервиса и базы данных
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
			h.errorResponse(w, r, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
