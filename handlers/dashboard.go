package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/services"
)

type StatsService interface {
	OrganizerActivities(ctx context.Context, organizerID string) ([]models.Activity, error)
	OrganizerStats(ctx context.Context, organizerID string) (*models.OrganizerStats, error)
	OrganizerDashboard(ctx context.Context, organizerID string) (*services.Dashboard, error)
	PlayerStats(ctx context.Context, userID string) (*models.PlayerStats, error)
}

type DashboardHandler struct {
	responder
	statsService StatsService
}

func NewDashboardHandler(s StatsService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{responder: newResponder(logger), statsService: s}
}

// Activities godoc
// @Summary Лента последних событий организатора
// @Tags organizer
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /organizer/activities [get]
func (h *DashboardHandler) Activities(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	activities, err := h.statsService.OrganizerActivities(r.Context(), session.UserID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if activities == nil {
		activities = []models.Activity{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"activities": activities}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// Stats godoc
// @Summary Счётчики панели организатора
// @Tags organizer
// @Produce json
// @Success 200 {object} models.OrganizerStats
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /organizer/stats [get]
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	stats, err := h.statsService.OrganizerStats(r.Context(), session.UserID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, stats, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// Dashboard godoc
// @Summary Счётчики и лента организатора одним запросом
// @Tags organizer
// @Produce json
// @Success 200 {object} services.Dashboard
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /organizer/dashboard [get]
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	dashboard, err := h.statsService.OrganizerDashboard(r.Context(), session.UserID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, dashboard, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// PlayerStats godoc
// @Summary Статистика текущего игрока
// @Tags me
// @Produce json
// @Success 200 {object} models.PlayerStats
// @Failure 503 {object} map[string]string "Статистика недоступна"
// @Security BearerAuth
// @Router /me/stats [get]
func (h *DashboardHandler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	stats, err := h.statsService.PlayerStats(r.Context(), session.UserID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, stats, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
