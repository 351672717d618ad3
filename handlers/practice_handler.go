package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/tournament-registry/calendar"
	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/services"
)

type PracticeService interface {
	Schedule(ctx context.Context, session *models.Session, input services.SchedulePracticeInput) (*models.Practice, error)
	ListByTeam(ctx context.Context, teamName string) ([]*models.Practice, error)
	Cancel(ctx context.Context, id string, session *models.Session) error
}

// TeamMatchLister отдаёт матчи команды для её календаря.
type TeamMatchLister interface {
	ListByTeam(ctx context.Context, team string) ([]*models.Match, error)
}

// TeamHandler — тренировки и календарь команды. Команда задаётся только именем.
type TeamHandler struct {
	responder
	practiceService PracticeService
	matchService    TeamMatchLister
	now             func() time.Time
}

func NewTeamHandler(ps PracticeService, ms TeamMatchLister, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{
		responder:       newResponder(logger),
		practiceService: ps,
		matchService:    ms,
		now:             time.Now,
	}
}

// SchedulePractice godoc
// @Summary Назначить тренировку команды
// @Tags teams
// @Accept json
// @Produce json
// @Param body body services.SchedulePracticeInput true "Practice"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]string "Не указано место"
// @Security BearerAuth
// @Router /practices [post]
func (h *TeamHandler) SchedulePractice(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	var input services.SchedulePracticeInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	practice, err := h.practiceService.Schedule(r.Context(), session, input)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"practice": practice}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// CancelPractice godoc
// @Summary Отменить тренировку
// @Tags teams
// @Param id path string true "Practice ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /practices/{id} [delete]
func (h *TeamHandler) CancelPractice(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := h.practiceService.Cancel(r.Context(), id, session); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPractices godoc
// @Summary Тренировки команды
// @Tags teams
// @Produce json
// @Param team path string true "Team name"
// @Success 200 {object} map[string]interface{}
// @Router /teams/{team}/practices [get]
func (h *TeamHandler) ListPractices(w http.ResponseWriter, r *http.Request) {
	team, err := getIDFromURL(r, "team")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	practices, err := h.practiceService.ListByTeam(r.Context(), team)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if practices == nil {
		practices = []*models.Practice{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"practices": practices}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// Calendar godoc
// @Summary Тренировки и матчи команды в формате iCalendar
// @Tags teams
// @Produce text/calendar
// @Param team path string true "Team name"
// @Success 200 {string} string "VCALENDAR"
// @Router /teams/{team}/calendar.ics [get]
func (h *TeamHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	team, err := getIDFromURL(r, "team")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	practices, err := h.practiceService.ListByTeam(r.Context(), team)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	matches, err := h.matchService.ListByTeam(r.Context(), team)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeCalendar(w, "team.ics", calendar.TeamSchedule(team, practices, matches, h.now()))
}
