package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/tournament-registry/calendar"
	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/services"
)

// TournamentService — то, что нужно обработчику от services.TournamentService.
type TournamentService interface {
	Create(ctx context.Context, session *models.Session, input services.CreateTournamentInput) (*models.TournamentView, error)
	GetByID(ctx context.Context, id string) (*models.TournamentView, error)
	Status(ctx context.Context, id string) (services.StatusResult, error)
	List(ctx context.Context, sport string) ([]models.TournamentView, error)
	Update(ctx context.Context, id string, session *models.Session, input services.UpdateTournamentInput) (*models.TournamentView, error)
	Delete(ctx context.Context, id string, session *models.Session) error
}

// MatchLister отдаёт матчи для календарей.
type MatchLister interface {
	ListByTournament(ctx context.Context, tournamentID string, status *models.MatchStatus) ([]*models.Match, error)
}

type TournamentHandler struct {
	responder
	tournamentService TournamentService
	matchService      MatchLister
	now               func() time.Time
}

func NewTournamentHandler(ts TournamentService, ms MatchLister, logger *slog.Logger) *TournamentHandler {
	return &TournamentHandler{
		responder:         newResponder(logger),
		tournamentService: ts,
		matchService:      ms,
		now:               time.Now,
	}
}

// CreateHandler godoc
// @Summary Создать турнир
// @Tags tournaments
// @Accept json
// @Produce json
// @Param body body services.CreateTournamentInput true "Tournament"
// @Success 201 {object} map[string]interface{} "Турнир создан"
// @Failure 400 {object} map[string]string "Некорректный JSON"
// @Failure 403 {object} map[string]string "Только организатор"
// @Failure 422 {object} map[string]string "Ошибка валидации"
// @Security BearerAuth
// @Router /tournaments [post]
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), session, input)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler godoc
// @Summary Турнир с вычисленным статусом регистрации
// @Tags tournaments
// @Produce json
// @Param id path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{id} [get]
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetByID(r.Context(), id)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// StatusHandler godoc
// @Summary Статус регистрации турнира
// @Description Для несуществующего турнира возвращает состояние invalid.
// @Tags tournaments
// @Produce json
// @Param id path string true "Tournament ID"
// @Success 200 {object} models.RegistrationWindow
// @Router /tournaments/{id}/status [get]
func (h *TournamentHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	result, err := h.tournamentService.Status(r.Context(), id)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": result.Window()}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// ListHandler godoc
// @Summary Список турниров
// @Tags tournaments
// @Produce json
// @Param sport query string false "Sport filter, All for every sport"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments [get]
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	sport := strings.TrimSpace(r.URL.Query().Get("sport"))

	tournaments, err := h.tournamentService.List(r.Context(), sport)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if tournaments == nil {
		tournaments = []models.TournamentView{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// UpdateHandler godoc
// @Summary Обновить турнир
// @Description Счётчик зарегистрированных участников не меняется.
// @Tags tournaments
// @Accept json
// @Produce json
// @Param id path string true "Tournament ID"
// @Param body body services.UpdateTournamentInput true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{id} [put]
func (h *TournamentHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	var input services.UpdateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Update(r.Context(), id, session, input)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// DeleteHandler godoc
// @Summary Удалить турнир
// @Tags tournaments
// @Param id path string true "Tournament ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Турнир используется"
// @Security BearerAuth
// @Router /tournaments/{id} [delete]
func (h *TournamentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := h.tournamentService.Delete(r.Context(), id, session); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CalendarHandler godoc
// @Summary Расписание турнира в формате iCalendar
// @Tags tournaments
// @Produce text/calendar
// @Param id path string true "Tournament ID"
// @Success 200 {string} string "VCALENDAR"
// @Failure 404 {object} map[string]string
// @Router /tournaments/{id}/calendar.ics [get]
func (h *TournamentHandler) CalendarHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetByID(r.Context(), id)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	matches, err := h.matchService.ListByTournament(r.Context(), id, nil)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	body := calendar.TournamentSchedule(&tournament.Tournament, matches, h.now())
	writeCalendar(w, "tournament-"+id+".ics", body)
}

func writeCalendar(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", calendar.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
