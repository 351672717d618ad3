package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/services"
)

type MatchService interface {
	MatchLister
	Schedule(ctx context.Context, tournamentID string, session *models.Session, input services.ScheduleMatchInput) (*models.Match, error)
	UpdateStatus(ctx context.Context, matchID string, status models.MatchStatus, session *models.Session) (*models.Match, error)
	RecordResult(ctx context.Context, matchID string, session *models.Session, input services.RecordResultInput) (*models.Match, error)
}

type MatchHandler struct {
	responder
	matchService MatchService
}

func NewMatchHandler(ms MatchService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{responder: newResponder(logger), matchService: ms}
}

type updateMatchStatusInput struct {
	Status models.MatchStatus `json:"status"`
}

// ListTournamentMatchesHandler godoc
// @Summary Матчи турнира по времени начала
// @Tags matches
// @Produce json
// @Param id path string true "Tournament ID"
// @Param status query string false "Scheduled, Live or Completed"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments/{id}/matches [get]
func (h *TournamentHandler) ListTournamentMatchesHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	status, err := matchStatusParam(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListByTournament(r.Context(), tournamentID, status)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if matches == nil {
		matches = []*models.Match{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// Schedule godoc
// @Summary Назначить матч
// @Tags matches
// @Accept json
// @Produce json
// @Param id path string true "Tournament ID"
// @Param body body services.ScheduleMatchInput true "Match"
// @Success 201 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{id}/matches [post]
func (h *MatchHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	var input services.ScheduleMatchInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Schedule(r.Context(), tournamentID, session, input)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// UpdateStatus godoc
// @Summary Перевести матч в следующий статус
// @Description Статус меняется только вперёд; Completed выставляется через /result.
// @Tags matches
// @Accept json
// @Produce json
// @Param id path string true "Match ID"
// @Param body body updateMatchStatusInput true "New status"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Недопустимый переход"
// @Security BearerAuth
// @Router /matches/{id}/status [patch]
func (h *MatchHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	var input updateMatchStatusInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateStatus(r.Context(), id, input.Status, session)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// RecordResult godoc
// @Summary Записать результат матча
// @Tags matches
// @Accept json
// @Produce json
// @Param id path string true "Match ID"
// @Param body body services.RecordResultInput true "Score and winner (team name or Draw)"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Матч уже завершён"
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /matches/{id}/result [post]
func (h *MatchHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	var input services.RecordResultInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.RecordResult(r.Context(), id, session, input)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
