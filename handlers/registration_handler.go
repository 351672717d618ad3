package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/services"
	"github.com/Dosada05/tournament-registry/storage"
)

type RegistrationService interface {
	Register(ctx context.Context, tournamentID, userID string, input services.RegisterInput) (*models.Registration, error)
	UpdateStatus(ctx context.Context, registrationID string, status models.RegistrationStatus, session *models.Session) (*models.Registration, error)
	UpdateDetails(ctx context.Context, registrationID string, input services.UpdateRegistrationInput, session *models.Session) (*models.Registration, error)
	Delete(ctx context.Context, registrationID string, session *models.Session) error
	ListForTournament(ctx context.Context, tournamentID string, status *models.RegistrationStatus, session *models.Session) ([]*models.Registration, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Registration, error)
	ListForOrganizer(ctx context.Context, organizerID string, status *models.RegistrationStatus) ([]*models.Registration, error)
	ExportRoster(ctx context.Context, tournamentID string, session *models.Session) (*storage.UploadResult, error)
}

type RegistrationHandler struct {
	responder
	registrationService RegistrationService
}

func NewRegistrationHandler(rs RegistrationService, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		responder:           newResponder(logger),
		registrationService: rs,
	}
}

type updateRegistrationStatusInput struct {
	Status models.RegistrationStatus `json:"status"`
}

// Register godoc
// @Summary Подать заявку на участие в турнире
// @Description Заявка создаётся в статусе pending, счётчик турнира увеличивается.
// @Tags registrations
// @Accept json
// @Produce json
// @Param id path string true "Tournament ID"
// @Param body body services.RegisterInput true "Registration form"
// @Success 201 {object} map[string]interface{} "Заявка создана"
// @Failure 400 {object} map[string]string "Некорректный JSON"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Регистрация закрыта / уже зарегистрирован"
// @Failure 422 {object} map[string]string "Ошибка валидации"
// @Security BearerAuth
// @Router /tournaments/{id}/registrations [post]
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	var input services.RegisterInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.PlayerEmail == "" {
		input.PlayerEmail = session.Email
	}

	registration, err := h.registrationService.Register(r.Context(), tournamentID, session.UserID, input)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": registration}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// ListForTournament godoc
// @Summary Заявки турнира
// @Tags registrations
// @Produce json
// @Param id path string true "Tournament ID"
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{id}/registrations [get]
func (h *RegistrationHandler) ListForTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}
	status, err := registrationStatusParam(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	registrations, err := h.registrationService.ListForTournament(r.Context(), tournamentID, status, session)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeRegistrations(w, r, registrations)
}

// Export godoc
// @Summary Выгрузить список участников в CSV
// @Tags registrations
// @Produce json
// @Param id path string true "Tournament ID"
// @Success 201 {object} map[string]interface{} "Ссылка на файл"
// @Failure 503 {object} map[string]string "Хранилище не настроено"
// @Security BearerAuth
// @Router /tournaments/{id}/registrations/export [post]
func (h *RegistrationHandler) Export(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	result, err := h.registrationService.ExportRoster(r.Context(), tournamentID, session)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"export": result}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// UpdateStatus godoc
// @Summary Одобрить или отклонить заявку
// @Tags registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param body body updateRegistrationStatusInput true "New status"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /registrations/{id}/status [patch]
func (h *RegistrationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	var input updateRegistrationStatusInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	registration, err := h.registrationService.UpdateStatus(r.Context(), id, input.Status, session)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// UpdateDetails godoc
// @Summary Изменить данные заявки
// @Tags registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param body body services.UpdateRegistrationInput true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /registrations/{id} [put]
func (h *RegistrationHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	var input services.UpdateRegistrationInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	registration, err := h.registrationService.UpdateDetails(r.Context(), id, input, session)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// Delete godoc
// @Summary Удалить заявку
// @Tags registrations
// @Param id path string true "Registration ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /registrations/{id} [delete]
func (h *RegistrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := h.registrationService.Delete(r.Context(), id, session); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMine godoc
// @Summary Мои заявки
// @Tags me
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /me/registrations [get]
func (h *RegistrationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}

	registrations, err := h.registrationService.ListForUser(r.Context(), session.UserID)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeRegistrations(w, r, registrations)
}

// ListForOrganizer godoc
// @Summary Заявки во все турниры организатора
// @Tags organizer
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /organizer/registrations [get]
func (h *RegistrationHandler) ListForOrganizer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionOrUnauthorized(w, r)
	if !ok {
		return
	}
	status, err := registrationStatusParam(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	registrations, err := h.registrationService.ListForOrganizer(r.Context(), session.UserID, status)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.writeRegistrations(w, r, registrations)
}

func (h *RegistrationHandler) writeRegistrations(w http.ResponseWriter, r *http.Request, registrations []*models.Registration) {
	if registrations == nil {
		registrations = []*models.Registration{}
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
