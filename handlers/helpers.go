package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/tournament-registry/middleware"
	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/services" // Импортируем для маппинга ошибок сервисов
)

type jsonResponse map[string]interface{}

// responder пишет ответы об ошибках и логирует серверные сбои.
type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // ошибка программиста: передан не указатель
		default:
			// models.Date reports its own parse errors
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func (rs responder) errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		rs.logger.ErrorContext(r.Context(), "failed to write error response",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (rs responder) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.logger.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	rs.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (rs responder) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (rs responder) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
}

func (rs responder) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	rs.errorResponse(w, r, http.StatusNotFound, message)
}

func (rs responder) conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	rs.errorResponse(w, r, http.StatusConflict, message)
}

func (rs responder) unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	rs.errorResponse(w, r, http.StatusUnauthorized, message)
}

func (rs responder) forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	rs.errorResponse(w, r, http.StatusForbidden, message)
}

func (rs responder) unavailableResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.logger.WarnContext(r.Context(), "dependency unavailable",
		slog.String("path", r.URL.Path), slog.Any("error", err))
	rs.errorResponse(w, r, http.StatusServiceUnavailable, err.Error())
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func (rs responder) mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var closed *services.RegistrationClosedError

	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrRegistrationNotFound),
		errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrPracticeNotFound):
		rs.notFoundResponse(w, r)

	// Закрытая регистрация: клиенту отдаём причину из оценщика статуса
	case errors.As(err, &closed):
		rs.conflictResponse(w, r, closed.Reason)

	case errors.Is(err, services.ErrAlreadyRegistered),
		errors.Is(err, services.ErrInvalidStatusTransition),
		errors.Is(err, services.ErrTournamentInUse):
		rs.conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrValidationFailed):
		rs.failedValidationResponse(w, r, err)

	case errors.Is(err, services.ErrAuthenticationFailed):
		rs.unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrForbiddenOperation):
		rs.forbiddenResponse(w, r, err.Error())

	case errors.Is(err, services.ErrStatsUnavailable),
		errors.Is(err, services.ErrExportUnavailable):
		rs.unavailableResponse(w, r, err)

	case errors.Is(err, services.ErrBackend):
		rs.logger.ErrorContext(r.Context(), "backend failure",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		rs.errorResponse(w, r, http.StatusBadGateway, "an upstream dependency failed, try again later")

	default:
		rs.serverErrorResponse(w, r, err)
	}
}

func getIDFromURL(r *http.Request, paramName string) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, paramName))
	if id == "" {
		return "", fmt.Errorf("missing %s in URL path", paramName)
	}
	return id, nil
}

// sessionOrUnauthorized достаёт сессию, выставленную middleware.Authenticate.
func (rs responder) sessionOrUnauthorized(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok || session.UserID == "" {
		rs.unauthorizedResponse(w, r, "authentication required")
		return nil, false
	}
	return session, true
}

func registrationStatusParam(r *http.Request) (*models.RegistrationStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	status := models.RegistrationStatus(strings.ToLower(raw))
	if !status.Valid() {
		return nil, models.ErrRegistrationInvalidStatus
	}
	return &status, nil
}

func matchStatusParam(r *http.Request) (*models.MatchStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	status := models.MatchStatus(raw)
	if !status.Valid() {
		return nil, models.ErrMatchInvalidStatus
	}
	return &status, nil
}
