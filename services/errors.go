package services

import (
	"errors"
	"fmt"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed        = errors.New("validation failed")
	ErrRegistrationClosed      = errors.New("tournament registration is not open")
	ErrAlreadyRegistered       = errors.New("user is already registered for this tournament")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrStatsUnavailable        = errors.New("stats unavailable")
	ErrExportUnavailable       = errors.New("export storage is not configured")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrPracticeNotFound     = errors.New("practice not found")
	ErrTournamentInUse      = errors.New("tournament cannot be deleted while it is referenced")

	// ErrBackend is matched by every BackendError.
	ErrBackend = errors.New("backend failure")
)

// RegistrationClosedError is the business-rule rejection of a registration.
// Reason is the evaluator's human readable reason.
type RegistrationClosedError struct {
	Reason string
}

func (e *RegistrationClosedError) Error() string {
	return fmt.Sprintf("registration closed: %s", e.Reason)
}

func (e *RegistrationClosedError) Is(target error) bool {
	return target == ErrRegistrationClosed
}

// BackendError wraps a transport or store failure so callers can tell it apart
// from business-rule rejections.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

func backendError(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

// ValidationError carries the failing model rule.
func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidationFailed, err)
}
