package services

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/tournament-registry/models"
)

// EventPublisher pushes change notifications to tournament subscribers.
type EventPublisher interface {
	Publish(tournamentID, eventType string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

const (
	registrationCodePrefix   = "REG-"
	registrationCodeLength   = 6
	registrationCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// generateRegistrationCode returns a human friendly reference such as
// REG-7K2QZD. Codes are not guaranteed unique.
func generateRegistrationCode() (string, error) {
	buf := make([]byte, registrationCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate registration code: %w", err)
	}
	var sb strings.Builder
	sb.Grow(len(registrationCodePrefix) + registrationCodeLength)
	sb.WriteString(registrationCodePrefix)
	for _, b := range buf {
		sb.WriteByte(registrationCodeAlphabet[int(b)%len(registrationCodeAlphabet)])
	}
	return sb.String(), nil
}

// requireOwner checks that session may manage a resource owned by ownerID.
func requireOwner(session *models.Session, ownerID string) error {
	if session == nil || session.UserID == "" {
		return ErrAuthenticationFailed
	}
	if !session.Owns(ownerID) {
		return ErrForbiddenOperation
	}
	return nil
}
