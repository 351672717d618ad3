package models

import (
	"errors"
	"strings"
	"time"
)

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationRejected:
		return true
	}
	return false
}

// Counted reports whether a registration in this status occupies a slot.
func (s RegistrationStatus) Counted() bool {
	return s == RegistrationPending || s == RegistrationApproved
}

var (
	ErrRegistrationInvalidStatus = errors.New("registration status must be one of pending, approved, rejected")
	ErrRegistrationNameRequired  = errors.New("player name is required")
	ErrRegistrationRoleRequired  = errors.New("player role is required")
	ErrRegistrationTeamRequired  = errors.New("team name is required for team tournaments")
	ErrRegistrationMissingRefs   = errors.New("registration must reference a tournament and a user")
)

// Registration is a user's application to a tournament.
type Registration struct {
	ID              string             `json:"id"`
	TournamentID    string             `json:"tournament_id"`
	UserID          string             `json:"user_id"`
	Code            string             `json:"registration_code"`
	PlayerName      string             `json:"player_name"`
	PlayerEmail     string             `json:"player_email,omitempty"`
	Phone           string             `json:"phone,omitempty"`
	TeamName        string             `json:"team_name,omitempty"`
	Role            string             `json:"role"`
	Attributes      map[string]string  `json:"attributes,omitempty"`
	TournamentTitle string             `json:"tournament_title,omitempty"`
	Sport           string             `json:"sport,omitempty"`
	Status          RegistrationStatus `json:"status"`
	RegisteredAt    time.Time          `json:"registered_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Validate rejects malformed registrations before they reach the store.
func (r *Registration) Validate() error {
	switch {
	case r.TournamentID == "" || r.UserID == "":
		return ErrRegistrationMissingRefs
	case strings.TrimSpace(r.PlayerName) == "":
		return ErrRegistrationNameRequired
	case strings.TrimSpace(r.Role) == "":
		return ErrRegistrationRoleRequired
	case !r.Status.Valid():
		return ErrRegistrationInvalidStatus
	}
	return nil
}

// RegistrationEvent is what room subscribers see about a registration. The
// websocket room is public, so contact details and the user id stay out.
type RegistrationEvent struct {
	ID           string             `json:"id"`
	TournamentID string             `json:"tournament_id"`
	Code         string             `json:"registration_code"`
	TeamName     string             `json:"team_name,omitempty"`
	Status       RegistrationStatus `json:"status"`
	RegisteredAt time.Time          `json:"registered_at"`
}

func (r *Registration) Event() RegistrationEvent {
	return RegistrationEvent{
		ID:           r.ID,
		TournamentID: r.TournamentID,
		Code:         r.Code,
		TeamName:     r.TeamName,
		Status:       r.Status,
		RegisteredAt: r.RegisteredAt,
	}
}
