package models

import (
	"errors"
	"strings"
	"time"
)

// TournamentFormat представляет формат участия в турнире.
type TournamentFormat string

const (
	FormatSingles TournamentFormat = "singles"
	FormatDoubles TournamentFormat = "doubles"
	FormatTeam    TournamentFormat = "team"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatSingles, FormatDoubles, FormatTeam:
		return true
	}
	return false
}

// Informational status labels. The open/closed decision is always recomputed.
const (
	LabelUpcoming  = "upcoming"
	LabelCancelled = "cancelled"
	LabelClosed    = "closed"
	LabelFull      = "full"
)

var (
	ErrTournamentTitleRequired    = errors.New("tournament title is required")
	ErrTournamentSportRequired    = errors.New("tournament sport is required")
	ErrTournamentLocationRequired = errors.New("tournament location is required")
	ErrTournamentInvalidFormat    = errors.New("tournament format must be one of singles, doubles, team")
	ErrTournamentDeadlineRequired = errors.New("tournament registration deadline is required")
	ErrTournamentStartRequired    = errors.New("tournament start date is required")
	ErrTournamentInvalidDateRange = errors.New("tournament end date must not be before start date")
	ErrTournamentInvalidCapacity  = errors.New("tournament max participants must not be negative")
	ErrTournamentInvalidCount     = errors.New("tournament registered count must not be negative")
)

// Tournament представляет турнир.
type Tournament struct {
	ID                   string           `json:"id"`
	Title                string           `json:"title"`
	Sport                string           `json:"sport"`
	Format               TournamentFormat `json:"format"`
	Description          string           `json:"description,omitempty"`
	Rules                string           `json:"rules,omitempty"`
	Location             string           `json:"location"`
	RegistrationDeadline Date             `json:"registration_deadline"`
	StartDate            Date             `json:"start_date"`
	EndDate              *Date            `json:"end_date,omitempty"`
	MaxParticipants      int              `json:"max_participants"`
	RegisteredCount      int              `json:"registered_count"`
	Status               string           `json:"status"`
	OrganizerID          string           `json:"organizer_id"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// Validate checks the fields an organizer supplies.
func (t *Tournament) Validate() error {
	switch {
	case strings.TrimSpace(t.Title) == "":
		return ErrTournamentTitleRequired
	case strings.TrimSpace(t.Sport) == "":
		return ErrTournamentSportRequired
	case strings.TrimSpace(t.Location) == "":
		return ErrTournamentLocationRequired
	case !t.Format.Valid():
		return ErrTournamentInvalidFormat
	case t.RegistrationDeadline.IsZero():
		return ErrTournamentDeadlineRequired
	case t.StartDate.IsZero():
		return ErrTournamentStartRequired
	case t.EndDate != nil && t.EndDate.Before(t.StartDate):
		return ErrTournamentInvalidDateRange
	case t.MaxParticipants < 0:
		return ErrTournamentInvalidCapacity
	case t.RegisteredCount < 0:
		return ErrTournamentInvalidCount
	}
	return nil
}

// TournamentView is a tournament together with its derived registration state.
type TournamentView struct {
	Tournament
	Registration RegistrationWindow `json:"registration"`
}

// RegistrationWindow is the serialized result of the status evaluation.
type RegistrationWindow struct {
	Open   bool   `json:"open"`
	State  string `json:"state"`
	Reason string `json:"reason"`
	Label  string `json:"label"`
}
