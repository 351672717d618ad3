package models

import (
	"errors"
	"strings"
	"time"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "Scheduled"
	MatchLive      MatchStatus = "Live"
	MatchCompleted MatchStatus = "Completed"
)

// DrawMarker is stored as the winner of a drawn match.
const DrawMarker = "Draw"

func (s MatchStatus) Valid() bool {
	return s.rank() > 0
}

func (s MatchStatus) rank() int {
	switch s {
	case MatchScheduled:
		return 1
	case MatchLive:
		return 2
	case MatchCompleted:
		return 3
	}
	return 0
}

// CanTransitionTo reports whether next does not move the match backward.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == MatchCompleted {
		return next == MatchCompleted
	}
	return next.rank() >= s.rank()
}

var (
	ErrMatchTeamsRequired  = errors.New("both teams are required")
	ErrMatchSameTeams      = errors.New("teams must be different")
	ErrMatchTimeRequired   = errors.New("match scheduled time is required")
	ErrMatchInvalidStatus  = errors.New("match status must be one of Scheduled, Live, Completed")
	ErrMatchInvalidWinner  = errors.New("winner must be one of the teams or Draw")
	ErrMatchScoreRequired  = errors.New("match score is required")
	ErrPracticeVenueNeeded = errors.New("practice venue is required")
	ErrPracticeTeamNeeded  = errors.New("practice team is required")
	ErrPracticeTimeNeeded  = errors.New("practice scheduled time is required")
)

type Match struct {
	ID           string      `json:"id"`
	TournamentID string      `json:"tournament_id"`
	TeamA        string      `json:"team_a"`
	TeamB        string      `json:"team_b"`
	Round        string      `json:"round,omitempty"`
	Venue        string      `json:"venue"`
	ScheduledAt  time.Time   `json:"scheduled_at"`
	Status       MatchStatus `json:"status"`
	Score        string      `json:"score,omitempty"`
	WinnerTeam   string      `json:"winner_team,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (m *Match) Validate() error {
	a, b := strings.TrimSpace(m.TeamA), strings.TrimSpace(m.TeamB)
	switch {
	case a == "" || b == "":
		return ErrMatchTeamsRequired
	case strings.EqualFold(a, b):
		return ErrMatchSameTeams
	case m.ScheduledAt.IsZero():
		return ErrMatchTimeRequired
	case !m.Status.Valid():
		return ErrMatchInvalidStatus
	}
	return nil
}

// ValidWinner reports whether w can be recorded as this match's result.
func (m *Match) ValidWinner(w string) bool {
	return w == DrawMarker || w == m.TeamA || w == m.TeamB
}

// Practice is a team training session. Teams are identified by name only.
type Practice struct {
	ID          string    `json:"id"`
	TeamName    string    `json:"team_name"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Venue       string    `json:"venue"`
	Note        string    `json:"note,omitempty"`
	CreatedBy   string    `json:"created_by"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *Practice) Validate() error {
	switch {
	case strings.TrimSpace(p.TeamName) == "":
		return ErrPracticeTeamNeeded
	case strings.TrimSpace(p.Venue) == "":
		return ErrPracticeVenueNeeded
	case p.ScheduledAt.IsZero():
		return ErrPracticeTimeNeeded
	}
	return nil
}
