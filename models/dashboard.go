package models

import "time"

// OrganizerStats — сводка для панели организатора.
type OrganizerStats struct {
	ActiveTournaments int `json:"active_tournaments"`
	TotalTeams        int `json:"total_teams"`
	PendingRequests   int `json:"pending_requests"`
}

type ActivityType string

const (
	ActivityTournamentCreated    ActivityType = "tournament_created"
	ActivityRegistrationReceived ActivityType = "registration_received"
)

// Activity is one entry of the organizer feed.
type Activity struct {
	ID              string             `json:"id"`
	Type            ActivityType       `json:"type"`
	Title           string             `json:"title,omitempty"`
	PlayerName      string             `json:"player_name,omitempty"`
	TournamentTitle string             `json:"tournament_title,omitempty"`
	Status          RegistrationStatus `json:"status,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
}

// MatchOutcome is a single-letter result from the player's perspective.
type MatchOutcome string

const (
	OutcomeWin  MatchOutcome = "W"
	OutcomeDraw MatchOutcome = "D"
	OutcomeLoss MatchOutcome = "L"
	OutcomeNone MatchOutcome = "-"
)

// PlayerStats is derived from approved registrations and completed matches.
type PlayerStats struct {
	OverallRating     float64        `json:"overall_rating"`
	MatchesPlayed     int            `json:"matches_played"`
	Wins              int            `json:"wins"`
	Draws             int            `json:"draws"`
	Losses            int            `json:"losses"`
	TournamentsJoined int            `json:"tournaments_joined"`
	WinRate           int            `json:"win_rate"`
	RecentResults     []MatchOutcome `json:"recent_results"`
}
