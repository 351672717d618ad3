package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/realtime"
	"github.com/Dosada05/tournament-registry/repositories"
)

type ScheduleMatchInput struct {
	TeamA       string    `json:"team_a"`
	TeamB       string    `json:"team_b"`
	Round       string    `json:"round"`
	Venue       string    `json:"venue"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type RecordResultInput struct {
	Score      string `json:"score"`
	WinnerTeam string `json:"winner_team"`
}

// MatchService управляет расписанием и результатами матчей турнира.
type MatchService struct {
	matches     repositories.MatchRepository
	tournaments repositories.TournamentRepository
	events      EventPublisher
	logger      *slog.Logger
}

func NewMatchService(matches repositories.MatchRepository, tournaments repositories.TournamentRepository, events EventPublisher, logger *slog.Logger) *MatchService {
	return &MatchService{
		matches:     matches,
		tournaments: tournaments,
		events:      publisherOrNoop(events),
		logger:      loggerOrDefault(logger),
	}
}

func (s *MatchService) Schedule(ctx context.Context, tournamentID string, session *models.Session, input ScheduleMatchInput) (*models.Match, error) {
	if _, err := s.managedTournament(ctx, tournamentID, session); err != nil {
		return nil, err
	}
	match := &models.Match{
		TournamentID: tournamentID,
		TeamA:        strings.TrimSpace(input.TeamA),
		TeamB:        strings.TrimSpace(input.TeamB),
		Round:        strings.TrimSpace(input.Round),
		Venue:        strings.TrimSpace(input.Venue),
		ScheduledAt:  input.ScheduledAt,
		Status:       models.MatchScheduled,
	}
	if err := match.Validate(); err != nil {
		return nil, validationError(err)
	}
	if err := s.matches.Create(ctx, match); err != nil {
		return nil, backendError("create match", err)
	}
	s.logger.InfoContext(ctx, "match scheduled",
		slog.String("match_id", match.ID),
		slog.String("tournament_id", tournamentID))
	s.events.Publish(tournamentID, realtime.EventMatchUpdated, match)
	return match, nil
}

func (s *MatchService) ListByTournament(ctx context.Context, tournamentID string, status *models.MatchStatus) ([]*models.Match, error) {
	if status != nil && !status.Valid() {
		return nil, validationError(models.ErrMatchInvalidStatus)
	}
	matches, err := s.matches.ListByTournament(ctx, tournamentID, status)
	if err != nil {
		return nil, backendError("list matches", err)
	}
	return matches, nil
}

func (s *MatchService) ListByTeam(ctx context.Context, team string) ([]*models.Match, error) {
	team = strings.TrimSpace(team)
	if team == "" {
		return nil, validationError(models.ErrMatchTeamsRequired)
	}
	matches, err := s.matches.ListByTeam(ctx, team)
	if err != nil {
		return nil, backendError("list team matches", err)
	}
	return matches, nil
}

// UpdateStatus moves a match forward (Scheduled -> Live). Completion goes
// through RecordResult so that every completed match carries a result.
func (s *MatchService) UpdateStatus(ctx context.Context, matchID string, status models.MatchStatus, session *models.Session) (*models.Match, error) {
	if !status.Valid() {
		return nil, validationError(models.ErrMatchInvalidStatus)
	}
	match, err := s.managedMatch(ctx, matchID, session)
	if err != nil {
		return nil, err
	}
	if status == models.MatchCompleted || !match.Status.CanTransitionTo(status) {
		return nil, ErrInvalidStatusTransition
	}
	if match.Status == status {
		return match, nil
	}
	if err := s.matches.UpdateStatus(ctx, match.ID, match.Status, status); err != nil {
		if errors.Is(err, repositories.ErrMatchStatusConflict) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, backendError("update match status", err)
	}
	match.Status = status
	s.events.Publish(match.TournamentID, realtime.EventMatchUpdated, match)
	return match, nil
}

// RecordResult completes a match. The winner must be one of the teams or the
// draw marker.
func (s *MatchService) RecordResult(ctx context.Context, matchID string, session *models.Session, input RecordResultInput) (*models.Match, error) {
	match, err := s.managedMatch(ctx, matchID, session)
	if err != nil {
		return nil, err
	}
	if match.Status == models.MatchCompleted {
		return nil, ErrInvalidStatusTransition
	}
	score := strings.TrimSpace(input.Score)
	winner := strings.TrimSpace(input.WinnerTeam)
	if score == "" {
		return nil, validationError(models.ErrMatchScoreRequired)
	}
	if !match.ValidWinner(winner) {
		return nil, validationError(models.ErrMatchInvalidWinner)
	}

	if err := s.matches.RecordResult(ctx, match.ID, score, winner); err != nil {
		if errors.Is(err, repositories.ErrMatchStatusConflict) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, backendError("record match result", err)
	}
	match.Score = score
	match.WinnerTeam = winner
	match.Status = models.MatchCompleted
	s.logger.InfoContext(ctx, "match result recorded",
		slog.String("match_id", match.ID),
		slog.String("winner", winner))
	s.events.Publish(match.TournamentID, realtime.EventMatchUpdated, match)
	return match, nil
}

func (s *MatchService) managedTournament(ctx context.Context, tournamentID string, session *models.Session) (*models.Tournament, error) {
	if session == nil || session.UserID == "" {
		return nil, ErrAuthenticationFailed
	}
	tournament, err := s.tournaments.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, backendError("fetch tournament", err)
	}
	if err := requireOwner(session, tournament.OrganizerID); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *MatchService) managedMatch(ctx context.Context, matchID string, session *models.Session) (*models.Match, error) {
	if session == nil || session.UserID == "" {
		return nil, ErrAuthenticationFailed
	}
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, backendError("fetch match", err)
	}
	if _, err := s.managedTournament(ctx, match.TournamentID, session); err != nil {
		return nil, err
	}
	return match, nil
}
