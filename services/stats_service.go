package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/repositories"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultActivityFeedLimit = 10
	recentFormSize           = 5
)

// StatsService собирает данные для панелей организатора и игрока.
type StatsService struct {
	tournaments   repositories.TournamentRepository
	registrations repositories.RegistrationRepository
	matches       repositories.MatchRepository
	feedLimit     int
	logger        *slog.Logger
}

func NewStatsService(
	tournaments repositories.TournamentRepository,
	registrations repositories.RegistrationRepository,
	matches repositories.MatchRepository,
	feedLimit int,
	logger *slog.Logger,
) *StatsService {
	if feedLimit <= 0 {
		feedLimit = DefaultActivityFeedLimit
	}
	return &StatsService{
		tournaments:   tournaments,
		registrations: registrations,
		matches:       matches,
		feedLimit:     feedLimit,
		logger:        loggerOrDefault(logger),
	}
}

// OrganizerActivities returns the newest tournament and registration events of
// organizerID's tournaments.
func (s *StatsService) OrganizerActivities(ctx context.Context, organizerID string) ([]models.Activity, error) {
	tournaments, err := s.tournaments.List(ctx, repositories.ListTournamentsFilter{OrganizerID: &organizerID})
	if err != nil {
		return nil, backendError("list organizer tournaments", err)
	}
	if len(tournaments) == 0 {
		return []models.Activity{}, nil
	}

	regs, err := s.registrations.ListByTournamentIDs(ctx, tournamentIDs(tournaments), nil)
	if err != nil {
		return nil, backendError("list organizer registrations", err)
	}
	return MergeActivities(tournaments, regs, s.feedLimit), nil
}

// MergeActivities merges tournament creations and received registrations into
// one feed, newest first, truncated to limit. Entries with equal timestamps
// keep their input order with tournaments ahead of registrations.
func MergeActivities(tournaments []models.Tournament, regs []*models.Registration, limit int) []models.Activity {
	feed := make([]models.Activity, 0, len(tournaments)+len(regs))
	for _, t := range tournaments {
		feed = append(feed, models.Activity{
			ID:        t.ID,
			Type:      models.ActivityTournamentCreated,
			Title:     t.Title,
			Timestamp: t.CreatedAt,
		})
	}
	for _, reg := range regs {
		feed = append(feed, models.Activity{
			ID:              reg.ID,
			Type:            models.ActivityRegistrationReceived,
			PlayerName:      reg.PlayerName,
			TournamentTitle: reg.TournamentTitle,
			Status:          reg.Status,
			Timestamp:       reg.RegisteredAt,
		})
	}
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp.After(feed[j].Timestamp)
	})
	if limit > 0 && len(feed) > limit {
		feed = feed[:limit]
	}
	return feed
}

// OrganizerStats counts the organizer's tournaments, approved entries and
// pending requests across them. Every owned tournament counts as active,
// whatever its registration window.
func (s *StatsService) OrganizerStats(ctx context.Context, organizerID string) (*models.OrganizerStats, error) {
	tournaments, err := s.tournaments.List(ctx, repositories.ListTournamentsFilter{OrganizerID: &organizerID})
	if err != nil {
		return nil, backendError("list organizer tournaments", err)
	}
	stats := &models.OrganizerStats{}
	if len(tournaments) == 0 {
		return stats, nil
	}

	stats.ActiveTournaments = len(tournaments)

	regs, err := s.registrations.ListByTournamentIDs(ctx, tournamentIDs(tournaments), nil)
	if err != nil {
		return nil, backendError("list organizer registrations", err)
	}
	for _, reg := range regs {
		switch reg.Status {
		case models.RegistrationApproved:
			stats.TotalTeams++
		case models.RegistrationPending:
			stats.PendingRequests++
		}
	}
	return stats, nil
}

// PlayerStats derives the player's record from approved registrations and
// completed matches of those tournaments. Any fetch failure yields
// ErrStatsUnavailable and no partial result.
func (s *StatsService) PlayerStats(ctx context.Context, userID string) (*models.PlayerStats, error) {
	if userID == "" {
		return nil, ErrAuthenticationFailed
	}
	approved := models.RegistrationApproved
	regs, err := s.registrations.ListByUser(ctx, userID, &approved)
	if err != nil {
		s.logger.ErrorContext(ctx, "player stats: registrations unavailable", slog.String("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrStatsUnavailable, backendError("list approved registrations", err))
	}
	if len(regs) == 0 {
		stats := ComputePlayerStats(nil, nil)
		return &stats, nil
	}

	ids := make([]string, 0, len(regs))
	for _, reg := range regs {
		ids = append(ids, reg.TournamentID)
	}
	completed := models.MatchCompleted
	matches, err := s.matches.ListByTournamentIDs(ctx, ids, &completed)
	if err != nil {
		s.logger.ErrorContext(ctx, "player stats: matches unavailable", slog.String("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrStatsUnavailable, backendError("list completed matches", err))
	}

	stats := ComputePlayerStats(regs, matches)
	return &stats, nil
}

// ComputePlayerStats is the pure part of PlayerStats. matches must be
// completed matches ordered by last update, newest first.
func ComputePlayerStats(regs []*models.Registration, matches []*models.Match) models.PlayerStats {
	stats := models.PlayerStats{
		TournamentsJoined: len(regs),
		RecentResults:     placeholderForm(),
	}
	if len(regs) == 0 {
		return stats
	}

	// команда игрока в каждом турнире; первая заявка побеждает
	teams := make(map[string]string, len(regs))
	for _, reg := range regs {
		if _, ok := teams[reg.TournamentID]; !ok {
			teams[reg.TournamentID] = reg.TeamName
		}
	}

	for _, m := range matches {
		switch ClassifyOutcome(m.WinnerTeam, teams[m.TournamentID]) {
		case models.OutcomeWin:
			stats.Wins++
		case models.OutcomeDraw:
			stats.Draws++
		case models.OutcomeLoss:
			stats.Losses++
		}
	}
	stats.MatchesPlayed = len(matches)
	stats.WinRate = WinRate(stats.Wins, stats.MatchesPlayed)
	stats.OverallRating = Rating(stats.Wins, stats.MatchesPlayed)

	form := make([]models.MatchOutcome, 0, recentFormSize)
	for _, m := range matches[:min(recentFormSize, len(matches))] {
		if outcome := ClassifyOutcome(m.WinnerTeam, teams[m.TournamentID]); outcome != models.OutcomeNone {
			form = append(form, outcome)
		}
	}
	if len(form) > 0 {
		// oldest first
		for i, j := 0, len(form)-1; i < j; i, j = i+1, j-1 {
			form[i], form[j] = form[j], form[i]
		}
		stats.RecentResults = form
	}
	return stats
}

// ClassifyOutcome reports the result of a match with the given winner from the
// point of view of team.
func ClassifyOutcome(winner, team string) models.MatchOutcome {
	switch {
	case winner == "":
		return models.OutcomeNone
	case team != "" && winner == team:
		return models.OutcomeWin
	case winner == models.DrawMarker:
		return models.OutcomeDraw
	default:
		return models.OutcomeLoss
	}
}

// WinRate is the rounded percentage of won matches.
func WinRate(wins, played int) int {
	if played <= 0 {
		return 0
	}
	return int(math.Round(float64(wins) / float64(played) * 100))
}

// Rating starts at 5, adds 0.5 per win and subtracts 0.2 per non-win, clamped
// to [0, 10] and rounded to one decimal.
func Rating(wins, played int) float64 {
	r := 5 + 0.5*float64(wins) - 0.2*float64(played-wins)
	r = math.Max(0, math.Min(10, r))
	return math.Round(r*10) / 10
}

func placeholderForm() []models.MatchOutcome {
	form := make([]models.MatchOutcome, recentFormSize)
	for i := range form {
		form[i] = models.OutcomeNone
	}
	return form
}

func tournamentIDs(tournaments []models.Tournament) []string {
	ids := make([]string, 0, len(tournaments))
	for _, t := range tournaments {
		ids = append(ids, t.ID)
	}
	return ids
}

// Dashboard is the combined organizer view.
type Dashboard struct {
	Stats      *models.OrganizerStats `json:"stats"`
	Activities []models.Activity      `json:"activities"`
}

// OrganizerDashboard loads stats and the activity feed concurrently.
func (s *StatsService) OrganizerDashboard(ctx context.Context, organizerID string) (*Dashboard, error) {
	var dash Dashboard
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.OrganizerStats(gCtx, organizerID)
		dash.Stats = stats
		return err
	})
	g.Go(func() error {
		feed, err := s.OrganizerActivities(gCtx, organizerID)
		dash.Activities = feed
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &dash, nil
}
