package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/realtime"
	"github.com/Dosada05/tournament-registry/repositories"
)

// SportAll в фильтре списка означает "все виды спорта".
const SportAll = "All"

type CreateTournamentInput struct {
	Title                string                  `json:"title"`
	Sport                string                  `json:"sport"`
	Format               models.TournamentFormat `json:"format"`
	Description          string                  `json:"description"`
	Rules                string                  `json:"rules"`
	Location             string                  `json:"location"`
	RegistrationDeadline models.Date             `json:"registration_deadline"`
	StartDate            models.Date             `json:"start_date"`
	EndDate              *models.Date            `json:"end_date"`
	MaxParticipants      int                     `json:"max_participants"`
}

type UpdateTournamentInput struct {
	Title                *string                  `json:"title"`
	Sport                *string                  `json:"sport"`
	Format               *models.TournamentFormat `json:"format"`
	Description          *string                  `json:"description"`
	Rules                *string                  `json:"rules"`
	Location             *string                  `json:"location"`
	RegistrationDeadline *models.Date             `json:"registration_deadline"`
	StartDate            *models.Date             `json:"start_date"`
	EndDate              *models.Date             `json:"end_date"`
	MaxParticipants      *int                     `json:"max_participants"`
}

type TournamentService struct {
	repo   repositories.TournamentRepository
	events EventPublisher
	clock  Clock
	logger *slog.Logger
}

func NewTournamentService(repo repositories.TournamentRepository, events EventPublisher, clock Clock, logger *slog.Logger) *TournamentService {
	if clock == nil {
		clock = SystemClock(nil)
	}
	return &TournamentService{
		repo:   repo,
		events: publisherOrNoop(events),
		clock:  clock,
		logger: loggerOrDefault(logger),
	}
}

func (s *TournamentService) view(t *models.Tournament) *models.TournamentView {
	return &models.TournamentView{
		Tournament:   *t,
		Registration: EvaluateStatus(t, s.clock()).Window(),
	}
}

func (s *TournamentService) Create(ctx context.Context, session *models.Session, input CreateTournamentInput) (*models.TournamentView, error) {
	if session == nil || session.UserID == "" {
		return nil, ErrAuthenticationFailed
	}
	if !session.CanOrganize() {
		return nil, ErrForbiddenOperation
	}

	tournament := &models.Tournament{
		Title:                strings.TrimSpace(input.Title),
		Sport:                strings.TrimSpace(input.Sport),
		Format:               input.Format,
		Description:          input.Description,
		Rules:                input.Rules,
		Location:             strings.TrimSpace(input.Location),
		RegistrationDeadline: input.RegistrationDeadline,
		StartDate:            input.StartDate,
		EndDate:              optionalDate(input.EndDate),
		MaxParticipants:      input.MaxParticipants,
		Status:               models.LabelUpcoming,
		OrganizerID:          session.UserID,
	}
	if tournament.Format == "" {
		tournament.Format = models.FormatSingles
	}
	if err := tournament.Validate(); err != nil {
		return nil, validationError(err)
	}

	if err := s.repo.Create(ctx, tournament); err != nil {
		return nil, backendError("create tournament", err)
	}
	s.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", tournament.ID),
		slog.String("organizer_id", tournament.OrganizerID))
	return s.view(tournament), nil
}

func (s *TournamentService) GetByID(ctx context.Context, id string) (*models.TournamentView, error) {
	tournament, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(tournament), nil
}

// Status evaluates the registration window of id. A missing tournament
// evaluates as invalid rather than failing.
func (s *TournamentService) Status(ctx context.Context, id string) (StatusResult, error) {
	tournament, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return EvaluateStatus(nil, s.clock()), nil
		}
		return StatusResult{}, backendError("fetch tournament", err)
	}
	return EvaluateStatus(tournament, s.clock()), nil
}

// List returns tournaments newest first. An empty sport or SportAll disables
// the filter.
func (s *TournamentService) List(ctx context.Context, sport string) ([]models.TournamentView, error) {
	filter := repositories.ListTournamentsFilter{}
	if sport = strings.TrimSpace(sport); sport != "" && !strings.EqualFold(sport, SportAll) {
		filter.Sport = &sport
	}
	return s.list(ctx, filter)
}

func (s *TournamentService) ListByOrganizer(ctx context.Context, organizerID string) ([]models.TournamentView, error) {
	return s.list(ctx, repositories.ListTournamentsFilter{OrganizerID: &organizerID})
}

func (s *TournamentService) list(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.TournamentView, error) {
	tournaments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, backendError("list tournaments", err)
	}
	now := s.clock()
	views := make([]models.TournamentView, 0, len(tournaments))
	for i := range tournaments {
		views = append(views, models.TournamentView{
			Tournament:   tournaments[i],
			Registration: EvaluateStatus(&tournaments[i], now).Window(),
		})
	}
	return views, nil
}

func (s *TournamentService) Update(ctx context.Context, id string, session *models.Session, input UpdateTournamentInput) (*models.TournamentView, error) {
	tournament, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(session, tournament.OrganizerID); err != nil {
		return nil, err
	}

	if v := trimmed(input.Title); v != nil {
		tournament.Title = *v
	}
	if v := trimmed(input.Sport); v != nil {
		tournament.Sport = *v
	}
	if input.Format != nil {
		tournament.Format = *input.Format
	}
	if input.Description != nil {
		tournament.Description = *input.Description
	}
	if input.Rules != nil {
		tournament.Rules = *input.Rules
	}
	if v := trimmed(input.Location); v != nil {
		tournament.Location = *v
	}
	if input.RegistrationDeadline != nil {
		tournament.RegistrationDeadline = *input.RegistrationDeadline
	}
	if input.StartDate != nil {
		tournament.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		tournament.EndDate = optionalDate(input.EndDate)
	}
	if input.MaxParticipants != nil {
		tournament.MaxParticipants = *input.MaxParticipants
	}
	if err := tournament.Validate(); err != nil {
		return nil, validationError(err)
	}

	if err := s.repo.Update(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, backendError("update tournament", err)
	}
	view := s.view(tournament)
	s.events.Publish(tournament.ID, realtime.EventTournamentUpdated, view)
	return view, nil
}

func (s *TournamentService) Delete(ctx context.Context, id string, session *models.Session) error {
	tournament, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwner(session, tournament.OrganizerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNotFound):
			return ErrTournamentNotFound
		case errors.Is(err, repositories.ErrTournamentInUse):
			return ErrTournamentInUse
		}
		return backendError("delete tournament", err)
	}
	s.logger.InfoContext(ctx, "tournament deleted", slog.String("tournament_id", id))
	return nil
}

// SyncStatusLabels persists the derived label of every tournament whose stored
// label is stale and returns the number of updated rows. The label is
// informational; registration decisions always re-evaluate.
func (s *TournamentService) SyncStatusLabels(ctx context.Context) (int, error) {
	tournaments, err := s.repo.List(ctx, repositories.ListTournamentsFilter{})
	if err != nil {
		return 0, backendError("list tournaments", err)
	}
	now := s.clock()
	updated := 0
	for i := range tournaments {
		t := &tournaments[i]
		result := EvaluateStatus(t, now)
		if result.State == StateInvalid || result.Label == t.Status {
			continue
		}
		if err := s.repo.UpdateStatusLabel(ctx, t.ID, result.Label); err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				continue
			}
			return updated, backendError("update status label", err)
		}
		updated++
	}
	if updated > 0 {
		s.logger.InfoContext(ctx, "tournament status labels synced", slog.Int("updated", updated))
	}
	return updated, nil
}

func (s *TournamentService) fetch(ctx context.Context, id string) (*models.Tournament, error) {
	tournament, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, backendError("fetch tournament", err)
	}
	return tournament, nil
}

// optionalDate treats an empty date as "not set".
func optionalDate(d *models.Date) *models.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	v := *d
	return &v
}
