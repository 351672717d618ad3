package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/repositories"
)

type SchedulePracticeInput struct {
	TeamName    string    `json:"team_name"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Venue       string    `json:"venue"`
	Note        string    `json:"note"`
}

// PracticeService — тренировки команд. Команды идентифицируются только по имени.
type PracticeService struct {
	repo   repositories.PracticeRepository
	logger *slog.Logger
}

func NewPracticeService(repo repositories.PracticeRepository, logger *slog.Logger) *PracticeService {
	return &PracticeService{repo: repo, logger: loggerOrDefault(logger)}
}

func (s *PracticeService) Schedule(ctx context.Context, session *models.Session, input SchedulePracticeInput) (*models.Practice, error) {
	if session == nil || session.UserID == "" {
		return nil, ErrAuthenticationFailed
	}
	practice := &models.Practice{
		TeamName:    strings.TrimSpace(input.TeamName),
		ScheduledAt: input.ScheduledAt,
		Venue:       strings.TrimSpace(input.Venue),
		Note:        strings.TrimSpace(input.Note),
		CreatedBy:   session.UserID,
	}
	if err := practice.Validate(); err != nil {
		return nil, validationError(err)
	}
	if err := s.repo.Create(ctx, practice); err != nil {
		return nil, backendError("create practice", err)
	}
	s.logger.InfoContext(ctx, "practice scheduled",
		slog.String("practice_id", practice.ID),
		slog.String("team", practice.TeamName))
	return practice, nil
}

func (s *PracticeService) ListByTeam(ctx context.Context, teamName string) ([]*models.Practice, error) {
	teamName = strings.TrimSpace(teamName)
	if teamName == "" {
		return nil, validationError(models.ErrPracticeTeamNeeded)
	}
	practices, err := s.repo.ListByTeam(ctx, teamName)
	if err != nil {
		return nil, backendError("list practices", err)
	}
	return practices, nil
}

// Cancel removes a practice; only its creator or an admin may do so.
func (s *PracticeService) Cancel(ctx context.Context, id string, session *models.Session) error {
	practice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPracticeNotFound) {
			return ErrPracticeNotFound
		}
		return backendError("fetch practice", err)
	}
	if err := requireOwner(session, practice.CreatedBy); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrPracticeNotFound) {
			return ErrPracticeNotFound
		}
		return backendError("delete practice", err)
	}
	return nil
}
