package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-registry/config"
	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/realtime"
	"github.com/Dosada05/tournament-registry/repositories"
	"github.com/Dosada05/tournament-registry/storage"
)

// errSlotUnavailable aborts the registration transaction when the guarded
// counter increment matched no row.
var errSlotUnavailable = errors.New("registration slot unavailable")

type RegisterInput struct {
	PlayerName  string            `json:"player_name"`
	PlayerEmail string            `json:"player_email"`
	Phone       string            `json:"phone"`
	TeamName    string            `json:"team_name"`
	Role        string            `json:"role"`
	Attributes  map[string]string `json:"attributes"`
}

type UpdateRegistrationInput struct {
	PlayerName  *string            `json:"player_name"`
	PlayerEmail *string            `json:"player_email"`
	Phone       *string            `json:"phone"`
	TeamName    *string            `json:"team_name"`
	Role        *string            `json:"role"`
	Attributes  *map[string]string `json:"attributes"`
}

type RegistrationOptions struct {
	DuplicatePolicy config.DuplicatePolicy
	CounterMode     config.CounterMode
	Clock           Clock
}

// RegistrationService координирует заявки игроков и счётчик мест турнира.
type RegistrationService struct {
	tx            repositories.TxRunner
	tournaments   repositories.TournamentRepository
	registrations repositories.RegistrationRepository
	uploader      storage.FileUploader
	events        EventPublisher
	policy        config.DuplicatePolicy
	counterMode   config.CounterMode
	clock         Clock
	logger        *slog.Logger
}

// NewRegistrationService wires the coordinator. uploader may be nil, in which
// case roster export is unavailable.
func NewRegistrationService(
	tx repositories.TxRunner,
	tournaments repositories.TournamentRepository,
	registrations repositories.RegistrationRepository,
	uploader storage.FileUploader,
	events EventPublisher,
	opts RegistrationOptions,
	logger *slog.Logger,
) *RegistrationService {
	if opts.Clock == nil {
		opts.Clock = SystemClock(time.Local)
	}
	if opts.DuplicatePolicy == "" {
		opts.DuplicatePolicy = config.DuplicateAllow
	}
	if opts.CounterMode == "" {
		opts.CounterMode = config.CounterMonotonic
	}
	return &RegistrationService{
		tx:            tx,
		tournaments:   tournaments,
		registrations: registrations,
		uploader:      uploader,
		events:        publisherOrNoop(events),
		policy:        opts.DuplicatePolicy,
		counterMode:   opts.CounterMode,
		clock:         opts.Clock,
		logger:        loggerOrDefault(logger),
	}
}

// Register records a pending registration for userID and takes one slot of the
// tournament. The status check is repeated inside the transaction by a
// conditional counter update, so concurrent registrations never exceed the
// capacity.
func (s *RegistrationService) Register(ctx context.Context, tournamentID, userID string, input RegisterInput) (*models.Registration, error) {
	if userID == "" {
		return nil, ErrAuthenticationFailed
	}

	tournament, err := s.tournaments.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, &RegistrationClosedError{Reason: ReasonInvalid}
		}
		return nil, backendError("fetch tournament", err)
	}

	now := s.clock()
	if status := EvaluateStatus(tournament, now); !status.Open {
		return nil, &RegistrationClosedError{Reason: status.Reason}
	}

	reg := &models.Registration{
		TournamentID:    tournament.ID,
		UserID:          userID,
		PlayerName:      strings.TrimSpace(input.PlayerName),
		PlayerEmail:     strings.TrimSpace(input.PlayerEmail),
		Phone:           strings.TrimSpace(input.Phone),
		TeamName:        strings.TrimSpace(input.TeamName),
		Role:            strings.TrimSpace(input.Role),
		Attributes:      input.Attributes,
		TournamentTitle: tournament.Title,
		Sport:           tournament.Sport,
		Status:          models.RegistrationPending,
	}
	if err := reg.Validate(); err != nil {
		return nil, validationError(err)
	}
	if tournament.Format == models.FormatTeam && reg.TeamName == "" {
		return nil, validationError(models.ErrRegistrationTeamRequired)
	}

	if err := s.checkDuplicate(ctx, userID, tournament.ID); err != nil {
		return nil, err
	}

	reg.Code, err = generateRegistrationCode()
	if err != nil {
		return nil, backendError("generate registration code", err)
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		ok, err := s.tournaments.IncrementRegisteredIfOpen(ctx, exec, tournament.ID, now)
		if err != nil {
			return backendError("reserve registration slot", err)
		}
		if !ok {
			return errSlotUnavailable
		}
		if err := s.registrations.Create(ctx, exec, reg); err != nil {
			return backendError("create registration", err)
		}
		return nil
	})
	if errors.Is(err, errSlotUnavailable) {
		return nil, &RegistrationClosedError{Reason: s.closedReason(ctx, tournament.ID, now)}
	}
	if err != nil {
		return nil, backendError("register", err)
	}

	s.logger.InfoContext(ctx, "registration created",
		slog.String("registration_id", reg.ID),
		slog.String("tournament_id", reg.TournamentID),
		slog.String("user_id", userID))
	s.events.Publish(tournament.ID, realtime.EventRegistrationReceived, reg.Event())
	return reg, nil
}

// closedReason re-reads the tournament after a lost race to report why the
// slot could not be taken.
func (s *RegistrationService) closedReason(ctx context.Context, tournamentID string, now time.Time) string {
	current, err := s.tournaments.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ReasonInvalid
		}
		s.logger.WarnContext(ctx, "failed to re-read tournament after full slot",
			slog.String("tournament_id", tournamentID), slog.Any("error", err))
		return ReasonFull
	}
	if status := EvaluateStatus(current, now); !status.Open {
		return status.Reason
	}
	return ReasonFull
}

func (s *RegistrationService) checkDuplicate(ctx context.Context, userID, tournamentID string) error {
	if s.policy == config.DuplicateAllow {
		return nil
	}
	existing, err := s.registrations.FindByUserAndTournament(ctx, userID, tournamentID)
	if err != nil {
		return backendError("check existing registration", err)
	}
	for _, reg := range existing {
		if s.policy == config.DuplicateDeny || reg.Status.Counted() {
			return ErrAlreadyRegistered
		}
	}
	return nil
}

// loadManaged fetches a registration together with its tournament and checks
// that session manages that tournament.
func (s *RegistrationService) loadManaged(ctx context.Context, registrationID string, session *models.Session) (*models.Registration, *models.Tournament, error) {
	if session == nil || session.UserID == "" {
		return nil, nil, ErrAuthenticationFailed
	}
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, nil, ErrRegistrationNotFound
		}
		return nil, nil, backendError("fetch registration", err)
	}
	tournament, err := s.tournaments.GetByID(ctx, reg.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, nil, ErrTournamentNotFound
		}
		return nil, nil, backendError("fetch tournament", err)
	}
	if err := requireOwner(session, tournament.OrganizerID); err != nil {
		return nil, nil, err
	}
	return reg, tournament, nil
}

// counterDelta is the change of registered_count implied by a status change in
// active counter mode.
func counterDelta(from, to models.RegistrationStatus) int {
	switch {
	case from.Counted() && !to.Counted():
		return -1
	case !from.Counted() && to.Counted():
		return 1
	}
	return 0
}

// statusWriteAttempts bounds retries of a status change that lost a race.
const statusWriteAttempts = 3

// UpdateStatus applies an organizer decision to a registration. The write is
// conditional on the status it was computed from, so the counter delta is
// applied exactly once per real transition.
func (s *RegistrationService) UpdateStatus(ctx context.Context, registrationID string, status models.RegistrationStatus, session *models.Session) (*models.Registration, error) {
	if !status.Valid() {
		return nil, validationError(models.ErrRegistrationInvalidStatus)
	}
	reg, tournament, err := s.loadManaged(ctx, registrationID, session)
	if err != nil {
		return nil, err
	}

	for attempt := 1; reg.Status != status; attempt++ {
		from := reg.Status
		delta := 0
		if s.counterMode == config.CounterActive {
			delta = counterDelta(from, status)
		}

		err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
			if err := s.registrations.UpdateStatus(ctx, exec, reg.ID, from, status); err != nil {
				return err
			}
			if delta != 0 {
				return s.tournaments.IncrementRegistered(ctx, exec, tournament.ID, delta)
			}
			return nil
		})
		if err == nil {
			s.logger.InfoContext(ctx, "registration status changed",
				slog.String("registration_id", reg.ID),
				slog.String("from", string(from)),
				slog.String("to", string(status)))
			reg.Status = status
			s.events.Publish(tournament.ID, realtime.EventRegistrationUpdated, reg.Event())
			return reg, nil
		}
		if !errors.Is(err, repositories.ErrRegistrationStatusConflict) {
			return nil, backendError("update registration status", err)
		}
		if attempt == statusWriteAttempts {
			return nil, ErrInvalidStatusTransition
		}

		// Статус изменился параллельно: перечитываем и пробуем от нового значения.
		reg, err = s.registrations.GetByID(ctx, reg.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrRegistrationNotFound) {
				return nil, ErrRegistrationNotFound
			}
			return nil, backendError("fetch registration", err)
		}
	}
	return reg, nil
}

// UpdateDetails lets the registrant or the organizer correct player details.
func (s *RegistrationService) UpdateDetails(ctx context.Context, registrationID string, input UpdateRegistrationInput, session *models.Session) (*models.Registration, error) {
	if session == nil || session.UserID == "" {
		return nil, ErrAuthenticationFailed
	}
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, backendError("fetch registration", err)
	}
	tournament, err := s.tournaments.GetByID(ctx, reg.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, backendError("fetch tournament", err)
	}
	if reg.UserID != session.UserID && !session.Owns(tournament.OrganizerID) {
		return nil, ErrForbiddenOperation
	}

	if v := trimmed(input.PlayerName); v != nil {
		reg.PlayerName = *v
	}
	if v := trimmed(input.PlayerEmail); v != nil {
		reg.PlayerEmail = *v
	}
	if v := trimmed(input.Phone); v != nil {
		reg.Phone = *v
	}
	if v := trimmed(input.TeamName); v != nil {
		reg.TeamName = *v
	}
	if v := trimmed(input.Role); v != nil {
		reg.Role = *v
	}
	if input.Attributes != nil {
		reg.Attributes = *input.Attributes
	}
	if err := reg.Validate(); err != nil {
		return nil, validationError(err)
	}
	if tournament.Format == models.FormatTeam && reg.TeamName == "" {
		return nil, validationError(models.ErrRegistrationTeamRequired)
	}

	if err := s.registrations.Update(ctx, reg); err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, backendError("update registration", err)
	}
	s.events.Publish(tournament.ID, realtime.EventRegistrationUpdated, reg.Event())
	return reg, nil
}

// Delete removes a registration. Only the tournament organizer may do this.
func (s *RegistrationService) Delete(ctx context.Context, registrationID string, session *models.Session) error {
	reg, tournament, err := s.loadManaged(ctx, registrationID, session)
	if err != nil {
		return err
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		deleted, err := s.registrations.Delete(ctx, exec, reg.ID)
		if err != nil {
			return err
		}
		if s.counterMode == config.CounterActive && deleted.Counted() {
			return s.tournaments.IncrementRegistered(ctx, exec, tournament.ID, -1)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return backendError("delete registration", err)
	}

	s.logger.InfoContext(ctx, "registration deleted", slog.String("registration_id", reg.ID))
	s.events.Publish(tournament.ID, realtime.EventRegistrationDeleted, map[string]string{"id": reg.ID})
	return nil
}

// ListForTournament returns registrations of a tournament managed by session.
func (s *RegistrationService) ListForTournament(ctx context.Context, tournamentID string, status *models.RegistrationStatus, session *models.Session) ([]*models.Registration, error) {
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
	regs, err := s.registrations.ListByTournament(ctx, tournamentID, status)
	if err != nil {
		return nil, backendError("list registrations", err)
	}
	return regs, nil
}

// ListForUser returns the caller's own registrations, newest first.
func (s *RegistrationService) ListForUser(ctx context.Context, userID string) ([]*models.Registration, error) {
	if userID == "" {
		return nil, ErrAuthenticationFailed
	}
	regs, err := s.registrations.ListByUser(ctx, userID, nil)
	if err != nil {
		return nil, backendError("list user registrations", err)
	}
	return regs, nil
}

// ListForOrganizer returns registrations across every tournament of organizerID.
func (s *RegistrationService) ListForOrganizer(ctx context.Context, organizerID string, status *models.RegistrationStatus) ([]*models.Registration, error) {
	tournaments, err := s.tournaments.List(ctx, repositories.ListTournamentsFilter{OrganizerID: &organizerID})
	if err != nil {
		return nil, backendError("list organizer tournaments", err)
	}
	if len(tournaments) == 0 {
		return []*models.Registration{}, nil
	}
	ids := make([]string, 0, len(tournaments))
	for _, t := range tournaments {
		ids = append(ids, t.ID)
	}
	regs, err := s.registrations.ListByTournamentIDs(ctx, ids, status)
	if err != nil {
		return nil, backendError("list organizer registrations", err)
	}
	return regs, nil
}

var rosterHeader = []string{"registration_code", "player_name", "player_email", "phone", "team_name", "role", "status", "registered_at"}

// ExportRoster writes the tournament's registrations as CSV to object storage
// and returns the public URL of the file.
func (s *RegistrationService) ExportRoster(ctx context.Context, tournamentID string, session *models.Session) (*storage.UploadResult, error) {
	if s.uploader == nil {
		return nil, ErrExportUnavailable
	}
	regs, err := s.ListForTournament(ctx, tournamentID, nil, session)
	if err != nil {
		return nil, err
	}

	body, err := encodeRoster(regs)
	if err != nil {
		return nil, backendError("encode roster", err)
	}

	key := fmt.Sprintf("exports/%s/registrations-%s.csv", tournamentID, s.clock().UTC().Format("20060102T150405Z"))
	result, err := s.uploader.Upload(ctx, key, "text/csv", bytes.NewReader(body))
	if err != nil {
		return nil, backendError("upload roster", err)
	}
	s.logger.InfoContext(ctx, "roster exported",
		slog.String("tournament_id", tournamentID),
		slog.String("key", result.Key),
		slog.Int("rows", len(regs)))
	s.dropPreviousExport(ctx, tournamentID, result.Key)
	return result, nil
}

// dropPreviousExport keeps one roster file per tournament in the bucket. A
// failure here leaves a stale file behind but does not fail the export.
func (s *RegistrationService) dropPreviousExport(ctx context.Context, tournamentID, key string) {
	previous, err := s.tournaments.SwapRosterExport(ctx, tournamentID, key)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record roster export",
			slog.String("tournament_id", tournamentID), slog.Any("error", err))
		return
	}
	if previous == "" || previous == key {
		return
	}
	if err := s.uploader.Delete(ctx, previous); err != nil {
		s.logger.WarnContext(ctx, "failed to delete previous roster export",
			slog.String("key", previous), slog.Any("error", err))
	}
}

func encodeRoster(regs []*models.Registration) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(rosterHeader); err != nil {
		return nil, err
	}
	for _, reg := range regs {
		record := []string{
			reg.Code, reg.PlayerName, reg.PlayerEmail, reg.Phone, reg.TeamName, reg.Role,
			string(reg.Status), reg.RegisteredAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
