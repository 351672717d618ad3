package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dosada05/tournament-registry/config"
	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var june15 = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type registrationFixture struct {
	svc           *RegistrationService
	tournaments   *fakeTournamentRepo
	registrations *fakeRegistrationRepo
	tx            *fakeTxRunner
	events        *fakePublisher
	uploader      *fakeUploader
}

func newRegistrationFixture(t *testing.T, opts RegistrationOptions, ts ...*models.Tournament) *registrationFixture {
	t.Helper()
	f := &registrationFixture{
		tournaments:   newFakeTournamentRepo(ts...),
		registrations: newFakeRegistrationRepo(),
		tx:            &fakeTxRunner{},
		events:        &fakePublisher{},
		uploader:      &fakeUploader{},
	}
	if opts.Clock == nil {
		opts.Clock = fixedClock(june15)
	}
	f.svc = NewRegistrationService(f.tx, f.tournaments, f.registrations, f.uploader, f.events, opts, discardLogger())
	return f
}

func validInput() RegisterInput {
	return RegisterInput{
		PlayerName: "Asha Rao",
		Role:       "Batsman",
		TeamName:   "Tigers",
		Attributes: map[string]string{"batsman_style": "Right"},
	}
}

func organizer() *models.Session {
	return &models.Session{UserID: "org-1", Role: models.RoleOrganizer}
}

func TestRegisterFillsLastSlot(t *testing.T) {
	f := newRegistrationFixture(t, RegistrationOptions{}, tournamentWith("01/01/2030", 2, 1))
	ctx := context.Background()

	assert.True(t, EvaluateStatus(&models.Tournament{
		RegistrationDeadline: models.MustParseDate("01/01/2030"), MaxParticipants: 2, RegisteredCount: 1,
	}, june15).Open)

	reg, err := f.svc.Register(ctx, "t1", "user-1", validInput())
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationPending, reg.Status)
	assert.Equal(t, "City Cup", reg.TournamentTitle)
	assert.Equal(t, "Cricket", reg.Sport)
	assert.Regexp(t, regexp.MustCompile(`^REG-[0-9A-Z]{6}$`), reg.Code)
	assert.Equal(t, 2, f.tournaments.count("t1"))

	stored, err := f.tournaments.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StateFull, EvaluateStatus(stored, june15).State)

	_, err = f.svc.Register(ctx, "t1", "user-2", validInput())
	var closed *RegistrationClosedError
	require.ErrorAs(t, err, &closed)
	assert.Equal(t, ReasonFull, closed.Reason)
	assert.ErrorIs(t, err, ErrRegistrationClosed)
	assert.Equal(t, 1, f.registrations.len())
	assert.Equal(t, 2, f.tournaments.count("t1"))

	require.Len(t, f.events.events, 1)
	assert.Equal(t, realtime.EventRegistrationReceived, f.events.events[0].Type)
}

func TestRegisterUnknownTournamentWritesNothing(t *testing.T) {
	f := newRegistrationFixture(t, RegistrationOptions{})

	_, err := f.svc.Register(context.Background(), "missing", "user-1", validInput())
	var closed *RegistrationClosedError
	require.ErrorAs(t, err, &closed)
	assert.Equal(t, ReasonInvalid, closed.Reason)
	assert.Empty(t, f.tournaments.writes())
	assert.Zero(t, f.registrations.len())
	assert.Zero(t, f.events.count())
}

func TestRegisterRejectsClosedTournamentsBeforeWriting(t *testing.T) {
	tests := []struct {
		name       string
		tournament *models.Tournament
		reason     string
	}{
		{"cancelled", tournamentWith("01/06/2024", 10, 0), ReasonCancelled},
		{"closed", tournamentWith("01/06/2024", 10, 3), ReasonClosed},
		{"full", tournamentWith("01/01/2030", 3, 3), ReasonFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegistrationFixture(t, RegistrationOptions{}, tt.tournament)

			_, err := f.svc.Register(context.Background(), "t1", "user-1", validInput())
			var closed *RegistrationClosedError
			require.ErrorAs(t, err, &closed)
			assert.Equal(t, tt.reason, closed.Reason)
			assert.Empty(t, f.tournaments.writes())
			assert.Zero(t, f.tx.commits+f.tx.aborts)
		})
	}
}

func TestRegisterBackendFailureOnFetch(t *testing.T) {
	f := newRegistrationFixture(t, RegistrationOptions{}, tournamentWith("01/01/2030", 2, 0))
	f.tournaments.getErr = errors.New("connection refused")

	_, err := f.svc.Register(context.Background(), "t1", "user-1", validInput())
	assert.ErrorIs(t, err, ErrBackend)
	assert.NotErrorIs(t, err, ErrRegistrationClosed)
}

func TestRegisterValidatesInput(t *testing.T) {
	team := tournamentWith("01/01/2030", 0, 0)
	team.Format = models.FormatTeam
	f := newRegistrationFixture(t, RegistrationOptions{}, team)

	input := validInput()
	input.TeamName = "  "
	_, err := f.svc.Register(context.Background(), "t1", "user-1", input)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.ErrorIs(t, err, models.ErrRegistrationTeamRequired)

	input = validInput()
	input.PlayerName = ""
	_, err = f.svc.Register(context.Background(), "t1", "user-1", input)
	assert.ErrorIs(t, err, models.ErrRegistrationNameRequired)

	_, err = f.svc.Register(context.Background(), "t1", "", validInput())
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Zero(t, f.tournaments.count("t1"))
}

func TestRegisterRollsBackWhenInsertFails(t *testing.T) {
	f := newRegistrationFixture(t, RegistrationOptions{}, tournamentWith("01/01/2030", 2, 0))
	f.registrations.createErr = errors.New("disk full")

	_, err := f.svc.Register(context.Background(), "t1", "user-1", validInput())
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, 0, f.tournaments.count("t1"))
	assert.Equal(t, 1, f.tx.aborts)
	assert.Zero(t, f.events.count())
}

func TestRegisterLostRaceReportsFreshReason(t *testing.T) {
	f := newRegistrationFixture(t, RegistrationOptions{}, tournamentWith("01/01/2030", 2, 1))
	f.tournaments.reserveHook = func() (bool, error) {
		// another request took the last slot in between
		f.tournaments.items["t1"].RegisteredCount = 2
		return false, nil
	}

	_, err := f.svc.Register(context.Background(), "t1", "user-1", validInput())
	var closed *RegistrationClosedError
	require.ErrorAs(t, err, &closed)
	assert.Equal(t, ReasonFull, closed.Reason)
	assert.Zero(t, f.registrations.len())
}

func TestConcurrentRegistrationsNeverExceedCapacity(t *testing.T) {
	const capacity = 5
	f := newRegistrationFixture(t, RegistrationOptions{}, tournamentWith("01/01/2030", capacity, 0))

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		rejected atomic.Int32
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), "t1", "user-"+strings.Repeat("x", i), validInput())
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, ErrRegistrationClosed):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, capacity, accepted.Load())
	assert.EqualValues(t, 40-capacity, rejected.Load())
	assert.Equal(t, capacity, f.tournaments.count("t1"))
	assert.Equal(t, capacity, f.registrations.len())
}

func TestDuplicatePolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("allow", func(t *testing.T) {
		f := newRegistrationFixture(t, RegistrationOptions{}, tournamentWith("01/01/2030", 0, 0))
		_, err := f.svc.Register(ctx, "t1", "user-1", validInput())
		require.NoError(t, err)
		_, err = f.svc.Register(ctx, "t1", "user-1", validInput())
		require.NoError(t, err)
		assert.Equal(t, 2, f.tournaments.count("t1"))
	})

	t.Run("deny", func(t *testing.T) {
		f := newRegistrationFixture(t, RegistrationOptions{DuplicatePolicy: config.DuplicateDeny}, tournamentWith("01/01/2030", 0, 0))
		_, err := f.svc.Register(ctx, "t1", "user-1", validInput())
		require.NoError(t, err)
		_, err = f.svc.Register(ctx, "t1", "user-1", validInput())
		assert.ErrorIs(t, err, ErrAlreadyRegistered)
		assert.Equal(t, 1, f.tournaments.count("t1"))
	})

	t.Run("allow after rejection", func(t *testing.T) {
		f := newRegistrationFixture(t, RegistrationOptions{DuplicatePolicy: config.DuplicateAllowAfterRejection}, tournamentWith("01/01/2030", 0, 0))
		first, err := f.svc.Register(ctx, "t1", "user-1", validInput())
		require.NoError(t, err)

		_, err = f.svc.Register(ctx, "t1", "user-1", validInput())
		assert.ErrorIs(t, err, ErrAlreadyRegistered)

		_, err = f.svc.UpdateStatus(ctx, first.ID, models.RegistrationRejected, organizer())
		require.NoError(t, err)
		_, err = f.svc.Register(ctx, "t1", "user-1", validInput())
		assert.NoError(t, err)
	})
}

func TestUpdateStatusCounterModes(t *testing.T) {
	ctx := context.Background()

	t.Run("monotonic keeps the count", func(t *testing.T) {
		f := newRegistrationFixture(t, RegistrationOptions{}, tournamentWith("01/01/2030", 0, 0))
		reg, err := f.svc.Register(ctx, "t1", "user-1", validInput())
		require.NoError(t, err)

		updated, err := f.svc.UpdateStatus(ctx, reg.ID, models.RegistrationRejected, organizer())
		require.NoError(t, err)
		assert.Equal(t, models.RegistrationRejected, updated.Status)
		assert.Equal(t, 1, f.tournaments.count("t1"))
	})

	t.Run("active releases and retakes the slot", func(t *testing.T) {
		f := newRegistrationFixture(t, RegistrationOptions{CounterMode: config.CounterActive}, tournamentWith("01/01/2030", 0, 0))
		reg, err := f.svc.Register(ctx, "t1", "user-1", validInput())
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, reg.ID, models.RegistrationApproved, organizer())
		require.NoError(t, err)
		assert.Equal(t, 1, f.tournaments.count("t1"))

		_, err = f.svc.UpdateStatus(ctx, reg.ID, models.RegistrationRejected, organizer())
		require.NoError(t, err)
		assert.Equal(t, 0, f.tournaments.count("t1"))

		_, err = f.svc.UpdateStatus(ctx, reg.ID, models.RegistrationPending, organizer())
		require.NoError(t, err)
		assert.Equal(t, 1, f.tournaments.count("t1"))

		require.NoError(t, f.svc.Delete(ctx, reg.ID, organizer()))
		assert.Equal(t, 0, f.tournaments.count("t1"))
	})
}

func TestConcurrentRejectionsReleaseOneSlot(t *testing.T) {
	f := newRegistrationFixture(t, RegistrationOptions{CounterMode: config.CounterActive}, tournamentWith("01/01/2030", 0, 0))
	ctx := context.Background()

	first, err := f.svc.Register(ctx, "t1", "user-1", validInput())
	require.NoError(t, err)
	second, err := f.svc.Register(ctx, "t1", "user-2", validInput())
	require.NoError(t, err)
	require.Equal(t, 2, f.tournaments.count("t1"))

	// второй организатор отклоняет ту же заявку, пока первый держит устаревшее чтение
	fired := false
	f.registrations.beforeStatusWrite = func(id string) {
		if fired || id != first.ID {
			return
		}
		fired = true
		_, err := f.svc.UpdateStatus(ctx, first.ID, models.RegistrationRejected, organizer())
		require.NoError(t, err)
	}

	updated, err := f.svc.UpdateStatus(ctx, first.ID, models.RegistrationRejected, organizer())
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationRejected, updated.Status)
	assert.Equal(t, 1, f.tournaments.count("t1"))

	stillPending, err := f.registrations.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationPending, stillPending.Status)
}

func TestDeleteReleasesSlotByStoredStatus(t *testing.T) {
	f := newRegistrationFixture(t, RegistrationOptions{CounterMode: config.CounterActive}, tournamentWith("01/01/2030", 0, 0))
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, "t1", "user-1", validInput())
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "t1", "user-2", validInput())
	require.NoError(t, err)
	require.Equal(t, 2, f.tournaments.count("t1"))

	// отклонение приходит после того, как Delete прочитал заявку как pending
	fired := false
	f.registrations.beforeDelete = func(id string) {
		if fired {
			return
		}
		fired = true
		_, err := f.svc.UpdateStatus(ctx, id, models.RegistrationRejected, organizer())
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.Delete(ctx, reg.ID, organizer()))
	assert.True(t, fired)
	assert.Equal(t, 1, f.tournaments.count("t1"))
	assert.ErrorIs(t, f.svc.Delete(ctx, reg.ID, organizer()), ErrRegistrationNotFound)
}

func TestRegistrationEventsOmitContactDetails(t *testing.T) {
	f := newRegistrationFixture(t, RegistrationOptions{}, tournamentWith("01/01/2030", 0, 0))
	ctx := context.Background()

	input := validInput()
	input.PlayerEmail = "asha@example.com"
	input.Phone = "+91 98765 43210"
	reg, err := f.svc.Register(ctx, "t1", "user-1", input)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, reg.ID, models.RegistrationApproved, organizer())
	require.NoError(t, err)
	phone := "+91 90000 00000"
	_, err = f.svc.UpdateDetails(ctx, reg.ID, UpdateRegistrationInput{Phone: &phone}, organizer())
	require.NoError(t, err)

	require.Len(t, f.events.events, 3)
	for _, ev := range f.events.events {
		body, err := json.Marshal(ev.Payload)
		require.NoError(t, err)
		payload := string(body)
		assert.Contains(t, payload, reg.Code, ev.Type)
		assert.NotContains(t, payload, "asha@example.com", ev.Type)
		assert.NotContains(t, payload, "98765", ev.Type)
		assert.NotContains(t, payload, "90000", ev.Type)
		assert.NotContains(t, payload, "user-1", ev.Type)
		assert.NotContains(t, payload, "batsman_style", ev.Type)
	}
}

func TestUpdateStatusRequiresOwner(t *testing.T) {
	f := newRegistrationFixture(t, RegistrationOptions{}, tournamentWith("01/01/2030", 0, 0))
	reg, err := f.svc.Register(context.Background(), "t1", "user-1", validInput())
	require.NoError(t, err)

	stranger := &models.Session{UserID: "org-2", Role: models.RoleOrganizer}
	_, err = f.svc.UpdateStatus(context.Background(), reg.ID, models.RegistrationApproved, stranger)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = f.svc.UpdateStatus(context.Background(), reg.ID, "maybe", organizer())
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.UpdateStatus(context.Background(), "nope", models.RegistrationApproved, organizer())
	assert.ErrorIs(t, err, ErrRegistrationNotFound)

	admin := &models.Session{UserID: "root", Role: models.RoleAdmin}
	_, err = f.svc.UpdateStatus(context.Background(), reg.ID, models.RegistrationApproved, admin)
	assert.NoError(t, err)
}

func TestUpdateDetails(t *testing.T) {
	f := newRegistrationFixture(t, RegistrationOptions{}, tournamentWith("01/01/2030", 0, 0))
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "t1", "user-1", validInput())
	require.NoError(t, err)

	phone := " 555-0101 "
	updated, err := f.svc.UpdateDetails(ctx, reg.ID, UpdateRegistrationInput{Phone: &phone}, &models.Session{UserID: "user-1", Role: models.RolePlayer})
	require.NoError(t, err)
	assert.Equal(t, "555-0101", updated.Phone)
	assert.Equal(t, "Asha Rao", updated.PlayerName)

	empty := ""
	_, err = f.svc.UpdateDetails(ctx, reg.ID, UpdateRegistrationInput{PlayerName: &empty}, organizer())
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.UpdateDetails(ctx, reg.ID, UpdateRegistrationInput{Phone: &phone}, &models.Session{UserID: "user-2", Role: models.RolePlayer})
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestListForOrganizerSpansTournaments(t *testing.T) {
	second := tournamentWith("01/01/2030", 0, 0)
	second.ID = "t2"
	other := tournamentWith("01/01/2030", 0, 0)
	other.ID = "t3"
	other.OrganizerID = "org-2"
	f := newRegistrationFixture(t, RegistrationOptions{}, tournamentWith("01/01/2030", 0, 0), second, other)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2", "t3"} {
		_, err := f.svc.Register(ctx, id, "user-1", validInput())
		require.NoError(t, err)
	}

	regs, err := f.svc.ListForOrganizer(ctx, "org-1", nil)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, "t2", regs[0].TournamentID)

	pending := models.RegistrationPending
	regs, err = f.svc.ListForTournament(ctx, "t1", &pending, organizer())
	require.NoError(t, err)
	assert.Len(t, regs, 1)

	mine, err := f.svc.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestExportRoster(t *testing.T) {
	f := newRegistrationFixture(t, RegistrationOptions{}, tournamentWith("01/01/2030", 0, 0))
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "t1", "user-1", validInput())
	require.NoError(t, err)

	result, err := f.svc.ExportRoster(ctx, "t1", organizer())
	require.NoError(t, err)
	assert.Equal(t, "exports/t1/registrations-20240615T120000Z.csv", result.Key)
	assert.Equal(t, "text/csv", f.uploader.contentType)

	lines := strings.Split(strings.TrimSpace(f.uploader.body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "registration_code,player_name"))
	assert.Contains(t, lines[1], "Asha Rao")

	_, err = f.svc.ExportRoster(ctx, "t1", &models.Session{UserID: "user-1", Role: models.RolePlayer})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	noStore := NewRegistrationService(f.tx, f.tournaments, f.registrations, nil, nil, RegistrationOptions{}, discardLogger())
	_, err = noStore.ExportRoster(ctx, "t1", organizer())
	assert.ErrorIs(t, err, ErrExportUnavailable)
}

func TestExportRosterReplacesPreviousFile(t *testing.T) {
	now := june15
	f := newRegistrationFixture(t, RegistrationOptions{Clock: func() time.Time { return now }}, tournamentWith("01/01/2030", 0, 0))
	ctx := context.Background()

	first, err := f.svc.ExportRoster(ctx, "t1", organizer())
	require.NoError(t, err)
	assert.Empty(t, f.uploader.deleted)

	// повторный экспорт в ту же секунду перезаписывает тот же ключ
	_, err = f.svc.ExportRoster(ctx, "t1", organizer())
	require.NoError(t, err)
	assert.Empty(t, f.uploader.deleted)

	now = now.Add(time.Hour)
	second, err := f.svc.ExportRoster(ctx, "t1", organizer())
	require.NoError(t, err)
	assert.NotEqual(t, first.Key, second.Key)
	assert.Equal(t, []string{first.Key}, f.uploader.deleted)
	assert.Equal(t, second.Key, f.tournaments.exportKeys["t1"])
}

func TestGenerateRegistrationCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := generateRegistrationCode()
		require.NoError(t, err)
		assert.Regexp(t, `^REG-[0-9A-Z]{6}$`, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}
