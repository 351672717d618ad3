package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/repositories"
	"github.com/Dosada05/tournament-registry/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

var errFakeExec = errors.New("fake executor does not run SQL")

// fakeExec stands in for *sql.Tx and collects undo steps for rollback.
type fakeExec struct {
	mu   sync.Mutex
	undo []func()
}

func (e *fakeExec) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errFakeExec
}

func (e *fakeExec) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errFakeExec
}

func (e *fakeExec) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (e *fakeExec) onRollback(fn func()) {
	e.mu.Lock()
	e.undo = append(e.undo, fn)
	e.mu.Unlock()
}

func recordUndo(exec repositories.SQLExecutor, fn func()) {
	if fe, ok := exec.(*fakeExec); ok {
		fe.onRollback(fn)
	}
}

type fakeTxRunner struct {
	mu      sync.Mutex
	commits int
	aborts  int
}

func (r *fakeTxRunner) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	exec := &fakeExec{}
	if err := fn(exec); err != nil {
		for i := len(exec.undo) - 1; i >= 0; i-- {
			exec.undo[i]()
		}
		r.mu.Lock()
		r.aborts++
		r.mu.Unlock()
		return err
	}
	r.mu.Lock()
	r.commits++
	r.mu.Unlock()
	return nil
}

type fakeTournamentRepo struct {
	mu      sync.Mutex
	items   map[string]*models.Tournament
	order   []string
	calls   []string
	getErr  error
	listErr error
	// reserveHook overrides IncrementRegisteredIfOpen when set.
	reserveHook func() (bool, error)
	labels      map[string]string
	exportKeys  map[string]string
}

func newFakeTournamentRepo(ts ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{items: map[string]*models.Tournament{}, labels: map[string]string{}, exportKeys: map[string]string{}}
	for _, t := range ts {
		r.put(t)
	}
	return r
}

func (r *fakeTournamentRepo) put(t *models.Tournament) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[t.ID]; !ok {
		r.order = append(r.order, t.ID)
	}
	cp := *t
	r.items[t.ID] = &cp
}

func (r *fakeTournamentRepo) count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id].RegisteredCount
}

func (r *fakeTournamentRepo) record(call string) {
	r.calls = append(r.calls, call)
}

func (r *fakeTournamentRepo) writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		if c != "GetByID" && c != "List" {
			out = append(out, c)
		}
	}
	return out
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	r.record("Create")
	r.mu.Unlock()
	if t.ID == "" {
		t.ID = fmt.Sprintf("t%d", len(r.order)+1)
	}
	t.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	t.UpdatedAt = t.CreatedAt
	r.put(t)
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("GetByID")
	if r.getErr != nil {
		return nil, r.getErr
	}
	t, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("List")
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.Tournament, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		t := r.items[r.order[i]]
		if filter.Sport != nil && t.Sport != *filter.Sport {
			continue
		}
		if filter.OrganizerID != nil && t.OrganizerID != *filter.OrganizerID {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Update")
	cur, ok := r.items[t.ID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.RegisteredCount = cur.RegisteredCount
	cp := *t
	r.items[t.ID] = &cp
	return nil
}

func (r *fakeTournamentRepo) UpdateStatusLabel(ctx context.Context, id string, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("UpdateStatusLabel")
	t, ok := r.items[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = label
	r.labels[id] = label
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Delete")
	if _, ok := r.items[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeTournamentRepo) IncrementRegistered(ctx context.Context, exec repositories.SQLExecutor, id string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("IncrementRegistered")
	t, ok := r.items[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	before := t.RegisteredCount
	t.RegisteredCount = max(t.RegisteredCount+delta, 0)
	recordUndo(exec, func() {
		r.mu.Lock()
		t.RegisteredCount = before
		r.mu.Unlock()
	})
	return nil
}

func (r *fakeTournamentRepo) IncrementRegisteredIfOpen(ctx context.Context, exec repositories.SQLExecutor, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("IncrementRegisteredIfOpen")
	if r.reserveHook != nil {
		return r.reserveHook()
	}
	t, ok := r.items[id]
	if !ok {
		return false, nil
	}
	if now.After(t.RegistrationDeadline.EndOfDay(now.Location())) {
		return false, nil
	}
	if t.MaxParticipants > 0 && t.RegisteredCount >= t.MaxParticipants {
		return false, nil
	}
	t.RegisteredCount++
	recordUndo(exec, func() {
		r.mu.Lock()
		t.RegisteredCount--
		r.mu.Unlock()
	})
	return true, nil
}

func (r *fakeTournamentRepo) SwapRosterExport(ctx context.Context, id, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("SwapRosterExport")
	if _, ok := r.items[id]; !ok {
		return "", repositories.ErrTournamentNotFound
	}
	previous := r.exportKeys[id]
	r.exportKeys[id] = key
	return previous, nil
}

type fakeRegistrationRepo struct {
	mu        sync.Mutex
	items     map[string]*models.Registration
	order     []string
	seq       int
	createErr error
	listErr   error
	base      time.Time
	// beforeStatusWrite runs ahead of UpdateStatus, outside the lock.
	beforeStatusWrite func(id string)
	beforeDelete      func(id string)
}

func newFakeRegistrationRepo(regs ...*models.Registration) *fakeRegistrationRepo {
	r := &fakeRegistrationRepo{items: map[string]*models.Registration{}, base: time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)}
	for _, reg := range regs {
		cp := *reg
		r.items[reg.ID] = &cp
		r.order = append(r.order, reg.ID)
	}
	return r
}

func (r *fakeRegistrationRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *fakeRegistrationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	reg.ID = fmt.Sprintf("r%d", r.seq)
	reg.RegisteredAt = r.base.Add(time.Duration(r.seq) * time.Minute)
	reg.UpdatedAt = reg.RegisteredAt
	cp := *reg
	r.items[reg.ID] = &cp
	r.order = append(r.order, reg.ID)
	id := reg.ID
	recordUndo(exec, func() {
		r.mu.Lock()
		delete(r.items, id)
		r.mu.Unlock()
	})
	return nil
}

func (r *fakeRegistrationRepo) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	cp := *reg
	return &cp, nil
}

func (r *fakeRegistrationRepo) Update(ctx context.Context, reg *models.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[reg.ID]; !ok {
		return repositories.ErrRegistrationNotFound
	}
	cp := *reg
	r.items[reg.ID] = &cp
	return nil
}

func (r *fakeRegistrationRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id string, from, to models.RegistrationStatus) error {
	if r.beforeStatusWrite != nil {
		r.beforeStatusWrite(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.items[id]
	if !ok || reg.Status != from {
		return repositories.ErrRegistrationStatusConflict
	}
	before := reg.Status
	reg.Status = to
	recordUndo(exec, func() {
		r.mu.Lock()
		reg.Status = before
		r.mu.Unlock()
	})
	return nil
}

func (r *fakeRegistrationRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id string) (models.RegistrationStatus, error) {
	if r.beforeDelete != nil {
		r.beforeDelete(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.items[id]
	if !ok {
		return "", repositories.ErrRegistrationNotFound
	}
	delete(r.items, id)
	recordUndo(exec, func() {
		r.mu.Lock()
		r.items[id] = reg
		r.mu.Unlock()
	})
	return reg.Status, nil
}

func (r *fakeRegistrationRepo) filter(match func(*models.Registration) bool) ([]*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*models.Registration, 0)
	for _, id := range r.order {
		reg, ok := r.items[id]
		if ok && match(reg) {
			cp := *reg
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RegisteredAt.After(out[j].RegisteredAt) })
	return out, nil
}

func statusMatches(status *models.RegistrationStatus, reg *models.Registration) bool {
	return status == nil || reg.Status == *status
}

func (r *fakeRegistrationRepo) FindByUserAndTournament(ctx context.Context, userID, tournamentID string) ([]*models.Registration, error) {
	return r.filter(func(reg *models.Registration) bool {
		return reg.UserID == userID && reg.TournamentID == tournamentID
	})
}

func (r *fakeRegistrationRepo) ListByTournament(ctx context.Context, tournamentID string, status *models.RegistrationStatus) ([]*models.Registration, error) {
	return r.filter(func(reg *models.Registration) bool {
		return reg.TournamentID == tournamentID && statusMatches(status, reg)
	})
}

func (r *fakeRegistrationRepo) ListByUser(ctx context.Context, userID string, status *models.RegistrationStatus) ([]*models.Registration, error) {
	return r.filter(func(reg *models.Registration) bool {
		return reg.UserID == userID && statusMatches(status, reg)
	})
}

func (r *fakeRegistrationRepo) ListByTournamentIDs(ctx context.Context, ids []string, status *models.RegistrationStatus) ([]*models.Registration, error) {
	set := map[string]bool{}
	for _, id := range ids {
		set[id] = true
	}
	return r.filter(func(reg *models.Registration) bool {
		return set[reg.TournamentID] && statusMatches(status, reg)
	})
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	items   []*models.Match
	listErr error
	seq     int
	// beforeStatusWrite runs ahead of UpdateStatus, outside the lock.
	beforeStatusWrite func(id string)
}

func (r *fakeMatchRepo) Create(ctx context.Context, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	m.ID = fmt.Sprintf("m%d", r.seq)
	cp := *m
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.items {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID string, status *models.MatchStatus) ([]*models.Match, error) {
	return r.ListByTournamentIDs(ctx, []string{tournamentID}, status)
}

func (r *fakeMatchRepo) ListByTournamentIDs(ctx context.Context, ids []string, status *models.MatchStatus) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	set := map[string]bool{}
	for _, id := range ids {
		set[id] = true
	}
	out := make([]*models.Match, 0)
	for _, m := range r.items {
		if set[m.TournamentID] && (status == nil || m.Status == *status) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *fakeMatchRepo) ListByTeam(ctx context.Context, team string) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.items {
		if m.TeamA == team || m.TeamB == team {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *fakeMatchRepo) UpdateStatus(ctx context.Context, id string, from, to models.MatchStatus) error {
	if r.beforeStatusWrite != nil {
		r.beforeStatusWrite(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.items {
		if m.ID == id && m.Status == from {
			m.Status = to
			return nil
		}
	}
	return repositories.ErrMatchStatusConflict
}

func (r *fakeMatchRepo) RecordResult(ctx context.Context, id string, score, winnerTeam string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.items {
		if m.ID == id && m.Status != models.MatchCompleted {
			m.Score, m.WinnerTeam, m.Status = score, winnerTeam, models.MatchCompleted
			return nil
		}
	}
	return repositories.ErrMatchStatusConflict
}

func (r *fakeMatchRepo) Delete(ctx context.Context, id string) error {
	return nil
}

type fakePracticeRepo struct {
	items []*models.Practice
}

func (r *fakePracticeRepo) Create(ctx context.Context, p *models.Practice) error {
	p.ID = fmt.Sprintf("p%d", len(r.items)+1)
	p.Status = "Scheduled"
	cp := *p
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakePracticeRepo) GetByID(ctx context.Context, id string) (*models.Practice, error) {
	for _, p := range r.items {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPracticeNotFound
}

func (r *fakePracticeRepo) ListByTeam(ctx context.Context, team string) ([]*models.Practice, error) {
	out := make([]*models.Practice, 0)
	for _, p := range r.items {
		if p.TeamName == team {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePracticeRepo) Delete(ctx context.Context, id string) error {
	for i, p := range r.items {
		if p.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return repositories.ErrPracticeNotFound
}

type publishedEvent struct {
	TournamentID string
	Type         string
	Payload      interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(tournamentID, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{TournamentID: tournamentID, Type: eventType, Payload: payload})
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fakeUploader struct {
	key         string
	contentType string
	body        bytes.Buffer
	err         error
	deleted     []string
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.key = key
	u.contentType = contentType
	u.body.Reset()
	if _, err := u.body.ReadFrom(reader); err != nil {
		return nil, err
	}
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://files.example.com/" + key
}
