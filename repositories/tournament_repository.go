package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-registry/models"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTournamentInUse    = errors.New("tournament is in use (registrations/matches exist)")
)

// ListTournamentsFilter holds optional equality filters. Results are always
// ordered by creation time, newest first.
type ListTournamentsFilter struct {
	Sport       *string
	OrganizerID *string
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatusLabel(ctx context.Context, id string, label string) error
	Delete(ctx context.Context, id string) error
	// IncrementRegistered adds delta to the counter, never going below zero.
	IncrementRegistered(ctx context.Context, exec SQLExecutor, id string, delta int) error
	// IncrementRegisteredIfOpen adds one to the counter only while the deadline
	// has not passed for the calendar day of now and a positive capacity is not
	// reached. It reports whether the row was updated.
	IncrementRegisteredIfOpen(ctx context.Context, exec SQLExecutor, id string, now time.Time) (bool, error)
	// SwapRosterExport records key as the latest roster export of the
	// tournament and returns the key it replaced, "" for the first export.
	SwapRosterExport(ctx context.Context, id, key string) (string, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, title, sport, format, description, rules, location,
	registration_deadline, start_date, end_date, max_participants, registered_count,
	status, organizer_id, created_at, updated_at`

func scanTournament(row rowScanner, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Title, &t.Sport, &t.Format, &t.Description, &t.Rules, &t.Location,
		&t.RegistrationDeadline, &t.StartDate, &t.EndDate, &t.MaxParticipants, &t.RegisteredCount,
		&t.Status, &t.OrganizerID, &t.CreatedAt, &t.UpdatedAt,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Status == "" {
		t.Status = models.LabelUpcoming
	}
	query := `
		INSERT INTO tournaments (
			id, title, sport, format, description, rules, location,
			registration_deadline, start_date, end_date, max_participants, registered_count,
			status, organizer_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.Title, t.Sport, t.Format, t.Description, t.Rules, t.Location,
		t.RegistrationDeadline, t.StartDate, t.EndDate, t.MaxParticipants, t.RegisteredCount,
		t.Status, t.OrganizerID,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := scanTournament(r.db.QueryRowContext(ctx, query, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Sport != nil {
		query += fmt.Sprintf(" AND sport = $%d", argID)
		args = append(args, *filter.Sport)
		argID++
	}
	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
	}

	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := scanTournament(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	// registered_count is owned by the increment methods and never written here.
	query := `
		UPDATE tournaments SET
			title = $1,
			sport = $2,
			format = $3,
			description = $4,
			rules = $5,
			location = $6,
			registration_deadline = $7,
			start_date = $8,
			end_date = $9,
			max_participants = $10,
			status = $11,
			updated_at = now()
		WHERE id = $12
		RETURNING registered_count, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Title, t.Sport, t.Format, t.Description, t.Rules, t.Location,
		t.RegistrationDeadline, t.StartDate, t.EndDate, t.MaxParticipants, t.Status,
		t.ID,
	).Scan(&t.RegisteredCount, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to update tournament %s: %w", t.ID, err)
	}
	return nil
}

func (r *postgresTournamentRepository) UpdateStatusLabel(ctx context.Context, id string, label string) error {
	query := `UPDATE tournaments SET status = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, label, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament status label: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if code, _, ok := pqErrorCode(err); ok && code == "23503" {
			return ErrTournamentInUse
		}
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) IncrementRegistered(ctx context.Context, exec SQLExecutor, id string, delta int) error {
	query := `
		UPDATE tournaments
		SET registered_count = GREATEST(registered_count + $1, 0), updated_at = now()
		WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("failed to increment registered count: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) IncrementRegisteredIfOpen(ctx context.Context, exec SQLExecutor, id string, now time.Time) (bool, error) {
	query := `
		UPDATE tournaments
		SET registered_count = registered_count + 1, updated_at = now()
		WHERE id = $1
		  AND registration_deadline >= $2::date
		  AND (max_participants <= 0 OR registered_count < max_participants)`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, id, now.Format("2006-01-02"))
	if err != nil {
		return false, fmt.Errorf("failed to conditionally increment registered count: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *postgresTournamentRepository) SwapRosterExport(ctx context.Context, id, key string) (string, error) {
	query := `
		UPDATE tournaments t
		SET roster_export_key = $2
		FROM (SELECT id, roster_export_key FROM tournaments WHERE id = $1 FOR UPDATE) prev
		WHERE t.id = prev.id
		RETURNING prev.roster_export_key`
	var previous string
	if err := r.db.QueryRowContext(ctx, query, id, key).Scan(&previous); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrTournamentNotFound
		}
		return "", fmt.Errorf("failed to record roster export: %w", err)
	}
	return previous, nil
}
