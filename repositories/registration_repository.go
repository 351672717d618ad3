package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Dosada05/tournament-registry/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament conflict or invalid")
	// ErrRegistrationStatusConflict: статус заявки изменился после чтения.
	ErrRegistrationStatusConflict = errors.New("registration status changed concurrently")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	GetByID(ctx context.Context, id string) (*models.Registration, error)
	// Update writes the player supplied attributes; status is changed via UpdateStatus.
	Update(ctx context.Context, reg *models.Registration) error
	// UpdateStatus moves the registration from one status to another. It matches
	// no row, and returns ErrRegistrationStatusConflict, once the stored status
	// is no longer from.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id string, from, to models.RegistrationStatus) error
	// Delete removes the registration and returns the status it had at deletion.
	Delete(ctx context.Context, exec SQLExecutor, id string) (models.RegistrationStatus, error)
	FindByUserAndTournament(ctx context.Context, userID, tournamentID string) ([]*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID string, status *models.RegistrationStatus) ([]*models.Registration, error)
	ListByUser(ctx context.Context, userID string, status *models.RegistrationStatus) ([]*models.Registration, error)
	// ListByTournamentIDs fetches registrations of many tournaments in batches,
	// newest first. It never truncates the id list.
	ListByTournamentIDs(ctx context.Context, tournamentIDs []string, status *models.RegistrationStatus) ([]*models.Registration, error)
}

type postgresRegistrationRepository struct {
	db        *sql.DB
	batchSize int
}

func NewPostgresRegistrationRepository(db *sql.DB, batchSize int) RegistrationRepository {
	return &postgresRegistrationRepository{db: db, batchSize: batchSize}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const registrationColumns = `
	id, tournament_id, user_id, code, player_name, player_email, phone, team_name, role,
	attributes, tournament_title, sport, status, registered_at, updated_at`

func scanRegistration(row rowScanner, reg *models.Registration) error {
	var attrs []byte
	err := row.Scan(
		&reg.ID, &reg.TournamentID, &reg.UserID, &reg.Code, &reg.PlayerName, &reg.PlayerEmail,
		&reg.Phone, &reg.TeamName, &reg.Role, &attrs, &reg.TournamentTitle, &reg.Sport,
		&reg.Status, &reg.RegisteredAt, &reg.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &reg.Attributes); err != nil {
			return fmt.Errorf("failed to decode registration attributes: %w", err)
		}
		if len(reg.Attributes) == 0 {
			reg.Attributes = nil
		}
	}
	return nil
}

func encodeAttributes(attrs map[string]string) ([]byte, error) {
	if attrs == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(attrs)
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = newID()
	}
	attrs, err := encodeAttributes(reg.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode registration attributes: %w", err)
	}

	query := `
		INSERT INTO registrations (
			id, tournament_id, user_id, code, player_name, player_email, phone, team_name, role,
			attributes, tournament_title, sport, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING registered_at, updated_at`

	err = r.getExecutor(exec).QueryRowContext(ctx, query,
		reg.ID, reg.TournamentID, reg.UserID, reg.Code, reg.PlayerName, reg.PlayerEmail,
		reg.Phone, reg.TeamName, reg.Role, attrs, reg.TournamentTitle, reg.Sport, reg.Status,
	).Scan(&reg.RegisteredAt, &reg.UpdatedAt)
	if err != nil {
		if code, constraint, ok := pqErrorCode(err); ok && code == "23503" && constraint == "registrations_tournament_id_fkey" {
			return ErrRegistrationTournamentInvalid
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`

	reg := &models.Registration{}
	if err := scanRegistration(r.db.QueryRowContext(ctx, query, id), reg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration %s: %w", id, err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) Update(ctx context.Context, reg *models.Registration) error {
	attrs, err := encodeAttributes(reg.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode registration attributes: %w", err)
	}
	query := `
		UPDATE registrations SET
			player_name = $1,
			player_email = $2,
			phone = $3,
			team_name = $4,
			role = $5,
			attributes = $6,
			updated_at = now()
		WHERE id = $7
		RETURNING updated_at`

	err = r.db.QueryRowContext(ctx, query,
		reg.PlayerName, reg.PlayerEmail, reg.Phone, reg.TeamName, reg.Role, attrs, reg.ID,
	).Scan(&reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to update registration %s: %w", reg.ID, err)
	}
	return nil
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id string, from, to models.RegistrationStatus) error {
	query := `UPDATE registrations SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update registration status: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationStatusConflict)
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, exec SQLExecutor, id string) (models.RegistrationStatus, error) {
	query := `DELETE FROM registrations WHERE id = $1 RETURNING status`
	var status models.RegistrationStatus
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrRegistrationNotFound
		}
		return "", fmt.Errorf("failed to delete registration: %w", err)
	}
	return status, nil
}

func (r *postgresRegistrationRepository) FindByUserAndTournament(ctx context.Context, userID, tournamentID string) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + `
		FROM registrations WHERE user_id = $1 AND tournament_id = $2
		ORDER BY registered_at DESC`
	return r.list(ctx, query, userID, tournamentID)
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID string, status *models.RegistrationStatus) ([]*models.Registration, error) {
	return r.listWhere(ctx, "tournament_id = $1", tournamentID, status)
}

func (r *postgresRegistrationRepository) ListByUser(ctx context.Context, userID string, status *models.RegistrationStatus) ([]*models.Registration, error) {
	return r.listWhere(ctx, "user_id = $1", userID, status)
}

func (r *postgresRegistrationRepository) ListByTournamentIDs(ctx context.Context, tournamentIDs []string, status *models.RegistrationStatus) ([]*models.Registration, error) {
	regs, err := queryInBatches(ctx, tournamentIDs, r.batchSize, func(ctx context.Context, batch []string) ([]*models.Registration, error) {
		return r.listWhere(ctx, "tournament_id = ANY($1)", pq.Array(batch), status)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(regs, func(i, j int) bool {
		return regs[i].RegisteredAt.After(regs[j].RegisteredAt)
	})
	return regs, nil
}

func (r *postgresRegistrationRepository) listWhere(ctx context.Context, clause string, arg interface{}, status *models.RegistrationStatus) ([]*models.Registration, error) {
	var qb strings.Builder
	qb.WriteString(`SELECT ` + registrationColumns + ` FROM registrations WHERE ` + clause)
	args := []interface{}{arg}
	if status != nil {
		qb.WriteString(" AND status = $2")
		args = append(args, *status)
	}
	qb.WriteString(" ORDER BY registered_at DESC, id DESC")
	return r.list(ctx, qb.String(), args...)
}

func (r *postgresRegistrationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	regs := make([]*models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		if err := scanRegistration(rows, &reg); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		regs = append(regs, &reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return regs, nil
}
