package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/tournament-registry/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchStatusConflict    = errors.New("match status changed concurrently")
)

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	// ListByTournament returns matches ordered by scheduled time.
	ListByTournament(ctx context.Context, tournamentID string, status *models.MatchStatus) ([]*models.Match, error)
	// ListByTournamentIDs fetches in batches; ordered by last update, newest first.
	ListByTournamentIDs(ctx context.Context, tournamentIDs []string, status *models.MatchStatus) ([]*models.Match, error)
	// ListByTeam returns matches where team plays on either side, by scheduled time.
	ListByTeam(ctx context.Context, team string) ([]*models.Match, error)
	// UpdateStatus writes to only while the stored status is still from.
	UpdateStatus(ctx context.Context, id string, from, to models.MatchStatus) error
	// RecordResult completes the match unless it is already completed.
	RecordResult(ctx context.Context, id string, score, winnerTeam string) error
	Delete(ctx context.Context, id string) error
}

type postgresMatchRepository struct {
	db        *sql.DB
	batchSize int
}

func NewPostgresMatchRepository(db *sql.DB, batchSize int) MatchRepository {
	return &postgresMatchRepository{db: db, batchSize: batchSize}
}

const matchColumns = `
	id, tournament_id, team_a, team_b, round, venue, scheduled_at, status, score, winner_team,
	created_at, updated_at`

func scanMatch(row rowScanner, m *models.Match) error {
	return row.Scan(
		&m.ID, &m.TournamentID, &m.TeamA, &m.TeamB, &m.Round, &m.Venue, &m.ScheduledAt,
		&m.Status, &m.Score, &m.WinnerTeam, &m.CreatedAt, &m.UpdatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, m *models.Match) error {
	if m.ID == "" {
		m.ID = newID()
	}
	query := `
		INSERT INTO matches
			(id, tournament_id, team_a, team_b, round, venue, scheduled_at, status, score, winner_team)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		m.ID, m.TournamentID, m.TeamA, m.TeamB, m.Round, m.Venue, m.ScheduledAt,
		m.Status, m.Score, m.WinnerTeam,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if code, _, ok := pqErrorCode(err); ok && code == "23503" {
			return ErrMatchTournamentInvalid
		}
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	m := &models.Match{}
	if err := scanMatch(r.db.QueryRowContext(ctx, query, id), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID string, status *models.MatchStatus) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if status != nil {
		query += " AND status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY scheduled_at ASC, id ASC"
	return r.list(ctx, query, args...)
}

func (r *postgresMatchRepository) ListByTournamentIDs(ctx context.Context, tournamentIDs []string, status *models.MatchStatus) ([]*models.Match, error) {
	matches, err := queryInBatches(ctx, tournamentIDs, r.batchSize, func(ctx context.Context, batch []string) ([]*models.Match, error) {
		query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = ANY($1)`
		args := []interface{}{pq.Array(batch)}
		if status != nil {
			query += " AND status = $2"
			args = append(args, *status)
		}
		return r.list(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	return matches, nil
}

func (r *postgresMatchRepository) ListByTeam(ctx context.Context, team string) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE team_a = $1 OR team_b = $1
		ORDER BY scheduled_at ASC, id ASC`
	return r.list(ctx, query, team)
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, id string, from, to models.MatchStatus) error {
	query := `UPDATE matches SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update match status: %w", err)
	}
	return checkAffectedRows(result, ErrMatchStatusConflict)
}

func (r *postgresMatchRepository) RecordResult(ctx context.Context, id string, score, winnerTeam string) error {
	query := `
		UPDATE matches SET score = $1, winner_team = $2, status = $3, updated_at = now()
		WHERE id = $4 AND status <> $3`
	result, err := r.db.ExecContext(ctx, query, score, winnerTeam, models.MatchCompleted, id)
	if err != nil {
		return fmt.Errorf("failed to record match result: %w", err)
	}
	return checkAffectedRows(result, ErrMatchStatusConflict)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		if err := scanMatch(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}
