package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-registry/models"
)

var ErrPracticeNotFound = errors.New("practice not found")

type PracticeRepository interface {
	Create(ctx context.Context, practice *models.Practice) error
	GetByID(ctx context.Context, id string) (*models.Practice, error)
	ListByTeam(ctx context.Context, teamName string) ([]*models.Practice, error)
	Delete(ctx context.Context, id string) error
}

type postgresPracticeRepository struct {
	db *sql.DB
}

func NewPostgresPracticeRepository(db *sql.DB) PracticeRepository {
	return &postgresPracticeRepository{db: db}
}

const practiceColumns = `id, team_name, scheduled_at, venue, note, created_by, status, created_at`

func scanPractice(row rowScanner, p *models.Practice) error {
	return row.Scan(&p.ID, &p.TeamName, &p.ScheduledAt, &p.Venue, &p.Note, &p.CreatedBy, &p.Status, &p.CreatedAt)
}

func (r *postgresPracticeRepository) Create(ctx context.Context, p *models.Practice) error {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Status == "" {
		p.Status = string(models.MatchScheduled)
	}
	query := `
		INSERT INTO practices (id, team_name, scheduled_at, venue, note, created_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.TeamName, p.ScheduledAt, p.Venue, p.Note, p.CreatedBy, p.Status,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create practice: %w", err)
	}
	return nil
}

func (r *postgresPracticeRepository) GetByID(ctx context.Context, id string) (*models.Practice, error) {
	query := `SELECT ` + practiceColumns + ` FROM practices WHERE id = $1`
	p := &models.Practice{}
	if err := scanPractice(r.db.QueryRowContext(ctx, query, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPracticeNotFound
		}
		return nil, fmt.Errorf("failed to get practice %s: %w", id, err)
	}
	return p, nil
}

func (r *postgresPracticeRepository) ListByTeam(ctx context.Context, teamName string) ([]*models.Practice, error) {
	query := `SELECT ` + practiceColumns + ` FROM practices WHERE team_name = $1 ORDER BY scheduled_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, teamName)
	if err != nil {
		return nil, fmt.Errorf("failed to list practices: %w", err)
	}
	defer rows.Close()

	practices := make([]*models.Practice, 0)
	for rows.Next() {
		var p models.Practice
		if err := scanPractice(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan practice row: %w", err)
		}
		practices = append(practices, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating practice rows: %w", err)
	}
	return practices, nil
}

func (r *postgresPracticeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM practices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete practice: %w", err)
	}
	return checkAffectedRows(result, ErrPracticeNotFound)
}
