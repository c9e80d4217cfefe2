package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/federation-system/models"
)

var ErrCategoryNotFound = errors.New("category not found")

type CategoryRepository interface {
	GetByID(ctx context.Context, id int) (*models.Category, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Category, error)
}

type postgresCategoryRepository struct {
	db *sql.DB
}

func NewPostgresCategoryRepository(db *sql.DB) CategoryRepository {
	return &postgresCategoryRepository{db: db}
}

const categoryColumns = `id, tournament_id, name, min_age, max_age, gender, min_skill_level, max_skill_level, format, max_participants, entry_fee_cents, created_at`

func (r *postgresCategoryRepository) scanCategory(rowScanner interface {
	Scan(dest ...interface{}) error
}, c *models.Category) error {
	return rowScanner.Scan(
		&c.ID,
		&c.TournamentID,
		&c.Name,
		&c.MinAge,
		&c.MaxAge,
		&c.Gender,
		&c.MinSkillLevel,
		&c.MaxSkillLevel,
		&c.Format,
		&c.MaxParticipants,
		&c.EntryFeeCents,
		&c.CreatedAt,
	)
}

func (r *postgresCategoryRepository) GetByID(ctx context.Context, id int) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	c := &models.Category{}
	err := r.scanCategory(r.db.QueryRowContext(ctx, query, id), c)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (r *postgresCategoryRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE tournament_id = $1 ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories by tournament: %w", err)
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := r.scanCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}
	return categories, nil
}
