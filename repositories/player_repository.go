package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/federation-system/models"
)

var ErrPlayerNotFound = errors.New("player not found")

type PlayerRepository interface {
	GetByID(ctx context.Context, id int) (*models.Player, error)
	Search(ctx context.Context, query string, limit int) ([]*models.Player, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `id, first_name, last_name, gender, birth_date, skill_level, avatar_key, created_at`

func (r *postgresPlayerRepository) scanPlayer(rowScanner interface {
	Scan(dest ...interface{}) error
}, p *models.Player) error {
	return rowScanner.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Gender,
		&p.BirthDate,
		&p.SkillLevel,
		&p.AvatarKey,
		&p.CreatedAt,
	)
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	p := &models.Player{}
	err := r.scanPlayer(r.db.QueryRowContext(ctx, query, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

func (r *postgresPlayerRepository) Search(ctx context.Context, query string, limit int) ([]*models.Player, error) {
	if limit <= 0 {
		limit = 20
	}
	sqlQuery := `
		SELECT ` + playerColumns + `
		FROM players
		WHERE first_name ILIKE '%' || $1 || '%'
		   OR last_name ILIKE '%' || $1 || '%'
		ORDER BY last_name ASC, first_name ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, sqlQuery, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search players: %w", err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		var p models.Player
		if err := r.scanPlayer(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}
	return players, nil
}
