package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/federation-system/models"
)

// StatusChangeRepository is the append-only half of the registration ledger.
// Rows are never updated or deleted.
type StatusChangeRepository interface {
	Append(ctx context.Context, change *models.StatusChange) error
	ListByRegistration(ctx context.Context, registrationID int) ([]*models.StatusChange, error)
	ListByCategory(ctx context.Context, categoryID int) ([]*models.StatusChange, error)
}

type postgresStatusChangeRepository struct {
	db *sql.DB
}

func NewPostgresStatusChangeRepository(db *sql.DB) StatusChangeRepository {
	return &postgresStatusChangeRepository{db: db}
}

func (r *postgresStatusChangeRepository) Append(ctx context.Context, change *models.StatusChange) error {
	query := `
		INSERT INTO registration_status_changes (registration_id, from_status, to_status)
		VALUES ($1, $2, $3)
		RETURNING id, recorded_at`

	err := r.db.QueryRowContext(ctx, query,
		change.RegistrationID,
		change.FromStatus,
		change.ToStatus,
	).Scan(&change.ID, &change.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to append status change: %w", wrapSerialization(err))
	}
	return nil
}

func (r *postgresStatusChangeRepository) ListByRegistration(ctx context.Context, registrationID int) ([]*models.StatusChange, error) {
	query := `
		SELECT id, registration_id, from_status, to_status, recorded_at
		FROM registration_status_changes
		WHERE registration_id = $1
		ORDER BY id ASC`
	return r.list(ctx, query, registrationID)
}

func (r *postgresStatusChangeRepository) ListByCategory(ctx context.Context, categoryID int) ([]*models.StatusChange, error) {
	query := `
		SELECT c.id, c.registration_id, c.from_status, c.to_status, c.recorded_at
		FROM registration_status_changes c
		JOIN registrations reg ON c.registration_id = reg.id
		WHERE reg.category_id = $1
		ORDER BY c.id ASC`
	return r.list(ctx, query, categoryID)
}

func (r *postgresStatusChangeRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.StatusChange, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list status changes: %w", err)
	}
	defer rows.Close()

	changes := make([]*models.StatusChange, 0)
	for rows.Next() {
		var c models.StatusChange
		if err := rows.Scan(&c.ID, &c.RegistrationID, &c.FromStatus, &c.ToStatus, &c.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status change row: %w", err)
		}
		changes = append(changes, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status change rows: %w", err)
	}
	return changes, nil
}
