package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrSlotRowMissing = errors.New("category slot counter row missing")

// SlotRepository owns the per-category confirmed-slot counter. The increment
// is a single guarded UPDATE, so even without the service-level category
// lock two processes cannot push confirmed_count past capacity.
type SlotRepository interface {
	EnsureRow(ctx context.Context, categoryID int) error
	// TryReserve increments confirmed_count when it is below capacity
	// (capacity nil = unlimited) and reports whether the slot was taken.
	TryReserve(ctx context.Context, categoryID int, capacity *int) (bool, error)
	Release(ctx context.Context, categoryID int) error
	ConfirmedCount(ctx context.Context, categoryID int) (int, error)
}

type postgresSlotRepository struct {
	db *sql.DB
}

func NewPostgresSlotRepository(db *sql.DB) SlotRepository {
	return &postgresSlotRepository{db: db}
}

func (r *postgresSlotRepository) EnsureRow(ctx context.Context, categoryID int) error {
	query := `
		INSERT INTO category_slots (category_id, confirmed_count)
		VALUES ($1, 0)
		ON CONFLICT (category_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, categoryID); err != nil {
		return fmt.Errorf("failed to ensure slot counter row: %w", wrapSerialization(err))
	}
	return nil
}

func (r *postgresSlotRepository) TryReserve(ctx context.Context, categoryID int, capacity *int) (bool, error) {
	query := `
		UPDATE category_slots
		SET confirmed_count = confirmed_count + 1, updated_at = NOW()
		WHERE category_id = $1 AND ($2::int IS NULL OR confirmed_count < $2)`

	result, err := r.db.ExecContext(ctx, query, categoryID, capacity)
	if err != nil {
		return false, fmt.Errorf("failed to reserve slot: %w", wrapSerialization(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows for slot reserve: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *postgresSlotRepository) Release(ctx context.Context, categoryID int) error {
	query := `
		UPDATE category_slots
		SET confirmed_count = confirmed_count - 1, updated_at = NOW()
		WHERE category_id = $1 AND confirmed_count > 0`

	result, err := r.db.ExecContext(ctx, query, categoryID)
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", wrapSerialization(err))
	}
	return checkAffectedRows(result, ErrSlotRowMissing)
}

func (r *postgresSlotRepository) ConfirmedCount(ctx context.Context, categoryID int) (int, error) {
	query := `SELECT confirmed_count FROM category_slots WHERE category_id = $1`
	var count int
	err := r.db.QueryRowContext(ctx, query, categoryID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No row yet means no registration has ever touched the category.
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read confirmed count: %w", wrapSerialization(err))
	}
	return count, nil
}
