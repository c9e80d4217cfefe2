package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/federation-system/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationConflict          = errors.New("registration conflict: player already registered for this category")
	ErrRegistrationPlayerInvalid     = errors.New("registration player conflict or invalid")
	ErrRegistrationCategoryInvalid   = errors.New("registration category conflict or invalid")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament conflict or invalid")
)

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id int) (*models.Registration, error)
	UpdateStatus(ctx context.Context, id int, status models.RegistrationStatus) error
	UpdatePayment(ctx context.Context, id int, status models.PaymentStatus, amountCents *int64) error

	// FindActiveInvolving returns the non-withdrawn registration in which the
	// player appears as requester or as partner, or ErrRegistrationNotFound.
	// exceptID excludes one registration from the search (0 = none), which
	// promotion uses to re-validate a waitlisted entry against the rest of
	// the category's pool.
	FindActiveInvolving(ctx context.Context, categoryID, playerID, exceptID int) (*models.Registration, error)

	// ListWaitlisted returns the category's waitlist in strict FIFO order.
	ListWaitlisted(ctx context.Context, categoryID int) ([]*models.Registration, error)
	CountWaitlisted(ctx context.Context, categoryID int) (int, error)

	ListByCategory(ctx context.Context, categoryID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

const registrationColumns = `id, tournament_id, category_id, player_id, partner_id, status, payment_status, amount_paid_cents, created_at, updated_at`

func (r *postgresRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (tournament_id, category_id, player_id, partner_id, status, payment_status, amount_paid_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		reg.TournamentID,
		reg.CategoryID,
		reg.PlayerID,
		reg.PartnerID,
		reg.Status,
		reg.PaymentStatus,
		reg.AmountPaidCents,
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505": // unique_violation
				return ErrRegistrationConflict
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "registrations_player_id_fkey", "registrations_partner_id_fkey":
					return ErrRegistrationPlayerInvalid
				case "registrations_category_id_fkey":
					return ErrRegistrationCategoryInvalid
				case "registrations_tournament_id_fkey":
					return ErrRegistrationTournamentInvalid
				}
			}
		}
		return fmt.Errorf("failed to create registration: %w", wrapSerialization(err))
	}
	return nil
}

func (r *postgresRegistrationRepository) scanRegistration(rowScanner interface {
	Scan(dest ...interface{}) error
}, reg *models.Registration) error {
	return rowScanner.Scan(
		&reg.ID,
		&reg.TournamentID,
		&reg.CategoryID,
		&reg.PlayerID,
		&reg.PartnerID,
		&reg.Status,
		&reg.PaymentStatus,
		&reg.AmountPaidCents,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
}

func (r *postgresRegistrationRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Registration, error) {
	reg := &models.Registration{}
	err := r.scanRegistration(r.db.QueryRowContext(ctx, query, args...), reg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", wrapSerialization(err))
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) FindByID(ctx context.Context, id int) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, id int, status models.RegistrationStatus) error {
	query := `UPDATE registrations SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update registration status: %w", wrapSerialization(err))
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) UpdatePayment(ctx context.Context, id int, status models.PaymentStatus, amountCents *int64) error {
	query := `UPDATE registrations SET payment_status = $1, amount_paid_cents = $2, updated_at = NOW() WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, amountCents, id)
	if err != nil {
		return fmt.Errorf("failed to update registration payment: %w", wrapSerialization(err))
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) FindActiveInvolving(ctx context.Context, categoryID, playerID, exceptID int) (*models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE category_id = $1
		  AND status <> 'withdrawn'
		  AND (player_id = $2 OR partner_id = $2)
		  AND id <> $3
		ORDER BY id ASC
		LIMIT 1`
	return r.findOne(ctx, query, categoryID, playerID, exceptID)
}

func (r *postgresRegistrationRepository) ListWaitlisted(ctx context.Context, categoryID int) ([]*models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE category_id = $1 AND status = 'waitlisted'
		ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, categoryID)
}

func (r *postgresRegistrationRepository) CountWaitlisted(ctx context.Context, categoryID int) (int, error) {
	query := `SELECT COUNT(*) FROM registrations WHERE category_id = $1 AND status = 'waitlisted'`
	var count int
	if err := r.db.QueryRowContext(ctx, query, categoryID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count waitlisted registrations: %w", wrapSerialization(err))
	}
	return count, nil
}

func (r *postgresRegistrationRepository) ListByCategory(ctx context.Context, categoryID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + registrationColumns + ` FROM registrations WHERE category_id = $1`)
	args := []interface{}{categoryID}

	if statusFilter != nil {
		queryBuilder.WriteString(` AND status = $2`)
		args = append(args, *statusFilter)
	}
	queryBuilder.WriteString(` ORDER BY created_at ASC, id ASC`)

	return r.list(ctx, queryBuilder.String(), args...)
}

func (r *postgresRegistrationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", wrapSerialization(err))
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		if err := r.scanRegistration(rows, &reg); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		registrations = append(registrations, &reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return registrations, nil
}
