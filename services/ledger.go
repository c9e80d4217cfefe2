package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/federation-system/models"
	"github.com/Dosada05/federation-system/repositories"
)

// LedgerService is the durable record of every registration: current-state
// rows plus an append-only transition history. Writes are idempotent keyed by
// registration id + target status, so an orchestrator retry after a timeout
// replays as a no-op instead of failing or duplicating history rows.
type LedgerService struct {
	registrations repositories.RegistrationRepository
	history       repositories.StatusChangeRepository
}

func NewLedgerService(
	registrations repositories.RegistrationRepository,
	history repositories.StatusChangeRepository,
) *LedgerService {
	return &LedgerService{
		registrations: registrations,
		history:       history,
	}
}

// Create persists a new registration in its initial status and records the
// creation entry in the history.
func (l *LedgerService) Create(ctx context.Context, reg *models.Registration) error {
	if err := l.registrations.Create(ctx, reg); err != nil {
		if errors.Is(err, repositories.ErrRegistrationConflict) {
			return ErrDuplicateRegistration
		}
		return err
	}

	change := &models.StatusChange{
		RegistrationID: reg.ID,
		ToStatus:       reg.Status,
	}
	if err := l.history.Append(ctx, change); err != nil {
		// The row exists but the ledger entry does not: neutralize the row so
		// no half-committed registration survives, then report the failure.
		if markErr := l.registrations.UpdateStatus(ctx, reg.ID, models.RegistrationWithdrawn); markErr != nil {
			return fmt.Errorf("failed to record creation for registration %d (and failed to neutralize row: %v): %w", reg.ID, markErr, err)
		}
		return fmt.Errorf("failed to record creation for registration %d: %w", reg.ID, err)
	}
	return nil
}

// Transition moves a registration to a new status. Replaying the current
// status is a no-op (changed=false). Illegal transitions fail with
// ErrInvalidTransition and leave state unchanged.
func (l *LedgerService) Transition(ctx context.Context, registrationID int, to models.RegistrationStatus) (*models.Registration, bool, error) {
	reg, err := l.registrations.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, false, ErrRegistrationNotFound
		}
		return nil, false, err
	}

	if reg.Status == to {
		return reg, false, nil
	}
	if !isValidRegistrationTransition(reg.Status, to) {
		return nil, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, reg.Status, to)
	}

	from := reg.Status
	if err := l.registrations.UpdateStatus(ctx, registrationID, to); err != nil {
		return nil, false, err
	}
	reg.Status = to

	change := &models.StatusChange{
		RegistrationID: registrationID,
		FromStatus:     &from,
		ToStatus:       to,
	}
	if err := l.history.Append(ctx, change); err != nil {
		return nil, false, fmt.Errorf("failed to record transition %s -> %s for registration %d: %w", from, to, registrationID, err)
	}
	return reg, true, nil
}

// RecordPayment updates payment bookkeeping. The core never initiates
// charges; the payment collaborator reports outcomes here. Replaying the
// same status and amount is a no-op.
func (l *LedgerService) RecordPayment(ctx context.Context, registrationID int, amountCents int64, status models.PaymentStatus) (*models.Registration, bool, error) {
	switch status {
	case models.PaymentPending, models.PaymentPaid, models.PaymentRefunded:
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, status)
	}

	reg, err := l.registrations.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, false, ErrRegistrationNotFound
		}
		return nil, false, err
	}

	if reg.PaymentStatus == status && reg.AmountPaidCents != nil && *reg.AmountPaidCents == amountCents {
		return reg, false, nil
	}

	amount := amountCents
	if err := l.registrations.UpdatePayment(ctx, registrationID, status, &amount); err != nil {
		return nil, false, err
	}
	reg.PaymentStatus = status
	reg.AmountPaidCents = &amount
	return reg, true, nil
}

// History returns the full transition history of one registration.
func (l *LedgerService) History(ctx context.Context, registrationID int) ([]*models.StatusChange, error) {
	return l.history.ListByRegistration(ctx, registrationID)
}
