package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/federation-system/models"
	"github.com/Dosada05/federation-system/repositories"
)

// PairingService validates that (requester, partner) is a legal claimant for
// a doubles category. It does not reserve a slot: the uniqueness check must
// be repeated inside the category's critical section, where it is committed
// together with the allocation (see RegistrationService.submitOnce).
type PairingService struct {
	players       repositories.PlayerRepository
	registrations repositories.RegistrationRepository
}

func NewPairingService(
	players repositories.PlayerRepository,
	registrations repositories.RegistrationRepository,
) *PairingService {
	return &PairingService{
		players:       players,
		registrations: registrations,
	}
}

// ValidatePair resolves and validates the partner for a doubles request.
// Returns the partner on success.
func (s *PairingService) ValidatePair(ctx context.Context, category *models.Category, requester *models.Player, partnerID int, now time.Time) (*models.Player, error) {
	if partnerID == requester.ID {
		return nil, ErrSelfPartner
	}

	partner, err := s.players.GetByID(ctx, partnerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: partner %d", ErrPlayerNotFound, partnerID)
		}
		return nil, fmt.Errorf("failed to load partner %d: %w", partnerID, err)
	}

	if err := EvaluateEligibility(category, partner, now); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPartnerIneligible, err)
	}

	if err := s.CheckPartnerFree(ctx, category.ID, partner.ID, 0); err != nil {
		return nil, err
	}
	return partner, nil
}

// CheckPartnerFree verifies the partner is not already bound, as requester or
// partner, to a non-withdrawn registration in the category. exceptID excludes
// one registration (used when re-validating a waitlisted entry against the
// rest of the pool during promotion).
func (s *PairingService) CheckPartnerFree(ctx context.Context, categoryID, partnerID, exceptID int) error {
	_, err := s.registrations.FindActiveInvolving(ctx, categoryID, partnerID, exceptID)
	if err == nil {
		return ErrPartnerAlreadyRegistered
	}
	if errors.Is(err, repositories.ErrRegistrationNotFound) {
		return nil
	}
	return fmt.Errorf("failed to check partner availability: %w", err)
}
