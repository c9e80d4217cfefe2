package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/federation-system/cache"
	"github.com/Dosada05/federation-system/events"
	"github.com/Dosada05/federation-system/models"
	"github.com/Dosada05/federation-system/repositories"
	"github.com/Dosada05/federation-system/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	submitMaxAttempts    = 3
	submitRetryBaseDelay = 25 * time.Millisecond
)

// OccupancyBroadcaster pushes fresh occupancy to realtime subscribers.
// Implemented by the websocket hub; nil disables the push.
type OccupancyBroadcaster interface {
	BroadcastOccupancy(occ *models.Occupancy)
}

// SubmitRegistrationInput carries one registration request. CallerID/CallerRole
// come from the authenticated identity, never from the request body.
type SubmitRegistrationInput struct {
	TournamentID int
	CategoryID   int
	PlayerID     int
	PartnerID    *int
	CallerID     int
	CallerRole   models.UserRole
}

// RegistrationService sequences the whole registration workflow: eligibility,
// pairing, allocation, ledger commit, compensation, withdrawal and waitlist
// promotion. Cache, publisher, broadcaster and uploader are optional; a nil
// value disables that side channel without touching the core flow.
type RegistrationService struct {
	tournaments   repositories.TournamentRepository
	categories    repositories.CategoryRepository
	players       repositories.PlayerRepository
	registrations repositories.RegistrationRepository

	allocator *CapacityAllocator
	ledger    *LedgerService
	pairing   *PairingService

	occupancyCache cache.OccupancyCache
	publisher      events.Publisher
	broadcaster    OccupancyBroadcaster
	uploader       storage.FileUploader

	logger *slog.Logger
}

func NewRegistrationService(
	tournaments repositories.TournamentRepository,
	categories repositories.CategoryRepository,
	players repositories.PlayerRepository,
	registrations repositories.RegistrationRepository,
	allocator *CapacityAllocator,
	ledger *LedgerService,
	pairing *PairingService,
	occupancyCache cache.OccupancyCache,
	publisher events.Publisher,
	broadcaster OccupancyBroadcaster,
	uploader storage.FileUploader,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		tournaments:    tournaments,
		categories:     categories,
		players:        players,
		registrations:  registrations,
		allocator:      allocator,
		ledger:         ledger,
		pairing:        pairing,
		occupancyCache: occupancyCache,
		publisher:      publisher,
		broadcaster:    broadcaster,
		uploader:       uploader,
		logger:         logger,
	}
}

// SubmitRegistration validates the request, then commits allocation and ledger
// entry inside the category's critical section. Serialization conflicts from
// the database are retried a bounded number of times before surfacing
// ErrTransientConflict.
func (s *RegistrationService) SubmitRegistration(ctx context.Context, input SubmitRegistrationInput) (*models.Registration, error) {
	if input.CallerID != input.PlayerID && input.CallerRole != models.RoleAdmin {
		return nil, ErrForbiddenOperation
	}

	tournament, err := s.tournaments.GetByID(ctx, input.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	if category.TournamentID != tournament.ID {
		return nil, ErrCategoryTournamentMismatch
	}

	now := time.Now()
	if !tournament.RegistrationOpenAt(now) {
		return nil, ErrTournamentNotOpen
	}

	player, err := s.players.GetByID(ctx, input.PlayerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	if err := EvaluateEligibility(category, player, now); err != nil {
		return nil, err
	}

	if category.RequiresPartner() {
		if input.PartnerID == nil {
			return nil, ErrPartnerRequired
		}
		if _, err := s.pairing.ValidatePair(ctx, category, player, *input.PartnerID, now); err != nil {
			return nil, err
		}
	} else if input.PartnerID != nil {
		return nil, ErrPartnerNotAllowed
	}

	var reg *models.Registration
	for attempt := 1; attempt <= submitMaxAttempts; attempt++ {
		reg, err = s.submitOnce(ctx, tournament, category, player, input.PartnerID)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrSerializationFailure) {
			return nil, err
		}
		s.logger.Warn("registration commit hit serialization conflict, retrying",
			slog.Int("category_id", category.ID),
			slog.Int("player_id", player.ID),
			slog.Int("attempt", attempt),
		)
		time.Sleep(submitRetryBaseDelay * time.Duration(attempt))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: registration for category %d", ErrTransientConflict, category.ID)
	}

	s.afterMutation(ctx, category, submitEventName(reg.Status), reg)
	return reg, nil
}

// submitOnce is one commit attempt inside the category critical section.
// Duplicate and partner-claim checks run again here: the pre-validation
// outside the lock can race with a concurrent submit for the same player.
func (s *RegistrationService) submitOnce(ctx context.Context, tournament *models.Tournament, category *models.Category, player *models.Player, partnerID *int) (*models.Registration, error) {
	var reg *models.Registration

	err := s.allocator.WithCategory(category.ID, func() error {
		if !tournament.RegistrationOpenAt(time.Now()) {
			return ErrCategoryClosed
		}

		if _, err := s.registrations.FindActiveInvolving(ctx, category.ID, player.ID, 0); err == nil {
			return ErrDuplicateRegistration
		} else if !errors.Is(err, repositories.ErrRegistrationNotFound) {
			return err
		}
		if partnerID != nil {
			if err := s.pairing.CheckPartnerFree(ctx, category.ID, *partnerID, 0); err != nil {
				return err
			}
		}

		outcome, err := s.allocator.Reserve(ctx, category)
		if err != nil {
			return err
		}

		status := models.RegistrationWaitlisted
		if outcome.SlotReserved {
			if category.RequiresPayment() {
				status = models.RegistrationRegistered
			} else {
				status = models.RegistrationConfirmed
			}
		}

		reg = &models.Registration{
			TournamentID:  tournament.ID,
			CategoryID:    category.ID,
			PlayerID:      player.ID,
			PartnerID:     partnerID,
			Status:        status,
			PaymentStatus: models.PaymentPending,
		}
		if err := s.ledger.Create(ctx, reg); err != nil {
			if outcome.SlotReserved {
				s.compensateReserve(ctx, category.ID)
			}
			return err
		}

		if !outcome.SlotReserved {
			s.logger.Info("registration waitlisted",
				slog.Int("registration_id", reg.ID),
				slog.Int("category_id", category.ID),
				slog.Int("position", outcome.Position),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// compensateReserve releases a slot whose ledger commit failed. A failed
// release leaves the counter overstated, so it is logged at Error with an
// attempt id for manual reconciliation.
func (s *RegistrationService) compensateReserve(ctx context.Context, categoryID int) {
	if err := s.allocator.Release(ctx, categoryID); err != nil {
		s.logger.Error("failed to release slot after ledger commit failure",
			slog.String("attempt_id", uuid.NewString()),
			slog.Int("category_id", categoryID),
			slog.Any("error", err),
		)
	}
}

// WithdrawRegistration transitions a registration to withdrawn. Withdrawing an
// already-withdrawn registration is a no-op. When the withdrawn entry held a
// counted slot, the slot is released and the waitlist is promoted in FIFO
// order inside the same critical section.
func (s *RegistrationService) WithdrawRegistration(ctx context.Context, registrationID, callerID int, callerRole models.UserRole) error {
	reg, err := s.registrations.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return err
	}
	if reg.PlayerID != callerID && callerRole != models.RoleAdmin {
		return ErrWithdrawForbidden
	}
	if reg.Status == models.RegistrationWithdrawn {
		return nil
	}

	category, err := s.categories.GetByID(ctx, reg.CategoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	var promoted []*models.Registration
	err = s.allocator.WithCategory(category.ID, func() error {
		updated, changed, err := s.ledger.Transition(ctx, registrationID, models.RegistrationWithdrawn)
		if err != nil {
			return err
		}
		reg = updated
		if !changed {
			return nil
		}

		// The history row records the pre-withdrawal status; use it to decide
		// whether a counted slot frees up.
		history, err := s.ledger.History(ctx, registrationID)
		if err != nil {
			return err
		}
		prior := priorStatus(history, updated.Status)
		if prior == nil || !prior.CountsTowardCapacity() {
			return nil
		}

		if err := s.allocator.Release(ctx, category.ID); err != nil {
			return err
		}
		promoted, err = s.promoteLocked(ctx, category)
		return err
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, category, events.RegistrationWithdrawn, reg)
	for _, p := range promoted {
		s.publish(ctx, events.RegistrationPromoted, p)
	}
	return nil
}

// priorStatus finds the status the registration held before its most recent
// transition to current.
func priorStatus(history []*models.StatusChange, current models.RegistrationStatus) *models.RegistrationStatus {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ToStatus == current {
			return history[i].FromStatus
		}
	}
	return nil
}

// promoteLocked fills freed slots from the waitlist head. Must run inside the
// category critical section. Each candidate is re-validated against current
// rules; stale heads are discarded (transitioned to withdrawn) and the scan
// continues with the next entry.
func (s *RegistrationService) promoteLocked(ctx context.Context, category *models.Category) ([]*models.Registration, error) {
	now := time.Now()
	var promoted []*models.Registration

	for {
		heads, err := s.registrations.ListWaitlisted(ctx, category.ID)
		if err != nil {
			return promoted, err
		}
		if len(heads) == 0 {
			return promoted, nil
		}

		outcome, err := s.allocator.Reserve(ctx, category)
		if err != nil {
			return promoted, err
		}
		if !outcome.SlotReserved {
			return promoted, nil
		}

		promotedOne := false
		for _, head := range heads {
			ok, err := s.revalidateWaitlisted(ctx, category, head, now)
			if err != nil {
				s.compensateReserve(ctx, category.ID)
				return promoted, err
			}
			if !ok {
				if _, _, err := s.ledger.Transition(ctx, head.ID, models.RegistrationWithdrawn); err != nil {
					s.compensateReserve(ctx, category.ID)
					return promoted, err
				}
				s.logger.Info("discarded stale waitlist entry",
					slog.Int("registration_id", head.ID),
					slog.Int("category_id", category.ID),
				)
				continue
			}

			updated, _, err := s.ledger.Transition(ctx, head.ID, models.RegistrationConfirmed)
			if err != nil {
				s.compensateReserve(ctx, category.ID)
				return promoted, err
			}
			promoted = append(promoted, updated)
			promotedOne = true
			break
		}
		if !promotedOne {
			// Every waitlisted entry was stale; hand the slot back.
			s.compensateReserve(ctx, category.ID)
			return promoted, nil
		}
	}
}

// revalidateWaitlisted re-runs eligibility and pairing for a waitlist entry at
// promotion time. Rules may have started failing since submission (the player
// aged out, the partner withdrew elsewhere in the pool).
func (s *RegistrationService) revalidateWaitlisted(ctx context.Context, category *models.Category, head *models.Registration, now time.Time) (bool, error) {
	player, err := s.players.GetByID(ctx, head.PlayerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := EvaluateEligibility(category, player, now); err != nil {
		return false, nil
	}

	if head.PartnerID != nil {
		partner, err := s.players.GetByID(ctx, *head.PartnerID)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return false, nil
			}
			return false, err
		}
		if err := EvaluateEligibility(category, partner, now); err != nil {
			return false, nil
		}
		if err := s.pairing.CheckPartnerFree(ctx, category.ID, partner.ID, head.ID); err != nil {
			if errors.Is(err, ErrPartnerAlreadyRegistered) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// RecordPayment books a payment outcome reported by the payment collaborator.
// A paid outcome on a registered entry completes the registration; the slot
// was already counted at submission time.
func (s *RegistrationService) RecordPayment(ctx context.Context, registrationID int, amountCents int64, status models.PaymentStatus) (*models.Registration, error) {
	reg, changed, err := s.ledger.RecordPayment(ctx, registrationID, amountCents, status)
	if err != nil {
		return nil, err
	}

	if status == models.PaymentPaid && reg.Status == models.RegistrationRegistered {
		err = s.allocator.WithCategory(reg.CategoryID, func() error {
			updated, _, err := s.ledger.Transition(ctx, registrationID, models.RegistrationConfirmed)
			if err != nil {
				return err
			}
			reg = updated
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.publish(ctx, events.RegistrationConfirmed, reg)
	} else if changed {
		s.logger.Info("payment recorded",
			slog.Int("registration_id", registrationID),
			slog.String("payment_status", string(status)),
		)
	}
	return reg, nil
}

// GetRegistration returns one registration with its players populated.
// Visible to anyone involved in it and to admins.
func (s *RegistrationService) GetRegistration(ctx context.Context, registrationID, callerID int, callerRole models.UserRole) (*models.Registration, error) {
	reg, err := s.registrations.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	if !reg.Involves(callerID) && callerRole != models.RoleAdmin {
		return nil, ErrForbiddenOperation
	}

	if player, err := s.players.GetByID(ctx, reg.PlayerID); err == nil {
		populatePlayerAvatarURL(player, s.uploader)
		reg.Player = player
	}
	if reg.PartnerID != nil {
		if partner, err := s.players.GetByID(ctx, *reg.PartnerID); err == nil {
			populatePlayerAvatarURL(partner, s.uploader)
			reg.Partner = partner
		}
	}
	return reg, nil
}

// ListCategoryRegistrations returns a category's registrations, optionally
// filtered by status.
func (s *RegistrationService) ListCategoryRegistrations(ctx context.Context, categoryID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return s.registrations.ListByCategory(ctx, categoryID, statusFilter)
}

// RegistrationHistory returns the transition history for one registration.
func (s *RegistrationService) RegistrationHistory(ctx context.Context, registrationID, callerID int, callerRole models.UserRole) ([]*models.StatusChange, error) {
	reg, err := s.registrations.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	if !reg.Involves(callerID) && callerRole != models.RoleAdmin {
		return nil, ErrForbiddenOperation
	}
	return s.ledger.History(ctx, registrationID)
}

// GetCategoryOccupancy serves the occupancy read. The redis cache is the fast
// path; any cache failure falls back to the counters.
func (s *RegistrationService) GetCategoryOccupancy(ctx context.Context, categoryID int) (*models.Occupancy, error) {
	if s.occupancyCache != nil {
		if occ, err := s.occupancyCache.Get(ctx, categoryID); err == nil {
			return occ, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("occupancy cache read failed", slog.Int("category_id", categoryID), slog.Any("error", err))
		}
	}

	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	occ, err := s.allocator.Occupancy(ctx, category)
	if err != nil {
		return nil, err
	}
	if s.occupancyCache != nil {
		if err := s.occupancyCache.Set(ctx, occ); err != nil {
			s.logger.Warn("occupancy cache write failed", slog.Int("category_id", categoryID), slog.Any("error", err))
		}
	}
	return occ, nil
}

// GetTournamentOccupancy fans out over the tournament's categories in
// parallel and returns their occupancies in category order.
func (s *RegistrationService) GetTournamentOccupancy(ctx context.Context, tournamentID int) ([]*models.Occupancy, error) {
	if _, err := s.tournaments.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	categories, err := s.categories.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	results := make([]*models.Occupancy, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			occ, err := s.allocator.Occupancy(gctx, category)
			if err != nil {
				return err
			}
			results[i] = occ
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// afterMutation runs the side channels after a committed state change:
// cache invalidation, websocket push, event publish. None of them can fail
// the request.
func (s *RegistrationService) afterMutation(ctx context.Context, category *models.Category, eventName string, reg *models.Registration) {
	if s.occupancyCache != nil {
		if err := s.occupancyCache.Invalidate(ctx, category.ID); err != nil {
			s.logger.Warn("occupancy cache invalidation failed", slog.Int("category_id", category.ID), slog.Any("error", err))
		}
	}

	if s.broadcaster != nil {
		if occ, err := s.allocator.Occupancy(ctx, category); err == nil {
			s.broadcaster.BroadcastOccupancy(occ)
		} else {
			s.logger.Warn("failed to read occupancy for broadcast", slog.Int("category_id", category.ID), slog.Any("error", err))
		}
	}

	s.publish(ctx, eventName, reg)
}

func (s *RegistrationService) publish(ctx context.Context, name string, reg *models.Registration) {
	if s.publisher == nil {
		return
	}
	event := events.Event{
		ID:             uuid.NewString(),
		Name:           name,
		RegistrationID: reg.ID,
		TournamentID:   reg.TournamentID,
		CategoryID:     reg.CategoryID,
		PlayerID:       reg.PlayerID,
		PartnerID:      reg.PartnerID,
		Status:         string(reg.Status),
		OccurredAt:     time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish registration event",
			slog.String("event", name),
			slog.Int("registration_id", reg.ID),
			slog.Any("error", err),
		)
	}
}

func submitEventName(status models.RegistrationStatus) string {
	switch status {
	case models.RegistrationConfirmed:
		return events.RegistrationConfirmed
	case models.RegistrationWaitlisted:
		return events.RegistrationWaitlisted
	default:
		return events.RegistrationCreated
	}
}
