package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/Dosada05/federation-system/models"
	"github.com/Dosada05/federation-system/repositories"
)

// AllocationOutcome is the result of one slot reservation attempt.
// When SlotReserved is false the claimant goes to the waitlist at Position.
type AllocationOutcome struct {
	SlotReserved bool
	Position     int
}

// CapacityAllocator owns the per-category critical section and the
// confirmed-slot counter. The mutex is keyed by category id so requests for
// unrelated categories proceed fully in parallel; the guarded counter UPDATE
// in SlotRepository keeps the capacity invariant across processes as well.
type CapacityAllocator struct {
	slots         repositories.SlotRepository
	registrations repositories.RegistrationRepository

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewCapacityAllocator(
	slots repositories.SlotRepository,
	registrations repositories.RegistrationRepository,
) *CapacityAllocator {
	return &CapacityAllocator{
		slots:         slots,
		registrations: registrations,
		locks:         make(map[int]*sync.Mutex),
	}
}

func (a *CapacityAllocator) categoryLock(categoryID int) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[categoryID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[categoryID] = l
	}
	return l
}

// WithCategory runs fn while holding the category's critical section.
// Partner-claim validation and slot allocation for the same category must
// both happen inside it; eligibility evaluation stays outside (read-only).
func (a *CapacityAllocator) WithCategory(categoryID int, fn func() error) error {
	l := a.categoryLock(categoryID)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Reserve attempts to take one confirmed slot. On a full category it returns
// the claimant's 1-based waitlist position instead; a full category is a
// waitlist outcome, never a rejection.
func (a *CapacityAllocator) Reserve(ctx context.Context, category *models.Category) (AllocationOutcome, error) {
	if err := a.slots.EnsureRow(ctx, category.ID); err != nil {
		return AllocationOutcome{}, err
	}

	reserved, err := a.slots.TryReserve(ctx, category.ID, category.MaxParticipants)
	if err != nil {
		return AllocationOutcome{}, err
	}
	if reserved {
		return AllocationOutcome{SlotReserved: true}, nil
	}

	waiting, err := a.registrations.CountWaitlisted(ctx, category.ID)
	if err != nil {
		return AllocationOutcome{}, err
	}
	return AllocationOutcome{Position: waiting + 1}, nil
}

// Release frees one confirmed slot, compensating a failed commit or serving
// a withdrawal.
func (a *CapacityAllocator) Release(ctx context.Context, categoryID int) error {
	return a.slots.Release(ctx, categoryID)
}

// Occupancy reads the category's current slot usage.
func (a *CapacityAllocator) Occupancy(ctx context.Context, category *models.Category) (*models.Occupancy, error) {
	confirmed, err := a.slots.ConfirmedCount(ctx, category.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read occupancy: %w", err)
	}
	waiting, err := a.registrations.CountWaitlisted(ctx, category.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read waitlist length: %w", err)
	}
	return &models.Occupancy{
		CategoryID: category.ID,
		Confirmed:  confirmed,
		Capacity:   category.MaxParticipants,
		Waitlist:   waiting,
	}, nil
}
