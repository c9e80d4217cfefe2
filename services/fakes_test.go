package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/federation-system/models"
	"github.com/Dosada05/federation-system/repositories"
)

// fakeStore is a shared in-memory backing store for the repository fakes.
// All methods take the store mutex so concurrency tests can hammer it from
// multiple goroutines.
type fakeStore struct {
	mu sync.Mutex

	tournaments map[int]*models.Tournament
	categories  map[int]*models.Category
	players     map[int]*models.Player

	registrations map[int]*models.Registration
	nextRegID     int

	slots map[int]int

	history       []*models.StatusChange
	nextHistoryID int64

	// Error injection for orchestrator failure paths.
	createErrs []error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tournaments:   make(map[int]*models.Tournament),
		categories:    make(map[int]*models.Category),
		players:       make(map[int]*models.Player),
		registrations: make(map[int]*models.Registration),
		slots:         make(map[int]int),
		nextRegID:     1,
		nextHistoryID: 1,
	}
}

func (s *fakeStore) failNextCreates(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErrs = append(s.createErrs, errs...)
}

func copyRegistration(reg *models.Registration) *models.Registration {
	out := *reg
	if reg.PartnerID != nil {
		partnerID := *reg.PartnerID
		out.PartnerID = &partnerID
	}
	if reg.AmountPaidCents != nil {
		amount := *reg.AmountPaidCents
		out.AmountPaidCents = &amount
	}
	return &out
}

type fakeTournamentRepo struct{ s *fakeStore }

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	out := *t
	return &out, nil
}

type fakeCategoryRepo struct{ s *fakeStore }

func (r *fakeCategoryRepo) GetByID(_ context.Context, id int) (*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, repositories.ErrCategoryNotFound
	}
	out := *c
	return &out, nil
}

func (r *fakeCategoryRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Category
	for _, c := range r.s.categories {
		if c.TournamentID == tournamentID {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakePlayerRepo struct{ s *fakeStore }

func (r *fakePlayerRepo) GetByID(_ context.Context, id int) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	out := *p
	return &out, nil
}

func (r *fakePlayerRepo) Search(_ context.Context, query string, limit int) ([]*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Player
	for _, p := range r.s.players {
		pp := *p
		out = append(out, &pp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeRegistrationRepo struct{ s *fakeStore }

func (r *fakeRegistrationRepo) Create(_ context.Context, reg *models.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.createErrs) > 0 {
		err := r.s.createErrs[0]
		r.s.createErrs = r.s.createErrs[1:]
		return err
	}
	reg.ID = r.s.nextRegID
	r.s.nextRegID++
	reg.CreatedAt = time.Now()
	reg.UpdatedAt = reg.CreatedAt
	r.s.registrations[reg.ID] = copyRegistration(reg)
	return nil
}

func (r *fakeRegistrationRepo) FindByID(_ context.Context, id int) (*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	return copyRegistration(reg), nil
}

func (r *fakeRegistrationRepo) UpdateStatus(_ context.Context, id int, status models.RegistrationStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	reg.Status = status
	reg.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRegistrationRepo) UpdatePayment(_ context.Context, id int, status models.PaymentStatus, amountCents *int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	reg.PaymentStatus = status
	if amountCents != nil {
		amount := *amountCents
		reg.AmountPaidCents = &amount
	}
	reg.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRegistrationRepo) FindActiveInvolving(_ context.Context, categoryID, playerID, exceptID int) (*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, reg := range r.s.registrations {
		if reg.CategoryID != categoryID || reg.ID == exceptID {
			continue
		}
		if reg.Status == models.RegistrationWithdrawn {
			continue
		}
		if reg.Involves(playerID) {
			return copyRegistration(reg), nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) ListWaitlisted(_ context.Context, categoryID int) ([]*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Registration
	for _, reg := range r.s.registrations {
		if reg.CategoryID == categoryID && reg.Status == models.RegistrationWaitlisted {
			out = append(out, copyRegistration(reg))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeRegistrationRepo) CountWaitlisted(ctx context.Context, categoryID int) (int, error) {
	waitlisted, err := r.ListWaitlisted(ctx, categoryID)
	if err != nil {
		return 0, err
	}
	return len(waitlisted), nil
}

func (r *fakeRegistrationRepo) ListByCategory(_ context.Context, categoryID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Registration
	for _, reg := range r.s.registrations {
		if reg.CategoryID != categoryID {
			continue
		}
		if statusFilter != nil && reg.Status != *statusFilter {
			continue
		}
		out = append(out, copyRegistration(reg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeSlotRepo struct{ s *fakeStore }

func (r *fakeSlotRepo) EnsureRow(_ context.Context, categoryID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.slots[categoryID]; !ok {
		r.s.slots[categoryID] = 0
	}
	return nil
}

func (r *fakeSlotRepo) TryReserve(_ context.Context, categoryID int, capacity *int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if capacity != nil && r.s.slots[categoryID] >= *capacity {
		return false, nil
	}
	r.s.slots[categoryID]++
	return true, nil
}

func (r *fakeSlotRepo) Release(_ context.Context, categoryID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.slots[categoryID] <= 0 {
		return repositories.ErrSlotRowMissing
	}
	r.s.slots[categoryID]--
	return nil
}

func (r *fakeSlotRepo) ConfirmedCount(_ context.Context, categoryID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.slots[categoryID], nil
}

type fakeStatusChangeRepo struct{ s *fakeStore }

func (r *fakeStatusChangeRepo) Append(_ context.Context, change *models.StatusChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	change.ID = r.s.nextHistoryID
	r.s.nextHistoryID++
	change.RecordedAt = time.Now()
	stored := *change
	if change.FromStatus != nil {
		from := *change.FromStatus
		stored.FromStatus = &from
	}
	r.s.history = append(r.s.history, &stored)
	return nil
}

func (r *fakeStatusChangeRepo) ListByRegistration(_ context.Context, registrationID int) ([]*models.StatusChange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.StatusChange
	for _, c := range r.s.history {
		if c.RegistrationID == registrationID {
			cc := *c
			out = append(out, &cc)
		}
	}
	return out, nil
}

func (r *fakeStatusChangeRepo) ListByCategory(_ context.Context, categoryID int) ([]*models.StatusChange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.StatusChange
	for _, c := range r.s.history {
		reg, ok := r.s.registrations[c.RegistrationID]
		if ok && reg.CategoryID == categoryID {
			cc := *c
			out = append(out, &cc)
		}
	}
	return out, nil
}
