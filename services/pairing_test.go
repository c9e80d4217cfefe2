package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/federation-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPairingFixture() (*fakeStore, *PairingService) {
	store := newFakeStore()
	pairing := NewPairingService(&fakePlayerRepo{s: store}, &fakeRegistrationRepo{s: store})
	return store, pairing
}

func TestValidatePair(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	category := &models.Category{
		ID:     10,
		Gender: models.CategoryGenderAny,
		Format: models.FormatDoubles,
		MinAge: intPtr(18),
	}
	requester := testPlayer(1, models.PlayerMale, time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), 5)

	t.Run("rejects self as partner", func(t *testing.T) {
		_, pairing := newPairingFixture()
		_, err := pairing.ValidatePair(context.Background(), category, requester, requester.ID, now)
		assert.ErrorIs(t, err, ErrSelfPartner)
	})

	t.Run("rejects unknown partner", func(t *testing.T) {
		_, pairing := newPairingFixture()
		_, err := pairing.ValidatePair(context.Background(), category, requester, 99, now)
		assert.ErrorIs(t, err, ErrPlayerNotFound)
	})

	t.Run("rejects ineligible partner", func(t *testing.T) {
		store, pairing := newPairingFixture()
		minor := testPlayer(2, models.PlayerFemale, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), 5)
		store.players[minor.ID] = minor

		_, err := pairing.ValidatePair(context.Background(), category, requester, minor.ID, now)
		assert.ErrorIs(t, err, ErrPartnerIneligible)
	})

	t.Run("rejects partner already in the pool", func(t *testing.T) {
		store, pairing := newPairingFixture()
		partner := testPlayer(2, models.PlayerFemale, time.Date(1992, 1, 1, 0, 0, 0, 0, time.UTC), 5)
		store.players[partner.ID] = partner
		store.registrations[1] = &models.Registration{
			ID:         1,
			CategoryID: category.ID,
			PlayerID:   partner.ID,
			Status:     models.RegistrationConfirmed,
		}

		_, err := pairing.ValidatePair(context.Background(), category, requester, partner.ID, now)
		assert.ErrorIs(t, err, ErrPartnerAlreadyRegistered)
	})

	t.Run("rejects partner bound as someone else's partner", func(t *testing.T) {
		store, pairing := newPairingFixture()
		partner := testPlayer(2, models.PlayerFemale, time.Date(1992, 1, 1, 0, 0, 0, 0, time.UTC), 5)
		store.players[partner.ID] = partner
		partnerID := partner.ID
		store.registrations[1] = &models.Registration{
			ID:         1,
			CategoryID: category.ID,
			PlayerID:   7,
			PartnerID:  &partnerID,
			Status:     models.RegistrationWaitlisted,
		}

		_, err := pairing.ValidatePair(context.Background(), category, requester, partner.ID, now)
		assert.ErrorIs(t, err, ErrPartnerAlreadyRegistered)
	})

	t.Run("withdrawn registration frees the partner", func(t *testing.T) {
		store, pairing := newPairingFixture()
		partner := testPlayer(2, models.PlayerFemale, time.Date(1992, 1, 1, 0, 0, 0, 0, time.UTC), 5)
		store.players[partner.ID] = partner
		store.registrations[1] = &models.Registration{
			ID:         1,
			CategoryID: category.ID,
			PlayerID:   partner.ID,
			Status:     models.RegistrationWithdrawn,
		}

		got, err := pairing.ValidatePair(context.Background(), category, requester, partner.ID, now)
		require.NoError(t, err)
		assert.Equal(t, partner.ID, got.ID)
	})

	t.Run("active claim in another category does not block", func(t *testing.T) {
		store, pairing := newPairingFixture()
		partner := testPlayer(2, models.PlayerFemale, time.Date(1992, 1, 1, 0, 0, 0, 0, time.UTC), 5)
		store.players[partner.ID] = partner
		store.registrations[1] = &models.Registration{
			ID:         1,
			CategoryID: 777,
			PlayerID:   partner.ID,
			Status:     models.RegistrationConfirmed,
		}

		_, err := pairing.ValidatePair(context.Background(), category, requester, partner.ID, now)
		require.NoError(t, err)
	})
}

func TestCheckPartnerFree_ExceptSkipsOwnRegistration(t *testing.T) {
	store, pairing := newPairingFixture()
	partnerID := 2
	store.registrations[5] = &models.Registration{
		ID:         5,
		CategoryID: 10,
		PlayerID:   1,
		PartnerID:  &partnerID,
		Status:     models.RegistrationWaitlisted,
	}

	// Re-validation of registration 5 itself must not see its own claim.
	require.NoError(t, pairing.CheckPartnerFree(context.Background(), 10, partnerID, 5))
	assert.ErrorIs(t, pairing.CheckPartnerFree(context.Background(), 10, partnerID, 0), ErrPartnerAlreadyRegistered)
}
