package services

import (
	"context"
	"testing"

	"github.com/Dosada05/federation-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedgerFixture() (*fakeStore, *LedgerService) {
	store := newFakeStore()
	ledger := NewLedgerService(&fakeRegistrationRepo{s: store}, &fakeStatusChangeRepo{s: store})
	return store, ledger
}

func TestLedgerCreate_RecordsCreationEntry(t *testing.T) {
	store, ledger := newLedgerFixture()

	reg := &models.Registration{
		TournamentID:  1,
		CategoryID:    10,
		PlayerID:      1,
		Status:        models.RegistrationConfirmed,
		PaymentStatus: models.PaymentPending,
	}
	require.NoError(t, ledger.Create(context.Background(), reg))
	require.NotZero(t, reg.ID)

	history, err := ledger.History(context.Background(), reg.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, models.RegistrationConfirmed, history[0].ToStatus)
	_ = store
}

func TestLedgerTransition(t *testing.T) {
	t.Run("valid transition appends history", func(t *testing.T) {
		_, ledger := newLedgerFixture()
		reg := &models.Registration{CategoryID: 10, PlayerID: 1, Status: models.RegistrationRegistered}
		require.NoError(t, ledger.Create(context.Background(), reg))

		updated, changed, err := ledger.Transition(context.Background(), reg.ID, models.RegistrationConfirmed)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, models.RegistrationConfirmed, updated.Status)

		history, err := ledger.History(context.Background(), reg.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		require.NotNil(t, history[1].FromStatus)
		assert.Equal(t, models.RegistrationRegistered, *history[1].FromStatus)
		assert.Equal(t, models.RegistrationConfirmed, history[1].ToStatus)
	})

	t.Run("replay is a no-op without a duplicate history row", func(t *testing.T) {
		_, ledger := newLedgerFixture()
		reg := &models.Registration{CategoryID: 10, PlayerID: 1, Status: models.RegistrationConfirmed}
		require.NoError(t, ledger.Create(context.Background(), reg))

		updated, changed, err := ledger.Transition(context.Background(), reg.ID, models.RegistrationConfirmed)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, models.RegistrationConfirmed, updated.Status)

		history, err := ledger.History(context.Background(), reg.ID)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("illegal transition fails and leaves state unchanged", func(t *testing.T) {
		_, ledger := newLedgerFixture()
		reg := &models.Registration{CategoryID: 10, PlayerID: 1, Status: models.RegistrationWithdrawn}
		require.NoError(t, ledger.Create(context.Background(), reg))

		_, _, err := ledger.Transition(context.Background(), reg.ID, models.RegistrationConfirmed)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		history, err := ledger.History(context.Background(), reg.ID)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("unknown registration", func(t *testing.T) {
		_, ledger := newLedgerFixture()
		_, _, err := ledger.Transition(context.Background(), 999, models.RegistrationWithdrawn)
		assert.ErrorIs(t, err, ErrRegistrationNotFound)
	})
}

func TestLedgerRecordPayment(t *testing.T) {
	t.Run("books amount and status", func(t *testing.T) {
		_, ledger := newLedgerFixture()
		reg := &models.Registration{CategoryID: 10, PlayerID: 1, Status: models.RegistrationRegistered, PaymentStatus: models.PaymentPending}
		require.NoError(t, ledger.Create(context.Background(), reg))

		updated, changed, err := ledger.RecordPayment(context.Background(), reg.ID, 2500, models.PaymentPaid)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, models.PaymentPaid, updated.PaymentStatus)
		require.NotNil(t, updated.AmountPaidCents)
		assert.Equal(t, int64(2500), *updated.AmountPaidCents)
	})

	t.Run("replay of the same outcome is a no-op", func(t *testing.T) {
		_, ledger := newLedgerFixture()
		reg := &models.Registration{CategoryID: 10, PlayerID: 1, Status: models.RegistrationRegistered, PaymentStatus: models.PaymentPending}
		require.NoError(t, ledger.Create(context.Background(), reg))

		_, _, err := ledger.RecordPayment(context.Background(), reg.ID, 2500, models.PaymentPaid)
		require.NoError(t, err)
		_, changed, err := ledger.RecordPayment(context.Background(), reg.ID, 2500, models.PaymentPaid)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("rejects unknown payment status", func(t *testing.T) {
		_, ledger := newLedgerFixture()
		reg := &models.Registration{CategoryID: 10, PlayerID: 1, Status: models.RegistrationRegistered}
		require.NoError(t, ledger.Create(context.Background(), reg))

		_, _, err := ledger.RecordPayment(context.Background(), reg.ID, 100, models.PaymentStatus("settled"))
		assert.ErrorIs(t, err, ErrInvalidPaymentStatus)
	})
}
