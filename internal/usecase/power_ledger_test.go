package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/govlock/internal/domain"
)

func TestPowerLedger_LockUnlockScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.at(0)
	res, err := h.ledger.Lock(ctx, alice, uint256.NewInt(100_000))
	require.NoError(t, err)
	assert.Equal(t, uint64(86400), res.UnlockAt)

	h.at(86399)
	_, err = h.ledger.Unlock(ctx, alice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLockPeriodNotExpired))
	var lockErr *domain.LockNotExpiredError
	require.True(t, errors.As(err, &lockErr))
	assert.Equal(t, uint64(86400), lockErr.UnlockAt)
	assert.Equal(t, "100000", h.ledger.LockedAmount(alice).Dec())

	h.at(86400 + 1)
	released, err := h.ledger.Unlock(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "100000", released.Dec())
	assert.True(t, h.ledger.LockedAmount(alice).IsZero())
	assert.Zero(t, h.ledger.LockStart(alice))

	assert.Equal(t, []domain.EventKind{domain.EventTokensLocked, domain.EventTokensUnlocked}, h.sink.kinds())
}

func TestPowerLedger_UnlockAtExactMaturity(t *testing.T) {
	h := newHarness(t)
	h.at(1000)
	h.lock(t, alice, 10)

	h.at(1000 + 86400)
	_, err := h.ledger.Unlock(context.Background(), alice)
	require.NoError(t, err)
}

func TestPowerLedger_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		run     func(h *harness) error
		wantErr error
	}{
		{
			name:    "lock zero",
			run:     func(h *harness) error { _, err := h.ledger.Lock(ctx, alice, uint256.NewInt(0)); return err },
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "lock nil",
			run:     func(h *harness) error { _, err := h.ledger.Lock(ctx, alice, nil); return err },
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "unlock with nothing locked",
			run:     func(h *harness) error { _, err := h.ledger.Unlock(ctx, alice); return err },
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "lock overflow",
			run: func(h *harness) error {
				if _, err := h.ledger.Lock(ctx, alice, new(uint256.Int).SetAllOne()); err != nil {
					return err
				}
				_, err := h.ledger.Lock(ctx, alice, uint256.NewInt(1))
				return err
			},
			wantErr: domain.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := tt.run(h)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
}

func TestPowerLedger_RelockAddsAndRestarts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.at(10)
	h.lock(t, alice, 400)
	h.at(50_000)
	res, err := h.ledger.Lock(ctx, alice, uint256.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, "900", res.Total.Dec())
	assert.Equal(t, uint64(50_000), h.ledger.LockStart(alice))

	// The first lock would have matured at 86410; the restart moves it.
	h.at(86_410)
	_, err = h.ledger.Unlock(ctx, alice)
	assert.True(t, errors.Is(err, domain.ErrLockPeriodNotExpired))
}

func TestPowerLedger_PowerHistory(t *testing.T) {
	h := newHarness(t)

	h.at(100)
	h.lock(t, alice, 1_000_000)
	h.at(200)
	h.lock(t, alice, 3_000_000)

	before := h.ledger.PowerAt(alice, 99)
	assert.True(t, before.Own.IsZero())

	first := h.ledger.PowerAt(alice, 150)
	assert.Equal(t, "1000000", first.Locked.Dec())
	assert.Equal(t, uint64(100), first.LockStart)

	now := h.ledger.PowerAt(alice, 0)
	assert.Equal(t, uint64(200), now.At)
	assert.Equal(t, "4000000", now.Locked.Dec())
	assert.Equal(t, "2000", now.Own.Dec())
	assert.Equal(t, now.Own, now.Effective)
}

func TestPowerLedger_BlockedWhilePaused(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.lock(t, alice, 10)
	require.NoError(t, h.emergency.Pause(ctx, admin, domain.SurfaceGovernor))

	_, err := h.ledger.Lock(ctx, alice, uint256.NewInt(1))
	assert.True(t, errors.Is(err, domain.ErrGovernancePaused))
	_, err = h.ledger.Lock(ctx, alice, uint256.NewInt(0))
	assert.True(t, errors.Is(err, domain.ErrGovernancePaused), "pause is checked before validation")

	h.at(1_000_000)
	_, err = h.ledger.Unlock(ctx, alice)
	assert.True(t, errors.Is(err, domain.ErrGovernancePaused))
	assert.Equal(t, domain.KindPause, domain.KindOf(err))
	assert.Equal(t, "10", h.ledger.LockedAmount(alice).Dec())
}
