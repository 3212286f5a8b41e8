package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

const (
	minDelay   = 2 * 24 * 60 * 60
	escalation = 7 * 24 * 60 * 60
	grace      = 24 * 60 * 60
)

var saltA = common.HexToHash("0x01")

func transferCall() domain.Effect {
	return call(target, "transfer(address,uint256)", make([]byte, 64)...)
}

func grantCall() domain.Effect {
	return call(target, "grantRole(bytes32,address)", make([]byte, 64)...)
}

func schedule(t *testing.T, h *harness, e domain.Effect, predecessor common.Hash, delay uint64) *models.TimelockOperation {
	t.Helper()
	op, err := h.timelock.Schedule(context.Background(), admin, usecase.ScheduleParams{
		Call: e, Predecessor: predecessor, Salt: saltA, Delay: delay,
	})
	require.NoError(t, err)
	return op
}

func TestTimelock_ScheduleValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("delay below minimum", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.timelock.Schedule(ctx, admin, usecase.ScheduleParams{Call: transferCall(), Salt: saltA, Delay: minDelay - 1})
		assert.True(t, errors.Is(err, domain.ErrInsufficientDelay))
		assert.Equal(t, domain.KindTiming, domain.KindOf(err))
	})

	t.Run("caller without proposer role", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.timelock.Schedule(ctx, stranger, usecase.ScheduleParams{Call: transferCall(), Salt: saltA, Delay: minDelay})
		var capErr *domain.CapabilityError
		require.True(t, errors.As(err, &capErr))
		assert.Equal(t, domain.CapabilityProposer, capErr.Capability)
		assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))
	})

	t.Run("duplicate", func(t *testing.T) {
		h := newHarness(t)
		schedule(t, h, transferCall(), common.Hash{}, minDelay)
		_, err := h.timelock.Schedule(ctx, admin, usecase.ScheduleParams{Call: transferCall(), Salt: saltA, Delay: minDelay})
		assert.True(t, errors.Is(err, domain.ErrOperationAlreadyScheduled))
	})

	t.Run("paused", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.emergency.Pause(ctx, admin, domain.SurfaceTimelock))
		_, err := h.timelock.Schedule(ctx, stranger, usecase.ScheduleParams{Call: transferCall(), Salt: saltA, Delay: 0})
		assert.True(t, errors.Is(err, domain.ErrTimelockEmergencyPaused), "pause is reported before role and delay")
	})
}

func TestTimelock_OperationID(t *testing.T) {
	h := newHarness(t)
	e := transferCall()
	op := schedule(t, h, e, common.Hash{}, minDelay)

	id, err := h.timelock.HashOperation(e, common.Hash{}, saltA)
	require.NoError(t, err)
	assert.Equal(t, id, op.ID)

	other, err := h.timelock.HashOperation(e, common.Hash{}, common.HexToHash("0x02"))
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestTimelock_CriticalEscalation(t *testing.T) {
	h := newHarness(t)
	h.at(1_000)

	for i, d := range []uint64{minDelay, minDelay + 1, 30 * 24 * 60 * 60} {
		predecessor := common.BytesToHash([]byte{byte(i + 1)})
		normal := schedule(t, h, transferCall(), predecessor, d)
		critical := schedule(t, h, grantCall(), predecessor, d)

		assert.False(t, normal.Critical)
		assert.Equal(t, uint64(1_000)+d, normal.ETA)
		assert.True(t, critical.Critical)
		assert.Equal(t, "grantRole(bytes32,address)", critical.Fingerprint)
		assert.GreaterOrEqual(t, critical.ETA, uint64(1_000)+d+escalation)
		assert.Greater(t, critical.ETA, normal.ETA)
	}
	assert.Equal(t, 3, h.sink.count(domain.EventCriticalOperation))
	assert.Equal(t, 6, h.sink.count(domain.EventOperationScheduled))
}

func TestTimelock_ExecuteExactlyOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := transferCall()
	op := schedule(t, h, e, common.Hash{}, minDelay)

	h.at(op.ETA - 1)
	_, err := h.timelock.Execute(ctx, bob, e, common.Hash{}, saltA)
	var stateErr *domain.OperationStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, domain.OperationPending, stateErr.Current)
	assert.Empty(t, h.performer.performed())

	h.at(op.ETA)
	done, err := h.timelock.Execute(ctx, bob, e, common.Hash{}, saltA)
	require.NoError(t, err)
	assert.True(t, done.Done)
	assert.Equal(t, bob, done.Executor)
	require.Len(t, h.performer.performed(), 1)
	assert.Equal(t, h.addrs.Timelock, h.performer.callers[0], "effects are performed as the timelock")
	assert.Equal(t, domain.OperationDone, h.timelock.State(op.ID))

	_, err = h.timelock.Execute(ctx, bob, e, common.Hash{}, saltA)
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, domain.OperationDone, stateErr.Current)
	assert.True(t, errors.Is(err, domain.ErrUnexpectedOperationState))
	assert.Len(t, h.performer.performed(), 1)
}

func TestTimelock_NotReadyConditionsShareOneError(t *testing.T) {
	ctx := context.Background()
	e := transferCall()

	tests := []struct {
		name  string
		setup func(t *testing.T, h *harness)
		want  domain.OperationState
	}{
		{"unset", func(t *testing.T, h *harness) {}, domain.OperationUnset},
		{"pending", func(t *testing.T, h *harness) { schedule(t, h, e, common.Hash{}, minDelay) }, domain.OperationPending},
		{"expired", func(t *testing.T, h *harness) {
			schedule(t, h, e, common.Hash{}, minDelay)
			h.at(minDelay + grace)
		}, domain.OperationExpired},
		{"canceled", func(t *testing.T, h *harness) {
			op := schedule(t, h, e, common.Hash{}, minDelay)
			require.NoError(t, h.timelock.Cancel(ctx, admin, op.ID))
			h.at(minDelay)
		}, domain.OperationCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(t, h)
			_, err := h.timelock.Execute(ctx, bob, e, common.Hash{}, saltA)
			require.True(t, errors.Is(err, domain.ErrUnexpectedOperationState))
			var stateErr *domain.OperationStateError
			require.True(t, errors.As(err, &stateErr))
			assert.Equal(t, tt.want, stateErr.Current)
			assert.NotEmpty(t, stateErr.Reason)
		})
	}
}

func TestTimelock_GraceWindow(t *testing.T) {
	h := newHarness(t)
	op := schedule(t, h, transferCall(), common.Hash{}, minDelay)

	h.at(op.ETA + grace - 1)
	assert.Equal(t, domain.OperationReady, h.timelock.State(op.ID))
	h.at(op.ETA + grace)
	assert.Equal(t, domain.OperationExpired, h.timelock.State(op.ID))
}

func TestTimelock_Predecessor(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	first := schedule(t, h, transferCall(), common.Hash{}, minDelay)
	second := grantCall()
	op := schedule(t, h, second, first.ID, minDelay)

	h.at(op.ETA)
	_, err := h.timelock.Execute(ctx, bob, second, first.ID, saltA)
	assert.True(t, errors.Is(err, domain.ErrUnexecutedPredecessor))

	_, err = h.timelock.Execute(ctx, bob, transferCall(), common.Hash{}, saltA)
	require.NoError(t, err)
	_, err = h.timelock.Execute(ctx, bob, second, first.ID, saltA)
	require.NoError(t, err)
}

func TestTimelock_ScheduleChainIsAtomic(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	schedule(t, h, grantCall(), common.Hash{}, minDelay)
	_, err := h.timelock.ScheduleChain(ctx, admin, []domain.Effect{transferCall(), grantCall()}, saltA, minDelay)
	require.NoError(t, err)
	// The first link of this chain collides with the single operation.
	_, err = h.timelock.ScheduleChain(ctx, admin, []domain.Effect{grantCall(), transferCall()}, saltA, minDelay)
	assert.True(t, errors.Is(err, domain.ErrOperationAlreadyScheduled))
	assert.Len(t, h.timelock.List(), 3)

	ops, err := h.timelock.ScheduleChain(ctx, admin, []domain.Effect{transferCall(), transferCall()}, common.HexToHash("0x03"), minDelay)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, ops[0].ID, ops[1].Predecessor)
}

func TestTimelock_ScheduleChainSharesEscalatedETA(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		calls []domain.Effect
		delay uint64
	}{
		{"critical link first", []domain.Effect{grantCall(), transferCall()}, minDelay + escalation},
		{"critical link last", []domain.Effect{transferCall(), grantCall()}, minDelay + escalation},
		{"no critical link", []domain.Effect{transferCall(), transferCall()}, minDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ops, err := h.timelock.ScheduleChain(ctx, admin, tt.calls, saltA, minDelay)
			require.NoError(t, err)
			require.Len(t, ops, 2)
			for _, op := range ops {
				assert.Equal(t, tt.delay, op.EffectiveDelay)
				assert.Equal(t, tt.delay, op.ETA)
				assert.Equal(t, uint64(minDelay), op.RequestedDelay)
			}

			h.at(tt.delay - 1)
			_, err = h.timelock.Execute(ctx, bob, tt.calls[0], common.Hash{}, saltA)
			assert.True(t, errors.Is(err, domain.ErrUnexpectedOperationState))

			// Every link is still executable once the escalated predecessor is.
			h.at(tt.delay + grace - 1)
			_, err = h.timelock.Execute(ctx, bob, tt.calls[0], common.Hash{}, saltA)
			require.NoError(t, err)
			_, err = h.timelock.Execute(ctx, bob, tt.calls[1], ops[0].ID, saltA)
			require.NoError(t, err)
			assert.Equal(t, domain.OperationDone, h.timelock.State(ops[1].ID))
		})
	}
}

func TestTimelock_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending and ready are cancelable", func(t *testing.T) {
		h := newHarness(t)
		op := schedule(t, h, transferCall(), common.Hash{}, minDelay)
		require.NoError(t, h.timelock.Cancel(ctx, admin, op.ID))
		assert.Equal(t, domain.OperationCanceled, h.timelock.State(op.ID))

		other := schedule(t, h, grantCall(), common.Hash{}, minDelay)
		h.at(other.ETA)
		require.NoError(t, h.timelock.Cancel(ctx, admin, other.ID))
		assert.Equal(t, 2, h.sink.count(domain.EventOperationCanceled))
	})

	t.Run("done is not", func(t *testing.T) {
		h := newHarness(t)
		op := schedule(t, h, transferCall(), common.Hash{}, minDelay)
		h.at(op.ETA)
		_, err := h.timelock.Execute(ctx, bob, transferCall(), common.Hash{}, saltA)
		require.NoError(t, err)
		err = h.timelock.Cancel(ctx, admin, op.ID)
		assert.True(t, errors.Is(err, domain.ErrUnexpectedOperationState))
	})

	t.Run("canceled is terminal", func(t *testing.T) {
		h := newHarness(t)
		op := schedule(t, h, transferCall(), common.Hash{}, minDelay)
		require.NoError(t, h.timelock.Cancel(ctx, admin, op.ID))
		assert.True(t, errors.Is(h.timelock.Cancel(ctx, admin, op.ID), domain.ErrUnexpectedOperationState))
		_, err := h.timelock.Schedule(ctx, admin, usecase.ScheduleParams{Call: transferCall(), Salt: saltA, Delay: minDelay})
		assert.True(t, errors.Is(err, domain.ErrOperationAlreadyScheduled))
	})

	t.Run("requires canceller", func(t *testing.T) {
		h := newHarness(t)
		op := schedule(t, h, transferCall(), common.Hash{}, minDelay)
		assert.True(t, errors.Is(h.timelock.Cancel(ctx, stranger, op.ID), domain.ErrUnauthorized))
	})
}

func TestTimelock_ExecuteWhilePaused(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		allowed bool
	}{
		{"ready operations stay executable", true},
		{"pause blocks execution", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(s *models.State) { s.Timelock.ExecuteWhilePaused = tt.allowed })
			op := schedule(t, h, transferCall(), common.Hash{}, minDelay)
			require.NoError(t, h.emergency.Pause(ctx, admin, domain.SurfaceTimelock))

			h.at(op.ETA)
			_, err := h.timelock.Execute(ctx, bob, transferCall(), common.Hash{}, saltA)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, domain.OperationDone, h.timelock.State(op.ID))
				return
			}
			assert.True(t, errors.Is(err, domain.ErrTimelockEmergencyPaused))
			assert.Equal(t, domain.OperationReady, h.timelock.State(op.ID))

			require.NoError(t, h.emergency.Unpause(ctx, admin, domain.SurfaceTimelock))
			_, err = h.timelock.Execute(ctx, bob, transferCall(), common.Hash{}, saltA)
			require.NoError(t, err)
		})
	}
}

func TestTimelock_PauseBlocksCancelAndUpdateDelay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	op := schedule(t, h, transferCall(), common.Hash{}, minDelay)
	require.NoError(t, h.emergency.Pause(ctx, admin, domain.SurfaceTimelock))

	err := h.timelock.Cancel(ctx, admin, op.ID)
	assert.True(t, errors.Is(err, domain.ErrTimelockEmergencyPaused))
	assert.Equal(t, domain.OperationPending, h.timelock.State(op.ID))

	err = h.timelock.UpdateDelay(ctx, h.addrs.Timelock, 10)
	assert.True(t, errors.Is(err, domain.ErrTimelockEmergencyPaused))
	assert.Equal(t, uint64(minDelay), h.timelock.Settings().MinDelay)

	require.NoError(t, h.emergency.Unpause(ctx, admin, domain.SurfaceTimelock))
	require.NoError(t, h.timelock.Cancel(ctx, admin, op.ID))
	require.NoError(t, h.timelock.UpdateDelay(ctx, h.addrs.Timelock, 10))
}

func TestTimelock_EffectFailureLeavesOperationReady(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	op := schedule(t, h, transferCall(), common.Hash{}, minDelay)
	h.performer.hook = func(context.Context, common.Address, domain.Effect) error {
		return errors.New("reverted")
	}

	h.at(op.ETA)
	_, err := h.timelock.Execute(ctx, bob, transferCall(), common.Hash{}, saltA)
	assert.True(t, errors.Is(err, domain.ErrEffectFailed))
	assert.Equal(t, domain.OperationReady, h.timelock.State(op.ID))
	assert.Zero(t, h.sink.count(domain.EventOperationExecuted))

	h.performer.hook = nil
	_, err = h.timelock.Execute(ctx, bob, transferCall(), common.Hash{}, saltA)
	require.NoError(t, err)
}

func TestTimelock_ReentrantExecuteAndCancelFail(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	op := schedule(t, h, transferCall(), common.Hash{}, minDelay)

	var reentrant, cancel error
	h.performer.hook = func(ctx context.Context, _ common.Address, e domain.Effect) error {
		_, reentrant = h.timelock.Execute(ctx, bob, e, common.Hash{}, saltA)
		cancel = h.timelock.Cancel(ctx, admin, op.ID)
		return nil
	}

	h.at(op.ETA)
	_, err := h.timelock.Execute(ctx, bob, transferCall(), common.Hash{}, saltA)
	require.NoError(t, err)
	assert.True(t, errors.Is(reentrant, domain.ErrUnexpectedOperationState))
	assert.True(t, errors.Is(cancel, domain.ErrUnexpectedOperationState))
	assert.Len(t, h.performer.performed(), 1)
	assert.Equal(t, domain.OperationDone, h.timelock.State(op.ID))
}

func TestTimelock_UpdateDelay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	err := h.timelock.UpdateDelay(ctx, admin, 10)
	assert.True(t, errors.Is(err, domain.ErrOnlyTimelock))

	require.NoError(t, h.timelock.UpdateDelay(ctx, h.addrs.Timelock, 10))
	assert.Equal(t, uint64(10), h.timelock.Settings().MinDelay)
	assert.Equal(t, 1, h.sink.count(domain.EventMinDelayChanged))
}

func TestTimelock_ListOrderedByETA(t *testing.T) {
	h := newHarness(t)
	late := schedule(t, h, grantCall(), common.Hash{}, minDelay)
	early := schedule(t, h, transferCall(), common.Hash{}, minDelay)

	views := h.timelock.List()
	require.Len(t, views, 2)
	assert.Equal(t, early.ID, views[0].Operation.ID)
	assert.Equal(t, late.ID, views[1].Operation.ID)
	assert.Equal(t, hexutil.Encode(transferCall().Payload), hexutil.Encode(views[0].Operation.Call.Payload))
}
