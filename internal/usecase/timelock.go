package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// TimelockExecutor schedules calls behind a delay, escalates the delay of
// critical calls and gates their execution.
type TimelockExecutor struct {
	holder    *StateHolder
	caps      CapabilityRegistry
	detector  *CriticalDetector
	performer EffectPerformer
	events    EventSink
	log       *slog.Logger
	self      common.Address

	// executing holds the ids whose effect is currently being performed.
	// Guarded by the holder lock.
	executing map[common.Hash]struct{}
}

// NewTimelockExecutor creates a new timelock executor
func NewTimelockExecutor(
	holder *StateHolder,
	caps CapabilityRegistry,
	detector *CriticalDetector,
	performer EffectPerformer,
	events EventSink,
	addrs domain.Addresses,
	log *slog.Logger,
) *TimelockExecutor {
	return &TimelockExecutor{
		holder:    holder,
		caps:      caps,
		detector:  detector,
		performer: performer,
		events:    events,
		log:       log.With("component", "TimelockExecutor"),
		self:      addrs.Timelock,
		executing: make(map[common.Hash]struct{}),
	}
}

// ScheduleParams describes one call to schedule
type ScheduleParams struct {
	Call        domain.Effect
	Predecessor common.Hash
	Salt        common.Hash
	Delay       uint64
}

// HashOperation derives the id an operation is stored under.
func (t *TimelockExecutor) HashOperation(call domain.Effect, predecessor, salt common.Hash) (common.Hash, error) {
	return domain.HashOperation(call, predecessor, salt)
}

// Schedule registers a single call.
func (t *TimelockExecutor) Schedule(ctx context.Context, caller common.Address, params ScheduleParams) (*models.TimelockOperation, error) {
	ops, err := t.schedule(ctx, caller, []ScheduleParams{params}, false)
	if err != nil {
		return nil, err
	}
	return ops[0], nil
}

// ScheduleChain registers calls so that each one has the previous call as
// predecessor. Either every call is scheduled or none is. The chain shares
// one eta: when any link is critical every link carries the escalation,
// otherwise later links would expire while waiting for an escalated
// predecessor.
func (t *TimelockExecutor) ScheduleChain(ctx context.Context, caller common.Address, calls []domain.Effect, salt common.Hash, delay uint64) ([]*models.TimelockOperation, error) {
	if len(calls) == 0 {
		return nil, domain.ErrInvalidProposalLength
	}
	batch := make([]ScheduleParams, len(calls))
	var predecessor common.Hash
	for i, call := range calls {
		id, err := domain.HashOperation(call, predecessor, salt)
		if err != nil {
			return nil, err
		}
		batch[i] = ScheduleParams{Call: call, Predecessor: predecessor, Salt: salt, Delay: delay}
		predecessor = id
	}
	return t.schedule(ctx, caller, batch, true)
}

func (t *TimelockExecutor) schedule(ctx context.Context, caller common.Address, batch []ScheduleParams, chain bool) ([]*models.TimelockOperation, error) {
	var scheduled []*models.TimelockOperation
	var events []domain.Event
	err := t.holder.Update(func(s *models.State, now uint64) error {
		if err := timelockPaused(s); err != nil {
			return err
		}
		if err := requireCapability(t.caps, caller, domain.CapabilityProposer); err != nil {
			return err
		}

		pending := make(map[common.Hash]*models.TimelockOperation, len(batch))
		ops := make([]*models.TimelockOperation, 0, len(batch))
		for _, p := range batch {
			if p.Delay < s.Timelock.MinDelay {
				return fmt.Errorf("%w: delay %d is below the minimum %d", domain.ErrInsufficientDelay, p.Delay, s.Timelock.MinDelay)
			}
			id, err := domain.HashOperation(p.Call, p.Predecessor, p.Salt)
			if err != nil {
				return err
			}
			if _, exists := s.Operations[id]; exists {
				return fmt.Errorf("%w: %s", domain.ErrOperationAlreadyScheduled, id.Hex())
			}
			if _, exists := pending[id]; exists {
				return fmt.Errorf("%w: %s", domain.ErrOperationAlreadyScheduled, id.Hex())
			}

			op := &models.TimelockOperation{
				ID:             id,
				Predecessor:    p.Predecessor,
				Salt:           p.Salt,
				Call:           p.Call.Clone(),
				Proposer:       caller,
				ScheduledAt:    now,
				RequestedDelay: p.Delay,
				EffectiveDelay: p.Delay,
				GracePeriod:    s.Timelock.GracePeriod,
			}
			if fp, critical := t.detector.Match(p.Call); critical {
				op.Critical = true
				op.Fingerprint = fp.Signature
				op.EffectiveDelay = addSaturating(p.Delay, s.Timelock.CriticalEscalation)
			}
			op.ETA = addSaturating(now, op.EffectiveDelay)

			pending[id] = op
			ops = append(ops, op)
		}

		if chain {
			shared := lo.MaxBy(ops, func(a, b *models.TimelockOperation) bool { return a.EffectiveDelay > b.EffectiveDelay }).EffectiveDelay
			for _, op := range ops {
				op.EffectiveDelay = shared
				op.ETA = addSaturating(now, shared)
			}
		}

		for _, op := range ops {
			s.Operations[op.ID] = op
			scheduled = append(scheduled, op.Clone())
			events = append(events, scheduledEvents(op, caller)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, op := range scheduled {
		if op.Critical {
			t.log.Warn("critical operation scheduled", "id", op.ID, "fingerprint", op.Fingerprint, "effectiveDelay", op.EffectiveDelay, "eta", op.ETA)
		} else {
			t.log.Debug("operation scheduled", "id", op.ID, "eta", op.ETA)
		}
	}
	publish(ctx, t.events, t.log, events)
	return scheduled, nil
}

func scheduledEvents(op *models.TimelockOperation, caller common.Address) []domain.Event {
	events := []domain.Event{{
		Kind:    domain.EventOperationScheduled,
		Surface: domain.SurfaceTimelock,
		At:      op.ScheduledAt,
		Actor:   caller,
		Subject: op.ID.Hex(),
		Attrs: attrs(
			"target", op.Call.Target.Hex(),
			"value", op.Call.ValueOrZero().Dec(),
			"predecessor", op.Predecessor.Hex(),
			"delay", strconv.FormatUint(op.EffectiveDelay, 10),
			"eta", strconv.FormatUint(op.ETA, 10),
		),
	}}
	if op.Critical {
		events = append(events, domain.Event{
			Kind:    domain.EventCriticalOperation,
			Surface: domain.SurfaceTimelock,
			At:      op.ScheduledAt,
			Actor:   caller,
			Subject: op.ID.Hex(),
			Attrs: attrs(
				"fingerprint", op.Fingerprint,
				"requestedDelay", strconv.FormatUint(op.RequestedDelay, 10),
				"effectiveDelay", strconv.FormatUint(op.EffectiveDelay, 10),
			),
		})
	}
	return events
}

// Execute performs a Ready operation exactly once. The state lock is
// released while the effect runs and the operation is re-validated before
// it is marked Done; on effect failure nothing is recorded.
func (t *TimelockExecutor) Execute(ctx context.Context, caller common.Address, call domain.Effect, predecessor, salt common.Hash) (*models.TimelockOperation, error) {
	id, err := domain.HashOperation(call, predecessor, salt)
	if err != nil {
		return nil, err
	}

	err = t.holder.View(func(s *models.State, now uint64) error {
		if s.TimelockPause.Paused && !s.Timelock.ExecuteWhilePaused {
			return domain.ErrTimelockEmergencyPaused
		}
		if !t.caps.HasCapability(caller, domain.CapabilityExecutor) &&
			!t.caps.HasCapability(common.Address{}, domain.CapabilityExecutor) {
			return &domain.CapabilityError{Account: caller, Capability: domain.CapabilityExecutor}
		}
		if _, busy := t.executing[id]; busy {
			return &domain.OperationStateError{ID: id, Current: domain.OperationReady, Expected: []domain.OperationState{domain.OperationReady}, Reason: "execution in progress"}
		}
		op := s.Operations[id]
		if err := requireReady(op, id, now); err != nil {
			return err
		}
		if predecessor != (common.Hash{}) {
			if st := s.Operations[predecessor].StateAt(now); st != domain.OperationDone {
				return fmt.Errorf("%w: %s is %s", domain.ErrUnexecutedPredecessor, predecessor.Hex(), st)
			}
		}
		t.executing[id] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.log.Debug("performing operation", "id", id, "target", call.Target)
	_, performErr := t.performer.Perform(ctx, t.self, call)

	var done *models.TimelockOperation
	var events []domain.Event
	err = t.holder.Update(func(s *models.State, now uint64) error {
		delete(t.executing, id)
		if performErr != nil {
			return fmt.Errorf("%w: operation %s: %w", domain.ErrEffectFailed, id.Hex(), performErr)
		}
		op := s.Operations[id]
		if op == nil || op.Done || op.Canceled {
			return &domain.OperationStateError{ID: id, Current: op.StateAt(now), Expected: []domain.OperationState{domain.OperationReady}, Reason: "changed while executing"}
		}
		op.Done = true
		op.ExecutedAt = now
		op.Executor = caller
		done = op.Clone()
		events = append(events, domain.Event{
			Kind:    domain.EventOperationExecuted,
			Surface: domain.SurfaceTimelock,
			At:      now,
			Actor:   caller,
			Subject: id.Hex(),
			Attrs:   attrs("target", call.Target.Hex(), "value", call.ValueOrZero().Dec()),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrEffectFailed) {
			t.log.Error("operation effect failed", "id", id, "error", performErr)
		}
		return nil, err
	}

	t.log.Debug("operation executed", "id", id)
	publish(ctx, t.events, t.log, events)
	return done, nil
}

// requireReady folds every not-executable condition into one state error;
// Reason tells them apart.
func requireReady(op *models.TimelockOperation, id common.Hash, now uint64) error {
	st := op.StateAt(now)
	if st == domain.OperationReady {
		return nil
	}
	reason := ""
	switch st {
	case domain.OperationUnset:
		reason = "not scheduled"
	case domain.OperationPending:
		reason = fmt.Sprintf("not due until %d", op.ETA)
	case domain.OperationExpired:
		reason = fmt.Sprintf("grace window closed at %d", op.ExpiresAt())
	case domain.OperationDone:
		reason = "already executed"
	case domain.OperationCanceled:
		reason = "canceled"
	}
	return &domain.OperationStateError{ID: id, Current: st, Expected: []domain.OperationState{domain.OperationReady}, Reason: reason}
}

// Cancel discards a Pending or Ready operation. Canceled is terminal; the
// same id can never be scheduled again. Blocked by the timelock pause.
func (t *TimelockExecutor) Cancel(ctx context.Context, caller common.Address, id common.Hash) error {
	var events []domain.Event
	err := t.holder.Update(func(s *models.State, now uint64) error {
		if err := timelockPaused(s); err != nil {
			return err
		}
		if err := requireCapability(t.caps, caller, domain.CapabilityCanceller); err != nil {
			return err
		}
		op := s.Operations[id]
		st := op.StateAt(now)
		if st != domain.OperationPending && st != domain.OperationReady {
			return &domain.OperationStateError{ID: id, Current: st, Expected: []domain.OperationState{domain.OperationPending, domain.OperationReady}}
		}
		if _, busy := t.executing[id]; busy {
			return &domain.OperationStateError{ID: id, Current: st, Expected: []domain.OperationState{domain.OperationPending, domain.OperationReady}, Reason: "execution in progress"}
		}
		op.Canceled = true
		op.CanceledAt = now
		events = append(events, domain.Event{
			Kind:    domain.EventOperationCanceled,
			Surface: domain.SurfaceTimelock,
			At:      now,
			Actor:   caller,
			Subject: id.Hex(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	t.log.Info("operation canceled", "id", id, "caller", caller)
	publish(ctx, t.events, t.log, events)
	return nil
}

// UpdateDelay changes the minimum delay. Only the timelock itself may call
// it, which means the change has gone through the delay it modifies.
// Blocked by the timelock pause.
func (t *TimelockExecutor) UpdateDelay(ctx context.Context, caller common.Address, delay uint64) error {
	var events []domain.Event
	err := t.holder.Update(func(s *models.State, now uint64) error {
		if err := timelockPaused(s); err != nil {
			return err
		}
		if caller != t.self {
			return fmt.Errorf("%w: %s", domain.ErrOnlyTimelock, caller.Hex())
		}
		old := s.Timelock.MinDelay
		s.Timelock.MinDelay = delay
		events = append(events, domain.Event{
			Kind:    domain.EventMinDelayChanged,
			Surface: domain.SurfaceTimelock,
			At:      now,
			Actor:   caller,
			Attrs:   attrs("oldDuration", strconv.FormatUint(old, 10), "newDuration", strconv.FormatUint(delay, 10)),
		})
		return nil
	})
	if err != nil {
		return err
	}
	publish(ctx, t.events, t.log, events)
	return nil
}

// OperationView is an operation together with its state at query time
type OperationView struct {
	Operation *models.TimelockOperation
	State     domain.OperationState
	Now       uint64
}

// Get returns the operation stored under id.
func (t *TimelockExecutor) Get(id common.Hash) (*OperationView, error) {
	var view *OperationView
	err := t.holder.View(func(s *models.State, now uint64) error {
		op, ok := s.Operations[id]
		if !ok {
			return &domain.OperationStateError{ID: id, Current: domain.OperationUnset, Reason: "not scheduled"}
		}
		view = &OperationView{Operation: op.Clone(), State: op.StateAt(now), Now: now}
		return nil
	})
	return view, err
}

// State returns the state of id; unknown ids are Unset.
func (t *TimelockExecutor) State(id common.Hash) domain.OperationState {
	var st domain.OperationState
	_ = t.holder.View(func(s *models.State, now uint64) error {
		st = s.Operations[id].StateAt(now)
		return nil
	})
	return st
}

// List returns every operation ordered by eta.
func (t *TimelockExecutor) List() []*OperationView {
	var out []*OperationView
	_ = t.holder.View(func(s *models.State, now uint64) error {
		for _, op := range s.Operations {
			out = append(out, &OperationView{Operation: op.Clone(), State: op.StateAt(now), Now: now})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Operation, out[j].Operation
		if a.ETA != b.ETA {
			return a.ETA < b.ETA
		}
		return a.ID.Cmp(b.ID) < 0
	})
	return out
}

// Settings returns the current timelock settings.
func (t *TimelockExecutor) Settings() domain.TimelockSettings {
	var ts domain.TimelockSettings
	_ = t.holder.View(func(s *models.State, _ uint64) error {
		ts = s.Timelock
		return nil
	})
	return ts
}

func addSaturating(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

var _ OperationScheduler = (*TimelockExecutor)(nil)
