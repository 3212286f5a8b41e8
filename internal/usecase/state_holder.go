package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// StateHolder serializes every read and write of the governance state.
// Each mutating operation runs as a single Update; the callback validates
// before it mutates, so a returned error leaves the state untouched.
type StateHolder struct {
	mu    sync.Mutex
	state *models.State
	clock Clock
}

// NewStateHolder wraps an already loaded state
func NewStateHolder(state *models.State, clock Clock) *StateHolder {
	if state == nil {
		state = models.NewState()
	}
	state.EnsureMaps()
	return &StateHolder{state: state, clock: clock}
}

// now never runs behind the last committed time.
func (h *StateHolder) now() uint64 {
	t := h.clock.Now()
	if t < h.state.Clock {
		return h.state.Clock
	}
	return t
}

// Update runs fn under the state lock and commits the observed time when
// fn succeeds.
func (h *StateHolder) Update(fn func(s *models.State, now uint64) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if err := fn(h.state, now); err != nil {
		return err
	}
	h.state.Clock = now
	return nil
}

// View runs fn under the state lock without committing anything.
func (h *StateHolder) View(fn func(s *models.State, now uint64) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.state, h.now())
}

// Now returns the current logical time.
func (h *StateHolder) Now() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now()
}

// Persist writes the state through store while holding the lock.
func (h *StateHolder) Persist(ctx context.Context, store StateStore) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := store.Save(ctx, h.state); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

// publish hands committed events to the sink. The state change has already
// been applied, so a sink failure is logged rather than returned.
func publish(ctx context.Context, sink EventSink, log *slog.Logger, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	if err := sink.Emit(ctx, events...); err != nil {
		log.Warn("failed to publish events", "count", len(events), "error", err)
	}
}

func attrs(kv ...string) map[string]string {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}
