package capability

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// Registry is the role based capability registry. Engines consult it from
// inside state updates, so membership lives behind its own lock and is
// written back to the state after that lock is released.
type Registry struct {
	mu      sync.RWMutex
	members map[domain.Capability][]common.Address
	version uint64

	// written is the last version copied into the state. Guarded by the
	// state holder lock.
	written uint64

	holder *usecase.StateHolder
	events usecase.EventSink
	log    *slog.Logger
}

// NewRegistry creates a registry seeded from the state roles
func NewRegistry(holder *usecase.StateHolder, events usecase.EventSink, log *slog.Logger) *Registry {
	r := &Registry{
		members: make(map[domain.Capability][]common.Address),
		holder:  holder,
		events:  events,
		log:     log.With("component", "CapabilityRegistry"),
	}
	_ = holder.View(func(s *models.State, _ uint64) error {
		for c, m := range s.Roles {
			for _, a := range m {
				r.members[c] = models.AddressSetInsert(r.members[c], a)
			}
		}
		return nil
	})
	return r
}

// HasCapability reports whether account holds capability
func (r *Registry) HasCapability(account common.Address, capability domain.Capability) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.AddressSetContains(r.members[capability], account)
}

// Members lists the holders of capability
func (r *Registry) Members(capability domain.Capability) []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]common.Address(nil), r.members[capability]...)
}

// All returns a copy of every non-empty role
func (r *Registry) All() map[domain.Capability][]common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot()
}

// Grant adds account to capability. Only the admin capability may grant.
func (r *Registry) Grant(ctx context.Context, caller common.Address, capability domain.Capability, account common.Address) error {
	return r.change(ctx, caller, capability, account, true)
}

// Revoke removes account from capability. Only the admin capability may
// revoke.
func (r *Registry) Revoke(ctx context.Context, caller common.Address, capability domain.Capability, account common.Address) error {
	return r.change(ctx, caller, capability, account, false)
}

// Renounce lets caller drop one of its own capabilities.
func (r *Registry) Renounce(ctx context.Context, caller common.Address, capability domain.Capability, account common.Address) error {
	if caller != account {
		return &domain.CapabilityError{Account: caller, Capability: capability}
	}
	return r.apply(ctx, caller, capability, account, false)
}

func (r *Registry) change(ctx context.Context, caller common.Address, capability domain.Capability, account common.Address, grant bool) error {
	if !r.HasCapability(caller, domain.CapabilityAdmin) {
		return &domain.CapabilityError{Account: caller, Capability: domain.CapabilityAdmin}
	}
	return r.apply(ctx, caller, capability, account, grant)
}

func (r *Registry) apply(ctx context.Context, caller common.Address, capability domain.Capability, account common.Address, grant bool) error {
	r.mu.Lock()
	set := r.members[capability]
	if models.AddressSetContains(set, account) == grant {
		r.mu.Unlock()
		return nil
	}
	kind := domain.EventRoleRevoked
	if grant {
		set = models.AddressSetInsert(set, account)
		kind = domain.EventRoleGranted
	} else {
		set = models.AddressSetRemove(set, account)
	}
	if len(set) == 0 {
		delete(r.members, capability)
	} else {
		r.members[capability] = set
	}
	r.version++
	version, roles := r.version, r.snapshot()
	r.mu.Unlock()

	var events []domain.Event
	err := r.holder.Update(func(s *models.State, now uint64) error {
		if version > r.written {
			s.Roles = roles
			r.written = version
		}
		events = append(events, domain.Event{
			Kind:    kind,
			Surface: domain.SurfaceRoles,
			At:      now,
			Actor:   caller,
			Subject: capability.String(),
			Attrs:   map[string]string{"account": account.Hex()},
		})
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug("role changed", "kind", kind, "role", capability, "account", account)
	if err := r.events.Emit(ctx, events...); err != nil {
		r.log.Warn("failed to publish events", "count", len(events), "error", err)
	}
	return nil
}

// snapshot must be called with r.mu held.
func (r *Registry) snapshot() map[domain.Capability][]common.Address {
	out := make(map[domain.Capability][]common.Address, len(r.members))
	for c, m := range r.members {
		out[c] = append([]common.Address(nil), m...)
	}
	return out
}

// Ensure Registry implements CapabilityRegistry
var _ usecase.CapabilityRegistry = (*Registry)(nil)
