package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// DelegationRegistry maintains the delegator -> delegate mapping and its
// reverse index
type DelegationRegistry struct {
	holder *StateHolder
	events EventSink
	log    *slog.Logger
}

// NewDelegationRegistry creates a new delegation registry
func NewDelegationRegistry(holder *StateHolder, events EventSink, log *slog.Logger) *DelegationRegistry {
	return &DelegationRegistry{
		holder: holder,
		events: events,
		log:    log.With("component", "DelegationRegistry"),
	}
}

// Delegate points from's voting power at to, moving from out of the
// previous delegate's reverse set in the same update.
func (r *DelegationRegistry) Delegate(ctx context.Context, from, to common.Address) error {
	var events []domain.Event
	err := r.holder.Update(func(s *models.State, now uint64) error {
		if err := governorPaused(s); err != nil {
			return err
		}
		switch {
		case to == (common.Address{}):
			return fmt.Errorf("%w: cannot delegate to the zero address", domain.ErrInvalidDelegate)
		case to == from:
			return fmt.Errorf("%w: cannot delegate to self", domain.ErrInvalidDelegate)
		}
		book := &s.Delegations
		previous := book.Current(from)
		if previous == to {
			return nil
		}
		if previous != (common.Address{}) {
			removeDelegator(book, previous, from)
		}
		book.Reverse[to] = models.AddressSetInsert(book.Reverse[to], from)
		book.Historic[to] = models.AddressSetInsert(book.Historic[to], from)
		book.Record(from, now, to)

		events = append(events, delegateChanged(now, from, previous, to))
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug("delegation set", "delegator", from, "delegate", to)
	publish(ctx, r.events, r.log, events)
	return nil
}

// Revoke clears from's active delegation.
func (r *DelegationRegistry) Revoke(ctx context.Context, from common.Address) error {
	var events []domain.Event
	err := r.holder.Update(func(s *models.State, now uint64) error {
		if err := governorPaused(s); err != nil {
			return err
		}
		book := &s.Delegations
		previous := book.Current(from)
		if previous == (common.Address{}) {
			return fmt.Errorf("%w: %s has no active delegation", domain.ErrDelegationNotFound, from.Hex())
		}
		removeDelegator(book, previous, from)
		book.Record(from, now, common.Address{})

		events = append(events, delegateChanged(now, from, previous, common.Address{}))
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug("delegation revoked", "delegator", from)
	publish(ctx, r.events, r.log, events)
	return nil
}

// GetDelegate returns the active delegate of account, or the zero address.
func (r *DelegationRegistry) GetDelegate(account common.Address) common.Address {
	var d common.Address
	_ = r.holder.View(func(s *models.State, _ uint64) error {
		d = s.Delegations.Current(account)
		return nil
	})
	return d
}

// Delegators returns the accounts currently delegating to delegate.
func (r *DelegationRegistry) Delegators(delegate common.Address) []common.Address {
	var out []common.Address
	_ = r.holder.View(func(s *models.State, _ uint64) error {
		out = append(out, s.Delegations.Reverse[delegate]...)
		return nil
	})
	return out
}

func removeDelegator(book *models.DelegationBook, delegate, delegator common.Address) {
	set := models.AddressSetRemove(book.Reverse[delegate], delegator)
	if len(set) == 0 {
		delete(book.Reverse, delegate)
		return
	}
	book.Reverse[delegate] = set
}

func delegateChanged(now uint64, delegator, from, to common.Address) domain.Event {
	return domain.Event{
		Kind:    domain.EventDelegateChanged,
		Surface: domain.SurfaceGovernor,
		At:      now,
		Actor:   delegator,
		Subject: delegator.Hex(),
		Attrs:   attrs("from", from.Hex(), "to", to.Hex()),
	}
}
