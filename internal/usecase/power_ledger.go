package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// PowerLedger tracks the locked stake of every account
type PowerLedger struct {
	holder *StateHolder
	events EventSink
	log    *slog.Logger
}

// NewPowerLedger creates a new power ledger
func NewPowerLedger(holder *StateHolder, events EventSink, log *slog.Logger) *PowerLedger {
	return &PowerLedger{
		holder: holder,
		events: events,
		log:    log.With("component", "PowerLedger"),
	}
}

// LockResult describes the lock after a successful lockTokens call
type LockResult struct {
	Account common.Address
	Added   *uint256.Int
	Total   *uint256.Int
	Start   uint64
	// UnlockAt is the earliest time unlockTokens can succeed.
	UnlockAt uint64
}

// Lock adds amount to the account's locked stake. The lock start is reset
// to now, so the whole position restarts its minimum lock period.
func (l *PowerLedger) Lock(ctx context.Context, account common.Address, amount *uint256.Int) (*LockResult, error) {
	var result *LockResult
	var events []domain.Event
	err := l.holder.Update(func(s *models.State, now uint64) error {
		if err := governorPaused(s); err != nil {
			return err
		}
		if amount == nil || amount.IsZero() {
			return fmt.Errorf("%w: lock amount must be non-zero", domain.ErrInvalidAmount)
		}
		current, _ := s.Locks[account].Current()
		total, overflow := new(uint256.Int).AddOverflow(current, amount)
		if overflow {
			return fmt.Errorf("%w: locked total would overflow", domain.ErrInvalidAmount)
		}

		lock := s.Locks[account]
		if lock == nil {
			lock = &models.AccountLock{}
			s.Locks[account] = lock
		}
		lock.Record(now, total, now)

		result = &LockResult{
			Account:  account,
			Added:    amount.Clone(),
			Total:    total,
			Start:    now,
			UnlockAt: now + s.Voting.MinLockDuration,
		}
		events = append(events, domain.Event{
			Kind:    domain.EventTokensLocked,
			Surface: domain.SurfaceGovernor,
			At:      now,
			Actor:   account,
			Subject: account.Hex(),
			Attrs:   attrs("amount", amount.Dec(), "total", total.Dec()),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Debug("tokens locked", "account", account, "amount", amount.Dec(), "total", result.Total.Dec())
	publish(ctx, l.events, l.log, events)
	return result, nil
}

// Unlock releases the whole locked stake once the minimum lock duration
// has elapsed since the lock start.
func (l *PowerLedger) Unlock(ctx context.Context, account common.Address) (*uint256.Int, error) {
	var released *uint256.Int
	var events []domain.Event
	err := l.holder.Update(func(s *models.State, now uint64) error {
		if err := governorPaused(s); err != nil {
			return err
		}
		amount, start := s.Locks[account].Current()
		if amount.IsZero() {
			return fmt.Errorf("%w: nothing locked for %s", domain.ErrInvalidAmount, account.Hex())
		}
		unlockAt := start + s.Voting.MinLockDuration
		if now < unlockAt {
			return &domain.LockNotExpiredError{Account: account, UnlockAt: unlockAt, Now: now}
		}

		s.Locks[account].Record(now, new(uint256.Int), 0)
		released = amount
		events = append(events, domain.Event{
			Kind:    domain.EventTokensUnlocked,
			Surface: domain.SurfaceGovernor,
			At:      now,
			Actor:   account,
			Subject: account.Hex(),
			Attrs:   attrs("amount", amount.Dec()),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Debug("tokens unlocked", "account", account, "amount", released.Dec())
	publish(ctx, l.events, l.log, events)
	return released, nil
}

// LockedAmount returns the current locked stake of account.
func (l *PowerLedger) LockedAmount(account common.Address) *uint256.Int {
	var amount *uint256.Int
	_ = l.holder.View(func(s *models.State, _ uint64) error {
		amount, _ = s.Locks[account].Current()
		return nil
	})
	return amount
}

// LockStart returns the start of the current lock, zero when nothing is
// locked.
func (l *PowerLedger) LockStart(account common.Address) uint64 {
	var start uint64
	_ = l.holder.View(func(s *models.State, _ uint64) error {
		var amount *uint256.Int
		amount, start = s.Locks[account].Current()
		if amount.IsZero() {
			start = 0
		}
		return nil
	})
	return start
}

// PowerReport is the voting power of one account at a point in time
type PowerReport struct {
	Account   common.Address
	At        uint64
	Locked    *uint256.Int
	LockStart uint64
	Own       *uint256.Int
	Effective *uint256.Int
	Delegate  common.Address
	// Multiplier is the time weight in basis points.
	Multiplier uint64
}

// PowerAt reports raw and effective power of account at time t under the
// current voting parameters. t == 0 means now.
func (l *PowerLedger) PowerAt(account common.Address, t uint64) *PowerReport {
	var report *PowerReport
	_ = l.holder.View(func(s *models.State, now uint64) error {
		if t == 0 || t > now {
			t = now
		}
		amount, start := s.Locks[account].At(t)
		report = &PowerReport{
			Account:   account,
			At:        t,
			Locked:    amount,
			LockStart: start,
			Own:       powerAt(s, account, t, s.Voting),
			Effective: effectivePowerAt(s, account, t, s.Voting),
			Delegate:  s.Delegations.DelegateAt(account, t),
		}
		if !amount.IsZero() && t >= start {
			report.Multiplier = TimeMultiplier(t-start, s.Voting)
		}
		return nil
	})
	return report
}
