package models

import (
	"sort"

	"github.com/holiman/uint256"
)

// LockCheckpoint is the lock state of an account from At onwards.
type LockCheckpoint struct {
	At     uint64       `json:"at"`
	Amount *uint256.Int `json:"amount"`
	Start  uint64       `json:"start"`
}

// AccountLock is the locked stake of one account together with every past
// value it held, so power can be answered for any earlier timestamp.
type AccountLock struct {
	History []LockCheckpoint `json:"history"`
}

// Current returns the latest locked amount and lock start. A zero amount
// means the start time is meaningless.
func (l *AccountLock) Current() (*uint256.Int, uint64) {
	if l == nil || len(l.History) == 0 {
		return new(uint256.Int), 0
	}
	last := l.History[len(l.History)-1]
	return last.Amount.Clone(), last.Start
}

// At returns the lock state in effect at time t: the last checkpoint
// recorded at or before t.
func (l *AccountLock) At(t uint64) (*uint256.Int, uint64) {
	if l == nil || len(l.History) == 0 {
		return new(uint256.Int), 0
	}
	i := sort.Search(len(l.History), func(i int) bool { return l.History[i].At > t })
	if i == 0 {
		return new(uint256.Int), 0
	}
	cp := l.History[i-1]
	return cp.Amount.Clone(), cp.Start
}

// Record appends a checkpoint; a second write in the same tick replaces
// the first so At(t) reports the end-of-tick state.
func (l *AccountLock) Record(at uint64, amount *uint256.Int, start uint64) {
	cp := LockCheckpoint{At: at, Amount: amount.Clone(), Start: start}
	if n := len(l.History); n > 0 && l.History[n-1].At == at {
		l.History[n-1] = cp
		return
	}
	l.History = append(l.History, cp)
}
