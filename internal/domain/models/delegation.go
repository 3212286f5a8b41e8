package models

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// DelegationCheckpoint records the delegate chosen from At onwards. The zero
// address means "not delegated".
type DelegationCheckpoint struct {
	At       uint64         `json:"at"`
	Delegate common.Address `json:"delegate"`
}

// DelegationBook is the bipartite delegator <-> delegate mapping.
type DelegationBook struct {
	// Forward is the delegation history of each delegator.
	Forward map[common.Address][]DelegationCheckpoint `json:"forward"`
	// Reverse is the current delegator set of each delegate, kept sorted.
	Reverse map[common.Address][]common.Address `json:"reverse"`
	// Historic holds every account that ever delegated to a delegate; it is
	// the candidate set when reconstructing power at a past time.
	Historic map[common.Address][]common.Address `json:"historic"`
}

func NewDelegationBook() DelegationBook {
	return DelegationBook{
		Forward:  make(map[common.Address][]DelegationCheckpoint),
		Reverse:  make(map[common.Address][]common.Address),
		Historic: make(map[common.Address][]common.Address),
	}
}

// DelegateAt returns the delegate of account at time t.
func (b *DelegationBook) DelegateAt(account common.Address, t uint64) common.Address {
	h := b.Forward[account]
	i := sort.Search(len(h), func(i int) bool { return h[i].At > t })
	if i == 0 {
		return common.Address{}
	}
	return h[i-1].Delegate
}

// Current returns the active delegate of account.
func (b *DelegationBook) Current(account common.Address) common.Address {
	h := b.Forward[account]
	if len(h) == 0 {
		return common.Address{}
	}
	return h[len(h)-1].Delegate
}

// Record writes a delegation checkpoint, collapsing writes in one tick.
func (b *DelegationBook) Record(account common.Address, at uint64, delegate common.Address) {
	h := b.Forward[account]
	cp := DelegationCheckpoint{At: at, Delegate: delegate}
	if n := len(h); n > 0 && h[n-1].At == at {
		h[n-1] = cp
	} else {
		h = append(h, cp)
	}
	b.Forward[account] = h
}

// AddressSetInsert inserts a into the sorted set, returning the new set.
func AddressSetInsert(set []common.Address, a common.Address) []common.Address {
	i := sort.Search(len(set), func(i int) bool { return set[i].Cmp(a) >= 0 })
	if i < len(set) && set[i] == a {
		return set
	}
	set = append(set, common.Address{})
	copy(set[i+1:], set[i:])
	set[i] = a
	return set
}

// AddressSetRemove removes a from the sorted set, returning the new set.
func AddressSetRemove(set []common.Address, a common.Address) []common.Address {
	i := sort.Search(len(set), func(i int) bool { return set[i].Cmp(a) >= 0 })
	if i == len(set) || set[i] != a {
		return set
	}
	return append(set[:i], set[i+1:]...)
}

// AddressSetContains reports whether a is in the sorted set.
func AddressSetContains(set []common.Address, a common.Address) bool {
	i := sort.Search(len(set), func(i int) bool { return set[i].Cmp(a) >= 0 })
	return i < len(set) && set[i] == a
}
