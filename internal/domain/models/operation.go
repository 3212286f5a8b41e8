package models

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/govlock/internal/domain"
)

// TimelockOperation represents a scheduled delayed call
type TimelockOperation struct {
	// Identification
	ID          common.Hash `json:"id"`
	Predecessor common.Hash `json:"predecessor"`
	Salt        common.Hash `json:"salt"`

	// Call performed on execute
	Call domain.Effect `json:"call"`

	// Scheduling
	Proposer       common.Address `json:"proposer"`
	ScheduledAt    uint64         `json:"scheduledAt"`
	RequestedDelay uint64         `json:"requestedDelay"`
	EffectiveDelay uint64         `json:"effectiveDelay"`
	ETA            uint64         `json:"eta"`
	GracePeriod    uint64         `json:"gracePeriod"`

	// Critical detection
	Critical    bool   `json:"critical,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"` // matched signature, e.g. "grantRole(bytes32,address)"

	// Lifecycle
	Done       bool           `json:"done,omitempty"`
	ExecutedAt uint64         `json:"executedAt,omitempty"`
	Executor   common.Address `json:"executor,omitempty"`
	Canceled   bool           `json:"canceled,omitempty"`
	CanceledAt uint64         `json:"canceledAt,omitempty"`
}

// StateAt resolves the operation state at time now. The grace period is
// copied from the settings at schedule time so later settings changes do not
// move the expiry of already scheduled operations.
func (o *TimelockOperation) StateAt(now uint64) domain.OperationState {
	switch {
	case o == nil:
		return domain.OperationUnset
	case o.Done:
		return domain.OperationDone
	case o.Canceled:
		return domain.OperationCanceled
	case now < o.ETA:
		return domain.OperationPending
	case now-o.ETA >= o.GracePeriod:
		return domain.OperationExpired
	default:
		return domain.OperationReady
	}
}

// ExpiresAt is the first timestamp at which the operation is no longer
// executable.
func (o *TimelockOperation) ExpiresAt() uint64 {
	return o.ETA + o.GracePeriod
}

// Clone returns a deep copy.
func (o *TimelockOperation) Clone() *TimelockOperation {
	if o == nil {
		return nil
	}
	c := *o
	c.Call = o.Call.Clone()
	return &c
}
