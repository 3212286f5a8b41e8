package domain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for governance operations
var (
	// Authorization
	ErrUnauthorized = errors.New("unauthorized capability")
	ErrOnlyTimelock = errors.New("caller is not the timelock")

	// Validation
	ErrInvalidProposalLength = errors.New("invalid proposal length")
	ErrInvalidVoteType       = errors.New("invalid vote type")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidDelegate       = errors.New("invalid delegate")
	ErrInvalidParams         = errors.New("invalid parameters")

	// State
	ErrNonexistentProposal       = errors.New("nonexistent proposal")
	ErrProposalAlreadyExists     = errors.New("proposal already exists")
	ErrAlreadyVoted              = errors.New("already voted")
	ErrDelegationNotFound        = errors.New("delegation not found")
	ErrUnexpectedProposalState   = errors.New("unexpected proposal state")
	ErrUnexpectedOperationState  = errors.New("unexpected operation state")
	ErrUnexecutedPredecessor     = errors.New("predecessor operation not executed")
	ErrOperationAlreadyScheduled = errors.New("operation already scheduled")
	ErrEffectFailed              = errors.New("external effect failed")

	// Timing
	ErrInsufficientProposerVotes = errors.New("insufficient proposer votes")
	ErrInsufficientDelay         = errors.New("insufficient delay")
	ErrLockPeriodNotExpired      = errors.New("lock period not expired")
	ErrVotingClosed              = errors.New("voting closed")

	// Pause
	ErrGovernancePaused        = errors.New("governance paused")
	ErrEmergencyModeActive     = errors.New("emergency mode active")
	ErrTimelockEmergencyPaused = errors.New("timelock emergency paused")
)

// ErrorKind groups failures into the families callers react to.
type ErrorKind string

const (
	KindUnknown       ErrorKind = "unknown"
	KindAuthorization ErrorKind = "authorization"
	KindValidation    ErrorKind = "validation"
	KindState         ErrorKind = "state"
	KindTiming        ErrorKind = "timing"
	KindPause         ErrorKind = "pause"
)

var errorKinds = map[error]ErrorKind{
	ErrUnauthorized: KindAuthorization,
	ErrOnlyTimelock: KindAuthorization,

	ErrInvalidProposalLength: KindValidation,
	ErrInvalidVoteType:       KindValidation,
	ErrInvalidAmount:         KindValidation,
	ErrInvalidDelegate:       KindValidation,
	ErrInvalidParams:         KindValidation,

	ErrNonexistentProposal:       KindState,
	ErrProposalAlreadyExists:     KindState,
	ErrAlreadyVoted:              KindState,
	ErrDelegationNotFound:        KindState,
	ErrUnexpectedProposalState:   KindState,
	ErrUnexpectedOperationState:  KindState,
	ErrUnexecutedPredecessor:     KindState,
	ErrOperationAlreadyScheduled: KindState,
	ErrEffectFailed:              KindState,

	// Proposer power is measured at the current tick, so it is reported
	// together with the other clock-relative failures.
	ErrInsufficientProposerVotes: KindTiming,
	ErrInsufficientDelay:         KindTiming,
	ErrLockPeriodNotExpired:      KindTiming,
	ErrVotingClosed:              KindTiming,

	ErrGovernancePaused:        KindPause,
	ErrEmergencyModeActive:     KindPause,
	ErrTimelockEmergencyPaused: KindPause,
}

// KindOf classifies err by the first sentinel found in its chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for sentinel, kind := range errorKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

// CapabilityError reports a missing capability for an actor.
type CapabilityError struct {
	Account    common.Address
	Capability Capability
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %s lacks %s", ErrUnauthorized, e.Account.Hex(), e.Capability)
}

func (e *CapabilityError) Unwrap() error { return ErrUnauthorized }

// OperationStateError reports a timelock operation that is not in the state
// a transition requires. Reason carries the diagnostic detail (expired,
// not yet due, ...) while the sentinel stays the same for every cause.
type OperationStateError struct {
	ID       common.Hash
	Current  OperationState
	Expected []OperationState
	Reason   string
}

func (e *OperationStateError) Error() string {
	msg := fmt.Sprintf("%s: operation %s is %s, expected %v", ErrUnexpectedOperationState, e.ID.Hex(), e.Current, e.Expected)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *OperationStateError) Unwrap() error { return ErrUnexpectedOperationState }

// ProposalStateError reports a proposal that is not in the state a
// transition requires.
type ProposalStateError struct {
	ID       common.Hash
	Current  ProposalState
	Expected []ProposalState
}

func (e *ProposalStateError) Error() string {
	return fmt.Sprintf("%s: proposal %s is %s, expected %v", ErrUnexpectedProposalState, e.ID.Hex(), e.Current, e.Expected)
}

func (e *ProposalStateError) Unwrap() error { return ErrUnexpectedProposalState }

// LockNotExpiredError reports how long an account still has to wait before
// its stake can be released.
type LockNotExpiredError struct {
	Account  common.Address
	UnlockAt uint64
	Now      uint64
}

func (e *LockNotExpiredError) Error() string {
	return fmt.Sprintf("%s: %s can unlock at %d (now %d)", ErrLockPeriodNotExpired, e.Account.Hex(), e.UnlockAt, e.Now)
}

func (e *LockNotExpiredError) Unwrap() error { return ErrLockPeriodNotExpired }

// ParamError names the parameter that failed validation.
type ParamError struct {
	Field  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidParams, e.Field, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParams }
