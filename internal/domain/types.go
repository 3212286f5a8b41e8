package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Capability identifies a role-gated permission. Values are keccak256 of
// the role name, matching how on-chain access control derives role ids.
type Capability common.Hash

var (
	CapabilityAdmin         = Capability{} // DEFAULT_ADMIN_ROLE is the zero id
	CapabilityParamsManager = NewCapability("PARAMS_MANAGER_ROLE")
	CapabilityEmergency     = NewCapability("EMERGENCY_ROLE")
	CapabilityGuardian      = NewCapability("GUARDIAN_ROLE")
	CapabilityProposer      = NewCapability("PROPOSER_ROLE")
	CapabilityExecutor      = NewCapability("EXECUTOR_ROLE")
	CapabilityCanceller     = NewCapability("CANCELLER_ROLE")
)

var capabilityNames = map[Capability]string{
	CapabilityAdmin:         "DEFAULT_ADMIN_ROLE",
	CapabilityParamsManager: "PARAMS_MANAGER_ROLE",
	CapabilityEmergency:     "EMERGENCY_ROLE",
	CapabilityGuardian:      "GUARDIAN_ROLE",
	CapabilityProposer:      "PROPOSER_ROLE",
	CapabilityExecutor:      "EXECUTOR_ROLE",
	CapabilityCanceller:     "CANCELLER_ROLE",
}

// NewCapability derives the capability id for a role name.
func NewCapability(name string) Capability {
	return Capability(crypto.Keccak256Hash([]byte(name)))
}

// ParseCapability accepts a known role name (with or without the _ROLE
// suffix, any case) or a 0x-prefixed 32 byte id.
func ParseCapability(s string) (Capability, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") {
		b := common.FromHex(s)
		if len(b) != common.HashLength {
			return Capability{}, fmt.Errorf("invalid capability id %q", s)
		}
		return Capability(common.BytesToHash(b)), nil
	}
	name := strings.ToUpper(s)
	if name == "ADMIN" || name == "DEFAULT_ADMIN" {
		name = "DEFAULT_ADMIN_ROLE"
	}
	if !strings.HasSuffix(name, "_ROLE") {
		name += "_ROLE"
	}
	for c, n := range capabilityNames {
		if n == name {
			return c, nil
		}
	}
	return Capability{}, fmt.Errorf("unknown capability %q", s)
}

func (c Capability) Hash() common.Hash { return common.Hash(c) }

func (c Capability) String() string {
	if n, ok := capabilityNames[c]; ok {
		return n
	}
	return common.Hash(c).Hex()
}

func (c Capability) MarshalText() ([]byte, error) {
	return []byte(common.Hash(c).Hex()), nil
}

func (c *Capability) UnmarshalText(b []byte) error {
	var h common.Hash
	if err := h.UnmarshalText(b); err != nil {
		return err
	}
	*c = Capability(h)
	return nil
}

// VoteType is a ballot option.
type VoteType uint8

const (
	VoteAgainst VoteType = 0
	VoteFor     VoteType = 1
	VoteAbstain VoteType = 2
)

func (v VoteType) Valid() bool { return v <= VoteAbstain }

func (v VoteType) String() string {
	switch v {
	case VoteAgainst:
		return "against"
	case VoteFor:
		return "for"
	case VoteAbstain:
		return "abstain"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(v))
	}
}

// ParseVoteType accepts the option name or its numeric code.
func ParseVoteType(s string) (VoteType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "against", "no":
		return VoteAgainst, nil
	case "1", "for", "yes":
		return VoteFor, nil
	case "2", "abstain":
		return VoteAbstain, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidVoteType, s)
}

// ProposalState is the lifecycle position of a proposal.
type ProposalState string

const (
	ProposalPending   ProposalState = "pending"
	ProposalActive    ProposalState = "active"
	ProposalCanceled  ProposalState = "canceled"
	ProposalDefeated  ProposalState = "defeated"
	ProposalSucceeded ProposalState = "succeeded"
	ProposalQueued    ProposalState = "queued"
	ProposalExpired   ProposalState = "expired"
	ProposalExecuted  ProposalState = "executed"
)

// OperationState is the lifecycle position of a timelock operation.
type OperationState string

const (
	OperationUnset    OperationState = "unset"
	OperationPending  OperationState = "pending"
	OperationReady    OperationState = "ready"
	OperationDone     OperationState = "done"
	OperationCanceled OperationState = "canceled"
	OperationExpired  OperationState = "expired"
)

// Effect describes one opaque external call: the target identity, the value
// forwarded with it and the call payload.
type Effect struct {
	Target  common.Address `json:"target" yaml:"target"`
	Value   *uint256.Int   `json:"value" yaml:"value"`
	Payload []byte         `json:"payload" yaml:"payload"`
}

// ValueOrZero never returns nil.
func (e Effect) ValueOrZero() *uint256.Int {
	if e.Value == nil {
		return new(uint256.Int)
	}
	return e.Value
}

// Selector returns the 4 byte function selector of the payload, if any.
func (e Effect) Selector() ([4]byte, bool) {
	var sel [4]byte
	if len(e.Payload) < 4 {
		return sel, false
	}
	copy(sel[:], e.Payload[:4])
	return sel, true
}

// PauseState is the emergency flag pair held by each governed surface.
type PauseState struct {
	Paused    bool `json:"paused"`
	Emergency bool `json:"emergency"`
}

// Addresses are the identities of the built-in governed surfaces. Effects
// targeting them are dispatched in process instead of being relayed.
type Addresses struct {
	Governor common.Address `json:"governor"`
	Timelock common.Address `json:"timelock"`
	Roles    common.Address `json:"roles"`
}

func DefaultAddresses() Addresses {
	return Addresses{
		Governor: common.HexToAddress("0x1000000000000000000000000000000000000001"),
		Timelock: common.HexToAddress("0x1000000000000000000000000000000000000002"),
		Roles:    common.HexToAddress("0x1000000000000000000000000000000000000003"),
	}
}

// IsSystem reports whether addr is one of the system identities or the
// zero address.
func (a Addresses) IsSystem(addr common.Address) bool {
	return addr == (common.Address{}) || addr == a.Governor || addr == a.Timelock || addr == a.Roles
}

// Clone returns a deep copy.
func (e Effect) Clone() Effect {
	c := Effect{Target: e.Target, Value: e.ValueOrZero().Clone()}
	if e.Payload != nil {
		c.Payload = append([]byte{}, e.Payload...)
	}
	return c
}
