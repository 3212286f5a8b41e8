package models

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/govlock/internal/domain"
)

// StateVersion is bumped whenever the persisted layout changes.
const StateVersion = 1

// State is the complete persisted governance state.
type State struct {
	Version int `json:"version"`

	// Initialized is set once genesis configuration has been applied.
	Initialized bool `json:"initialized"`

	// Clock is the last observed logical time. The clock never runs
	// backwards relative to it.
	Clock uint64 `json:"clock"`

	Locks       map[common.Address]*AccountLock        `json:"locks"`
	Delegations DelegationBook                         `json:"delegations"`
	Proposals   map[common.Hash]*Proposal              `json:"proposals"`
	Operations  map[common.Hash]*TimelockOperation     `json:"operations"`
	Roles       map[domain.Capability][]common.Address `json:"roles"`

	Voting   domain.VotingParams     `json:"voting"`
	Governor domain.GovernorSettings `json:"governor"`
	Timelock domain.TimelockSettings `json:"timelock"`

	GovernorPause domain.PauseState `json:"governorPause"`
	TimelockPause domain.PauseState `json:"timelockPause"`
}

// NewState returns an empty state with default parameters.
func NewState() *State {
	s := &State{
		Version:  StateVersion,
		Voting:   domain.DefaultVotingParams(),
		Governor: domain.DefaultGovernorSettings(),
		Timelock: domain.DefaultTimelockSettings(),
	}
	s.EnsureMaps()
	return s
}

// EnsureMaps initializes any nil map, e.g. after decoding an older file.
func (s *State) EnsureMaps() {
	if s.Locks == nil {
		s.Locks = make(map[common.Address]*AccountLock)
	}
	if s.Proposals == nil {
		s.Proposals = make(map[common.Hash]*Proposal)
	}
	if s.Operations == nil {
		s.Operations = make(map[common.Hash]*TimelockOperation)
	}
	if s.Roles == nil {
		s.Roles = make(map[domain.Capability][]common.Address)
	}
	if s.Delegations.Forward == nil {
		s.Delegations.Forward = make(map[common.Address][]DelegationCheckpoint)
	}
	if s.Delegations.Reverse == nil {
		s.Delegations.Reverse = make(map[common.Address][]common.Address)
	}
	if s.Delegations.Historic == nil {
		s.Delegations.Historic = make(map[common.Address][]common.Address)
	}
	if s.Version == 0 {
		s.Version = StateVersion
	}
}
