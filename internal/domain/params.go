package domain

import (
	"github.com/holiman/uint256"
)

// PowerScale is the fixed-point denominator (basis points) used by the
// voting power factors.
const PowerScale = 10_000

const (
	MaxRootPower        = 8
	MaxQuadraticFactor  = 1_000_000
	MaxTimeWeightFactor = 100_000
	MaxMinLockDuration  = 4 * 365 * 24 * 60 * 60
)

// VotingParams are the governed inputs of the voting power model.
type VotingParams struct {
	MaxVotingPower   *uint256.Int `json:"maxVotingPower"`
	QuadraticFactor  uint64       `json:"quadraticFactor"`
	TimeWeightFactor uint64       `json:"timeWeightFactor"`
	RootPower        uint64       `json:"rootPower"`
	MinLockDuration  uint64       `json:"minLockDuration"`
}

// DefaultVotingParams returns square-root weighting at 1x, doubling at
// maturity, with a one day minimum lock.
func DefaultVotingParams() VotingParams {
	return VotingParams{
		MaxVotingPower:   uint256.MustFromDecimal("1000000000000000000000000"),
		QuadraticFactor:  PowerScale,
		TimeWeightFactor: PowerScale,
		RootPower:        2,
		MinLockDuration:  86400,
	}
}

// Validate checks every field independently; the first failure is
// returned and nothing is applied.
func (p VotingParams) Validate() error {
	switch {
	case p.MaxVotingPower == nil || p.MaxVotingPower.IsZero():
		return &ParamError{Field: "maxVotingPower", Reason: "must be non-zero"}
	case p.QuadraticFactor == 0 || p.QuadraticFactor > MaxQuadraticFactor:
		return &ParamError{Field: "quadraticFactor", Reason: "must be in (0, 1000000]"}
	case p.TimeWeightFactor == 0 || p.TimeWeightFactor > MaxTimeWeightFactor:
		return &ParamError{Field: "timeWeightFactor", Reason: "must be in (0, 100000]"}
	case p.RootPower < 2 || p.RootPower > MaxRootPower:
		return &ParamError{Field: "rootPower", Reason: "must be in [2, 8]"}
	case p.MinLockDuration == 0 || p.MinLockDuration > MaxMinLockDuration:
		return &ParamError{Field: "minLockDuration", Reason: "must be in (0, 4 years]"}
	}
	return nil
}

// Clone returns a deep copy.
func (p VotingParams) Clone() VotingParams {
	c := p
	if p.MaxVotingPower != nil {
		c.MaxVotingPower = p.MaxVotingPower.Clone()
	}
	return c
}

// GovernorSettings are the proposal lifecycle parameters.
type GovernorSettings struct {
	VotingDelay       uint64       `json:"votingDelay"`
	VotingPeriod      uint64       `json:"votingPeriod"`
	ProposalThreshold *uint256.Int `json:"proposalThreshold"`
	QuorumPercent     uint64       `json:"quorumPercent"`
}

func DefaultGovernorSettings() GovernorSettings {
	return GovernorSettings{
		VotingDelay:       1,
		VotingPeriod:      3 * 24 * 60 * 60,
		ProposalThreshold: uint256.NewInt(100),
		QuorumPercent:     4,
	}
}

// Validate requires a voting delay of at least one tick so the snapshot
// always precedes the first ballot.
func (s GovernorSettings) Validate() error {
	switch {
	case s.VotingDelay == 0:
		return &ParamError{Field: "votingDelay", Reason: "must be at least 1"}
	case s.VotingPeriod == 0:
		return &ParamError{Field: "votingPeriod", Reason: "must be at least 1"}
	case s.ProposalThreshold == nil:
		return &ParamError{Field: "proposalThreshold", Reason: "is required"}
	case s.QuorumPercent == 0 || s.QuorumPercent > 100:
		return &ParamError{Field: "quorumPercent", Reason: "must be in [1, 100]"}
	}
	return nil
}

func (s GovernorSettings) Clone() GovernorSettings {
	c := s
	if s.ProposalThreshold != nil {
		c.ProposalThreshold = s.ProposalThreshold.Clone()
	}
	return c
}

// TimelockSettings configure the delayed execution surface.
type TimelockSettings struct {
	MinDelay           uint64 `json:"minDelay"`
	CriticalEscalation uint64 `json:"criticalEscalation"`
	GracePeriod        uint64 `json:"gracePeriod"`
	// ExecuteWhilePaused keeps already Ready operations executable while
	// the timelock pause is engaged.
	ExecuteWhilePaused bool `json:"executeWhilePaused"`
}

func DefaultTimelockSettings() TimelockSettings {
	return TimelockSettings{
		MinDelay:           2 * 24 * 60 * 60,
		CriticalEscalation: 7 * 24 * 60 * 60,
		GracePeriod:        24 * 60 * 60,
		ExecuteWhilePaused: true,
	}
}

func (s TimelockSettings) Validate() error {
	switch {
	case s.GracePeriod == 0:
		return &ParamError{Field: "gracePeriod", Reason: "must be non-zero"}
	}
	return nil
}
