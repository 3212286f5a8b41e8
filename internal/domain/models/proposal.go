package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/trebuchet-org/govlock/internal/domain"
)

// Tally holds the per-option vote totals of a proposal
type Tally struct {
	For     *uint256.Int `json:"for"`
	Against *uint256.Int `json:"against"`
	Abstain *uint256.Int `json:"abstain"`
}

func NewTally() Tally {
	return Tally{For: new(uint256.Int), Against: new(uint256.Int), Abstain: new(uint256.Int)}
}

// Total is For + Against + Abstain, saturating at the uint256 maximum.
func (t Tally) Total() *uint256.Int {
	sum, overflow := new(uint256.Int).AddOverflow(zeroIfNil(t.For), zeroIfNil(t.Against))
	if !overflow {
		sum, overflow = sum.AddOverflow(sum, zeroIfNil(t.Abstain))
	}
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return sum
}

// Add credits weight to the option, saturating.
func (t *Tally) Add(option domain.VoteType, weight *uint256.Int) {
	var slot **uint256.Int
	switch option {
	case domain.VoteFor:
		slot = &t.For
	case domain.VoteAgainst:
		slot = &t.Against
	default:
		slot = &t.Abstain
	}
	sum, overflow := new(uint256.Int).AddOverflow(zeroIfNil(*slot), weight)
	if overflow {
		sum.SetAllOne()
	}
	*slot = sum
}

// Ballot is the recorded vote of one account
type Ballot struct {
	Option domain.VoteType `json:"option"`
	Weight *uint256.Int    `json:"weight"`
	Reason string          `json:"reason,omitempty"`
	At     uint64          `json:"at"`
}

// Proposal represents a governance proposal record
type Proposal struct {
	// Identification
	ID              common.Hash    `json:"id"`
	Proposer        common.Address `json:"proposer"`
	Description     string         `json:"description"`
	DescriptionHash common.Hash    `json:"descriptionHash"`

	// Calls executed through the timelock once the proposal passes
	Calls []domain.Effect `json:"calls"`

	// Voting window; ballots are accepted in [VoteStart, VoteEnd)
	CreatedAt uint64 `json:"createdAt"`
	Snapshot  uint64 `json:"snapshot"`
	VoteStart uint64 `json:"voteStart"`
	VoteEnd   uint64 `json:"voteEnd"`

	// Values frozen at propose time. SnapshotSupply stays nil until the
	// snapshot tick has closed.
	SnapshotSupply *uint256.Int        `json:"snapshotSupply,omitempty"`
	QuorumPercent  uint64              `json:"quorumPercent"`
	Params         domain.VotingParams `json:"params"`

	// Votes
	Votes  Tally                     `json:"votes"`
	Voters map[common.Address]Ballot `json:"voters"`

	// Lifecycle
	Canceled     bool          `json:"canceled,omitempty"`
	CanceledAt   uint64        `json:"canceledAt,omitempty"`
	OperationIDs []common.Hash `json:"operationIds,omitempty"`
	QueuedAt     uint64        `json:"queuedAt,omitempty"`
	Executed     bool          `json:"executed,omitempty"`
	ExecutedAt   uint64        `json:"executedAt,omitempty"`
}

// HasVoted reports whether account is in the voted set.
func (p *Proposal) HasVoted(account common.Address) bool {
	_, ok := p.Voters[account]
	return ok
}

// Queued reports whether the calls have been handed to the timelock.
func (p *Proposal) Queued() bool {
	return len(p.OperationIDs) > 0
}

// Ops pairs every call with the timelock operation id it was queued under.
// The result is empty until the proposal is queued.
func (p *Proposal) Ops() []QueuedCall {
	if len(p.OperationIDs) != len(p.Calls) {
		return nil
	}
	out := make([]QueuedCall, len(p.Calls))
	for i := range p.Calls {
		out[i] = QueuedCall{Index: i, Call: p.Calls[i], OperationID: p.OperationIDs[i]}
		if i > 0 {
			out[i].Predecessor = p.OperationIDs[i-1]
		}
	}
	return out
}

// QueuedCall is one proposal call as scheduled on the timelock.
type QueuedCall struct {
	Index       int
	Call        domain.Effect
	OperationID common.Hash
	Predecessor common.Hash
}

func zeroIfNil(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

// Clone returns a deep copy.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	c := *p
	c.Calls = make([]domain.Effect, len(p.Calls))
	for i, call := range p.Calls {
		c.Calls[i] = call.Clone()
	}
	if p.SnapshotSupply != nil {
		c.SnapshotSupply = p.SnapshotSupply.Clone()
	}
	c.Params = p.Params.Clone()
	c.Votes = Tally{
		For:     zeroIfNil(p.Votes.For).Clone(),
		Against: zeroIfNil(p.Votes.Against).Clone(),
		Abstain: zeroIfNil(p.Votes.Abstain).Clone(),
	}
	c.Voters = make(map[common.Address]Ballot, len(p.Voters))
	for k, v := range p.Voters {
		v.Weight = zeroIfNil(v.Weight).Clone()
		c.Voters[k] = v
	}
	c.OperationIDs = append([]common.Hash(nil), p.OperationIDs...)
	return &c
}
