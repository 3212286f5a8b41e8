package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

func TestGovernor_ProposeValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("below threshold", func(t *testing.T) {
		h := newHarness(t)
		h.lock(t, alice, 100) // power 10, threshold 100
		_, err := h.governor.Propose(ctx, alice, proposeParams("x", transferCall()))
		assert.True(t, errors.Is(err, domain.ErrInsufficientProposerVotes))
	})

	t.Run("delegated power counts", func(t *testing.T) {
		h := newHarness(t)
		h.lock(t, bob, 1_000_000)
		require.NoError(t, h.delegations.Delegate(ctx, bob, alice))
		_, err := h.governor.Propose(ctx, alice, proposeParams("x", transferCall()))
		require.NoError(t, err)
		_, err = h.governor.Propose(ctx, bob, proposeParams("y", transferCall()))
		assert.True(t, errors.Is(err, domain.ErrInsufficientProposerVotes), "a delegator cannot propose with delegated power")
	})

	lengths := []struct {
		name   string
		params usecase.ProposeParams
	}{
		{"empty", usecase.ProposeParams{Description: "x"}},
		{"values mismatch", usecase.ProposeParams{
			Targets:  []common.Address{target},
			Values:   []*uint256.Int{},
			Payloads: [][]byte{{1}},
		}},
		{"payloads mismatch", usecase.ProposeParams{
			Targets:  []common.Address{target, target},
			Values:   []*uint256.Int{nil, nil},
			Payloads: [][]byte{{1}},
		}},
	}
	for _, tt := range lengths {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.lock(t, alice, 1_000_000)
			_, err := h.governor.Propose(ctx, alice, tt.params)
			assert.True(t, errors.Is(err, domain.ErrInvalidProposalLength))
			all, err := h.governor.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}

	t.Run("duplicate", func(t *testing.T) {
		h := newHarness(t)
		h.lock(t, alice, 1_000_000)
		_, err := h.governor.Propose(ctx, alice, proposeParams("same", transferCall()))
		require.NoError(t, err)
		_, err = h.governor.Propose(ctx, alice, proposeParams("same", transferCall()))
		assert.True(t, errors.Is(err, domain.ErrProposalAlreadyExists))
	})
}

func TestGovernor_ProposalIDIsDeterministic(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.lock(t, alice, 1_000_000)

	p, err := h.governor.Propose(ctx, alice, proposeParams("upgrade", transferCall()))
	require.NoError(t, err)

	want, err := domain.HashProposal([]domain.Effect{transferCall()}, domain.HashDescription("upgrade"))
	require.NoError(t, err)
	assert.Equal(t, want, p.ID)
}

func TestGovernor_VotingWindowScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, shortVoting)
	h.lock(t, alice, 1_000_000)
	h.lock(t, bob, 1_000_000)

	p, err := h.governor.Propose(ctx, alice, proposeParams("window", transferCall()))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.Snapshot)
	assert.Equal(t, uint64(1), p.VoteStart)
	assert.Equal(t, uint64(11), p.VoteEnd)

	_, err = h.governor.CastVote(ctx, alice, p.ID, domain.VoteFor)
	assert.True(t, errors.Is(err, domain.ErrVotingClosed), "no ballots before vote start")
	assert.Equal(t, domain.KindTiming, domain.KindOf(err))

	h.at(1)
	_, err = h.governor.CastVote(ctx, alice, p.ID, domain.VoteFor)
	require.NoError(t, err)

	h.at(10)
	st, err := h.governor.State(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalActive, st)
	_, err = h.governor.CastVote(ctx, bob, p.ID, domain.VoteAgainst)
	require.NoError(t, err)

	h.at(11)
	_, err = h.governor.CastVote(ctx, carol, p.ID, domain.VoteFor)
	assert.True(t, errors.Is(err, domain.ErrVotingClosed))
	st, err = h.governor.State(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalDefeated, st, "a tie is not a majority")
}

func TestGovernor_CastVoteErrors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, shortVoting)
	h.lock(t, alice, 1_000_000)
	p, err := h.governor.Propose(ctx, alice, proposeParams("votes", transferCall()))
	require.NoError(t, err)
	h.at(1)

	_, err = h.governor.CastVote(ctx, alice, common.HexToHash("0xbeef"), domain.VoteFor)
	assert.True(t, errors.Is(err, domain.ErrNonexistentProposal))
	assert.Equal(t, domain.KindState, domain.KindOf(err))

	_, err = h.governor.CastVote(ctx, alice, p.ID, domain.VoteType(3))
	assert.True(t, errors.Is(err, domain.ErrInvalidVoteType))

	for _, option := range []domain.VoteType{domain.VoteFor, domain.VoteAgainst, domain.VoteAbstain} {
		_, err = h.governor.CastVote(ctx, bob, p.ID, option)
		if option == domain.VoteFor {
			require.NoError(t, err, "first vote is accepted even with zero weight")
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrAlreadyVoted), "option %s", option)
	}

	voted, err := h.governor.HasVoted(ctx, p.ID, bob)
	require.NoError(t, err)
	assert.True(t, voted)
}

func TestGovernor_SnapshotFreezesPower(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, shortVoting)
	h.lock(t, alice, 1_000_000)

	p, err := h.governor.Propose(ctx, alice, proposeParams("flash", transferCall()))
	require.NoError(t, err)

	// Power acquired after the snapshot does not count.
	h.at(1)
	h.lock(t, bob, 100_000_000)
	ballot, err := h.governor.CastVoteWithReason(ctx, bob, p.ID, domain.VoteAgainst, "late")
	require.NoError(t, err)
	assert.True(t, ballot.Weight.IsZero())
	assert.Equal(t, "late", ballot.Reason)

	// Delegating after the snapshot does not move snapshot power either.
	require.NoError(t, h.delegations.Delegate(ctx, alice, carol))
	ballot, err = h.governor.CastVote(ctx, carol, p.ID, domain.VoteAgainst)
	require.NoError(t, err)
	assert.True(t, ballot.Weight.IsZero())

	ballot, err = h.governor.CastVote(ctx, alice, p.ID, domain.VoteFor)
	require.NoError(t, err)
	assert.Equal(t, "1000", ballot.Weight.Dec())

	votes, err := h.governor.ProposalVotes(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000", votes.For.Dec())
	assert.True(t, votes.Against.IsZero())
}

func TestGovernor_SnapshotSupplyMatchesBallotWeights(t *testing.T) {
	ctx := context.Background()

	t.Run("locks written in the propose tick", func(t *testing.T) {
		h := newHarness(t, shortVoting)
		h.at(100)
		h.lock(t, alice, 1_000_000)

		h.at(200)
		p, err := h.governor.Propose(ctx, alice, proposeParams("same tick", transferCall()))
		require.NoError(t, err)
		h.lock(t, bob, 4_000_000_000)

		view, err := h.governor.Proposal(ctx, p.ID)
		require.NoError(t, err)
		assert.Nil(t, view.Proposal.SnapshotSupply, "supply is not read while the snapshot tick is open")
		assert.Nil(t, view.QuorumVotes)

		h.at(p.VoteStart)
		ballot, err := h.governor.CastVote(ctx, bob, p.ID, domain.VoteFor)
		require.NoError(t, err)
		aliceWeight, err := h.governor.VotesFor(p.ID, alice)
		require.NoError(t, err)

		view, err = h.governor.Proposal(ctx, p.ID)
		require.NoError(t, err)
		want := new(uint256.Int).Add(aliceWeight, ballot.Weight)
		assert.Equal(t, want, view.Proposal.SnapshotSupply)
		assert.True(t, ballot.Weight.Cmp(view.Proposal.SnapshotSupply) <= 0)

		// Later locks never move a settled supply.
		h.at(p.VoteStart + 1)
		h.lock(t, carol, 9_000_000_000)
		view, err = h.governor.Proposal(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, want, view.Proposal.SnapshotSupply)
	})

	t.Run("parameters changed after propose", func(t *testing.T) {
		h := newHarness(t, shortVoting)
		h.lock(t, alice, 1_000_000)
		p, err := h.governor.Propose(ctx, alice, proposeParams("frozen params", transferCall()))
		require.NoError(t, err)

		params, _ := h.governor.Parameters()
		params.RootPower = 3
		require.NoError(t, h.governor.SetVotingParams(ctx, admin, params))

		h.at(p.VoteStart)
		ballot, err := h.governor.CastVote(ctx, alice, p.ID, domain.VoteFor)
		require.NoError(t, err)
		assert.Equal(t, "1000", ballot.Weight.Dec())

		view, err := h.governor.Proposal(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, ballot.Weight, view.Proposal.SnapshotSupply)
	})
}

func TestGovernor_Quorum(t *testing.T) {
	ctx := context.Background()
	withQuorum := func(s *models.State) {
		shortVoting(s)
		s.Governor.QuorumPercent = 10
	}

	tests := []struct {
		name  string
		setup func(t *testing.T, h *harness)
		votes map[common.Address]domain.VoteType
		want  domain.ProposalState
	}{
		{
			// supply 11000, quorum needs 1100, 1000 cast
			name: "participation below quorum",
			setup: func(t *testing.T, h *harness) {
				h.lock(t, alice, 1_000_000)
				h.lock(t, bob, 100_000_000)
			},
			votes: map[common.Address]domain.VoteType{alice: domain.VoteFor},
			want:  domain.ProposalDefeated,
		},
		{
			// supply 11200, quorum needs 1120, 1200 cast; abstain counts
			name: "abstain reaches quorum",
			setup: func(t *testing.T, h *harness) {
				h.lock(t, alice, 1_000_000)
				h.lock(t, bob, 100_000_000)
				h.lock(t, carol, 40_000)
			},
			votes: map[common.Address]domain.VoteType{alice: domain.VoteFor, carol: domain.VoteAbstain},
			want:  domain.ProposalSucceeded,
		},
		{
			name: "quorum met without majority",
			setup: func(t *testing.T, h *harness) {
				h.lock(t, alice, 1_000_000)
				h.lock(t, bob, 100_000_000)
			},
			votes: map[common.Address]domain.VoteType{alice: domain.VoteFor, bob: domain.VoteAgainst},
			want:  domain.ProposalDefeated,
		},
		{
			// supply 10000, quorum needs exactly 1000
			name: "exactly at quorum",
			setup: func(t *testing.T, h *harness) {
				h.lock(t, alice, 1_000_000)
				h.lock(t, bob, 81_000_000)
			},
			votes: map[common.Address]domain.VoteType{alice: domain.VoteFor},
			want:  domain.ProposalSucceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, withQuorum)
			tt.setup(t, h)
			p, err := h.governor.Propose(ctx, alice, proposeParams(tt.name, transferCall()))
			require.NoError(t, err)

			h.at(p.VoteStart)
			for voter, option := range tt.votes {
				_, err := h.governor.CastVote(ctx, voter, p.ID, option)
				require.NoError(t, err)
			}

			h.at(p.VoteEnd)
			view, err := h.governor.Proposal(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, view.State)
		})
	}
}

func TestGovernor_Cancel(t *testing.T) {
	ctx := context.Background()

	propose := func(t *testing.T) (*harness, *models.Proposal) {
		h := newHarness(t, shortVoting)
		h.lock(t, alice, 1_000_000)
		p, err := h.governor.Propose(ctx, alice, proposeParams("cancel", transferCall()))
		require.NoError(t, err)
		return h, p
	}

	t.Run("proposer while pending", func(t *testing.T) {
		h, p := propose(t)
		require.NoError(t, h.governor.Cancel(ctx, alice, p.ID))
		st, _ := h.governor.State(ctx, p.ID)
		assert.Equal(t, domain.ProposalCanceled, st)

		h.at(p.VoteStart)
		_, err := h.governor.CastVote(ctx, alice, p.ID, domain.VoteFor)
		assert.True(t, errors.Is(err, domain.ErrVotingClosed))
	})

	t.Run("proposer once active", func(t *testing.T) {
		h, p := propose(t)
		h.at(p.VoteStart)
		err := h.governor.Cancel(ctx, alice, p.ID)
		var stateErr *domain.ProposalStateError
		require.True(t, errors.As(err, &stateErr))
		assert.Equal(t, domain.ProposalActive, stateErr.Current)
	})

	t.Run("guardian while active", func(t *testing.T) {
		h, p := propose(t)
		h.at(p.VoteStart)
		require.NoError(t, h.governor.Cancel(ctx, admin, p.ID))
		assert.Equal(t, 1, h.sink.count(domain.EventProposalCanceled))
	})

	t.Run("guardian after defeat", func(t *testing.T) {
		h, p := propose(t)
		h.at(p.VoteEnd)
		err := h.governor.Cancel(ctx, admin, p.ID)
		assert.True(t, errors.Is(err, domain.ErrUnexpectedProposalState))
	})

	t.Run("stranger", func(t *testing.T) {
		h, p := propose(t)
		err := h.governor.Cancel(ctx, stranger, p.ID)
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	})
}

func TestGovernor_QueueAndExecute(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, shortVoting)
	h.lock(t, alice, 1_000_000)

	calls := []domain.Effect{grantCall(), transferCall()}
	p, err := h.governor.Propose(ctx, alice, proposeParams("ship it", calls...))
	require.NoError(t, err)

	_, err = h.governor.Queue(ctx, alice, p.ID)
	assert.True(t, errors.Is(err, domain.ErrUnexpectedProposalState), "pending proposals cannot be queued")

	h.at(p.VoteStart)
	_, err = h.governor.CastVote(ctx, alice, p.ID, domain.VoteFor)
	require.NoError(t, err)
	h.at(p.VoteEnd)

	queued, err := h.governor.Queue(ctx, bob, p.ID)
	require.NoError(t, err)
	require.Len(t, queued.OperationIDs, 2)
	st, _ := h.governor.State(ctx, p.ID)
	assert.Equal(t, domain.ProposalQueued, st)

	first, err := h.timelock.Get(queued.OperationIDs[0])
	require.NoError(t, err)
	second, err := h.timelock.Get(queued.OperationIDs[1])
	require.NoError(t, err)
	assert.True(t, first.Operation.Critical, "the role grant is escalated")
	assert.False(t, second.Operation.Critical)
	assert.Equal(t, first.Operation.ETA, second.Operation.ETA, "the plain transfer waits for the escalated grant")
	assert.Equal(t, queued.OperationIDs[0], second.Operation.Predecessor)
	assert.Equal(t, h.addrs.Governor, second.Operation.Proposer)
	assert.Equal(t, domain.ProposalSalt(h.addrs.Governor, p.DescriptionHash), second.Operation.Salt)

	_, err = h.governor.Queue(ctx, bob, p.ID)
	assert.True(t, errors.Is(err, domain.ErrUnexpectedProposalState))

	// Past the grace window the plain transfer would have on its own.
	h.at(p.VoteEnd + minDelay + grace)
	st, _ = h.governor.State(ctx, p.ID)
	assert.Equal(t, domain.ProposalQueued, st)

	h.at(first.Operation.ETA - 1)
	_, err = h.governor.Execute(ctx, bob, p.ID)
	assert.True(t, errors.Is(err, domain.ErrUnexpectedOperationState), "the chain is not due yet")
	assert.Empty(t, h.performer.performed())

	h.at(second.Operation.ETA)
	executed, err := h.governor.Execute(ctx, bob, p.ID)
	require.NoError(t, err)
	assert.True(t, executed.Executed)
	assert.Equal(t, calls, h.performer.performed())

	st, _ = h.governor.State(ctx, p.ID)
	assert.Equal(t, domain.ProposalExecuted, st)
	assert.Equal(t, 1, h.sink.count(domain.EventProposalExecuted))
}

func TestGovernor_QueuedProposalExpires(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, shortVoting)
	h.lock(t, alice, 1_000_000)
	p, err := h.governor.Propose(ctx, alice, proposeParams("late", transferCall()))
	require.NoError(t, err)
	h.at(p.VoteStart)
	_, err = h.governor.CastVote(ctx, alice, p.ID, domain.VoteFor)
	require.NoError(t, err)
	h.at(p.VoteEnd)
	q, err := h.governor.Queue(ctx, alice, p.ID)
	require.NoError(t, err)

	op, err := h.timelock.Get(q.OperationIDs[0])
	require.NoError(t, err)
	h.at(op.Operation.ExpiresAt())
	st, _ := h.governor.State(ctx, p.ID)
	assert.Equal(t, domain.ProposalExpired, st)
}

func TestGovernor_SetVotingParamsIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	before, _ := h.governor.Parameters()

	tests := []struct {
		name   string
		mutate func(p *domain.VotingParams)
		field  string
	}{
		{"root below two", func(p *domain.VotingParams) { p.RootPower = 1 }, "rootPower"},
		{"zero quadratic factor", func(p *domain.VotingParams) { p.QuadraticFactor = 0 }, "quadraticFactor"},
		{"zero time weight", func(p *domain.VotingParams) { p.TimeWeightFactor = 0 }, "timeWeightFactor"},
		{"zero cap", func(p *domain.VotingParams) { p.MaxVotingPower = uint256.NewInt(0) }, "maxVotingPower"},
		{"zero min lock", func(p *domain.VotingParams) { p.MinLockDuration = 0 }, "minLockDuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := before.Clone()
			p.RootPower = 3
			tt.mutate(&p)
			err := h.governor.SetVotingParams(ctx, admin, p)
			var paramErr *domain.ParamError
			require.True(t, errors.As(err, &paramErr))
			assert.Equal(t, tt.field, paramErr.Field)

			after, _ := h.governor.Parameters()
			assert.Equal(t, before, after)
		})
	}

	t.Run("requires params manager", func(t *testing.T) {
		err := h.governor.SetVotingParams(ctx, stranger, before)
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	})

	t.Run("valid update", func(t *testing.T) {
		p := before.Clone()
		p.RootPower = 3
		require.NoError(t, h.governor.SetVotingParams(ctx, admin, p))
		after, _ := h.governor.Parameters()
		assert.Equal(t, uint64(3), after.RootPower)
	})
}

func TestGovernor_SetGovernorSettings(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, settings := h.governor.Parameters()

	bad := settings.Clone()
	bad.VotingDelay = 0
	err := h.governor.SetGovernorSettings(ctx, admin, bad)
	assert.True(t, errors.Is(err, domain.ErrInvalidParams))

	good := settings.Clone()
	good.QuorumPercent = 20
	require.NoError(t, h.governor.SetGovernorSettings(ctx, admin, good))
	_, after := h.governor.Parameters()
	assert.Equal(t, uint64(20), after.QuorumPercent)
}

func TestGovernor_ListFiltersByState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, shortVoting)
	h.lock(t, alice, 1_000_000)

	first, err := h.governor.Propose(ctx, alice, proposeParams("one", transferCall()))
	require.NoError(t, err)
	h.at(5)
	_, err = h.governor.Propose(ctx, alice, proposeParams("two", transferCall()))
	require.NoError(t, err)

	all, err := h.governor.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].Proposal.ID)

	active, err := h.governor.List(ctx, domain.ProposalActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].Proposal.ID)
}
