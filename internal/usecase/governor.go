package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/samber/lo"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// Governor owns proposal creation, vote tallying and the proposal state
// machine. Passed proposals are queued and executed through the timelock.
type Governor struct {
	holder   *StateHolder
	caps     CapabilityRegistry
	supply   SupplySource
	timelock OperationScheduler
	events   EventSink
	progress ProgressSink
	log      *slog.Logger
	self     common.Address
}

// NewGovernor creates a new governor
func NewGovernor(
	holder *StateHolder,
	caps CapabilityRegistry,
	supply SupplySource,
	timelock OperationScheduler,
	events EventSink,
	progress ProgressSink,
	addrs domain.Addresses,
	log *slog.Logger,
) *Governor {
	return &Governor{
		holder:   holder,
		caps:     caps,
		supply:   supply,
		timelock: timelock,
		events:   events,
		progress: progress,
		log:      log.With("component", "Governor"),
		self:     addrs.Governor,
	}
}

// ProposeParams contains the parallel call arrays and description of a
// new proposal
type ProposeParams struct {
	Targets     []common.Address
	Values      []*uint256.Int
	Payloads    [][]byte
	Description string
}

// Calls zips the parallel arrays into effects.
func (p ProposeParams) Calls() ([]domain.Effect, error) {
	n := len(p.Targets)
	if n == 0 || len(p.Values) != n || len(p.Payloads) != n {
		return nil, fmt.Errorf("%w: %d targets, %d values, %d payloads",
			domain.ErrInvalidProposalLength, len(p.Targets), len(p.Values), len(p.Payloads))
	}
	calls := make([]domain.Effect, n)
	for i := range calls {
		calls[i] = domain.Effect{Target: p.Targets[i], Value: p.Values[i], Payload: p.Payloads[i]}.Clone()
	}
	return calls, nil
}

// Propose creates a proposal. Power is frozen at the snapshot (now) and
// ballots open votingDelay later, so power gained after the snapshot tick
// never counts. The quorum supply is read once that tick has closed; see
// settleSnapshot.
func (g *Governor) Propose(ctx context.Context, caller common.Address, params ProposeParams) (*models.Proposal, error) {
	var created *models.Proposal
	var events []domain.Event
	err := g.holder.Update(func(s *models.State, now uint64) error {
		if err := governorPaused(s); err != nil {
			return err
		}
		calls, err := params.Calls()
		if err != nil {
			return err
		}

		power := effectivePowerAt(s, caller, now, s.Voting)
		threshold := s.Governor.ProposalThreshold
		if threshold != nil && power.Cmp(threshold) < 0 {
			return fmt.Errorf("%w: %s has %s, threshold is %s",
				domain.ErrInsufficientProposerVotes, caller.Hex(), power.Dec(), threshold.Dec())
		}

		descHash := domain.HashDescription(params.Description)
		id, err := domain.HashProposal(calls, descHash)
		if err != nil {
			return err
		}
		if _, exists := s.Proposals[id]; exists {
			return fmt.Errorf("%w: %s", domain.ErrProposalAlreadyExists, id.Hex())
		}

		voteStart := now + s.Governor.VotingDelay
		p := &models.Proposal{
			ID:              id,
			Proposer:        caller,
			Description:     params.Description,
			DescriptionHash: descHash,
			Calls:           calls,
			CreatedAt:       now,
			Snapshot:        now,
			VoteStart:       voteStart,
			VoteEnd:         voteStart + s.Governor.VotingPeriod,
			QuorumPercent:   s.Governor.QuorumPercent,
			Params:          s.Voting.Clone(),
			Votes:           models.NewTally(),
			Voters:          make(map[common.Address]models.Ballot),
		}
		s.Proposals[id] = p
		created = p.Clone()

		events = append(events, domain.Event{
			Kind:    domain.EventProposalCreated,
			Surface: domain.SurfaceGovernor,
			At:      now,
			Actor:   caller,
			Subject: id.Hex(),
			Attrs: attrs(
				"calls", strconv.Itoa(len(calls)),
				"voteStart", strconv.FormatUint(p.VoteStart, 10),
				"voteEnd", strconv.FormatUint(p.VoteEnd, 10),
				"snapshot", strconv.FormatUint(p.Snapshot, 10),
				"description", params.Description,
			),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log.Debug("proposal created", "id", created.ID, "proposer", caller, "voteStart", created.VoteStart, "voteEnd", created.VoteEnd)
	publish(ctx, g.events, g.log, events)
	return created, nil
}

// CastVote records a ballot weighted by the caller's effective power at
// the proposal snapshot.
func (g *Governor) CastVote(ctx context.Context, caller common.Address, id common.Hash, option domain.VoteType) (*models.Ballot, error) {
	return g.CastVoteWithReason(ctx, caller, id, option, "")
}

// CastVoteWithReason is CastVote with a free-form reason attached to the
// ballot and its event.
func (g *Governor) CastVoteWithReason(ctx context.Context, caller common.Address, id common.Hash, option domain.VoteType, reason string) (*models.Ballot, error) {
	var ballot models.Ballot
	var events []domain.Event
	err := g.holder.Update(func(s *models.State, now uint64) error {
		if err := governorPaused(s); err != nil {
			return err
		}
		p, ok := s.Proposals[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNonexistentProposal, id.Hex())
		}
		if err := g.settleSnapshot(ctx, s, p, now); err != nil {
			return err
		}
		if st := proposalState(s, p, now); st != domain.ProposalActive {
			return fmt.Errorf("%w: proposal %s is %s, ballots accepted in [%d, %d)",
				domain.ErrVotingClosed, id.Hex(), st, p.VoteStart, p.VoteEnd)
		}
		if p.HasVoted(caller) {
			return fmt.Errorf("%w: %s on %s", domain.ErrAlreadyVoted, caller.Hex(), id.Hex())
		}
		if !option.Valid() {
			return fmt.Errorf("%w: %d", domain.ErrInvalidVoteType, uint8(option))
		}

		weight := effectivePowerAt(s, caller, p.Snapshot, p.Params)
		ballot = models.Ballot{Option: option, Weight: weight, Reason: reason, At: now}
		p.Votes.Add(option, weight)
		if p.Voters == nil {
			p.Voters = make(map[common.Address]models.Ballot)
		}
		p.Voters[caller] = ballot

		events = append(events, domain.Event{
			Kind:    domain.EventVoteCast,
			Surface: domain.SurfaceGovernor,
			At:      now,
			Actor:   caller,
			Subject: id.Hex(),
			Attrs:   attrs("support", option.String(), "weight", weight.Dec(), "reason", reason),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log.Debug("vote cast", "id", id, "voter", caller, "support", option, "weight", ballot.Weight.Dec())
	publish(ctx, g.events, g.log, events)
	ballot.Weight = ballot.Weight.Clone()
	return &ballot, nil
}

// ProposalView is a proposal together with its state at query time
type ProposalView struct {
	Proposal *models.Proposal
	State    domain.ProposalState
	Now      uint64
	// QuorumVotes is the participation needed for the proposal to pass.
	QuorumVotes *uint256.Int
}

// Proposal returns the proposal stored under id.
func (g *Governor) Proposal(ctx context.Context, id common.Hash) (*ProposalView, error) {
	var view *ProposalView
	err := g.holder.View(func(s *models.State, now uint64) error {
		p, ok := s.Proposals[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNonexistentProposal, id.Hex())
		}
		var err error
		view, err = g.newProposalView(ctx, s, p, now)
		return err
	})
	return view, err
}

// State resolves the proposal state at the current time.
func (g *Governor) State(ctx context.Context, id common.Hash) (domain.ProposalState, error) {
	view, err := g.Proposal(ctx, id)
	if err != nil {
		return "", err
	}
	return view.State, nil
}

// ProposalVotes returns the current vote totals of id.
func (g *Governor) ProposalVotes(ctx context.Context, id common.Hash) (models.Tally, error) {
	view, err := g.Proposal(ctx, id)
	if err != nil {
		return models.Tally{}, err
	}
	return view.Proposal.Votes, nil
}

// HasVoted reports whether account already voted on id.
func (g *Governor) HasVoted(ctx context.Context, id common.Hash, account common.Address) (bool, error) {
	view, err := g.Proposal(ctx, id)
	if err != nil {
		return false, err
	}
	return view.Proposal.HasVoted(account), nil
}

// VotesFor returns the weight a ballot from account would carry on id:
// its effective power at the proposal snapshot under the parameters the
// proposal was created with.
func (g *Governor) VotesFor(id common.Hash, account common.Address) (*uint256.Int, error) {
	var weight *uint256.Int
	err := g.holder.View(func(s *models.State, _ uint64) error {
		p, ok := s.Proposals[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNonexistentProposal, id.Hex())
		}
		weight = effectivePowerAt(s, account, p.Snapshot, p.Params)
		return nil
	})
	return weight, err
}

// List returns every proposal, oldest first, optionally filtered by state.
func (g *Governor) List(ctx context.Context, states ...domain.ProposalState) ([]*ProposalView, error) {
	var out []*ProposalView
	err := g.holder.View(func(s *models.State, now uint64) error {
		for _, p := range s.Proposals {
			view, err := g.newProposalView(ctx, s, p, now)
			if err != nil {
				return err
			}
			if len(states) > 0 && !lo.Contains(states, view.State) {
				continue
			}
			out = append(out, view)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Proposal, out[j].Proposal
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID.Cmp(b.ID) < 0
	})
	return out, nil
}

// newProposalView settles the snapshot on a copy, so reads never write
// to the state.
func (g *Governor) newProposalView(ctx context.Context, s *models.State, p *models.Proposal, now uint64) (*ProposalView, error) {
	c := p.Clone()
	if err := g.settleSnapshot(ctx, s, c, now); err != nil {
		return nil, err
	}
	view := &ProposalView{Proposal: c, State: proposalState(s, c, now), Now: now}
	if c.SnapshotSupply != nil {
		view.QuorumVotes, _ = quorumVotes(c)
	}
	return view, nil
}

// settleSnapshot fixes the quorum denominator of p once its snapshot tick
// has closed. Locks and delegations written later in the propose tick then
// count in the supply exactly as they count in ballot weights.
func (g *Governor) settleSnapshot(ctx context.Context, s *models.State, p *models.Proposal, now uint64) error {
	if p.SnapshotSupply != nil || now <= p.Snapshot {
		return nil
	}
	supply, err := g.supply.VotingSupplyAt(ctx, s, p.Snapshot, p.Params)
	if err != nil {
		return fmt.Errorf("failed to read voting supply: %w", err)
	}
	p.SnapshotSupply = supply
	return nil
}

// Cancel stops a proposal. The proposer may cancel before voting opens;
// a guardian may cancel at any point before it is queued.
func (g *Governor) Cancel(ctx context.Context, caller common.Address, id common.Hash) error {
	var events []domain.Event
	err := g.holder.Update(func(s *models.State, now uint64) error {
		p, ok := s.Proposals[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNonexistentProposal, id.Hex())
		}
		if err := g.settleSnapshot(ctx, s, p, now); err != nil {
			return err
		}
		st := proposalState(s, p, now)
		isGuardian := g.caps.HasCapability(caller, domain.CapabilityGuardian)
		isProposer := caller == p.Proposer

		switch {
		case isGuardian:
			expected := []domain.ProposalState{domain.ProposalPending, domain.ProposalActive, domain.ProposalSucceeded}
			if !lo.Contains(expected, st) {
				return &domain.ProposalStateError{ID: id, Current: st, Expected: expected}
			}
		case isProposer:
			if st != domain.ProposalPending {
				return &domain.ProposalStateError{ID: id, Current: st, Expected: []domain.ProposalState{domain.ProposalPending}}
			}
		default:
			return &domain.CapabilityError{Account: caller, Capability: domain.CapabilityGuardian}
		}

		p.Canceled = true
		p.CanceledAt = now
		events = append(events, domain.Event{
			Kind:    domain.EventProposalCanceled,
			Surface: domain.SurfaceGovernor,
			At:      now,
			Actor:   caller,
			Subject: id.Hex(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	g.log.Info("proposal canceled", "id", id, "caller", caller)
	publish(ctx, g.events, g.log, events)
	return nil
}

// Queue hands every call of a Succeeded proposal to the timelock as one
// predecessor chain, scheduled by the governor identity with the minimum
// delay.
func (g *Governor) Queue(ctx context.Context, caller common.Address, id common.Hash) (*models.Proposal, error) {
	var calls []domain.Effect
	var salt common.Hash
	var delay uint64
	err := g.holder.View(func(s *models.State, now uint64) error {
		if err := governorPaused(s); err != nil {
			return err
		}
		p, ok := s.Proposals[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNonexistentProposal, id.Hex())
		}
		p = p.Clone()
		if err := g.settleSnapshot(ctx, s, p, now); err != nil {
			return err
		}
		if st := proposalState(s, p, now); st != domain.ProposalSucceeded {
			return &domain.ProposalStateError{ID: id, Current: st, Expected: []domain.ProposalState{domain.ProposalSucceeded}}
		}
		calls = p.Calls
		salt = domain.ProposalSalt(g.self, p.DescriptionHash)
		delay = s.Timelock.MinDelay
		return nil
	})
	if err != nil {
		return nil, err
	}

	ops, err := g.timelock.ScheduleChain(ctx, g.self, calls, salt, delay)
	if err != nil {
		return nil, fmt.Errorf("failed to queue proposal %s: %w", id.Hex(), err)
	}

	var queued *models.Proposal
	var events []domain.Event
	err = g.holder.Update(func(s *models.State, now uint64) error {
		p := s.Proposals[id]
		if err := g.settleSnapshot(ctx, s, p, now); err != nil {
			return err
		}
		if p.Queued() {
			return &domain.ProposalStateError{ID: id, Current: domain.ProposalQueued, Expected: []domain.ProposalState{domain.ProposalSucceeded}}
		}
		p.OperationIDs = lo.Map(ops, func(op *models.TimelockOperation, _ int) common.Hash { return op.ID })
		p.QueuedAt = now
		queued = p.Clone()

		eta := lo.MaxBy(ops, func(a, b *models.TimelockOperation) bool { return a.ETA > b.ETA }).ETA
		events = append(events, domain.Event{
			Kind:    domain.EventProposalQueued,
			Surface: domain.SurfaceGovernor,
			At:      now,
			Actor:   caller,
			Subject: id.Hex(),
			Attrs:   attrs("eta", strconv.FormatUint(eta, 10), "operations", strconv.Itoa(len(ops))),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log.Debug("proposal queued", "id", id, "operations", len(ops))
	publish(ctx, g.events, g.log, events)
	return queued, nil
}

// Execute runs the queued calls of a proposal in order. Calls already
// executed are skipped, so an interrupted execution can be resumed.
func (g *Governor) Execute(ctx context.Context, caller common.Address, id common.Hash) (*models.Proposal, error) {
	var queued []models.QueuedCall
	var salt common.Hash
	done := make(map[common.Hash]bool)
	err := g.holder.View(func(s *models.State, now uint64) error {
		if err := governorPaused(s); err != nil {
			return err
		}
		p, ok := s.Proposals[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNonexistentProposal, id.Hex())
		}
		if st := proposalState(s, p, now); st != domain.ProposalQueued {
			return &domain.ProposalStateError{ID: id, Current: st, Expected: []domain.ProposalState{domain.ProposalQueued}}
		}
		queued = p.Clone().Ops()
		salt = domain.ProposalSalt(g.self, p.DescriptionHash)
		for _, opID := range p.OperationIDs {
			done[opID] = s.Operations[opID].StateAt(now) == domain.OperationDone
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, qc := range queued {
		if done[qc.OperationID] {
			continue
		}
		g.progress.OnProgress(ctx, ProgressEvent{
			Stage:   "execute",
			Current: qc.Index + 1,
			Total:   len(queued),
			Message: fmt.Sprintf("executing call %d/%d on %s", qc.Index+1, len(queued), qc.Call.Target.Hex()),
			Spinner: true,
		})
		if _, err := g.timelock.Execute(ctx, g.self, qc.Call, qc.Predecessor, salt); err != nil {
			g.progress.Error(fmt.Sprintf("call %d/%d failed", qc.Index+1, len(queued)))
			return nil, fmt.Errorf("failed to execute call %d of proposal %s: %w", qc.Index, id.Hex(), err)
		}
	}

	var executed *models.Proposal
	var events []domain.Event
	err = g.holder.Update(func(s *models.State, now uint64) error {
		p := s.Proposals[id]
		p.Executed = true
		p.ExecutedAt = now
		executed = p.Clone()
		events = append(events, domain.Event{
			Kind:    domain.EventProposalExecuted,
			Surface: domain.SurfaceGovernor,
			At:      now,
			Actor:   caller,
			Subject: id.Hex(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.progress.Info(fmt.Sprintf("executed %d calls", len(queued)))
	g.log.Debug("proposal executed", "id", id)
	publish(ctx, g.events, g.log, events)
	return executed, nil
}

// SetVotingParams replaces all five voting parameters at once. Every field
// is validated before any is applied.
func (g *Governor) SetVotingParams(ctx context.Context, caller common.Address, params domain.VotingParams) error {
	var events []domain.Event
	err := g.holder.Update(func(s *models.State, now uint64) error {
		if err := requireCapability(g.caps, caller, domain.CapabilityParamsManager); err != nil {
			return err
		}
		if err := params.Validate(); err != nil {
			return err
		}
		s.Voting = params.Clone()
		events = append(events, domain.Event{
			Kind:    domain.EventParamsUpdated,
			Surface: domain.SurfaceGovernor,
			At:      now,
			Actor:   caller,
			Attrs: attrs(
				"maxVotingPower", params.MaxVotingPower.Dec(),
				"quadraticFactor", strconv.FormatUint(params.QuadraticFactor, 10),
				"timeWeightFactor", strconv.FormatUint(params.TimeWeightFactor, 10),
				"rootPower", strconv.FormatUint(params.RootPower, 10),
				"minLockDuration", strconv.FormatUint(params.MinLockDuration, 10),
			),
		})
		return nil
	})
	if err != nil {
		return err
	}

	g.log.Info("voting params updated", "caller", caller)
	publish(ctx, g.events, g.log, events)
	return nil
}

// SetGovernorSettings replaces the proposal lifecycle settings. Proposals
// already created keep the window and quorum they were created with.
func (g *Governor) SetGovernorSettings(ctx context.Context, caller common.Address, settings domain.GovernorSettings) error {
	var events []domain.Event
	err := g.holder.Update(func(s *models.State, now uint64) error {
		if err := requireCapability(g.caps, caller, domain.CapabilityParamsManager); err != nil {
			return err
		}
		if err := settings.Validate(); err != nil {
			return err
		}
		s.Governor = settings.Clone()
		events = append(events, domain.Event{
			Kind:    domain.EventSettingsUpdated,
			Surface: domain.SurfaceGovernor,
			At:      now,
			Actor:   caller,
			Attrs: attrs(
				"votingDelay", strconv.FormatUint(settings.VotingDelay, 10),
				"votingPeriod", strconv.FormatUint(settings.VotingPeriod, 10),
				"proposalThreshold", settings.ProposalThreshold.Dec(),
				"quorumPercent", strconv.FormatUint(settings.QuorumPercent, 10),
			),
		})
		return nil
	})
	if err != nil {
		return err
	}

	g.log.Info("governor settings updated", "caller", caller)
	publish(ctx, g.events, g.log, events)
	return nil
}

// Parameters returns the current voting parameters and governor settings.
func (g *Governor) Parameters() (domain.VotingParams, domain.GovernorSettings) {
	var vp domain.VotingParams
	var gs domain.GovernorSettings
	_ = g.holder.View(func(s *models.State, _ uint64) error {
		vp, gs = s.Voting.Clone(), s.Governor.Clone()
		return nil
	})
	return vp, gs
}

// proposalState is a pure function of the stored proposal, the timelock
// operations it was queued under and now.
func proposalState(s *models.State, p *models.Proposal, now uint64) domain.ProposalState {
	if p.Canceled {
		return domain.ProposalCanceled
	}
	if p.Queued() {
		allDone := true
		for _, id := range p.OperationIDs {
			switch s.Operations[id].StateAt(now) {
			case domain.OperationDone:
			case domain.OperationCanceled:
				return domain.ProposalCanceled
			case domain.OperationExpired:
				return domain.ProposalExpired
			default:
				allDone = false
			}
		}
		if allDone {
			return domain.ProposalExecuted
		}
		return domain.ProposalQueued
	}
	switch {
	case now < p.VoteStart:
		return domain.ProposalPending
	case now < p.VoteEnd:
		return domain.ProposalActive
	case quorumReached(p) && zeroIfNilInt(p.Votes.For).Cmp(zeroIfNilInt(p.Votes.Against)) > 0:
		return domain.ProposalSucceeded
	default:
		return domain.ProposalDefeated
	}
}

// quorumReached compares participation*100 against quorumPercent*supply so
// no precision is lost to division.
func quorumReached(p *models.Proposal) bool {
	cast, overflow := new(uint256.Int).MulOverflow(p.Votes.Total(), uint256.NewInt(100))
	if overflow {
		return true
	}
	need, overflow := new(uint256.Int).MulOverflow(zeroIfNilInt(p.SnapshotSupply), uint256.NewInt(p.QuorumPercent))
	if overflow {
		return false
	}
	return cast.Cmp(need) >= 0
}

// quorumVotes is ceil(quorumPercent * supply / 100).
func quorumVotes(p *models.Proposal) (*uint256.Int, bool) {
	need, overflow := new(uint256.Int).MulOverflow(zeroIfNilInt(p.SnapshotSupply), uint256.NewInt(p.QuorumPercent))
	if overflow {
		return nil, false
	}
	hundred := uint256.NewInt(100)
	q, rem := new(uint256.Int).DivMod(need, hundred, new(uint256.Int))
	if !rem.IsZero() {
		q.AddUint64(q, 1)
	}
	return q, true
}

func zeroIfNilInt(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
