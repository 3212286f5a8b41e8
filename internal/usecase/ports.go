package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// Clock provides the logical time in seconds
type Clock interface {
	Now() uint64
}

// CapabilityRegistry answers role-gated permission checks
type CapabilityRegistry interface {
	HasCapability(account common.Address, capability domain.Capability) bool
}

// SupplySource answers the quorum denominator for a closed snapshot time
// under a proposal's frozen parameters. The current state is passed so
// ledger-backed sources can answer without re-entering the state holder.
type SupplySource interface {
	VotingSupplyAt(ctx context.Context, state *models.State, at uint64, params domain.VotingParams) (*uint256.Int, error)
}

// EffectPerformer is the single seam through which opaque external calls
// are performed. caller is the identity performing the call.
type EffectPerformer interface {
	Perform(ctx context.Context, caller common.Address, effect domain.Effect) ([]byte, error)
}

// EventSink receives committed events
type EventSink interface {
	Emit(ctx context.Context, events ...domain.Event) error
}

// EventQuery filters indexed events
type EventQuery struct {
	Kinds   []domain.EventKind
	Subject string
	Since   uint64
	Until   uint64
	Limit   int
}

// EventRepository reads back indexed events
type EventRepository interface {
	ListEvents(ctx context.Context, query EventQuery) ([]domain.Event, error)
}

// StateStore handles persistence of the governance state
type StateStore interface {
	Load(ctx context.Context) (*models.State, error)
	Save(ctx context.Context, state *models.State) error
}

// OperationScheduler is the timelock surface the governor queues and
// executes proposals through
type OperationScheduler interface {
	ScheduleChain(ctx context.Context, caller common.Address, calls []domain.Effect, salt common.Hash, delay uint64) ([]*models.TimelockOperation, error)
	Execute(ctx context.Context, caller common.Address, call domain.Effect, predecessor, salt common.Hash) (*models.TimelockOperation, error)
}

// ProposalSelector picks a proposal interactively
type ProposalSelector interface {
	SelectProposal(ctx context.Context, proposals []*ProposalView, prompt string) (*ProposalView, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage   string
	Current int
	Total   int
	Message string
	Spinner bool
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}

// NopEvents discards every event
type NopEvents struct{}

func (NopEvents) Emit(context.Context, ...domain.Event) error { return nil }
