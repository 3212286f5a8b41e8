package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

var (
	alice    = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol    = common.HexToAddress("0x000000000000000000000000000000000000ca01")
	admin    = common.HexToAddress("0x000000000000000000000000000000000000ad01")
	stranger = common.HexToAddress("0x000000000000000000000000000000000000dead")
	target   = common.HexToAddress("0x0000000000000000000000000000000000007a67")
)

type manualClock struct {
	mu  sync.Mutex
	now uint64
}

func (c *manualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type staticCaps struct {
	mu    sync.Mutex
	roles map[domain.Capability]map[common.Address]bool
}

func newStaticCaps() *staticCaps {
	return &staticCaps{roles: make(map[domain.Capability]map[common.Address]bool)}
}

func (c *staticCaps) grant(capability domain.Capability, accounts ...common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roles[capability] == nil {
		c.roles[capability] = make(map[common.Address]bool)
	}
	for _, a := range accounts {
		c.roles[capability][a] = true
	}
}

func (c *staticCaps) HasCapability(account common.Address, capability domain.Capability) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roles[capability][account]
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingSink) Emit(_ context.Context, events ...domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recordingSink) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recordingSink) count(kind domain.EventKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

// recordingPerformer records every performed effect; hook, when set, runs
// before the effect is recorded and may fail it.
type recordingPerformer struct {
	mu      sync.Mutex
	calls   []domain.Effect
	callers []common.Address
	hook    func(ctx context.Context, caller common.Address, e domain.Effect) error
}

func (p *recordingPerformer) Perform(ctx context.Context, caller common.Address, e domain.Effect) ([]byte, error) {
	if p.hook != nil {
		if err := p.hook(ctx, caller, e); err != nil {
			return nil, err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, e)
	p.callers = append(p.callers, caller)
	return nil, nil
}

func (p *recordingPerformer) performed() []domain.Effect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Effect(nil), p.calls...)
}

type harness struct {
	clock       *manualClock
	caps        *staticCaps
	sink        *recordingSink
	performer   *recordingPerformer
	addrs       domain.Addresses
	holder      *usecase.StateHolder
	ledger      *usecase.PowerLedger
	delegations *usecase.DelegationRegistry
	emergency   *usecase.EmergencyController
	timelock    *usecase.TimelockExecutor
	governor    *usecase.Governor
}

// newHarness wires every engine over a fresh state. configure may adjust
// the initial state before the engines see it.
func newHarness(t *testing.T, configure ...func(s *models.State)) *harness {
	t.Helper()

	state := models.NewState()
	for _, fn := range configure {
		fn(state)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		clock:     &manualClock{},
		caps:      newStaticCaps(),
		sink:      &recordingSink{},
		performer: &recordingPerformer{},
		addrs:     domain.DefaultAddresses(),
	}
	h.holder = usecase.NewStateHolder(state, h.clock)
	h.ledger = usecase.NewPowerLedger(h.holder, h.sink, log)
	h.delegations = usecase.NewDelegationRegistry(h.holder, h.sink, log)
	h.emergency = usecase.NewEmergencyController(h.holder, h.caps, h.sink, log)
	h.timelock = usecase.NewTimelockExecutor(h.holder, h.caps, usecase.NewCriticalDetector(nil), h.performer, h.sink, h.addrs, log)
	h.governor = usecase.NewGovernor(h.holder, h.caps, usecase.NewLedgerSupply(), h.timelock, h.sink, usecase.NopProgress{}, h.addrs, log)

	h.caps.grant(domain.CapabilityProposer, admin, h.addrs.Governor)
	h.caps.grant(domain.CapabilityExecutor, common.Address{})
	h.caps.grant(domain.CapabilityCanceller, admin)
	h.caps.grant(domain.CapabilityEmergency, admin)
	h.caps.grant(domain.CapabilityGuardian, admin)
	h.caps.grant(domain.CapabilityParamsManager, admin)
	return h
}

func (h *harness) at(t uint64) { h.clock.Set(t) }

func (h *harness) lock(t *testing.T, account common.Address, amount uint64) {
	t.Helper()
	_, err := h.ledger.Lock(context.Background(), account, uint256.NewInt(amount))
	require.NoError(t, err)
}

func shortVoting(s *models.State) {
	s.Governor.VotingDelay = 1
	s.Governor.VotingPeriod = 10
}

func call(to common.Address, signature string, args ...byte) domain.Effect {
	sel := domain.Selector(signature)
	payload := append(sel[:], args...)
	return domain.Effect{Target: to, Value: new(uint256.Int), Payload: payload}
}

func proposeParams(description string, calls ...domain.Effect) usecase.ProposeParams {
	p := usecase.ProposeParams{Description: description}
	for _, c := range calls {
		p.Targets = append(p.Targets, c.Target)
		p.Values = append(p.Values, c.Value)
		p.Payloads = append(p.Payloads, c.Payload)
	}
	return p
}
