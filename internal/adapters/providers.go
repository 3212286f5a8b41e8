package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/wire"

	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/adapters/capability"
	"github.com/trebuchet-org/govlock/internal/adapters/clock"
	"github.com/trebuchet-org/govlock/internal/adapters/effects"
	"github.com/trebuchet-org/govlock/internal/adapters/events"
	"github.com/trebuchet-org/govlock/internal/adapters/fs"
	"github.com/trebuchet-org/govlock/internal/adapters/interactive"
	"github.com/trebuchet-org/govlock/internal/adapters/progress"
	"github.com/trebuchet-org/govlock/internal/adapters/sqlite"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// ProvideAddresses resolves the built-in surface identities
func ProvideAddresses(cfg *config.RuntimeConfig) (domain.Addresses, error) {
	return cfg.Project.Addresses()
}

// ProvideGenesis builds the genesis from govlock.toml
func ProvideGenesis(cfg *config.RuntimeConfig, addrs domain.Addresses) (usecase.GenesisConfig, error) {
	g := usecase.GenesisConfig{Addresses: addrs, OpenExecutor: cfg.Project.OpenExecutor()}
	var err error
	if g.Voting, err = cfg.Project.VotingParams(); err != nil {
		return g, err
	}
	if g.Governor, err = cfg.Project.GovernorSettings(); err != nil {
		return g, err
	}
	if g.Timelock, err = cfg.Project.TimelockSettings(); err != nil {
		return g, err
	}
	if g.Roles, err = cfg.Project.RoleGrants(); err != nil {
		return g, err
	}
	return g, nil
}

// stateLockTimeout bounds how long an invocation waits for another one
// holding the state lock.
const stateLockTimeout = 30 * time.Second

// ProvideState locks the data directory, loads the persisted state and
// applies genesis the first time the directory is used. The cleanup
// releases the lock, so one invocation holds it until its final save.
func ProvideState(store *fs.StateStoreAdapter, genesis usecase.GenesisConfig) (*models.State, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), stateLockTimeout)
	defer cancel()

	unlock, err := store.Lock(ctx)
	if err != nil {
		return nil, nil, err
	}
	state, err := store.Load(ctx)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	if _, err := usecase.Bootstrap(state, genesis); err != nil {
		unlock()
		return nil, nil, err
	}
	return state, unlock, nil
}

// ProvideCriticalDetector adds the [[critical]] fingerprints to the
// built-in set
func ProvideCriticalDetector(cfg *config.RuntimeConfig) (*usecase.CriticalDetector, error) {
	extra := make([]usecase.Fingerprint, 0, len(cfg.Project.Critical))
	for i, c := range cfg.Project.Critical {
		sig, err := abi.ParseSignature(c.Signature)
		if err != nil {
			return nil, fmt.Errorf("critical[%d]: %w", i, err)
		}
		var target *common.Address
		if c.Target != "" {
			addr, err := cfg.Project.ResolveAccount(c.Target)
			if err != nil {
				return nil, fmt.Errorf("critical[%d]: %w", i, err)
			}
			target = &addr
		}
		extra = append(extra, usecase.NewFingerprint(sig.Canonical, target))
	}
	return usecase.NewCriticalDetector(extra), nil
}

// StateSet provides the persisted state and its clock
var StateSet = wire.NewSet(
	clock.ProvideClock,
	fs.NewStateStoreAdapter,
	ProvideAddresses,
	ProvideGenesis,
	ProvideState,
	usecase.NewStateHolder,
)

// EventSet indexes events in SQLite and mirrors them to the log
var EventSet = wire.NewSet(
	sqlite.ProvideEventStore,
	wire.Bind(new(usecase.EventRepository), new(*sqlite.EventStore)),
	events.NewLogSink,
	events.ProvideEventSink,
)

// EffectSet dispatches timelock calls to the governed surfaces and relays
// the rest to the outbox
var EffectSet = wire.NewSet(
	abi.NewCodec,
	effects.NewOutbox,
	effects.NewRouter,
	wire.Bind(new(usecase.EffectPerformer), new(*effects.Router)),
	effects.ProvideBindings,
)

// CapabilitySet provides the role registry
var CapabilitySet = wire.NewSet(
	capability.NewRegistry,
	wire.Bind(new(usecase.CapabilityRegistry), new(*capability.Registry)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewSelectorAdapter,
	wire.Bind(new(usecase.ProposalSelector), new(*interactive.SelectorAdapter)),
	progress.ProvideProgressSink,
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	StateSet,
	EventSet,
	EffectSet,
	CapabilitySet,
	InteractiveSet,
	ProvideCriticalDetector,
)
