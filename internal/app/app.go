package app

import (
	"log/slog"

	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/adapters/capability"
	"github.com/trebuchet-org/govlock/internal/adapters/effects"
	"github.com/trebuchet-org/govlock/internal/adapters/fs"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config    *config.RuntimeConfig
	Addresses domain.Addresses
	Log       *slog.Logger

	// Shared dependencies
	Selector usecase.ProposalSelector
	Holder   *usecase.StateHolder
	Store    *fs.StateStoreAdapter
	Codec    *abi.Codec

	// Use cases
	Ledger      *usecase.PowerLedger
	Delegations *usecase.DelegationRegistry
	Governor    *usecase.Governor
	Timelock    *usecase.TimelockExecutor
	Emergency   *usecase.EmergencyController

	// Adapters
	Roles    *capability.Registry
	Outbox   *effects.Outbox
	Events   usecase.EventRepository
	Bindings *effects.Bindings
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	addrs domain.Addresses,
	log *slog.Logger,
	selector usecase.ProposalSelector,
	holder *usecase.StateHolder,
	store *fs.StateStoreAdapter,
	codec *abi.Codec,
	ledger *usecase.PowerLedger,
	delegations *usecase.DelegationRegistry,
	governor *usecase.Governor,
	timelock *usecase.TimelockExecutor,
	emergency *usecase.EmergencyController,
	roles *capability.Registry,
	outbox *effects.Outbox,
	events usecase.EventRepository,
	bindings *effects.Bindings,
) (*App, error) {
	return &App{
		Config:      cfg,
		Addresses:   addrs,
		Log:         log,
		Selector:    selector,
		Holder:      holder,
		Store:       store,
		Codec:       codec,
		Ledger:      ledger,
		Delegations: delegations,
		Governor:    governor,
		Timelock:    timelock,
		Emergency:   emergency,
		Roles:       roles,
		Outbox:      outbox,
		Events:      events,
		Bindings:    bindings,
	}, nil
}
