//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"

	"github.com/trebuchet-org/govlock/internal/adapters"
	"github.com/trebuchet-org/govlock/internal/config"
	"github.com/trebuchet-org/govlock/internal/logging"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper) (*App, func(), error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewLedgerSupply,
		wire.Bind(new(usecase.SupplySource), new(*usecase.LedgerSupply)),
		usecase.NewPowerLedger,
		usecase.NewDelegationRegistry,
		usecase.NewEmergencyController,
		usecase.NewTimelockExecutor,
		wire.Bind(new(usecase.OperationScheduler), new(*usecase.TimelockExecutor)),
		usecase.NewGovernor,

		// App
		NewApp,
	)
	return nil, nil, nil
}
