package effects

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/adapters/capability"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// Bindings records which targets the router dispatches in process. The
// router is created before the engines that perform through it, so the
// handlers are attached here once the engines exist.
type Bindings struct {
	Targets []common.Address
}

// ProvideBindings registers the governor, timelock and role handlers
func ProvideBindings(
	router *Router,
	codec *abi.Codec,
	addrs domain.Addresses,
	governor *usecase.Governor,
	timelock *usecase.TimelockExecutor,
	emergency *usecase.EmergencyController,
	roles *capability.Registry,
) *Bindings {
	router.Register(addrs.Governor, NewGovernorHandler(codec, governor, emergency))
	router.Register(addrs.Timelock, NewTimelockHandler(codec, timelock, emergency))
	router.Register(addrs.Roles, NewRolesHandler(codec, roles))
	return &Bindings{Targets: []common.Address{addrs.Governor, addrs.Timelock, addrs.Roles}}
}
