package usecase

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// GenesisConfig is applied once, to a state that has never been
// initialized. Later runs govern these values through proposals.
type GenesisConfig struct {
	Voting       domain.VotingParams
	Governor     domain.GovernorSettings
	Timelock     domain.TimelockSettings
	Addresses    domain.Addresses
	OpenExecutor bool
	Roles        map[domain.Capability][]common.Address
}

// DefaultGenesis uses the built-in parameters with an open executor role.
func DefaultGenesis() GenesisConfig {
	return GenesisConfig{
		Voting:       domain.DefaultVotingParams(),
		Governor:     domain.DefaultGovernorSettings(),
		Timelock:     domain.DefaultTimelockSettings(),
		Addresses:    domain.DefaultAddresses(),
		OpenExecutor: true,
	}
}

// SystemRoles are the grants wiring the governor and the timelock to each
// other. The timelock administers everything so executed proposals can
// manage roles and parameters.
func SystemRoles(addrs domain.Addresses, openExecutor bool) map[domain.Capability][]common.Address {
	roles := map[domain.Capability][]common.Address{
		domain.CapabilityAdmin:         {addrs.Timelock},
		domain.CapabilityParamsManager: {addrs.Timelock},
		domain.CapabilityEmergency:     {addrs.Timelock},
		domain.CapabilityProposer:      {addrs.Governor},
		domain.CapabilityCanceller:     {addrs.Governor},
		domain.CapabilityExecutor:      {addrs.Governor},
	}
	if openExecutor {
		roles[domain.CapabilityExecutor] = append(roles[domain.CapabilityExecutor], common.Address{})
	}
	return roles
}

// Bootstrap applies genesis to an uninitialized state and reports whether
// it did anything.
func Bootstrap(s *models.State, g GenesisConfig) (bool, error) {
	if s.Initialized {
		return false, nil
	}
	if err := g.Voting.Validate(); err != nil {
		return false, fmt.Errorf("invalid genesis voting params: %w", err)
	}
	if err := g.Governor.Validate(); err != nil {
		return false, fmt.Errorf("invalid genesis governor settings: %w", err)
	}
	if err := g.Timelock.Validate(); err != nil {
		return false, fmt.Errorf("invalid genesis timelock settings: %w", err)
	}
	if !lo.ContainsBy(g.Roles[domain.CapabilityEmergency], func(a common.Address) bool { return !g.Addresses.IsSystem(a) }) {
		// Emergency mode pauses the governor, so only an outside holder can lift it.
		return false, fmt.Errorf("%w: genesis must grant the emergency role to an account other than the governor and the timelock", domain.ErrInvalidParams)
	}

	s.EnsureMaps()
	s.Voting = g.Voting.Clone()
	s.Governor = g.Governor.Clone()
	s.Timelock = g.Timelock
	for _, roles := range []map[domain.Capability][]common.Address{SystemRoles(g.Addresses, g.OpenExecutor), g.Roles} {
		for capability, members := range roles {
			for _, m := range members {
				s.Roles[capability] = models.AddressSetInsert(s.Roles[capability], m)
			}
		}
	}
	s.Initialized = true
	return true, nil
}
