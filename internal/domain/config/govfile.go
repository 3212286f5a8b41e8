package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/trebuchet-org/govlock/internal/domain"
)

// ProjectConfig represents the govlock.toml project file
type ProjectConfig struct {
	Voting   VotingConfig        `toml:"voting"`
	Governor GovernorConfig      `toml:"governor"`
	Timelock TimelockConfig      `toml:"timelock"`
	Registry RegistryConfig      `toml:"registry"`
	Roles    map[string][]string `toml:"roles"`
	Critical []CriticalConfig    `toml:"critical"`
	Accounts map[string]string   `toml:"accounts"`
}

// VotingConfig represents the [voting] section. Zero values keep the
// built-in defaults.
type VotingConfig struct {
	MaxVotingPower   string        `toml:"max_voting_power,omitempty"`
	QuadraticFactor  uint64        `toml:"quadratic_factor,omitempty"`
	TimeWeightFactor uint64        `toml:"time_weight_factor,omitempty"`
	RootPower        uint64        `toml:"root_power,omitempty"`
	MinLockDuration  time.Duration `toml:"min_lock_duration,omitempty"`
}

// GovernorConfig represents the [governor] section
type GovernorConfig struct {
	Address           string        `toml:"address,omitempty"`
	VotingDelay       time.Duration `toml:"voting_delay,omitempty"`
	VotingPeriod      time.Duration `toml:"voting_period,omitempty"`
	ProposalThreshold string        `toml:"proposal_threshold,omitempty"`
	QuorumPercent     uint64        `toml:"quorum_percent,omitempty"`
}

// TimelockConfig represents the [timelock] section
type TimelockConfig struct {
	Address            string        `toml:"address,omitempty"`
	MinDelay           time.Duration `toml:"min_delay,omitempty"`
	CriticalEscalation time.Duration `toml:"critical_escalation,omitempty"`
	GracePeriod        time.Duration `toml:"grace_period,omitempty"`
	ExecuteWhilePaused *bool         `toml:"execute_while_paused,omitempty"`
	OpenExecutor       *bool         `toml:"open_executor,omitempty"`
}

// RegistryConfig represents the [registry] section
type RegistryConfig struct {
	Address string `toml:"address,omitempty"`
}

// CriticalConfig represents one [[critical]] fingerprint
type CriticalConfig struct {
	Signature string `toml:"signature"`
	Target    string `toml:"target,omitempty"`
}

// DefaultProjectConfig is used when no govlock.toml exists.
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Roles:    map[string][]string{},
		Accounts: map[string]string{},
	}
}

// Addresses resolves the identities of the built-in surfaces.
func (c *ProjectConfig) Addresses() (domain.Addresses, error) {
	addrs := domain.DefaultAddresses()
	for _, f := range []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"governor.address", c.Governor.Address, &addrs.Governor},
		{"timelock.address", c.Timelock.Address, &addrs.Timelock},
		{"registry.address", c.Registry.Address, &addrs.Roles},
	} {
		if f.raw == "" {
			continue
		}
		if !common.IsHexAddress(f.raw) {
			return domain.Addresses{}, fmt.Errorf("%s: invalid address %q", f.name, f.raw)
		}
		*f.dst = common.HexToAddress(f.raw)
	}
	return addrs, nil
}

// ResolveAccount accepts a hex address, a name from [accounts] or one of
// the built-in surface names.
func (c *ProjectConfig) ResolveAccount(name string) (common.Address, error) {
	name = strings.TrimSpace(name)
	if common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}
	if raw, ok := c.Accounts[name]; ok {
		if !common.IsHexAddress(raw) {
			return common.Address{}, fmt.Errorf("accounts.%s: invalid address %q", name, raw)
		}
		return common.HexToAddress(raw), nil
	}
	addrs, err := c.Addresses()
	if err != nil {
		return common.Address{}, err
	}
	switch strings.ToLower(name) {
	case "governor":
		return addrs.Governor, nil
	case "timelock":
		return addrs.Timelock, nil
	case "roles", "registry":
		return addrs.Roles, nil
	case "anyone", "open":
		return common.Address{}, nil
	}
	return common.Address{}, fmt.Errorf("unknown account %q", name)
}

// AccountName is the reverse of ResolveAccount for display.
func (c *ProjectConfig) AccountName(addr common.Address) string {
	names := make([]string, 0, len(c.Accounts))
	for name := range c.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if common.IsHexAddress(c.Accounts[name]) && common.HexToAddress(c.Accounts[name]) == addr {
			return name
		}
	}
	if addrs, err := c.Addresses(); err == nil {
		switch addr {
		case addrs.Governor:
			return "governor"
		case addrs.Timelock:
			return "timelock"
		case addrs.Roles:
			return "roles"
		}
	}
	return ""
}

// VotingParams overlays [voting] on the defaults.
func (c *ProjectConfig) VotingParams() (domain.VotingParams, error) {
	p := domain.DefaultVotingParams()
	v := c.Voting
	if v.MaxVotingPower != "" {
		maxPower, err := uint256.FromDecimal(v.MaxVotingPower)
		if err != nil {
			return p, fmt.Errorf("voting.max_voting_power: %w", err)
		}
		p.MaxVotingPower = maxPower
	}
	if v.QuadraticFactor != 0 {
		p.QuadraticFactor = v.QuadraticFactor
	}
	if v.TimeWeightFactor != 0 {
		p.TimeWeightFactor = v.TimeWeightFactor
	}
	if v.RootPower != 0 {
		p.RootPower = v.RootPower
	}
	if v.MinLockDuration != 0 {
		p.MinLockDuration = seconds(v.MinLockDuration)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("voting: %w", err)
	}
	return p, nil
}

// GovernorSettings overlays [governor] on the defaults.
func (c *ProjectConfig) GovernorSettings() (domain.GovernorSettings, error) {
	s := domain.DefaultGovernorSettings()
	g := c.Governor
	if g.VotingDelay != 0 {
		s.VotingDelay = seconds(g.VotingDelay)
	}
	if g.VotingPeriod != 0 {
		s.VotingPeriod = seconds(g.VotingPeriod)
	}
	if g.ProposalThreshold != "" {
		th, err := uint256.FromDecimal(g.ProposalThreshold)
		if err != nil {
			return s, fmt.Errorf("governor.proposal_threshold: %w", err)
		}
		s.ProposalThreshold = th
	}
	if g.QuorumPercent != 0 {
		s.QuorumPercent = g.QuorumPercent
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("governor: %w", err)
	}
	return s, nil
}

// TimelockSettings overlays [timelock] on the defaults.
func (c *ProjectConfig) TimelockSettings() (domain.TimelockSettings, error) {
	s := domain.DefaultTimelockSettings()
	t := c.Timelock
	if t.MinDelay != 0 {
		s.MinDelay = seconds(t.MinDelay)
	}
	if t.CriticalEscalation != 0 {
		s.CriticalEscalation = seconds(t.CriticalEscalation)
	}
	if t.GracePeriod != 0 {
		s.GracePeriod = seconds(t.GracePeriod)
	}
	if t.ExecuteWhilePaused != nil {
		s.ExecuteWhilePaused = *t.ExecuteWhilePaused
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("timelock: %w", err)
	}
	return s, nil
}

// OpenExecutor reports whether anyone may execute Ready operations.
// Defaults to true.
func (c *ProjectConfig) OpenExecutor() bool {
	return c.Timelock.OpenExecutor == nil || *c.Timelock.OpenExecutor
}

// RoleGrants resolves [roles] into capability members.
func (c *ProjectConfig) RoleGrants() (map[domain.Capability][]common.Address, error) {
	grants := make(map[domain.Capability][]common.Address, len(c.Roles))
	for name, members := range c.Roles {
		capability, err := domain.ParseCapability(name)
		if err != nil {
			return nil, fmt.Errorf("roles.%s: %w", name, err)
		}
		for _, m := range members {
			addr, err := c.ResolveAccount(m)
			if err != nil {
				return nil, fmt.Errorf("roles.%s: %w", name, err)
			}
			grants[capability] = append(grants[capability], addr)
		}
	}
	return grants, nil
}

func seconds(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d / time.Second)
}
