package effects

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/domain"
)

// ParamsManager is the governor surface reachable through effects
type ParamsManager interface {
	SetVotingParams(ctx context.Context, caller common.Address, params domain.VotingParams) error
	SetGovernorSettings(ctx context.Context, caller common.Address, settings domain.GovernorSettings) error
}

// EmergencyControl toggles pause flags and emergency mode
type EmergencyControl interface {
	SetEmergencyMode(ctx context.Context, caller common.Address, enabled bool) error
	Pause(ctx context.Context, caller common.Address, surface domain.Surface) error
	Unpause(ctx context.Context, caller common.Address, surface domain.Surface) error
}

// DelayManager is the self-governed timelock surface
type DelayManager interface {
	UpdateDelay(ctx context.Context, caller common.Address, delay uint64) error
}

// RoleManager changes capability membership
type RoleManager interface {
	Grant(ctx context.Context, caller common.Address, capability domain.Capability, account common.Address) error
	Revoke(ctx context.Context, caller common.Address, capability domain.Capability, account common.Address) error
	Renounce(ctx context.Context, caller common.Address, capability domain.Capability, account common.Address) error
}

// GovernorHandler dispatches calls addressed to the governor
type GovernorHandler struct {
	codec     *abi.Codec
	params    ParamsManager
	emergency EmergencyControl
}

// NewGovernorHandler creates a new governor handler
func NewGovernorHandler(codec *abi.Codec, params ParamsManager, emergency EmergencyControl) *GovernorHandler {
	return &GovernorHandler{codec: codec, params: params, emergency: emergency}
}

func (h *GovernorHandler) Handle(ctx context.Context, caller common.Address, effect domain.Effect) ([]byte, error) {
	call, err := decode(h.codec, effect)
	if err != nil {
		return nil, err
	}
	switch call.Method {
	case "setVotingParams":
		var p domain.VotingParams
		if p.MaxVotingPower, err = uintArg(call, "maxVotingPower"); err != nil {
			return nil, err
		}
		if p.QuadraticFactor, err = uint64Arg(call, "quadraticFactor"); err != nil {
			return nil, err
		}
		if p.TimeWeightFactor, err = uint64Arg(call, "timeWeightFactor"); err != nil {
			return nil, err
		}
		if p.RootPower, err = uint64Arg(call, "rootPower"); err != nil {
			return nil, err
		}
		if p.MinLockDuration, err = uint64Arg(call, "minLockDuration"); err != nil {
			return nil, err
		}
		return nil, h.params.SetVotingParams(ctx, caller, p)
	case "setGovernorSettings":
		var s domain.GovernorSettings
		if s.VotingDelay, err = uint64Arg(call, "votingDelay"); err != nil {
			return nil, err
		}
		if s.VotingPeriod, err = uint64Arg(call, "votingPeriod"); err != nil {
			return nil, err
		}
		if s.ProposalThreshold, err = uintArg(call, "proposalThreshold"); err != nil {
			return nil, err
		}
		if s.QuorumPercent, err = uint64Arg(call, "quorumPercent"); err != nil {
			return nil, err
		}
		return nil, h.params.SetGovernorSettings(ctx, caller, s)
	case "setEmergencyMode":
		enabled, _ := call.Inputs[0].Value.(bool)
		return nil, h.emergency.SetEmergencyMode(ctx, caller, enabled)
	case "pause":
		return nil, h.emergency.Pause(ctx, caller, domain.SurfaceGovernor)
	case "unpause":
		return nil, h.emergency.Unpause(ctx, caller, domain.SurfaceGovernor)
	}
	return nil, fmt.Errorf("%w: governor does not implement %s", ErrUnsupportedCall, call.Signature)
}

// TimelockHandler dispatches calls addressed to the timelock
type TimelockHandler struct {
	codec     *abi.Codec
	delay     DelayManager
	emergency EmergencyControl
}

// NewTimelockHandler creates a new timelock handler
func NewTimelockHandler(codec *abi.Codec, delay DelayManager, emergency EmergencyControl) *TimelockHandler {
	return &TimelockHandler{codec: codec, delay: delay, emergency: emergency}
}

func (h *TimelockHandler) Handle(ctx context.Context, caller common.Address, effect domain.Effect) ([]byte, error) {
	call, err := decode(h.codec, effect)
	if err != nil {
		return nil, err
	}
	switch call.Method {
	case "updateDelay":
		d, err := uint64Arg(call, "newDelay")
		if err != nil {
			return nil, err
		}
		return nil, h.delay.UpdateDelay(ctx, caller, d)
	case "pause":
		return nil, h.emergency.Pause(ctx, caller, domain.SurfaceTimelock)
	case "unpause":
		return nil, h.emergency.Unpause(ctx, caller, domain.SurfaceTimelock)
	}
	return nil, fmt.Errorf("%w: timelock does not implement %s", ErrUnsupportedCall, call.Signature)
}

// RolesHandler dispatches calls addressed to the role registry
type RolesHandler struct {
	codec *abi.Codec
	roles RoleManager
}

// NewRolesHandler creates a new roles handler
func NewRolesHandler(codec *abi.Codec, roles RoleManager) *RolesHandler {
	return &RolesHandler{codec: codec, roles: roles}
}

func (h *RolesHandler) Handle(ctx context.Context, caller common.Address, effect domain.Effect) ([]byte, error) {
	call, err := decode(h.codec, effect)
	if err != nil {
		return nil, err
	}
	var change func(context.Context, common.Address, domain.Capability, common.Address) error
	switch call.Method {
	case "grantRole":
		change = h.roles.Grant
	case "revokeRole":
		change = h.roles.Revoke
	case "renounceRole":
		change = h.roles.Renounce
	default:
		return nil, fmt.Errorf("%w: roles does not implement %s", ErrUnsupportedCall, call.Signature)
	}
	role, _ := call.Inputs[0].Value.([32]byte)
	account, _ := call.Inputs[1].Value.(common.Address)
	return nil, change(ctx, caller, domain.Capability(role), account)
}

// decode rejects value transfers to in-process targets before decoding.
func decode(codec *abi.Codec, effect domain.Effect) (*abi.DecodedCall, error) {
	if !effect.ValueOrZero().IsZero() {
		return nil, fmt.Errorf("%w: %s", ErrValueNotAccepted, effect.Target.Hex())
	}
	call, err := codec.Decode(effect.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedCall, err)
	}
	return call, nil
}

func uintArg(call *abi.DecodedCall, name string) (*uint256.Int, error) {
	raw, ok := call.Arg(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no argument %s", ErrUnsupportedCall, call.Signature, name)
	}
	b, _ := raw.(*big.Int)
	return domain.Uint256FromBig(b)
}

func uint64Arg(call *abi.DecodedCall, name string) (uint64, error) {
	v, err := uintArg(call, name)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, &domain.ParamError{Field: name, Reason: "does not fit 64 bits"}
	}
	return v.Uint64(), nil
}
