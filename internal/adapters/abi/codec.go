package abi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/trebuchet-org/govlock/internal/domain"
)

// ErrUnknownMethod is returned when a payload selector is not part of the
// governance interface.
var ErrUnknownMethod = errors.New("unknown method")

// governanceABI is the call interface of the governor, the timelock and
// the role registry, plus the common token and proxy calls that show up in
// proposals.
const governanceABI = `[
	{"type":"function","name":"setVotingParams","inputs":[
		{"name":"maxVotingPower","type":"uint256"},
		{"name":"quadraticFactor","type":"uint256"},
		{"name":"timeWeightFactor","type":"uint256"},
		{"name":"rootPower","type":"uint256"},
		{"name":"minLockDuration","type":"uint256"}]},
	{"type":"function","name":"setGovernorSettings","inputs":[
		{"name":"votingDelay","type":"uint256"},
		{"name":"votingPeriod","type":"uint256"},
		{"name":"proposalThreshold","type":"uint256"},
		{"name":"quorumPercent","type":"uint256"}]},
	{"type":"function","name":"setEmergencyMode","inputs":[{"name":"enabled","type":"bool"}]},
	{"type":"function","name":"pause","inputs":[]},
	{"type":"function","name":"unpause","inputs":[]},
	{"type":"function","name":"updateDelay","inputs":[{"name":"newDelay","type":"uint256"}]},
	{"type":"function","name":"grantRole","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}]},
	{"type":"function","name":"revokeRole","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}]},
	{"type":"function","name":"renounceRole","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}]},
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}]},
	{"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}]},
	{"type":"function","name":"setRewardToken","inputs":[{"name":"token","type":"address"}]},
	{"type":"function","name":"upgradeTo","inputs":[{"name":"implementation","type":"address"}]},
	{"type":"function","name":"upgradeToAndCall","inputs":[{"name":"implementation","type":"address"},{"name":"data","type":"bytes"}]},
	{"type":"function","name":"transferOwnership","inputs":[{"name":"newOwner","type":"address"}]}
]`

// Codec encodes and decodes governance call payloads
type Codec struct {
	abi    abi.ABI
	labels map[common.Address]string
}

// NewCodec parses the governance interface and labels the built-in surfaces
func NewCodec(addrs domain.Addresses) (*Codec, error) {
	parsed, err := abi.JSON(strings.NewReader(governanceABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse governance ABI: %w", err)
	}
	return &Codec{
		abi: parsed,
		labels: map[common.Address]string{
			addrs.Governor: "Governor",
			addrs.Timelock: "Timelock",
			addrs.Roles:    "Roles",
		},
	}, nil
}

// DecodedCall represents a human-readable effect
type DecodedCall struct {
	Target    common.Address
	Label     string
	Method    string
	Signature string
	Inputs    []DecodedInput
	Value     *uint256.Int
	RawData   string
}

// DecodedInput represents a decoded function input
type DecodedInput struct {
	Name  string
	Type  string
	Value any
}

// Arg returns the decoded value of the named input.
func (d *DecodedCall) Arg(name string) (any, bool) {
	for _, in := range d.Inputs {
		if in.Name == name {
			return in.Value, true
		}
	}
	return nil, false
}

// Encode packs a call to one of the governance methods
func (c *Codec) Encode(method string, args ...any) ([]byte, error) {
	payload, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}
	return payload, nil
}

// Decode unpacks a payload against the governance interface.
func (c *Codec) Decode(payload []byte) (*DecodedCall, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: payload is %d bytes", ErrUnknownMethod, len(payload))
	}
	method, err := c.abi.MethodById(payload[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: selector %s", ErrUnknownMethod, hexutil.Encode(payload[:4]))
	}
	values, err := method.Inputs.Unpack(payload[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s arguments: %w", method.Sig, err)
	}
	decoded := &DecodedCall{
		Method:    method.RawName,
		Signature: method.Sig,
		RawData:   hexutil.Encode(payload),
	}
	for i, input := range method.Inputs {
		if i < len(values) {
			decoded.Inputs = append(decoded.Inputs, DecodedInput{
				Name:  input.Name,
				Type:  input.Type.String(),
				Value: values[i],
			})
		}
	}
	return decoded, nil
}

// DecodeEffect never fails: payloads outside the governance interface are
// reported with Method "unknown".
func (c *Codec) DecodeEffect(e domain.Effect) *DecodedCall {
	decoded, err := c.Decode(e.Payload)
	if err != nil {
		decoded = &DecodedCall{Method: "unknown", RawData: hexutil.Encode(e.Payload)}
	}
	decoded.Target = e.Target
	decoded.Label = c.labels[e.Target]
	decoded.Value = e.ValueOrZero()
	return decoded
}

// Label names a built-in surface address, or returns "".
func (c *Codec) Label(addr common.Address) string {
	return c.labels[addr]
}

// FormatCompact renders the call as Label.method(args) {value: N}
func (d *DecodedCall) FormatCompact() string {
	target := d.Label
	if target == "" {
		target = d.Target.Hex()
	}

	var call string
	if d.Method == "unknown" {
		call = "unknown"
		if raw := common.FromHex(d.RawData); len(raw) >= 4 {
			call = fmt.Sprintf("%s(%d bytes)", hexutil.Encode(raw[:4]), len(raw)-4)
		} else if len(raw) == 0 {
			call = "()"
		}
	} else {
		args := make([]string, 0, len(d.Inputs))
		for _, input := range d.Inputs {
			val := FormatValue(input.Value)
			if len(val) > 40 {
				val = val[:37] + "..."
			}
			args = append(args, val)
		}
		call = fmt.Sprintf("%s(%s)", d.Method, strings.Join(args, ", "))
	}

	result := target + "." + call
	if d.Value != nil && !d.Value.IsZero() {
		result += fmt.Sprintf(" {value: %s}", d.Value.Dec())
	}
	return result
}

// FormatValue formats a decoded value for human display
func FormatValue(value any) string {
	switch v := value.(type) {
	case common.Address:
		return v.Hex()
	case *big.Int:
		return v.String()
	case []byte:
		if len(v) == 0 {
			return "0x"
		}
		if len(v) <= 32 {
			return hexutil.Encode(v)
		}
		return fmt.Sprintf("%s...(%d bytes)", hexutil.Encode(v[:16]), len(v))
	case string:
		if len(v) > 50 {
			return fmt.Sprintf("%.50s...(%d chars)", v, len(v))
		}
		return fmt.Sprintf(`"%s"`, v)
	case bool:
		return strconv.FormatBool(v)
	case [32]byte:
		// Role ids print by name when known.
		return domain.Capability(v).String()
	default:
		if jsonBytes, err := json.Marshal(v); err == nil {
			jsonStr := string(jsonBytes)
			if len(jsonStr) > 100 {
				return fmt.Sprintf("%.100s...(%d chars)", jsonStr, len(jsonStr))
			}
			return jsonStr
		}
		return fmt.Sprintf("%v", v)
	}
}
