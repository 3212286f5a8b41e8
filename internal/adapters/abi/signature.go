package abi

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/trebuchet-org/govlock/internal/domain"
)

// Signature is a parsed function signature such as "transfer(address,uint256)"
type Signature struct {
	Name      string
	Canonical string
	Inputs    abi.Arguments
}

// ParseSignature parses a flat signature. Tuple and array arguments are not
// supported.
func ParseSignature(sig string) (*Signature, error) {
	sig = strings.ReplaceAll(strings.TrimSpace(sig), " ", "")
	open := strings.IndexByte(sig, '(')
	if open <= 0 || !strings.HasSuffix(sig, ")") {
		return nil, fmt.Errorf("invalid signature %q", sig)
	}
	name := sig[:open]
	inner := sig[open+1 : len(sig)-1]

	parsed := &Signature{Name: name}
	var types []string
	if inner != "" {
		for _, raw := range strings.Split(inner, ",") {
			switch raw {
			case "uint":
				raw = "uint256"
			case "int":
				raw = "int256"
			}
			if strings.ContainsAny(raw, "()[]") {
				return nil, fmt.Errorf("unsupported argument type %q in %q", raw, sig)
			}
			t, err := abi.NewType(raw, "", nil)
			if err != nil {
				return nil, fmt.Errorf("invalid argument type %q: %w", raw, err)
			}
			parsed.Inputs = append(parsed.Inputs, abi.Argument{Type: t})
			types = append(types, raw)
		}
	}
	parsed.Canonical = name + "(" + strings.Join(types, ",") + ")"
	return parsed, nil
}

// Selector returns the 4 byte selector of the canonical signature.
func (s *Signature) Selector() [4]byte {
	return domain.Selector(s.Canonical)
}

// Encode converts string arguments to their ABI types and packs the call.
func (s *Signature) Encode(args []string) ([]byte, error) {
	if len(args) != len(s.Inputs) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", s.Canonical, len(s.Inputs), len(args))
	}
	values := make([]any, len(args))
	for i, raw := range args {
		v, err := parseArg(s.Inputs[i].Type, raw)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i, s.Canonical, err)
		}
		values[i] = v
	}
	packed, err := s.Inputs.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", s.Canonical, err)
	}
	sel := s.Selector()
	return append(sel[:], packed...), nil
}

// EncodeSignature builds a payload from a signature and string arguments
func EncodeSignature(signature string, args []string) ([]byte, error) {
	sig, err := ParseSignature(signature)
	if err != nil {
		return nil, err
	}
	return sig.Encode(args)
}

func parseArg(t abi.Type, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid address %q", raw)
		}
		return common.HexToAddress(raw), nil
	case abi.UintTy, abi.IntTy:
		n, ok := new(big.Int).SetString(raw, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		if t.T == abi.UintTy && (n.Sign() < 0 || n.BitLen() > t.Size) {
			return nil, fmt.Errorf("%s does not fit %s", raw, t)
		}
		if t.T == abi.IntTy && n.BitLen() > t.Size-1 {
			return nil, fmt.Errorf("%s does not fit %s", raw, t)
		}
		return sizedInt(t, n), nil
	case abi.BoolTy:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q", raw)
		}
		return b, nil
	case abi.StringTy:
		return raw, nil
	case abi.BytesTy:
		b, err := hexutil.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes %q: %w", raw, err)
		}
		return b, nil
	case abi.FixedBytesTy:
		b, err := fixedBytes(raw, t.Size)
		if err != nil {
			return nil, err
		}
		v := reflect.New(t.GetType()).Elem()
		reflect.Copy(v, reflect.ValueOf(b))
		return v.Interface(), nil
	}
	return nil, fmt.Errorf("unsupported argument type %s", t)
}

// fixedBytes accepts hex, or a role name for bytes32 so that
// grantRole(bytes32,address) can be written as "GUARDIAN" plus an address.
func fixedBytes(raw string, size int) ([]byte, error) {
	if !strings.HasPrefix(raw, "0x") {
		if size != common.HashLength {
			return nil, fmt.Errorf("invalid bytes%d %q", size, raw)
		}
		c, err := domain.ParseCapability(raw)
		if err != nil {
			return nil, err
		}
		h := c.Hash()
		return h[:], nil
	}
	b, err := hexutil.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid bytes%d %q: %w", size, raw, err)
	}
	if len(b) > size {
		return nil, fmt.Errorf("%q is longer than bytes%d", raw, size)
	}
	// bytesN values are left aligned.
	out := make([]byte, size)
	copy(out, b)
	return out, nil
}

func sizedInt(t abi.Type, n *big.Int) any {
	if t.T == abi.UintTy {
		switch t.Size {
		case 8:
			return uint8(n.Uint64())
		case 16:
			return uint16(n.Uint64())
		case 32:
			return uint32(n.Uint64())
		case 64:
			return n.Uint64()
		}
		return n
	}
	switch t.Size {
	case 8:
		return int8(n.Int64())
	case 16:
		return int16(n.Int64())
	case 32:
		return int32(n.Int64())
	case 64:
		return n.Int64()
	}
	return n
}
