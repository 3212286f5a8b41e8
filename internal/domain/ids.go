package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	tAddress, _      = abi.NewType("address", "", nil)
	tAddressSlice, _ = abi.NewType("address[]", "", nil)
	tUint256, _      = abi.NewType("uint256", "", nil)
	tUint256Slice, _ = abi.NewType("uint256[]", "", nil)
	tBytes, _        = abi.NewType("bytes", "", nil)
	tBytesSlice, _   = abi.NewType("bytes[]", "", nil)
	tBytes32, _      = abi.NewType("bytes32", "", nil)

	operationArgs = abi.Arguments{
		{Type: tAddress}, {Type: tUint256}, {Type: tBytes}, {Type: tBytes32}, {Type: tBytes32},
	}
	proposalArgs = abi.Arguments{
		{Type: tAddressSlice}, {Type: tUint256Slice}, {Type: tBytesSlice}, {Type: tBytes32},
	}
)

// HashOperation derives the timelock operation id as
// keccak256(abi.encode(target, value, payload, predecessor, salt)).
func HashOperation(e Effect, predecessor, salt common.Hash) (common.Hash, error) {
	packed, err := operationArgs.Pack(
		e.Target,
		e.ValueOrZero().ToBig(),
		nonNil(e.Payload),
		[32]byte(predecessor),
		[32]byte(salt),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode operation: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// HashProposal derives the proposal id as
// keccak256(abi.encode(targets, values, payloads, descriptionHash)).
func HashProposal(calls []Effect, descriptionHash common.Hash) (common.Hash, error) {
	targets := make([]common.Address, len(calls))
	values := make([]*big.Int, len(calls))
	payloads := make([][]byte, len(calls))
	for i, c := range calls {
		targets[i] = c.Target
		values[i] = c.ValueOrZero().ToBig()
		payloads[i] = nonNil(c.Payload)
	}
	packed, err := proposalArgs.Pack(targets, values, payloads, [32]byte(descriptionHash))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode proposal: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// HashDescription is the keccak256 of the proposal description text.
func HashDescription(description string) common.Hash {
	return crypto.Keccak256Hash([]byte(description))
}

// ProposalSalt mixes the governor identity into the description hash so two
// governors sharing one timelock never collide: bytes20(governor) ^ hash.
func ProposalSalt(governor common.Address, descriptionHash common.Hash) common.Hash {
	var salt common.Hash
	copy(salt[:], descriptionHash[:])
	for i := 0; i < common.AddressLength; i++ {
		salt[i] ^= governor[i]
	}
	return salt
}

// Selector returns the 4 byte function selector of a canonical signature
// such as "grantRole(bytes32,address)".
func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// Uint256FromBig converts an ABI-decoded integer, rejecting negatives and
// values wider than 256 bits.
func Uint256FromBig(b *big.Int) (*uint256.Int, error) {
	if b == nil {
		return new(uint256.Int), nil
	}
	v, overflow := uint256.FromBig(b)
	if overflow || b.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s does not fit uint256", ErrInvalidAmount, b)
	}
	return v, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
