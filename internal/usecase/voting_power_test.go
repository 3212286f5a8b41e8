package usecase_test

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

func TestNthRoot(t *testing.T) {
	maxU256 := new(uint256.Int).SetAllOne()
	maxU128 := new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

	tests := []struct {
		name string
		a    *uint256.Int
		n    uint64
		want *uint256.Int
	}{
		{"zero", uint256.NewInt(0), 2, uint256.NewInt(0)},
		{"one", uint256.NewInt(1), 2, uint256.NewInt(1)},
		{"below perfect square", uint256.NewInt(15), 2, uint256.NewInt(3)},
		{"perfect square", uint256.NewInt(16), 2, uint256.NewInt(4)},
		{"above perfect square", uint256.NewInt(17), 2, uint256.NewInt(4)},
		{"large square", uint256.NewInt(1_000_000_000_000_000_000), 2, uint256.NewInt(1_000_000_000)},
		{"cube", uint256.NewInt(27), 3, uint256.NewInt(3)},
		{"below cube", uint256.NewInt(26), 3, uint256.NewInt(2)},
		{"eighth root", uint256.NewInt(256), 8, uint256.NewInt(2)},
		{"max uint256 square root", maxU256, 2, maxU128},
		{"max uint256 eighth root", maxU256, 8, uint256.NewInt(1<<32 - 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usecase.NthRoot(tt.a, tt.n)
			assert.Equal(t, tt.want.Dec(), got.Dec())
		})
	}
}

func TestNthRootMatchesFloorDefinition(t *testing.T) {
	// r^n <= a < (r+1)^n for a spread of values and every allowed root.
	seed := new(big.Int).SetUint64(0x9e3779b97f4a7c15)
	a := new(big.Int).Set(seed)
	mod := new(big.Int).Lsh(big.NewInt(1), 256)

	for i := 0; i < 200; i++ {
		a.Mul(a, seed).Add(a, big.NewInt(int64(i))).Mod(a, mod)
		shifted := new(big.Int).Rsh(a, uint(i%256))
		in, overflow := uint256.FromBig(shifted)
		require.False(t, overflow)

		for n := uint64(2); n <= domain.MaxRootPower; n++ {
			r := usecase.NthRoot(in, n).ToBig()
			lo := new(big.Int).Exp(r, big.NewInt(int64(n)), nil)
			hi := new(big.Int).Exp(new(big.Int).Add(r, big.NewInt(1)), big.NewInt(int64(n)), nil)
			require.True(t, lo.Cmp(shifted) <= 0, "root %d of %s: %s^n too large", n, shifted, r)
			require.True(t, hi.Cmp(shifted) > 0, "root %d of %s: %s too small", n, shifted, r)
		}
	}
}

func TestTimeMultiplier(t *testing.T) {
	params := domain.DefaultVotingParams()
	m := params.MinLockDuration

	tests := []struct {
		name string
		age  uint64
		want uint64
	}{
		{"fresh lock", 0, 10_000},
		{"half way to maturity", m / 2, 15_000},
		{"mature", m, 20_000},
		{"half decayed", m + m/2, 10_000},
		{"fully stale", 2 * m, 0},
		{"long stale", 10 * m, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, usecase.TimeMultiplier(tt.age, params))
		})
	}

	t.Run("strictly decreasing after maturity", func(t *testing.T) {
		prev := usecase.TimeMultiplier(m, params)
		for age := m + 1000; age < 2*m; age += 1000 {
			cur := usecase.TimeMultiplier(age, params)
			assert.Less(t, cur, prev, "age %d", age)
			prev = cur
		}
	})
}

func TestComputePower(t *testing.T) {
	params := domain.DefaultVotingParams()

	t.Run("zero amount has no power", func(t *testing.T) {
		assert.True(t, usecase.ComputePower(uint256.NewInt(0), 100, params).IsZero())
	})

	t.Run("square root at fresh lock", func(t *testing.T) {
		got := usecase.ComputePower(uint256.NewInt(100_000), 0, params)
		assert.Equal(t, "316", got.Dec())
	})

	t.Run("doubled at maturity", func(t *testing.T) {
		got := usecase.ComputePower(uint256.NewInt(1_000_000), params.MinLockDuration, params)
		assert.Equal(t, "2000", got.Dec())
	})

	t.Run("quadratic factor scales base", func(t *testing.T) {
		p := params.Clone()
		p.QuadraticFactor = 5_000
		got := usecase.ComputePower(uint256.NewInt(1_000_000), 0, p)
		assert.Equal(t, "500", got.Dec())
	})

	t.Run("clamped to max voting power", func(t *testing.T) {
		p := params.Clone()
		p.MaxVotingPower = uint256.NewInt(100)
		got := usecase.ComputePower(uint256.NewInt(1_000_000), 0, p)
		assert.Equal(t, "100", got.Dec())
	})

	t.Run("non-decreasing in amount and capped", func(t *testing.T) {
		p := params.Clone()
		p.MaxVotingPower = uint256.NewInt(5_000)
		for _, age := range []uint64{0, p.MinLockDuration / 3, p.MinLockDuration, p.MinLockDuration * 3 / 2} {
			prev := new(uint256.Int)
			for amount := uint64(1); amount < 1<<40; amount = amount*3 + 7 {
				got := usecase.ComputePower(uint256.NewInt(amount), age, p)
				assert.False(t, got.Lt(prev), "amount %d age %d", amount, age)
				assert.False(t, got.Gt(p.MaxVotingPower), "amount %d age %d", amount, age)
				prev = got
			}
		}
	})
}
