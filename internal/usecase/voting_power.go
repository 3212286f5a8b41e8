package usecase

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// NthRoot returns floor(a^(1/n)) by integer Newton iteration. The initial
// guess 2^ceil(bitlen/n) is never below the root, so the iterates decrease
// monotonically and the loop stops at the first one that does not.
func NthRoot(a *uint256.Int, n uint64) *uint256.Int {
	if a.IsZero() {
		return new(uint256.Int)
	}
	if n <= 1 {
		return a.Clone()
	}

	one := uint256.NewInt(1)
	bits := uint((uint64(a.BitLen()) + n - 1) / n)
	x := new(uint256.Int).Lsh(one, bits)
	nn := uint256.NewInt(n)
	n1 := uint256.NewInt(n - 1)

	for {
		p, overflow := pow(x, n-1)
		t := new(uint256.Int)
		if !overflow {
			t.Div(a, p)
		}
		y := new(uint256.Int).Mul(n1, x)
		y.Add(y, t)
		y.Div(y, nn)
		if y.Cmp(x) >= 0 {
			return x
		}
		x = y
	}
}

func pow(x *uint256.Int, e uint64) (*uint256.Int, bool) {
	r := uint256.NewInt(1)
	for i := uint64(0); i < e; i++ {
		var overflow bool
		if r, overflow = new(uint256.Int).MulOverflow(r, x); overflow {
			return nil, true
		}
	}
	return r, false
}

// TimeMultiplier returns the lock age weight in basis points. It rises
// linearly from 1x at age zero to 1x+timeWeightFactor at minLockDuration,
// then decays linearly to zero at twice minLockDuration.
func TimeMultiplier(age uint64, params domain.VotingParams) uint64 {
	m := params.MinLockDuration
	if m == 0 {
		return domain.PowerScale
	}
	peak := domain.PowerScale + params.TimeWeightFactor
	switch {
	case age <= m:
		return domain.PowerScale + params.TimeWeightFactor*age/m
	case age >= 2*m:
		return 0
	default:
		return peak * (2*m - age) / m
	}
}

// ComputePower maps a locked amount and its age to voting power:
// root(amount) scaled by quadraticFactor, weighted by TimeMultiplier and
// clamped to maxVotingPower.
func ComputePower(amount *uint256.Int, age uint64, params domain.VotingParams) *uint256.Int {
	if amount == nil || amount.IsZero() {
		return new(uint256.Int)
	}
	scale := uint256.NewInt(domain.PowerScale)

	base := NthRoot(amount, params.RootPower)
	base.Mul(base, uint256.NewInt(params.QuadraticFactor))
	base.Div(base, scale)

	power := base.Mul(base, uint256.NewInt(TimeMultiplier(age, params)))
	power.Div(power, scale)

	if params.MaxVotingPower != nil && power.Cmp(params.MaxVotingPower) > 0 {
		return params.MaxVotingPower.Clone()
	}
	return power
}

// powerAt is the raw power of account at time t from its lock history.
func powerAt(s *models.State, account common.Address, t uint64, params domain.VotingParams) *uint256.Int {
	amount, start := s.Locks[account].At(t)
	if amount.IsZero() {
		return amount
	}
	var age uint64
	if t > start {
		age = t - start
	}
	return ComputePower(amount, age, params)
}

// effectivePowerAt is the power usable for proposing and voting at time
// t: the account's own power unless it has delegated, plus the power of
// every account delegating to it at t. Delegation is not transitive.
func effectivePowerAt(s *models.State, account common.Address, t uint64, params domain.VotingParams) *uint256.Int {
	total := new(uint256.Int)
	if s.Delegations.DelegateAt(account, t) == (common.Address{}) {
		total = powerAt(s, account, t, params)
	}
	for _, d := range s.Delegations.Historic[account] {
		if s.Delegations.DelegateAt(d, t) != account {
			continue
		}
		saturatingAdd(total, powerAt(s, d, t, params))
	}
	return total
}

func saturatingAdd(z, x *uint256.Int) {
	if _, overflow := z.AddOverflow(z, x); overflow {
		z.SetAllOne()
	}
}
