package usecase

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// LedgerSupply answers the voting supply as the sum of the raw power of
// every ledger account at the requested time, computed with the parameters
// the proposal froze so it matches the ballot weights.
type LedgerSupply struct{}

func NewLedgerSupply() *LedgerSupply { return &LedgerSupply{} }

func (LedgerSupply) VotingSupplyAt(_ context.Context, s *models.State, at uint64, params domain.VotingParams) (*uint256.Int, error) {
	total := new(uint256.Int)
	for account := range s.Locks {
		saturatingAdd(total, powerAt(s, account, at, params))
	}
	return total, nil
}

var _ SupplySource = (*LedgerSupply)(nil)
