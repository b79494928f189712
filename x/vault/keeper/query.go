package keeper

import (
	"cosmossdk.io/math"

	"github.com/openalpha/stakevault/x/vault/types"
)

// Queries are read-only and deliberately bypass the reentrancy latch.

// PoolStatus is the aggregate pool view served to callers.
type PoolStatus struct {
	TotalShares math.Int `json:"total_shares"`
	PoolBalance math.Int `json:"pool_balance"`
	Admin       string   `json:"admin"`
	UpdatedAt   int64    `json:"updated_at"`
}

// TotalPooled returns the custody balance backing all shares.
func (k *Keeper) TotalPooled() (math.Int, error) {
	return k.custody.PoolBalance()
}

// ValueOf returns the current asset value of an address's shares, truncated
// toward zero.
func (k *Keeper) ValueOf(address string) (math.Int, error) {
	pool, err := k.GetPool()
	if err != nil {
		return math.Int{}, err
	}
	if pool.TotalShares.IsZero() {
		return math.ZeroInt(), nil
	}
	acct, err := k.GetAccount(address)
	if err != nil {
		return math.Int{}, err
	}
	balance, err := k.custody.PoolBalance()
	if err != nil {
		return math.Int{}, err
	}
	return types.SharesToValue(acct.Shares, balance, pool.TotalShares), nil
}

// PoolState returns the aggregate pool view.
func (k *Keeper) PoolState() (*PoolStatus, error) {
	pool, err := k.GetPool()
	if err != nil {
		return nil, err
	}
	balance, err := k.custody.PoolBalance()
	if err != nil {
		return nil, err
	}
	admin, err := k.GetAdmin()
	if err != nil {
		return nil, err
	}
	return &PoolStatus{
		TotalShares: pool.TotalShares,
		PoolBalance: balance,
		Admin:       admin,
		UpdatedAt:   pool.UpdatedAt,
	}, nil
}

// PendingWithdrawal returns the open request for an address, or nil.
func (k *Keeper) PendingWithdrawal(address string) (*types.Withdrawal, error) {
	w, err := k.GetWithdrawal(address)
	if err != nil {
		return nil, err
	}
	if !w.IsPending() {
		return nil, nil
	}
	return w, nil
}
