package keeper

import (
	"cosmossdk.io/math"

	"github.com/openalpha/stakevault/x/vault/types"
)

// Deposit collects amount from the depositor and mints proportional shares.
// The contribution is pulled in before pricing, so the pre-deposit balance is
// recovered by subtracting amount from the post-transfer custody balance.
func (k *Keeper) Deposit(depositor string, amount math.Int) (*types.Account, math.Int, error) {
	if err := k.guard.enter(); err != nil {
		return nil, math.Int{}, err
	}
	defer k.guard.exit()

	if depositor == "" {
		return nil, math.Int{}, types.ErrInvalidIdentity.Wrap("depositor cannot be empty")
	}
	if amount.IsNil() || !amount.IsPositive() {
		return nil, math.Int{}, types.ErrInvalidAmount
	}

	pool, err := k.GetPool()
	if err != nil {
		return nil, math.Int{}, err
	}

	if err := k.custody.CollectFrom(depositor, amount); err != nil {
		return nil, math.Int{}, types.ErrTransferFailed.Wrapf("collect from %s: %s", depositor, err)
	}

	balance, err := k.custody.PoolBalance()
	if err != nil {
		k.refund(depositor, amount)
		return nil, math.Int{}, err
	}

	minted := amount
	if !pool.TotalShares.IsZero() {
		poolBefore := balance.Sub(amount)
		if !poolBefore.IsPositive() {
			// Shares outstanding against an empty pool. Pricing here would
			// divide by zero or mint unbounded shares, so refuse to proceed.
			k.refund(depositor, amount)
			return nil, math.Int{}, types.ErrInconsistentPoolState.Wrapf(
				"total shares %s with pre-deposit balance %s", pool.TotalShares, poolBefore)
		}
		minted = types.SharesForDeposit(amount, poolBefore, pool.TotalShares)
		if !minted.IsPositive() {
			k.refund(depositor, amount)
			return nil, math.Int{}, types.ErrInvalidAmount.Wrapf(
				"deposit %s too small to mint a share", amount)
		}
	}

	acct, err := k.GetAccount(depositor)
	if err != nil {
		k.refund(depositor, amount)
		return nil, math.Int{}, err
	}

	prevAcct := *acct

	now := k.clock.Now().Unix()
	acct.Shares = acct.Shares.Add(minted)
	acct.Deposited = acct.Deposited.Add(amount)
	acct.UpdatedAt = now
	pool.TotalShares = pool.TotalShares.Add(minted)
	pool.UpdatedAt = now

	if err := k.SetAccount(acct); err != nil {
		k.refund(depositor, amount)
		return nil, math.Int{}, err
	}
	if err := k.SetPool(pool); err != nil {
		if rerr := k.SetAccount(&prevAcct); rerr != nil {
			k.logger.Error("deposit rollback failed for account",
				"depositor", depositor,
				"error", rerr,
			)
		}
		k.refund(depositor, amount)
		return nil, math.Int{}, err
	}

	k.logger.Info("deposit accepted",
		"depositor", depositor,
		"amount", amount.String(),
		"shares_minted", minted.String(),
		"total_shares", pool.TotalShares.String(),
		"pool_balance", balance.String(),
	)
	k.emit(types.EventTypeDeposit, map[string]string{
		"depositor":     depositor,
		"amount":        amount.String(),
		"shares_minted": minted.String(),
		"total_shares":  pool.TotalShares.String(),
		"pool_balance":  balance.String(),
	})

	return acct, minted, nil
}

// refund returns a collected contribution after a failed deposit. A refund
// failure leaves the assets in the pool and is logged for the operator.
func (k *Keeper) refund(depositor string, amount math.Int) {
	if err := k.custody.PayTo(depositor, amount); err != nil {
		k.logger.Error("refund failed, assets remain in pool",
			"depositor", depositor,
			"amount", amount.String(),
			"error", err,
		)
	}
}
