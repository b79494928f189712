package keeper

import (
	"strconv"

	"cosmossdk.io/math"

	"github.com/openalpha/stakevault/x/vault/types"
)

// RequestWithdrawal opens a pending withdrawal for a fixed number of shares.
// Shares stay registered to the account until the claim settles, so they keep
// accruing pool gains during the delay window.
func (k *Keeper) RequestWithdrawal(withdrawer string, shares math.Int) (*types.Withdrawal, error) {
	if err := k.guard.enter(); err != nil {
		return nil, err
	}
	defer k.guard.exit()

	if withdrawer == "" {
		return nil, types.ErrInvalidIdentity.Wrap("withdrawer cannot be empty")
	}
	if shares.IsNil() || !shares.IsPositive() {
		return nil, types.ErrInvalidAmount.Wrap("shares must be positive")
	}

	acct, err := k.GetAccount(withdrawer)
	if err != nil {
		return nil, err
	}
	if acct.Shares.LT(shares) {
		return nil, types.ErrInsufficientShares.Wrapf(
			"requested %s, holding %s", shares, acct.Shares)
	}

	existing, err := k.GetWithdrawal(withdrawer)
	if err != nil {
		return nil, err
	}
	if existing.IsPending() {
		return nil, types.ErrDuplicateRequest.Wrapf(
			"request for %s shares already pending", existing.SharesRequested)
	}

	w := types.NewWithdrawal(withdrawer, shares, k.clock.Now(), k.params.WithdrawalDelay)
	if err := k.SetWithdrawal(w); err != nil {
		return nil, err
	}

	k.logger.Info("withdrawal requested",
		"withdrawer", withdrawer,
		"shares", shares.String(),
		"available_at", w.AvailableAt,
	)
	k.emit(types.EventTypeWithdrawalRequest, map[string]string{
		"withdrawer":   withdrawer,
		"shares":       shares.String(),
		"available_at": strconv.FormatInt(w.AvailableAt, 10),
	})

	return w, nil
}

// ClaimWithdrawal settles the pending withdrawal for an address. Claims before
// maturity pay the higher fee tier, or fail when early claims are disabled.
// All records are committed before any assets move; a failed transfer restores
// the pre-claim records.
func (k *Keeper) ClaimWithdrawal(withdrawer string) (*types.ClaimResult, error) {
	if err := k.guard.enter(); err != nil {
		return nil, err
	}
	defer k.guard.exit()

	if withdrawer == "" {
		return nil, types.ErrInvalidIdentity.Wrap("withdrawer cannot be empty")
	}

	w, err := k.GetWithdrawal(withdrawer)
	if err != nil {
		return nil, err
	}
	if !w.IsPending() {
		return nil, types.ErrNoPendingRequest
	}

	now := k.clock.Now()
	mature := w.IsMature(now)
	if !mature && !k.params.AllowEarlyClaim {
		return nil, types.ErrWithdrawalNotReady.Wrapf("available at %d", w.AvailableAt)
	}

	acct, err := k.GetAccount(withdrawer)
	if err != nil {
		return nil, err
	}
	if acct.Shares.LT(w.SharesRequested) {
		return nil, types.ErrInsufficientShares.Wrapf(
			"pending request for %s shares exceeds holding %s", w.SharesRequested, acct.Shares)
	}

	pool, err := k.GetPool()
	if err != nil {
		return nil, err
	}
	if pool.TotalShares.LT(w.SharesRequested) {
		return nil, types.ErrInconsistentPoolState.Wrapf(
			"pending request for %s shares exceeds total %s", w.SharesRequested, pool.TotalShares)
	}

	balance, err := k.custody.PoolBalance()
	if err != nil {
		return nil, err
	}

	gross := types.SharesToValue(w.SharesRequested, balance, pool.TotalShares)
	principal := types.ProRataPrincipal(acct.Deposited, w.SharesRequested, acct.Shares)

	profit := math.ZeroInt()
	if gross.GT(principal) {
		profit = gross.Sub(principal)
	}
	feeBps := k.params.NormalFeeBps
	if !mature {
		feeBps = k.params.EarlyFeeBps
	}
	fee := types.ProfitFee(profit, feeBps)
	payout := gross.Sub(fee)

	admin, err := k.GetAdmin()
	if err != nil {
		return nil, err
	}

	// Commit the post-claim records before any assets move so a reentrant
	// observer never sees settled funds against unsettled shares.
	prevAcct := *acct
	prevPool := *pool
	prevW := *w

	nowUnix := now.Unix()
	acct.Shares = acct.Shares.Sub(w.SharesRequested)
	acct.Deposited = acct.Deposited.Sub(principal)
	acct.UpdatedAt = nowUnix
	pool.TotalShares = pool.TotalShares.Sub(w.SharesRequested)
	pool.UpdatedAt = nowUnix

	if err := k.SetAccount(acct); err != nil {
		return nil, err
	}
	if err := k.SetPool(pool); err != nil {
		k.restoreClaim(&prevAcct, nil, nil)
		return nil, err
	}
	if err := k.DeleteWithdrawal(withdrawer); err != nil {
		k.restoreClaim(&prevAcct, &prevPool, nil)
		return nil, err
	}

	if fee.IsPositive() {
		if err := k.custody.PayTo(admin, fee); err != nil {
			k.restoreClaim(&prevAcct, &prevPool, &prevW)
			return nil, types.ErrTransferFailed.Wrapf("fee to %s: %s", admin, err)
		}
	}
	if payout.IsPositive() {
		if err := k.custody.PayTo(withdrawer, payout); err != nil {
			k.restoreClaim(&prevAcct, &prevPool, &prevW)
			if fee.IsPositive() {
				if cerr := k.custody.CollectFrom(admin, fee); cerr != nil {
					k.logger.Error("fee claw-back failed after payout failure",
						"admin", admin,
						"fee", fee.String(),
						"error", cerr,
					)
				}
			}
			return nil, types.ErrTransferFailed.Wrapf("payout to %s: %s", withdrawer, err)
		}
	}

	result := &types.ClaimResult{
		Withdrawer:      withdrawer,
		SharesRequested: w.SharesRequested,
		GrossAmount:     gross,
		PrincipalPart:   principal,
		Profit:          profit,
		Fee:             fee,
		Payout:          payout,
		FeeBps:          feeBps,
		Mature:          mature,
	}

	k.logger.Info("withdrawal claimed",
		"withdrawer", withdrawer,
		"shares", w.SharesRequested.String(),
		"gross", gross.String(),
		"fee", fee.String(),
		"payout", payout.String(),
		"fee_bps", feeBps,
		"mature", mature,
	)
	k.emit(types.EventTypeWithdrawalClaim, map[string]string{
		"withdrawer": withdrawer,
		"shares":     w.SharesRequested.String(),
		"gross":      gross.String(),
		"fee":        fee.String(),
		"payout":     payout.String(),
		"fee_bps":    strconv.FormatInt(feeBps, 10),
		"mature":     strconv.FormatBool(mature),
	})

	return result, nil
}

// restoreClaim puts back the records captured before a claim. Nil arguments
// were never overwritten and are skipped.
func (k *Keeper) restoreClaim(acct *types.Account, pool *types.Pool, w *types.Withdrawal) {
	if acct != nil {
		if err := k.SetAccount(acct); err != nil {
			k.logger.Error("claim rollback failed for account", "address", acct.Address, "error", err)
		}
	}
	if pool != nil {
		if err := k.SetPool(pool); err != nil {
			k.logger.Error("claim rollback failed for pool", "error", err)
		}
	}
	if w != nil {
		if err := k.SetWithdrawal(w); err != nil {
			k.logger.Error("claim rollback failed for withdrawal", "address", w.Withdrawer, "error", err)
		}
	}
}
