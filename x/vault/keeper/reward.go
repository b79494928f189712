package keeper

import (
	"cosmossdk.io/math"

	"github.com/openalpha/stakevault/x/vault/types"
)

// AddReward collects amount from the funder into the pool without minting
// shares, raising the value of every outstanding share pro rata. Rewards sent
// to an empty pool are accepted and accrue to whoever deposits first.
func (k *Keeper) AddReward(funder string, amount math.Int) (math.Int, error) {
	if err := k.guard.enter(); err != nil {
		return math.Int{}, err
	}
	defer k.guard.exit()

	if funder == "" {
		return math.Int{}, types.ErrInvalidIdentity.Wrap("funder cannot be empty")
	}
	if amount.IsNil() || !amount.IsPositive() {
		return math.Int{}, types.ErrInvalidAmount
	}

	if err := k.custody.CollectFrom(funder, amount); err != nil {
		return math.Int{}, types.ErrTransferFailed.Wrapf("collect from %s: %s", funder, err)
	}

	balance, err := k.custody.PoolBalance()
	if err != nil {
		return math.Int{}, err
	}

	k.logger.Info("reward added",
		"funder", funder,
		"amount", amount.String(),
		"pool_balance", balance.String(),
	)
	k.emit(types.EventTypeRewardAdded, map[string]string{
		"funder":       funder,
		"amount":       amount.String(),
		"pool_balance": balance.String(),
	})

	return balance, nil
}
