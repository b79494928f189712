package keeper

import (
	"encoding/json"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/jonboulle/clockwork"

	"github.com/openalpha/stakevault/x/vault/types"
)

// Store key prefixes
var (
	PoolKey             = []byte{0x01}
	AccountKeyPrefix    = []byte{0x02}
	WithdrawalKeyPrefix = []byte{0x03}
	AdminKey            = []byte{0x04}
)

// AssetKeeper defines the expected interface for the asset custody layer.
// The engine treats PoolBalance as ground truth and never shadows it.
type AssetKeeper interface {
	PoolBalance() (math.Int, error)
	CollectFrom(from string, amount math.Int) error
	PayTo(to string, amount math.Int) error
}

// Keeper manages the vault module state
type Keeper struct {
	db      dbm.DB
	custody AssetKeeper
	clock   clockwork.Clock
	emitter types.EventEmitter
	params  types.Params
	logger  log.Logger

	guard guard
}

// NewKeeper creates a new vault keeper. The admin argument seeds the admin
// identity only when the store does not already hold one.
func NewKeeper(
	db dbm.DB,
	custody AssetKeeper,
	clock clockwork.Clock,
	emitter types.EventEmitter,
	params types.Params,
	admin string,
	logger log.Logger,
) (*Keeper, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if emitter == nil {
		emitter = types.NopEmitter{}
	}

	k := &Keeper{
		db:      db,
		custody: custody,
		clock:   clock,
		emitter: emitter,
		params:  params,
		logger:  logger.With("module", "x/"+types.ModuleName),
	}

	stored, err := k.GetAdmin()
	if err != nil {
		return nil, err
	}
	if stored == "" {
		if admin == "" {
			return nil, types.ErrInvalidIdentity.Wrap("admin cannot be empty")
		}
		if err := k.setAdmin(admin); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// Params returns the engine configuration
func (k *Keeper) Params() types.Params {
	return k.params
}

// Clock returns the engine's time source
func (k *Keeper) Clock() clockwork.Clock {
	return k.clock
}

// ============ Pool Operations ============

// GetPool retrieves the pool aggregate, creating an empty one if unset
func (k *Keeper) GetPool() (*types.Pool, error) {
	bz, err := k.db.Get(PoolKey)
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return types.NewPool(), nil
	}
	var pool types.Pool
	if err := json.Unmarshal(bz, &pool); err != nil {
		return nil, err
	}
	return &pool, nil
}

// SetPool saves the pool aggregate
func (k *Keeper) SetPool(pool *types.Pool) error {
	bz, err := json.Marshal(pool)
	if err != nil {
		return err
	}
	return k.db.Set(PoolKey, bz)
}

// ============ Account Operations ============

func accountKey(address string) []byte {
	return append(AccountKeyPrefix, []byte(address)...)
}

// GetAccount retrieves an account, creating an empty one if unknown
func (k *Keeper) GetAccount(address string) (*types.Account, error) {
	bz, err := k.db.Get(accountKey(address))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return types.NewAccount(address), nil
	}
	var acct types.Account
	if err := json.Unmarshal(bz, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// SetAccount saves an account
func (k *Keeper) SetAccount(acct *types.Account) error {
	bz, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	return k.db.Set(accountKey(acct.Address), bz)
}

// ============ Withdrawal Operations ============

func withdrawalKey(address string) []byte {
	return append(WithdrawalKeyPrefix, []byte(address)...)
}

// GetWithdrawal retrieves the pending withdrawal for an address, if any
func (k *Keeper) GetWithdrawal(address string) (*types.Withdrawal, error) {
	bz, err := k.db.Get(withdrawalKey(address))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, nil
	}
	var w types.Withdrawal
	if err := json.Unmarshal(bz, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// SetWithdrawal saves a pending withdrawal
func (k *Keeper) SetWithdrawal(w *types.Withdrawal) error {
	bz, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return k.db.Set(withdrawalKey(w.Withdrawer), bz)
}

// DeleteWithdrawal removes the pending withdrawal for an address
func (k *Keeper) DeleteWithdrawal(address string) error {
	return k.db.Delete(withdrawalKey(address))
}

// ============ Admin Identity ============

// GetAdmin returns the current admin identity, or "" if never seeded
func (k *Keeper) GetAdmin() (string, error) {
	bz, err := k.db.Get(AdminKey)
	if err != nil {
		return "", err
	}
	return string(bz), nil
}

func (k *Keeper) setAdmin(admin string) error {
	return k.db.Set(AdminKey, []byte(admin))
}

// emit publishes a notification event; failures never affect the operation
func (k *Keeper) emit(eventType string, attributes map[string]string) {
	k.emitter.Emit(types.NewEvent(eventType, k.clock.Now(), attributes))
}
