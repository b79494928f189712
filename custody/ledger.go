// Package custody implements the asset ledger backing the vault. It tracks a
// free balance per identity plus the pooled balance, and moves value between
// them. The vault engine drives it through its transfer interface and never
// reaches into balances directly.
package custody

import (
	"encoding/json"
	"sync"

	"cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/math"
	dbm "github.com/cosmos/cosmos-db"
)

// Codespace for custody errors
const Codespace = "custody"

// Custody error codes
var (
	ErrInsufficientFunds = errors.Register(Codespace, 1, "insufficient funds")
	ErrInvalidAmount     = errors.Register(Codespace, 2, "amount must be positive")
	ErrInvalidIdentity   = errors.Register(Codespace, 3, "invalid identity")
)

// Store key prefixes
var (
	balanceKeyPrefix = []byte{0x01}
	poolBalanceKey   = []byte{0x02}
)

// Ledger is a durable single-asset balance book. All mutations take the
// internal lock so concurrent API handlers see consistent balances.
type Ledger struct {
	mu     sync.Mutex
	db     dbm.DB
	logger log.Logger
}

// NewLedger creates a ledger over the given database.
func NewLedger(db dbm.DB, logger log.Logger) *Ledger {
	return &Ledger{
		db:     db,
		logger: logger.With("module", "custody"),
	}
}

func balanceKey(identity string) []byte {
	return append(balanceKeyPrefix, []byte(identity)...)
}

func (l *Ledger) getInt(key []byte) (math.Int, error) {
	bz, err := l.db.Get(key)
	if err != nil {
		return math.Int{}, err
	}
	if bz == nil {
		return math.ZeroInt(), nil
	}
	var v math.Int
	if err := json.Unmarshal(bz, &v); err != nil {
		return math.Int{}, err
	}
	return v, nil
}

func (l *Ledger) setInt(key []byte, v math.Int) error {
	bz, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return l.db.Set(key, bz)
}

// Balance returns the free balance of an identity.
func (l *Ledger) Balance(identity string) (math.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getInt(balanceKey(identity))
}

// PoolBalance returns the pooled balance.
func (l *Ledger) PoolBalance() (math.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getInt(poolBalanceKey)
}

// Mint credits newly issued value to an identity's free balance.
func (l *Ledger) Mint(identity string, amount math.Int) error {
	if identity == "" {
		return ErrInvalidIdentity
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal, err := l.getInt(balanceKey(identity))
	if err != nil {
		return err
	}
	if err := l.setInt(balanceKey(identity), bal.Add(amount)); err != nil {
		return err
	}

	l.logger.Debug("minted", "identity", identity, "amount", amount.String())
	return nil
}

// CollectFrom moves amount from an identity's free balance into the pool.
func (l *Ledger) CollectFrom(from string, amount math.Int) error {
	if from == "" {
		return ErrInvalidIdentity
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal, err := l.getInt(balanceKey(from))
	if err != nil {
		return err
	}
	if bal.LT(amount) {
		return ErrInsufficientFunds.Wrapf("%s holds %s, needs %s", from, bal, amount)
	}
	pool, err := l.getInt(poolBalanceKey)
	if err != nil {
		return err
	}
	if err := l.setInt(balanceKey(from), bal.Sub(amount)); err != nil {
		return err
	}
	if err := l.setInt(poolBalanceKey, pool.Add(amount)); err != nil {
		return err
	}

	l.logger.Debug("collected into pool", "from", from, "amount", amount.String())
	return nil
}

// PayTo moves amount from the pool to an identity's free balance.
func (l *Ledger) PayTo(to string, amount math.Int) error {
	if to == "" {
		return ErrInvalidIdentity
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pool, err := l.getInt(poolBalanceKey)
	if err != nil {
		return err
	}
	if pool.LT(amount) {
		return ErrInsufficientFunds.Wrapf("pool holds %s, needs %s", pool, amount)
	}
	bal, err := l.getInt(balanceKey(to))
	if err != nil {
		return err
	}
	if err := l.setInt(poolBalanceKey, pool.Sub(amount)); err != nil {
		return err
	}
	if err := l.setInt(balanceKey(to), bal.Add(amount)); err != nil {
		return err
	}

	l.logger.Debug("paid from pool", "to", to, "amount", amount.String())
	return nil
}
