package keeper

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/jonboulle/clockwork"

	"github.com/openalpha/stakevault/x/vault/types"
)

// faultDB wraps a database and fails writes to one key once armed.
type faultDB struct {
	dbm.DB
	failKey []byte
}

func (f *faultDB) Set(key, value []byte) error {
	if f.failKey != nil && bytes.Equal(key, f.failKey) {
		return errors.New("write failed")
	}
	return f.DB.Set(key, value)
}

// TestFirstDepositMintsOneToOne tests 1:1 share minting into an empty pool
func TestFirstDepositMintsOneToOne(t *testing.T) {
	k, custody, _ := newTestKeeper(t, types.DefaultParams())

	minted := mustDeposit(t, k, custody, alice, 1000*unit)

	if !minted.Equal(math.NewInt(1000 * unit)) {
		t.Errorf("expected %d shares minted, got %s", 1000*unit, minted)
	}

	pool, err := k.GetPool()
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if !pool.TotalShares.Equal(minted) {
		t.Errorf("expected total shares %s, got %s", minted, pool.TotalShares)
	}

	acct, err := k.GetAccount(alice)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !acct.Shares.Equal(minted) {
		t.Errorf("expected account shares %s, got %s", minted, acct.Shares)
	}
	if !acct.Deposited.Equal(math.NewInt(1000 * unit)) {
		t.Errorf("expected deposited %d, got %s", 1000*unit, acct.Deposited)
	}
	if !custody.pool.Equal(math.NewInt(1000 * unit)) {
		t.Errorf("expected pool balance %d, got %s", 1000*unit, custody.pool)
	}
}

// TestDepositAfterRewardMintsProportionally tests pricing against the
// pre-deposit balance
func TestDepositAfterRewardMintsProportionally(t *testing.T) {
	k, custody, _ := newTestKeeper(t, types.DefaultParams())

	mustDeposit(t, k, custody, alice, 1000*unit)
	mustAddReward(t, k, custody, testAdmin, 1000*unit)

	// Pool is now 2000 backing 1000 shares, so bob's 1000 buys 500 shares.
	minted := mustDeposit(t, k, custody, bob, 1000*unit)
	if !minted.Equal(math.NewInt(500 * unit)) {
		t.Errorf("expected %d shares minted, got %s", 500*unit, minted)
	}

	pool, err := k.GetPool()
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if !pool.TotalShares.Equal(math.NewInt(1500 * unit)) {
		t.Errorf("expected total shares %d, got %s", 1500*unit, pool.TotalShares)
	}

	// Both holdings value out against the 3000 pool.
	aliceValue, err := k.ValueOf(alice)
	if err != nil {
		t.Fatalf("ValueOf(alice): %v", err)
	}
	if !aliceValue.Equal(math.NewInt(2000 * unit)) {
		t.Errorf("expected alice value %d, got %s", 2000*unit, aliceValue)
	}
	bobValue, err := k.ValueOf(bob)
	if err != nil {
		t.Fatalf("ValueOf(bob): %v", err)
	}
	if !bobValue.Equal(math.NewInt(1000 * unit)) {
		t.Errorf("expected bob value %d, got %s", 1000*unit, bobValue)
	}
}

// TestDepositMintTruncatesTowardZero tests that share minting keeps rounding
// dust in the pool
func TestDepositMintTruncatesTowardZero(t *testing.T) {
	k, custody, _ := newTestKeeper(t, types.DefaultParams())

	mustDeposit(t, k, custody, alice, 3)
	mustAddReward(t, k, custody, testAdmin, 1)

	// Pool 4 backing 3 shares: 10 * 3 / 4 = 7.5, truncated to 7.
	minted := mustDeposit(t, k, custody, bob, 10)
	if !minted.Equal(math.NewInt(7)) {
		t.Errorf("expected 7 shares minted, got %s", minted)
	}
}

// TestDepositValidation tests rejection of bad inputs before any transfer
func TestDepositValidation(t *testing.T) {
	testCases := []struct {
		name      string
		depositor string
		amount    math.Int
		wantErr   error
	}{
		{"empty depositor", "", math.NewInt(100), types.ErrInvalidIdentity},
		{"zero amount", alice, math.ZeroInt(), types.ErrInvalidAmount},
		{"negative amount", alice, math.NewInt(-5), types.ErrInvalidAmount},
		{"nil amount", alice, math.Int{}, types.ErrInvalidAmount},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			k, custody, _ := newTestKeeper(t, types.DefaultParams())
			custody.fund(alice, 100)

			_, _, err := k.Deposit(tc.depositor, tc.amount)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
			if !custody.pool.IsZero() {
				t.Errorf("expected untouched pool, got %s", custody.pool)
			}
		})
	}
}

// TestDepositCollectFailure tests that a failed inbound transfer leaves no state
func TestDepositCollectFailure(t *testing.T) {
	k, custody, _ := newTestKeeper(t, types.DefaultParams())
	custody.onCollect = func(string, math.Int) error {
		return errors.New("account frozen")
	}

	_, _, err := k.Deposit(alice, math.NewInt(100))
	if !errors.Is(err, types.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	pool, err := k.GetPool()
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if !pool.TotalShares.IsZero() {
		t.Errorf("expected no shares minted, got %s", pool.TotalShares)
	}
}

// TestDustDepositRefunded tests that a deposit too small to mint a share is
// refused and refunded
func TestDustDepositRefunded(t *testing.T) {
	k, custody, _ := newTestKeeper(t, types.DefaultParams())

	mustDeposit(t, k, custody, alice, 1)
	mustAddReward(t, k, custody, testAdmin, 10)

	// Pool 11 backing 1 share: a deposit of 5 prices at 5 * 1 / 11 = 0.
	custody.fund(bob, 5)
	_, _, err := k.Deposit(bob, math.NewInt(5))
	if !errors.Is(err, types.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for dust deposit, got %v", err)
	}

	if !custody.balanceOf(bob).Equal(math.NewInt(5)) {
		t.Errorf("expected bob refunded to 5, got %s", custody.balanceOf(bob))
	}
	if !custody.pool.Equal(math.NewInt(11)) {
		t.Errorf("expected pool back at 11, got %s", custody.pool)
	}
}

// TestDepositHaltsOnSharesAgainstEmptyPool tests the drained-pool consistency
// check
func TestDepositHaltsOnSharesAgainstEmptyPool(t *testing.T) {
	k, custody, _ := newTestKeeper(t, types.DefaultParams())

	// Shares outstanding but no assets behind them.
	pool, err := k.GetPool()
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	pool.TotalShares = math.NewInt(100)
	if err := k.SetPool(pool); err != nil {
		t.Fatalf("SetPool: %v", err)
	}

	custody.fund(alice, 50)
	_, _, err = k.Deposit(alice, math.NewInt(50))
	if !errors.Is(err, types.ErrInconsistentPoolState) {
		t.Fatalf("expected ErrInconsistentPoolState, got %v", err)
	}
	if !custody.balanceOf(alice).Equal(math.NewInt(50)) {
		t.Errorf("expected alice refunded, got %s", custody.balanceOf(alice))
	}
}

// TestDepositRollsBackOnPoolWriteFailure tests that a failed pool write
// restores the account record and refunds the collected amount
func TestDepositRollsBackOnPoolWriteFailure(t *testing.T) {
	db := &faultDB{DB: dbm.NewMemDB()}
	custody := newFakeCustody()
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))

	k, err := NewKeeper(db, custody, clock, nil, types.DefaultParams(), testAdmin, log.NewNopLogger())
	if err != nil {
		t.Fatalf("NewKeeper: %v", err)
	}
	mustDeposit(t, k, custody, alice, 1000)

	db.failKey = PoolKey

	custody.fund(bob, 500)
	_, _, err = k.Deposit(bob, math.NewInt(500))
	if err == nil {
		t.Fatal("expected error from failed pool write")
	}

	acct, err := k.GetAccount(bob)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !acct.Shares.IsZero() || !acct.Deposited.IsZero() {
		t.Errorf("expected bob's account restored to empty, got shares %s deposited %s",
			acct.Shares, acct.Deposited)
	}

	pool, err := k.GetPool()
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if !pool.TotalShares.Equal(math.NewInt(1000)) {
		t.Errorf("expected total shares back at 1000, got %s", pool.TotalShares)
	}
	if !custody.balanceOf(bob).Equal(math.NewInt(500)) {
		t.Errorf("expected bob refunded to 500, got %s", custody.balanceOf(bob))
	}
	if !custody.pool.Equal(math.NewInt(1000)) {
		t.Errorf("expected pool balance back at 1000, got %s", custody.pool)
	}

	// Recovery: with writes healthy again the same deposit settles.
	db.failKey = nil
	if _, minted, err := k.Deposit(bob, math.NewInt(500)); err != nil {
		t.Fatalf("retry Deposit: %v", err)
	} else if !minted.Equal(math.NewInt(500)) {
		t.Errorf("expected 500 shares on retry, got %s", minted)
	}
}

// TestRepeatDepositsAccumulate tests share and principal accumulation across
// deposits by the same account
func TestRepeatDepositsAccumulate(t *testing.T) {
	k, custody, _ := newTestKeeper(t, types.DefaultParams())

	mustDeposit(t, k, custody, alice, 400)
	mustDeposit(t, k, custody, alice, 600)

	acct, err := k.GetAccount(alice)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !acct.Shares.Equal(math.NewInt(1000)) {
		t.Errorf("expected 1000 shares, got %s", acct.Shares)
	}
	if !acct.Deposited.Equal(math.NewInt(1000)) {
		t.Errorf("expected 1000 deposited, got %s", acct.Deposited)
	}
}
