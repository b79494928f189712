package custody

import (
	"errors"
	"sync"
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	dbm "github.com/cosmos/cosmos-db"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(dbm.NewMemDB(), log.NewNopLogger())
}

// TestMintAndBalance tests issuing value to an identity
func TestMintAndBalance(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Mint("alice", math.NewInt(500)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.Mint("alice", math.NewInt(250)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	bal, err := l.Balance("alice")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !bal.Equal(math.NewInt(750)) {
		t.Errorf("expected balance 750, got %s", bal)
	}

	// Unknown identities read as zero.
	bal, err = l.Balance("bob")
	if err != nil {
		t.Fatalf("Balance unknown: %v", err)
	}
	if !bal.IsZero() {
		t.Errorf("expected zero balance, got %s", bal)
	}
}

// TestCollectAndPay tests moving value through the pool
func TestCollectAndPay(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Mint("alice", math.NewInt(1000)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.CollectFrom("alice", math.NewInt(600)); err != nil {
		t.Fatalf("CollectFrom: %v", err)
	}

	pool, err := l.PoolBalance()
	if err != nil {
		t.Fatalf("PoolBalance: %v", err)
	}
	if !pool.Equal(math.NewInt(600)) {
		t.Errorf("expected pool 600, got %s", pool)
	}
	bal, _ := l.Balance("alice")
	if !bal.Equal(math.NewInt(400)) {
		t.Errorf("expected alice 400, got %s", bal)
	}

	if err := l.PayTo("bob", math.NewInt(200)); err != nil {
		t.Fatalf("PayTo: %v", err)
	}
	pool, _ = l.PoolBalance()
	if !pool.Equal(math.NewInt(400)) {
		t.Errorf("expected pool 400, got %s", pool)
	}
	bal, _ = l.Balance("bob")
	if !bal.Equal(math.NewInt(200)) {
		t.Errorf("expected bob 200, got %s", bal)
	}
}

// TestOverdraftRejected tests insufficient funds on both directions
func TestOverdraftRejected(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Mint("alice", math.NewInt(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.CollectFrom("alice", math.NewInt(101)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds on collect, got %v", err)
	}
	if err := l.PayTo("bob", math.NewInt(1)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds on pay from empty pool, got %v", err)
	}

	// Nothing moved.
	bal, _ := l.Balance("alice")
	if !bal.Equal(math.NewInt(100)) {
		t.Errorf("expected alice untouched at 100, got %s", bal)
	}
}

// TestInputValidation tests identity and amount checks
func TestInputValidation(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Mint("", math.NewInt(1)); !errors.Is(err, ErrInvalidIdentity) {
		t.Errorf("expected ErrInvalidIdentity, got %v", err)
	}
	if err := l.Mint("alice", math.ZeroInt()); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if err := l.CollectFrom("alice", math.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative, got %v", err)
	}
	if err := l.PayTo("alice", math.Int{}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for nil, got %v", err)
	}
}

// TestConcurrentTransfersConserveValue tests that parallel movements never
// create or destroy value
func TestConcurrentTransfersConserveValue(t *testing.T) {
	l := newTestLedger(t)

	const workers = 8
	const rounds = 50

	for i := 0; i < workers; i++ {
		if err := l.Mint("w", math.NewInt(rounds)); err != nil {
			t.Fatalf("Mint: %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if err := l.CollectFrom("w", math.NewInt(1)); err != nil {
					t.Errorf("CollectFrom: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	pool, err := l.PoolBalance()
	if err != nil {
		t.Fatalf("PoolBalance: %v", err)
	}
	bal, err := l.Balance("w")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	total := pool.Add(bal)
	if !total.Equal(math.NewInt(workers * rounds)) {
		t.Errorf("expected conserved total %d, got %s", workers*rounds, total)
	}
	if !pool.Equal(math.NewInt(workers * rounds)) {
		t.Errorf("expected everything pooled, got %s", pool)
	}
}
