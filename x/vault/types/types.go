package types

import (
	"time"

	"cosmossdk.io/math"
)

// Module name and store key
const (
	ModuleName = "vault"
	StoreKey   = ModuleName
)

// BpsBase is the denominator for basis-point fees (1 bps = 0.01%).
const BpsBase = 10000

// Default fee tiers and withdrawal delay
const (
	DefaultNormalFeeBps = int64(500)  // 5% on profit after maturity
	DefaultEarlyFeeBps  = int64(1500) // 15% on profit before maturity

	DefaultWithdrawalDelay = 4 * 24 * time.Hour // T+4
)

// Params holds the immutable engine configuration, fixed at initialization.
type Params struct {
	WithdrawalDelay time.Duration `json:"withdrawal_delay"`
	NormalFeeBps    int64         `json:"normal_fee_bps"`
	EarlyFeeBps     int64         `json:"early_fee_bps"`

	// AllowEarlyClaim selects between the two observed claim behaviors:
	// true charges EarlyFeeBps on claims before maturity, false rejects them.
	AllowEarlyClaim bool `json:"allow_early_claim"`
}

// DefaultParams returns the default engine configuration.
func DefaultParams() Params {
	return Params{
		WithdrawalDelay: DefaultWithdrawalDelay,
		NormalFeeBps:    DefaultNormalFeeBps,
		EarlyFeeBps:     DefaultEarlyFeeBps,
		AllowEarlyClaim: true,
	}
}

// Validate checks the parameter set for internal consistency.
func (p Params) Validate() error {
	if p.WithdrawalDelay < 0 {
		return ErrInvalidAmount.Wrap("withdrawal delay cannot be negative")
	}
	if p.NormalFeeBps < 0 || p.NormalFeeBps > BpsBase {
		return ErrInvalidAmount.Wrapf("normal fee bps out of range: %d", p.NormalFeeBps)
	}
	if p.EarlyFeeBps < 0 || p.EarlyFeeBps > BpsBase {
		return ErrInvalidAmount.Wrapf("early fee bps out of range: %d", p.EarlyFeeBps)
	}
	if p.EarlyFeeBps < p.NormalFeeBps {
		return ErrInvalidAmount.Wrap("early fee bps below normal fee bps")
	}
	return nil
}

// Pool is the process-wide share aggregate. The asset balance is never part
// of this record: it is always read from the custody collaborator.
type Pool struct {
	TotalShares math.Int `json:"total_shares"`
	UpdatedAt   int64    `json:"updated_at"`
}

// NewPool creates an empty pool aggregate.
func NewPool() *Pool {
	return &Pool{
		TotalShares: math.ZeroInt(),
	}
}

// Account tracks one participant's proportional claim and cost basis.
// Deposited is running principal: cumulative contributions minus the pro-rata
// principal retired by past claims, not cumulative deposits.
type Account struct {
	Address   string   `json:"address"`
	Shares    math.Int `json:"shares"`
	Deposited math.Int `json:"deposited"`
	UpdatedAt int64    `json:"updated_at"`
}

// NewAccount creates an empty account for an address.
func NewAccount(address string) *Account {
	return &Account{
		Address:   address,
		Shares:    math.ZeroInt(),
		Deposited: math.ZeroInt(),
	}
}

// Withdrawal is a pending two-phase withdrawal request. At most one exists
// per address; SharesRequested is fixed at request time.
type Withdrawal struct {
	Withdrawer      string   `json:"withdrawer"`
	SharesRequested math.Int `json:"shares_requested"`
	RequestedAt     int64    `json:"requested_at"`
	AvailableAt     int64    `json:"available_at"`
}

// NewWithdrawal creates a pending withdrawal request maturing after delay.
func NewWithdrawal(withdrawer string, shares math.Int, now time.Time, delay time.Duration) *Withdrawal {
	return &Withdrawal{
		Withdrawer:      withdrawer,
		SharesRequested: shares,
		RequestedAt:     now.Unix(),
		AvailableAt:     now.Add(delay).Unix(),
	}
}

// IsPending reports whether the request is outstanding.
func (w *Withdrawal) IsPending() bool {
	return w != nil && !w.SharesRequested.IsNil() && w.SharesRequested.IsPositive()
}

// IsMature reports whether the lower fee tier applies at the given time.
func (w *Withdrawal) IsMature(now time.Time) bool {
	return now.Unix() >= w.AvailableAt
}

// ClaimResult is the settlement breakdown of a claimed withdrawal.
type ClaimResult struct {
	Withdrawer      string   `json:"withdrawer"`
	SharesRequested math.Int `json:"shares_requested"`
	GrossAmount     math.Int `json:"gross_amount"`
	PrincipalPart   math.Int `json:"principal_part"`
	Profit          math.Int `json:"profit"`
	Fee             math.Int `json:"fee"`
	Payout          math.Int `json:"payout"`
	FeeBps          int64    `json:"fee_bps"`
	Mature          bool     `json:"mature"`
}

// ============ Share / value conversions ============
//
// All conversions truncate toward zero. Rounding dust therefore stays in the
// pool and a conversion can never create value.

// SharesForDeposit computes the shares minted for a deposit against the
// pre-deposit pool balance. The first deposit mints 1:1.
func SharesForDeposit(amount, poolBefore, totalShares math.Int) math.Int {
	if totalShares.IsZero() {
		return amount
	}
	return amount.Mul(totalShares).Quo(poolBefore)
}

// SharesToValue converts shares to their current asset value.
func SharesToValue(shares, poolBalance, totalShares math.Int) math.Int {
	if totalShares.IsZero() {
		return math.ZeroInt()
	}
	return shares.Mul(poolBalance).Quo(totalShares)
}

// ProRataPrincipal computes the slice of tracked principal retired when
// sharesRequested out of userShares are withdrawn.
func ProRataPrincipal(deposited, sharesRequested, userShares math.Int) math.Int {
	if userShares.IsZero() {
		return math.ZeroInt()
	}
	return deposited.Mul(sharesRequested).Quo(userShares)
}

// ProfitFee computes the fee on realized profit at the given tier.
func ProfitFee(profit math.Int, feeBps int64) math.Int {
	if !profit.IsPositive() {
		return math.ZeroInt()
	}
	return profit.Mul(math.NewInt(feeBps)).Quo(math.NewInt(BpsBase))
}
