package types

import (
	"fmt"

	"cosmossdk.io/math"
)

// Message types
const (
	TypeMsgDeposit           = "deposit"
	TypeMsgRequestWithdrawal = "request_withdrawal"
	TypeMsgClaimWithdrawal   = "claim_withdrawal"
	TypeMsgAddReward         = "add_reward"
	TypeMsgChangeAdmin       = "change_admin"
)

// parseAmount parses a positive integer amount from its string form.
func parseAmount(s string) (math.Int, error) {
	amount, ok := math.NewIntFromString(s)
	if !ok {
		return math.Int{}, ErrInvalidAmount.Wrapf("cannot parse amount %q", s)
	}
	if !amount.IsPositive() {
		return math.Int{}, ErrInvalidAmount.Wrapf("amount %s must be positive", s)
	}
	return amount, nil
}

// MsgDeposit defines the Deposit message
type MsgDeposit struct {
	Depositor string `json:"depositor"`
	Amount    string `json:"amount"`
}

// Type returns the message type
func (msg MsgDeposit) Type() string { return TypeMsgDeposit }

// ValidateBasic performs stateless validation
func (msg MsgDeposit) ValidateBasic() error {
	if msg.Depositor == "" {
		return ErrInvalidIdentity.Wrap("depositor cannot be empty")
	}
	_, err := parseAmount(msg.Amount)
	return err
}

// String implements fmt.Stringer
func (msg MsgDeposit) String() string {
	return fmt.Sprintf("MsgDeposit{Depositor: %s, Amount: %s}", msg.Depositor, msg.Amount)
}

// MsgDepositResponse defines the Deposit response
type MsgDepositResponse struct {
	SharesMinted string `json:"shares_minted"`
	TotalShares  string `json:"total_shares"`
	PoolBalance  string `json:"pool_balance"`
}

// MsgRequestWithdrawal defines the RequestWithdrawal message
type MsgRequestWithdrawal struct {
	Withdrawer string `json:"withdrawer"`
	Shares     string `json:"shares"`
}

// Type returns the message type
func (msg MsgRequestWithdrawal) Type() string { return TypeMsgRequestWithdrawal }

// ValidateBasic performs stateless validation
func (msg MsgRequestWithdrawal) ValidateBasic() error {
	if msg.Withdrawer == "" {
		return ErrInvalidIdentity.Wrap("withdrawer cannot be empty")
	}
	_, err := parseAmount(msg.Shares)
	return err
}

// String implements fmt.Stringer
func (msg MsgRequestWithdrawal) String() string {
	return fmt.Sprintf("MsgRequestWithdrawal{Withdrawer: %s, Shares: %s}", msg.Withdrawer, msg.Shares)
}

// MsgRequestWithdrawalResponse defines the RequestWithdrawal response
type MsgRequestWithdrawalResponse struct {
	SharesRequested string `json:"shares_requested"`
	AvailableAt     int64  `json:"available_at"`
}

// MsgClaimWithdrawal defines the ClaimWithdrawal message
type MsgClaimWithdrawal struct {
	Withdrawer string `json:"withdrawer"`
}

// Type returns the message type
func (msg MsgClaimWithdrawal) Type() string { return TypeMsgClaimWithdrawal }

// ValidateBasic performs stateless validation
func (msg MsgClaimWithdrawal) ValidateBasic() error {
	if msg.Withdrawer == "" {
		return ErrInvalidIdentity.Wrap("withdrawer cannot be empty")
	}
	return nil
}

// String implements fmt.Stringer
func (msg MsgClaimWithdrawal) String() string {
	return fmt.Sprintf("MsgClaimWithdrawal{Withdrawer: %s}", msg.Withdrawer)
}

// MsgClaimWithdrawalResponse defines the ClaimWithdrawal response
type MsgClaimWithdrawalResponse struct {
	SharesBurned string `json:"shares_burned"`
	GrossAmount  string `json:"gross_amount"`
	Fee          string `json:"fee"`
	Payout       string `json:"payout"`
	FeeBps       int64  `json:"fee_bps"`
	Mature       bool   `json:"mature"`
}

// MsgAddReward defines the AddReward message
type MsgAddReward struct {
	Funder string `json:"funder"`
	Amount string `json:"amount"`
}

// Type returns the message type
func (msg MsgAddReward) Type() string { return TypeMsgAddReward }

// ValidateBasic performs stateless validation
func (msg MsgAddReward) ValidateBasic() error {
	if msg.Funder == "" {
		return ErrInvalidIdentity.Wrap("funder cannot be empty")
	}
	_, err := parseAmount(msg.Amount)
	return err
}

// String implements fmt.Stringer
func (msg MsgAddReward) String() string {
	return fmt.Sprintf("MsgAddReward{Funder: %s, Amount: %s}", msg.Funder, msg.Amount)
}

// MsgAddRewardResponse defines the AddReward response
type MsgAddRewardResponse struct {
	PoolBalance string `json:"pool_balance"`
}

// MsgChangeAdmin defines the ChangeAdmin message
type MsgChangeAdmin struct {
	Admin    string `json:"admin"`
	NewAdmin string `json:"new_admin"`
}

// Type returns the message type
func (msg MsgChangeAdmin) Type() string { return TypeMsgChangeAdmin }

// ValidateBasic performs stateless validation
func (msg MsgChangeAdmin) ValidateBasic() error {
	if msg.Admin == "" {
		return ErrInvalidIdentity.Wrap("admin cannot be empty")
	}
	if msg.NewAdmin == "" {
		return ErrInvalidIdentity.Wrap("new admin cannot be empty")
	}
	return nil
}

// String implements fmt.Stringer
func (msg MsgChangeAdmin) String() string {
	return fmt.Sprintf("MsgChangeAdmin{Admin: %s, NewAdmin: %s}", msg.Admin, msg.NewAdmin)
}

// MsgChangeAdminResponse defines the ChangeAdmin response
type MsgChangeAdminResponse struct {
	PreviousAdmin string `json:"previous_admin"`
	NewAdmin      string `json:"new_admin"`
}
