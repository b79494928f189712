package keeper

import (
	"cosmossdk.io/math"

	"github.com/openalpha/stakevault/x/vault/types"
)

// MsgServer is the message-level entry point wrapping the keeper. It parses
// string amounts, runs stateless validation and shapes the responses.
type MsgServer struct {
	keeper *Keeper
}

// NewMsgServer creates a message server over the keeper.
func NewMsgServer(k *Keeper) *MsgServer {
	return &MsgServer{keeper: k}
}

// Deposit handles MsgDeposit.
func (s *MsgServer) Deposit(msg types.MsgDeposit) (*types.MsgDepositResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, _ := math.NewIntFromString(msg.Amount)

	_, minted, err := s.keeper.Deposit(msg.Depositor, amount)
	if err != nil {
		return nil, err
	}

	pool, err := s.keeper.GetPool()
	if err != nil {
		return nil, err
	}
	balance, err := s.keeper.TotalPooled()
	if err != nil {
		return nil, err
	}

	return &types.MsgDepositResponse{
		SharesMinted: minted.String(),
		TotalShares:  pool.TotalShares.String(),
		PoolBalance:  balance.String(),
	}, nil
}

// RequestWithdrawal handles MsgRequestWithdrawal.
func (s *MsgServer) RequestWithdrawal(msg types.MsgRequestWithdrawal) (*types.MsgRequestWithdrawalResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	shares, _ := math.NewIntFromString(msg.Shares)

	w, err := s.keeper.RequestWithdrawal(msg.Withdrawer, shares)
	if err != nil {
		return nil, err
	}

	return &types.MsgRequestWithdrawalResponse{
		SharesRequested: w.SharesRequested.String(),
		AvailableAt:     w.AvailableAt,
	}, nil
}

// ClaimWithdrawal handles MsgClaimWithdrawal.
func (s *MsgServer) ClaimWithdrawal(msg types.MsgClaimWithdrawal) (*types.MsgClaimWithdrawalResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}

	res, err := s.keeper.ClaimWithdrawal(msg.Withdrawer)
	if err != nil {
		return nil, err
	}

	return &types.MsgClaimWithdrawalResponse{
		SharesBurned: res.SharesRequested.String(),
		GrossAmount:  res.GrossAmount.String(),
		Fee:          res.Fee.String(),
		Payout:       res.Payout.String(),
		FeeBps:       res.FeeBps,
		Mature:       res.Mature,
	}, nil
}

// AddReward handles MsgAddReward.
func (s *MsgServer) AddReward(msg types.MsgAddReward) (*types.MsgAddRewardResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, _ := math.NewIntFromString(msg.Amount)

	balance, err := s.keeper.AddReward(msg.Funder, amount)
	if err != nil {
		return nil, err
	}

	return &types.MsgAddRewardResponse{
		PoolBalance: balance.String(),
	}, nil
}

// ChangeAdmin handles MsgChangeAdmin.
func (s *MsgServer) ChangeAdmin(msg types.MsgChangeAdmin) (*types.MsgChangeAdminResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}

	if err := s.keeper.ChangeAdmin(msg.Admin, msg.NewAdmin); err != nil {
		return nil, err
	}

	return &types.MsgChangeAdminResponse{
		PreviousAdmin: msg.Admin,
		NewAdmin:      msg.NewAdmin,
	}, nil
}
