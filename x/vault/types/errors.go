package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrInvalidAmount         = errors.Register(ModuleName, 1, "amount must be positive")
	ErrInsufficientShares    = errors.Register(ModuleName, 2, "insufficient shares")
	ErrDuplicateRequest      = errors.Register(ModuleName, 3, "withdrawal request already pending")
	ErrNoPendingRequest      = errors.Register(ModuleName, 4, "no pending withdrawal request")
	ErrUnauthorized          = errors.Register(ModuleName, 5, "unauthorized")
	ErrInvalidIdentity       = errors.Register(ModuleName, 6, "invalid identity")
	ErrTransferFailed        = errors.Register(ModuleName, 7, "asset transfer failed")
	ErrReentrant             = errors.Register(ModuleName, 8, "reentrant call")
	ErrInconsistentPoolState = errors.Register(ModuleName, 9, "inconsistent pool state")
	ErrWithdrawalNotReady    = errors.Register(ModuleName, 10, "withdrawal not ready")
)
