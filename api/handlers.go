package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/openalpha/stakevault/metrics"
	"github.com/openalpha/stakevault/x/vault/types"
)

// decodeBody parses a JSON request body into dst
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusForError maps engine errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrInvalidIdentity):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, types.ErrNoPendingRequest):
		return http.StatusNotFound
	case errors.Is(err, types.ErrDuplicateRequest),
		errors.Is(err, types.ErrInsufficientShares),
		errors.Is(err, types.ErrWithdrawalNotReady),
		errors.Is(err, types.ErrReentrant):
		return http.StatusConflict
	case errors.Is(err, types.ErrTransferFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	metrics.GetCollector().RecordAPIError(r.Method, r.URL.Path, strconv.Itoa(status))
	writeError(w, status, err.Error())
}

// ============ Mutating Endpoints ============

// handleDeposit handles POST /v1/deposits
func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgDeposit
	if !decodeBody(w, r, &msg) {
		return
	}
	if !s.allowTx(w, msg.Depositor) {
		return
	}

	res, err := s.msgServer.Deposit(msg)
	if err != nil {
		metrics.GetCollector().RecordDepositFailure(errorReason(err))
		s.writeEngineError(w, r, err)
		return
	}

	amount, _ := strconv.ParseFloat(msg.Amount, 64)
	minted, _ := strconv.ParseFloat(res.SharesMinted, 64)
	metrics.GetCollector().RecordDeposit(amount, minted)
	s.refreshPoolSnapshot()

	writeJSON(w, http.StatusOK, res)
}

// handleRequestWithdrawal handles POST /v1/withdrawals
func (s *Server) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgRequestWithdrawal
	if !decodeBody(w, r, &msg) {
		return
	}
	if !s.allowTx(w, msg.Withdrawer) {
		return
	}

	res, err := s.msgServer.RequestWithdrawal(msg)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	metrics.GetCollector().RecordWithdrawalRequest()
	writeJSON(w, http.StatusOK, res)
}

// handleClaimWithdrawal handles POST /v1/withdrawals/claim
func (s *Server) handleClaimWithdrawal(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgClaimWithdrawal
	if !decodeBody(w, r, &msg) {
		return
	}
	if !s.allowTx(w, msg.Withdrawer) {
		return
	}

	res, err := s.msgServer.ClaimWithdrawal(msg)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	tier := "normal"
	if !res.Mature {
		tier = "early"
	}
	gross, _ := strconv.ParseFloat(res.GrossAmount, 64)
	fee, _ := strconv.ParseFloat(res.Fee, 64)
	burned, _ := strconv.ParseFloat(res.SharesBurned, 64)
	metrics.GetCollector().RecordClaim(tier, gross, fee, burned)
	s.refreshPoolSnapshot()

	writeJSON(w, http.StatusOK, res)
}

// handleAddReward handles POST /v1/rewards
func (s *Server) handleAddReward(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgAddReward
	if !decodeBody(w, r, &msg) {
		return
	}
	if !s.allowTx(w, msg.Funder) {
		return
	}

	res, err := s.msgServer.AddReward(msg)
	if err != nil {
		metrics.GetCollector().RecordRewardFailure()
		s.writeEngineError(w, r, err)
		return
	}

	amount, _ := strconv.ParseFloat(msg.Amount, 64)
	metrics.GetCollector().RecordReward(amount)
	s.refreshPoolSnapshot()

	writeJSON(w, http.StatusOK, res)
}

// handleChangeAdmin handles POST /v1/admin
func (s *Server) handleChangeAdmin(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgChangeAdmin
	if !decodeBody(w, r, &msg) {
		return
	}
	if !s.allowTx(w, msg.Admin) {
		return
	}

	res, err := s.msgServer.ChangeAdmin(msg)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ============ Read Endpoints ============

// handlePool handles GET /v1/pool
func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	state, err := s.keeper.PoolState()
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_shares": state.TotalShares.String(),
		"pool_balance": state.PoolBalance.String(),
		"admin":        state.Admin,
		"updated_at":   state.UpdatedAt,
	})
}

// handleAccount handles GET /v1/accounts/{address}
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	acct, err := s.keeper.GetAccount(address)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	value, err := s.keeper.ValueOf(address)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":    acct.Address,
		"shares":     acct.Shares.String(),
		"deposited":  acct.Deposited.String(),
		"value":      value.String(),
		"updated_at": acct.UpdatedAt,
	})
}

// handlePendingWithdrawal handles GET /v1/accounts/{address}/withdrawal
func (s *Server) handlePendingWithdrawal(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	pending, err := s.keeper.PendingWithdrawal(address)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if pending == nil {
		writeError(w, http.StatusNotFound, "no pending withdrawal")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"withdrawer":       pending.Withdrawer,
		"shares_requested": pending.SharesRequested.String(),
		"requested_at":     pending.RequestedAt,
		"available_at":     pending.AvailableAt,
	})
}

// handleBalance handles GET /v1/accounts/{address}/balance
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	balance, err := s.ledger.Balance(address)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": address,
		"balance": balance.String(),
	})
}

// errorReason maps an engine error to a short metric label
func errorReason(err error) string {
	switch {
	case errors.Is(err, types.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, types.ErrInvalidIdentity):
		return "invalid_identity"
	case errors.Is(err, types.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, types.ErrReentrant):
		return "reentrant"
	case errors.Is(err, types.ErrInconsistentPoolState):
		return "inconsistent_pool"
	default:
		return "other"
	}
}
