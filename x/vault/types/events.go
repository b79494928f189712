package types

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the engine
const (
	EventTypeDeposit           = "vault_deposit"
	EventTypeWithdrawalRequest = "vault_withdrawal_request"
	EventTypeWithdrawalClaim   = "vault_withdrawal_claim"
	EventTypeRewardAdded       = "vault_reward_added"
	EventTypeAdminChanged      = "vault_admin_changed"
)

// Event is a fire-and-forget structured notification. Events feed external
// observability and are not required for correctness.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	EmittedAt  int64             `json:"emitted_at"`
}

// NewEvent creates an event with a fresh ID.
func NewEvent(eventType string, now time.Time, attributes map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Attributes: attributes,
		EmittedAt:  now.Unix(),
	}
}

// EventEmitter is the notification sink the engine publishes to.
type EventEmitter interface {
	Emit(event Event)
}

// NopEmitter discards all events.
type NopEmitter struct{}

// Emit implements EventEmitter.
func (NopEmitter) Emit(Event) {}
