package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/tripsettle/internal/apperr"
	"github.com/fkhayef/tripsettle/internal/money"
	"github.com/fkhayef/tripsettle/internal/payment"
)

// Status is where a settlement sits in its lifecycle
type Status string

const (
	StatusInitiated Status = "initiated"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
)

// Terminal reports whether no further transition is possible from s
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusDeclined
}

// Action is something the payee does to an initiated settlement
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionDecline Action = "decline"
)

// Common errors
var (
	ErrSettlementNotFound = apperr.NotFound("settlement not found")
	ErrNotPayeeConfirm    = apperr.Authorization("only the payee may confirm this settlement")
	ErrNotPayeeDecline    = apperr.Authorization("only the payee may decline this settlement")
	ErrAlreadyConfirmed   = apperr.Conflict("settlement has already been confirmed")
	ErrAlreadyDeclined    = apperr.Conflict("settlement has already been declined")
	ErrUnknownAction      = apperr.Validation("unknown settlement action")
)

// Settlement is a payment one member claims to have made to another. Only
// confirmed settlements count toward balances.
type Settlement struct {
	ID            uuid.UUID       `json:"id"`
	TripID        int64           `json:"trip_id"`
	PayerID       int64           `json:"payer_id"`
	PayeeID       int64           `json:"payee_id"`
	Amount        money.Cents     `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod *payment.Method `json:"payment_method,omitempty"`
	Status        Status          `json:"status"`
	InitiatedAt   time.Time       `json:"initiated_at"`
	ConfirmedAt   *time.Time      `json:"confirmed_at,omitempty"`

	// Populated via JOIN
	PayerName string `json:"payer_name,omitempty"`
	PayeeName string `json:"payee_name,omitempty"`
}

// Transition is the whole state machine. It returns the status s moves to
// when actorID performs action, and noop when s is already there. Only the
// payee may act, and terminal states never change.
func Transition(s *Settlement, action Action, actorID int64) (next Status, noop bool, err error) {
	var target Status
	switch action {
	case ActionConfirm:
		target = StatusConfirmed
		if actorID != s.PayeeID {
			return "", false, ErrNotPayeeConfirm
		}
	case ActionDecline:
		target = StatusDeclined
		if actorID != s.PayeeID {
			return "", false, ErrNotPayeeDecline
		}
	default:
		return "", false, ErrUnknownAction
	}

	switch s.Status {
	case StatusInitiated:
		return target, false, nil
	case target:
		return target, true, nil
	case StatusConfirmed:
		return "", false, ErrAlreadyConfirmed
	case StatusDeclined:
		return "", false, ErrAlreadyDeclined
	default:
		return "", false, apperr.DataIntegrity("settlement %s has unknown status %q", s.ID, s.Status)
	}
}
