package expense

import (
	"time"

	"github.com/fkhayef/tripsettle/internal/expense/split"
	"github.com/fkhayef/tripsettle/internal/money"
)

// Expense is a trip-scoped payment made by one member on behalf of others
type Expense struct {
	ID          int64       `json:"id"`
	TripID      int64       `json:"trip_id"`
	PayerID     int64       `json:"payer_id"`
	Description string      `json:"description"`
	Amount      money.Cents `json:"amount"`
	Currency    string      `json:"currency"`
	SplitType   string      `json:"split_type"` // EVEN, PERCENTAGE, EXACT
	CreatedAt   time.Time   `json:"created_at"`

	// Populated via JOIN
	PayerUsername string `json:"payer_username,omitempty"`
}

// Split is one participant's share of an expense
type Split struct {
	ID         int64       `json:"id"`
	ExpenseID  int64       `json:"expense_id"`
	UserID     int64       `json:"user_id"`
	OwedAmount money.Cents `json:"owed_amount"`
	IsPaid     bool        `json:"is_paid"`
	PaidAt     *time.Time  `json:"paid_at,omitempty"`

	// Populated via JOIN
	Username string `json:"username,omitempty"`
}

// ExpenseWithSplits combines an expense with its calculated splits
type ExpenseWithSplits struct {
	Expense *Expense
	Splits  []*Split
}

// SplitParticipant is used when creating an expense with splits
type SplitParticipant struct {
	UserID     int64        `json:"user_id" validate:"required,gt=0"`
	Percentage *float64     `json:"percentage,omitempty"` // For PERCENTAGE split
	Amount     *money.Cents `json:"amount,omitempty"`     // For EXACT split
}

// ToSplitInput converts to the split package's input type
func (p *SplitParticipant) ToSplitInput() split.SplitInput {
	return split.SplitInput{
		UserID:     p.UserID,
		Percentage: p.Percentage,
		Amount:     p.Amount,
	}
}
