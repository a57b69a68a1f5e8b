package expense

import "github.com/fkhayef/tripsettle/internal/money"

// CreateExpenseRequest represents the request to create an expense
type CreateExpenseRequest struct {
	TripID       int64               `json:"trip_id" validate:"required,gt=0"`
	Description  string              `json:"description" validate:"required,min=1,max=255"`
	Amount       money.Cents         `json:"amount" swaggertype:"string" example:"42.50" validate:"gt=0"`
	Currency     string              `json:"currency,omitempty" validate:"omitempty,len=3"`
	SplitType    string              `json:"split_type" validate:"required,oneof=EVEN PERCENTAGE EXACT"`
	Participants []*SplitParticipant `json:"participants" validate:"required,min=1,dive"`
}

// ExpenseResponse represents the response for an expense
type ExpenseResponse struct {
	ID            int64            `json:"id"`
	TripID        int64            `json:"trip_id"`
	PayerID       int64            `json:"payer_id"`
	PayerUsername string           `json:"payer_username,omitempty"`
	Description   string           `json:"description"`
	Amount        money.Cents      `json:"amount" swaggertype:"string" example:"42.50"`
	Currency      string           `json:"currency"`
	SplitType     string           `json:"split_type"`
	CreatedAt     string           `json:"created_at"`
	Splits        []*SplitResponse `json:"splits,omitempty"`
}

// SplitResponse represents the response for a split
type SplitResponse struct {
	ID         int64       `json:"id"`
	ExpenseID  int64       `json:"expense_id"`
	UserID     int64       `json:"user_id"`
	Username   string      `json:"username,omitempty"`
	OwedAmount money.Cents `json:"owed_amount" swaggertype:"string" example:"14.17"`
	IsPaid     bool        `json:"is_paid"`
	PaidAt     *string     `json:"paid_at,omitempty"`
}

// ToResponse converts an Expense model to an ExpenseResponse DTO
func (e *Expense) ToResponse() *ExpenseResponse {
	return &ExpenseResponse{
		ID:            e.ID,
		TripID:        e.TripID,
		PayerID:       e.PayerID,
		PayerUsername: e.PayerUsername,
		Description:   e.Description,
		Amount:        e.Amount,
		Currency:      e.Currency,
		SplitType:     e.SplitType,
		CreatedAt:     e.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a Split model to a SplitResponse DTO
func (s *Split) ToResponse() *SplitResponse {
	resp := &SplitResponse{
		ID:         s.ID,
		ExpenseID:  s.ExpenseID,
		UserID:     s.UserID,
		Username:   s.Username,
		OwedAmount: s.OwedAmount,
		IsPaid:     s.IsPaid,
	}
	if s.PaidAt != nil {
		paidAt := s.PaidAt.Format("2006-01-02T15:04:05Z")
		resp.PaidAt = &paidAt
	}
	return resp
}

// ToResponse builds the expense response including every split
func (e *ExpenseWithSplits) ToResponse() *ExpenseResponse {
	resp := e.Expense.ToResponse()
	resp.Splits = make([]*SplitResponse, len(e.Splits))
	for i, s := range e.Splits {
		resp.Splits[i] = s.ToResponse()
	}
	return resp
}
