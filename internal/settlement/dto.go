package settlement

import (
	"github.com/fkhayef/tripsettle/internal/money"
	"github.com/fkhayef/tripsettle/internal/optimizer"
	"github.com/fkhayef/tripsettle/internal/payment"
)

// InitiateSettlementRequest is sent by the payer after paying outside the app
type InitiateSettlementRequest struct {
	PayeeID       int64       `json:"payee_id" validate:"required,gt=0"`
	Amount        money.Cents `json:"amount" swaggertype:"string" example:"30.00"`
	Currency      string      `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentMethod string      `json:"payment_method,omitempty" validate:"omitempty,oneof=venmo paypal cash"`
}

// SettlementResponse represents the response for a settlement
type SettlementResponse struct {
	ID            string      `json:"id"`
	TripID        int64       `json:"trip_id"`
	PayerID       int64       `json:"payer_id"`
	PayerName     string      `json:"payer_name,omitempty"`
	PayeeID       int64       `json:"payee_id"`
	PayeeName     string      `json:"payee_name,omitempty"`
	Amount        money.Cents `json:"amount" swaggertype:"string" example:"30.00"`
	Currency      string      `json:"currency"`
	PaymentMethod string      `json:"payment_method,omitempty"`
	Status        Status      `json:"status"`
	InitiatedAt   string      `json:"initiated_at"`
	ConfirmedAt   string      `json:"confirmed_at,omitempty"`
}

// Recommendation is one optimizer transaction with the ways the payee can be paid
type Recommendation struct {
	FromUserID int64                      `json:"from_user_id"`
	FromName   string                     `json:"from_name"`
	ToUserID   int64                      `json:"to_user_id"`
	ToName     string                     `json:"to_name"`
	Amount     money.Cents                `json:"amount" swaggertype:"string" example:"30.00"`
	Currency   string                     `json:"currency"`
	Options    []payment.SettlementOption `json:"options"`
}

func newRecommendation(t optimizer.Transaction, from, to, currency string, options []payment.SettlementOption) *Recommendation {
	return &Recommendation{
		FromUserID: t.FromUserID,
		FromName:   from,
		ToUserID:   t.ToUserID,
		ToName:     to,
		Amount:     t.Amount,
		Currency:   currency,
		Options:    options,
	}
}

// ToResponse converts a Settlement model to a SettlementResponse DTO
func (s *Settlement) ToResponse() *SettlementResponse {
	resp := &SettlementResponse{
		ID:          s.ID.String(),
		TripID:      s.TripID,
		PayerID:     s.PayerID,
		PayerName:   s.PayerName,
		PayeeID:     s.PayeeID,
		PayeeName:   s.PayeeName,
		Amount:      s.Amount,
		Currency:    s.Currency,
		Status:      s.Status,
		InitiatedAt: s.InitiatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if s.PaymentMethod != nil {
		resp.PaymentMethod = string(*s.PaymentMethod)
	}
	if s.ConfirmedAt != nil {
		resp.ConfirmedAt = s.ConfirmedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	return resp
}

func toResponses(settlements []*Settlement) []*SettlementResponse {
	out := make([]*SettlementResponse, len(settlements))
	for i, s := range settlements {
		out[i] = s.ToResponse()
	}
	return out
}
