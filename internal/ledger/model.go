package ledger

import "github.com/fkhayef/tripsettle/internal/money"

// UserBalance is a member's derived position on a trip. Positive NetBalance
// means the member is owed money, negative means they owe.
type UserBalance struct {
	UserID       int64       `json:"user_id"`
	Name         string      `json:"name"`
	TotalPaidOut money.Cents `json:"total_paid_out" swaggertype:"string" example:"120.00"`
	TotalOwed    money.Cents `json:"total_owed" swaggertype:"string" example:"40.00"`
	NetBalance   money.Cents `json:"net_balance" swaggertype:"string" example:"80.00"`
}

// Transfer is a confirmed settlement as the ledger sees it: the payer has paid
// the payee Amount outside of any expense.
type Transfer struct {
	ID      string
	PayerID int64
	PayeeID int64
	Amount  money.Cents
}
