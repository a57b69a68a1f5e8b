// Package ledger derives per-member net balances for a trip from its expenses,
// splits and confirmed settlements. Balances are recomputed on every read.
package ledger

import (
	"github.com/fkhayef/tripsettle/internal/apperr"
	"github.com/fkhayef/tripsettle/internal/expense"
	"github.com/fkhayef/tripsettle/internal/money"
	"github.com/fkhayef/tripsettle/internal/trip"
)

// Compute derives balances in roster order.
//
// A paid split is taken off both sides: the debtor no longer owes it and the
// expense payer is no longer credited for it. Confirmed transfers credit the
// payer and debit the payee. Every cent therefore has exactly one debit and one
// credit, and the returned net balances sum to zero.
func Compute(members []*trip.Member, expenses []*expense.Expense, splits []*expense.Split, transfers []Transfer) ([]*UserBalance, error) {
	balances := make([]*UserBalance, 0, len(members))
	byUser := make(map[int64]*UserBalance, len(members))
	for _, m := range members {
		if _, dup := byUser[m.UserID]; dup {
			return nil, apperr.DataIntegrity("user %d appears twice in the trip roster", m.UserID)
		}
		b := &UserBalance{UserID: m.UserID, Name: m.Name}
		byUser[m.UserID] = b
		balances = append(balances, b)
	}

	byExpense := make(map[int64]*expense.Expense, len(expenses))
	for _, e := range expenses {
		payer, ok := byUser[e.PayerID]
		if !ok {
			return nil, apperr.DataIntegrity("expense %d: payer %d is not in the trip roster", e.ID, e.PayerID)
		}
		byExpense[e.ID] = e
		payer.TotalPaidOut += e.Amount
	}

	for _, s := range splits {
		e, ok := byExpense[s.ExpenseID]
		if !ok {
			return nil, apperr.DataIntegrity("split %d references missing expense %d", s.ID, s.ExpenseID)
		}
		debtor, ok := byUser[s.UserID]
		if !ok {
			return nil, apperr.DataIntegrity("split %d: user %d is not in the trip roster", s.ID, s.UserID)
		}
		if s.IsPaid {
			byUser[e.PayerID].TotalPaidOut -= s.OwedAmount
			continue
		}
		debtor.TotalOwed += s.OwedAmount
	}

	for _, t := range transfers {
		payer, ok := byUser[t.PayerID]
		if !ok {
			return nil, apperr.DataIntegrity("settlement %s: payer %d is not in the trip roster", t.ID, t.PayerID)
		}
		payee, ok := byUser[t.PayeeID]
		if !ok {
			return nil, apperr.DataIntegrity("settlement %s: payee %d is not in the trip roster", t.ID, t.PayeeID)
		}
		payer.TotalPaidOut += t.Amount
		payee.TotalOwed += t.Amount
	}

	var sum money.Cents
	for _, b := range balances {
		b.NetBalance = b.TotalPaidOut - b.TotalOwed
		sum += b.NetBalance
	}

	// Only reachable when an expense's splits do not add up to its amount
	if sum != 0 {
		return nil, apperr.DataIntegrity("trip ledger does not balance: off by %s", sum)
	}

	return balances, nil
}
