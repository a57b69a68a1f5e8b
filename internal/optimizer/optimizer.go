// Package optimizer turns a set of net balances into a short list of transfers
// that settles every member.
package optimizer

import (
	"github.com/fkhayef/tripsettle/internal/ledger"
	"github.com/fkhayef/tripsettle/internal/money"
)

// Epsilon is the largest residual treated as settled
const Epsilon money.Cents = 1

// Transaction is one suggested transfer from a debtor to a creditor
type Transaction struct {
	FromUserID int64       `json:"from_user_id"`
	ToUserID   int64       `json:"to_user_id"`
	Amount     money.Cents `json:"amount" swaggertype:"string" example:"30.00"`
}

type entry struct {
	userID int64
	net    money.Cents
}

// Optimize greedily matches the largest debtor with the largest creditor until
// nothing above Epsilon remains. Ties go to whichever member appears first in
// balances. The input is never modified and at most n-1 transactions result.
func Optimize(balances []*ledger.UserBalance) []Transaction {
	entries := make([]entry, 0, len(balances))
	for _, b := range balances {
		if b.NetBalance.Abs() <= Epsilon {
			continue
		}
		entries = append(entries, entry{userID: b.UserID, net: b.NetBalance})
	}

	var txns []Transaction
	for {
		debtor, creditor := -1, -1
		for i, e := range entries {
			if e.net < 0 && (debtor < 0 || e.net < entries[debtor].net) {
				debtor = i
			}
			if e.net > 0 && (creditor < 0 || e.net > entries[creditor].net) {
				creditor = i
			}
		}
		if debtor < 0 || creditor < 0 {
			break
		}

		amount := min(-entries[debtor].net, entries[creditor].net)
		if amount <= Epsilon {
			break
		}

		txns = append(txns, Transaction{
			FromUserID: entries[debtor].userID,
			ToUserID:   entries[creditor].userID,
			Amount:     amount,
		})
		entries[debtor].net += amount
		entries[creditor].net -= amount
	}

	return txns
}

// Apply returns a copy of balances with txns applied to each net balance, as
// if every suggested transfer had been confirmed.
func Apply(balances []*ledger.UserBalance, txns []Transaction) []*ledger.UserBalance {
	out := make([]*ledger.UserBalance, len(balances))
	index := make(map[int64]*ledger.UserBalance, len(balances))
	for i, b := range balances {
		c := *b
		out[i] = &c
		index[c.UserID] = &c
	}

	for _, t := range txns {
		if from, ok := index[t.FromUserID]; ok {
			from.TotalPaidOut += t.Amount
			from.NetBalance += t.Amount
		}
		if to, ok := index[t.ToUserID]; ok {
			to.TotalOwed += t.Amount
			to.NetBalance -= t.Amount
		}
	}

	return out
}
