// Package snapshot loads everything the ledger needs for one trip inside a
// single read-only transaction.
package snapshot

import (
	"context"
	"database/sql"

	"github.com/fkhayef/tripsettle/internal/database"
	"github.com/fkhayef/tripsettle/internal/expense"
	"github.com/fkhayef/tripsettle/internal/ledger"
	"github.com/fkhayef/tripsettle/internal/settlement"
	"github.com/fkhayef/tripsettle/internal/trip"
)

// Loader implements ledger.SnapshotSource on PostgreSQL
type Loader struct {
	db *sql.DB
}

// NewLoader creates a snapshot loader
func NewLoader(db *sql.DB) *Loader {
	return &Loader{db: db}
}

// LoadSnapshot reads roster, expenses, splits and confirmed settlements under
// REPEATABLE READ, so a split written between two of the queries can never
// show up without its expense.
func (l *Loader) LoadSnapshot(ctx context.Context, tripID int64) (*ledger.Snapshot, error) {
	snap := &ledger.Snapshot{}

	err := database.WithTx(ctx, l.db, database.ReadSnapshot, func(tx *sql.Tx) error {
		var err error

		snap.Members, err = trip.NewRepository(tx).ListMembers(ctx, tripID)
		if err != nil {
			return err
		}

		expenses := expense.NewRepository(tx)
		snap.Expenses, err = expenses.ListExpenses(ctx, tripID)
		if err != nil {
			return err
		}
		snap.Splits, err = expenses.ListSplits(ctx, tripID)
		if err != nil {
			return err
		}

		snap.Transfers, err = settlement.NewRepository(tx).ListConfirmedTransfers(ctx, tripID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}
