package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fkhayef/tripsettle/internal/database"
)

// Repository handles expense and split data persistence
type Repository struct {
	db database.Querier
}

// NewRepository creates a new expense repository on a pool or a transaction
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// CreateExpense inserts an expense and all of its splits in one transaction
func (r *Repository) CreateExpense(ctx context.Context, e *Expense, splits []*Split) error {
	return database.RunInTx(ctx, r.db, func(tx database.Querier) error {
		query := `
			INSERT INTO expenses (trip_id, payer_id, description, amount_cents, currency, split_type)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`
		err := tx.QueryRowContext(ctx, query,
			e.TripID,
			e.PayerID,
			e.Description,
			e.Amount,
			e.Currency,
			e.SplitType,
		).Scan(&e.ID, &e.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}

		splitQuery := `
			INSERT INTO expense_splits (expense_id, user_id, owed_cents)
			VALUES ($1, $2, $3)
			RETURNING id, is_paid
		`
		for _, s := range splits {
			s.ExpenseID = e.ID
			if err := tx.QueryRowContext(ctx, splitQuery, s.ExpenseID, s.UserID, s.OwedAmount).Scan(&s.ID, &s.IsPaid); err != nil {
				return fmt.Errorf("failed to create split for user %d: %w", s.UserID, err)
			}
		}

		return nil
	})
}

// GetExpenseByID retrieves an expense by its ID
func (r *Repository) GetExpenseByID(ctx context.Context, id int64) (*Expense, error) {
	query := `
		SELECT e.id, e.trip_id, e.payer_id, e.description, e.amount_cents, e.currency, e.split_type, e.created_at, u.username
		FROM expenses e
		JOIN users u ON e.payer_id = u.id
		WHERE e.id = $1
	`

	expense := &Expense{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&expense.ID,
		&expense.TripID,
		&expense.PayerID,
		&expense.Description,
		&expense.Amount,
		&expense.Currency,
		&expense.SplitType,
		&expense.CreatedAt,
		&expense.PayerUsername,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return expense, nil
}

// ListExpenses returns every expense of a trip, oldest first
func (r *Repository) ListExpenses(ctx context.Context, tripID int64) ([]*Expense, error) {
	query := `
		SELECT e.id, e.trip_id, e.payer_id, e.description, e.amount_cents, e.currency, e.split_type, e.created_at, u.username
		FROM expenses e
		JOIN users u ON e.payer_id = u.id
		WHERE e.trip_id = $1
		ORDER BY e.created_at, e.id
	`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		expense := &Expense{}
		if err := rows.Scan(
			&expense.ID,
			&expense.TripID,
			&expense.PayerID,
			&expense.Description,
			&expense.Amount,
			&expense.Currency,
			&expense.SplitType,
			&expense.CreatedAt,
			&expense.PayerUsername,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	return expenses, nil
}

// ListSplits returns every split of every expense of a trip
func (r *Repository) ListSplits(ctx context.Context, tripID int64) ([]*Split, error) {
	query := `
		SELECT s.id, s.expense_id, s.user_id, s.owed_cents, s.is_paid, s.paid_at, u.username
		FROM expense_splits s
		JOIN expenses e ON s.expense_id = e.id
		JOIN users u ON s.user_id = u.id
		WHERE e.trip_id = $1
		ORDER BY s.expense_id, s.id
	`

	return r.querySplits(ctx, query, tripID)
}

// GetSplitsByExpenseID retrieves all splits for an expense
func (r *Repository) GetSplitsByExpenseID(ctx context.Context, expenseID int64) ([]*Split, error) {
	query := `
		SELECT s.id, s.expense_id, s.user_id, s.owed_cents, s.is_paid, s.paid_at, u.username
		FROM expense_splits s
		JOIN users u ON s.user_id = u.id
		WHERE s.expense_id = $1
		ORDER BY s.id
	`

	return r.querySplits(ctx, query, expenseID)
}

func (r *Repository) querySplits(ctx context.Context, query string, arg int64) ([]*Split, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	var splits []*Split
	for rows.Next() {
		split := &Split{}
		if err := rows.Scan(
			&split.ID,
			&split.ExpenseID,
			&split.UserID,
			&split.OwedAmount,
			&split.IsPaid,
			&split.PaidAt,
			&split.Username,
		); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return splits, nil
}

// GetSplitByID retrieves a split by its ID
func (r *Repository) GetSplitByID(ctx context.Context, id int64) (*Split, error) {
	query := `
		SELECT s.id, s.expense_id, s.user_id, s.owed_cents, s.is_paid, s.paid_at, u.username
		FROM expense_splits s
		JOIN users u ON s.user_id = u.id
		WHERE s.id = $1
	`

	split := &Split{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&split.ID,
		&split.ExpenseID,
		&split.UserID,
		&split.OwedAmount,
		&split.IsPaid,
		&split.PaidAt,
		&split.Username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get split: %w", err)
	}

	return split, nil
}

// MarkSplitPaid flips a split to paid. It reports false when the split was
// already paid, so retries do not bump timestamps.
func (r *Repository) MarkSplitPaid(ctx context.Context, splitID int64) (bool, error) {
	query := `UPDATE expense_splits SET is_paid = TRUE, paid_at = NOW() WHERE id = $1 AND is_paid = FALSE`
	result, err := r.db.ExecContext(ctx, query, splitID)
	if err != nil {
		return false, fmt.Errorf("failed to mark split %d paid: %w", splitID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark split %d paid: %w", splitID, err)
	}

	return rowsAffected == 1, nil
}
