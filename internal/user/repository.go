package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fkhayef/tripsettle/internal/database"
)

// Repository handles user data persistence
type Repository struct {
	db database.Querier
}

// NewRepository creates a new user repository with database dependency injected
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// GetByID retrieves a user by their ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, username, email, venmo_username, paypal_email, created_at
		FROM users
		WHERE id = $1
	`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.VenmoUsername,
		&user.PaypalEmail,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpdatePaymentHandles overwrites both handles; nil stores NULL
func (r *Repository) UpdatePaymentHandles(ctx context.Context, id int64, venmo, paypal *string) (*User, error) {
	query := `
		UPDATE users
		SET venmo_username = $2,
		    paypal_email = $3
		WHERE id = $1
		RETURNING id, username, email, venmo_username, paypal_email, created_at
	`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, id, venmo, paypal).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.VenmoUsername,
		&user.PaypalEmail,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update payment handles: %w", err)
	}

	return user, nil
}
