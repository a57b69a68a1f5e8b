package trip

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fkhayef/tripsettle/internal/apperr"
	"github.com/fkhayef/tripsettle/internal/database"
)

// ErrTripNotFound is returned when the trip does not exist
var ErrTripNotFound = apperr.NotFound("trip not found")

// Repository reads trips and their rosters. Trip and membership writes are
// owned by another service.
type Repository struct {
	db database.Querier
}

// NewRepository creates a new trip repository on a pool or a transaction
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// GetByID retrieves a trip by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Trip, error) {
	query := `
		SELECT id, name, currency, created_at
		FROM trips
		WHERE id = $1
	`

	t := &Trip{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Currency,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return t, nil
}

// ListMembers returns the roster of a trip in join order
func (r *Repository) ListMembers(ctx context.Context, tripID int64) ([]*Member, error) {
	if _, err := r.GetByID(ctx, tripID); err != nil {
		return nil, err
	}

	query := `
		SELECT u.id, u.username, COALESCE(u.venmo_username, ''), COALESCE(u.paypal_email, '')
		FROM trip_members tm
		JOIN users u ON tm.user_id = u.id
		WHERE tm.trip_id = $1
		ORDER BY tm.joined_at, u.id
	`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.UserID, &m.Name, &m.VenmoUsername, &m.PaypalEmail); err != nil {
			return nil, fmt.Errorf("failed to scan trip member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trip members: %w", err)
	}

	return members, nil
}

// GetMember returns a single roster entry, or nil when the user is not on the trip
func (r *Repository) GetMember(ctx context.Context, tripID, userID int64) (*Member, error) {
	query := `
		SELECT u.id, u.username, COALESCE(u.venmo_username, ''), COALESCE(u.paypal_email, '')
		FROM trip_members tm
		JOIN users u ON tm.user_id = u.id
		WHERE tm.trip_id = $1 AND tm.user_id = $2
	`

	m := &Member{}
	err := r.db.QueryRowContext(ctx, query, tripID, userID).Scan(&m.UserID, &m.Name, &m.VenmoUsername, &m.PaypalEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip member: %w", err)
	}

	return m, nil
}
