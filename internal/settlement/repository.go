package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/tripsettle/internal/database"
	"github.com/fkhayef/tripsettle/internal/ledger"
	"github.com/fkhayef/tripsettle/internal/payment"
)

// Repository handles settlement data persistence
type Repository struct {
	db database.Querier
}

// NewRepository creates a new settlement repository on a pool or a transaction
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

const selectSettlement = `
	SELECT s.id, s.trip_id, s.payer_id, s.payee_id, s.amount_cents, s.currency,
	       s.payment_method, s.status, s.initiated_at, s.confirmed_at,
	       p.username AS payer_name, q.username AS payee_name
	FROM settlements s
	JOIN users p ON s.payer_id = p.id
	JOIN users q ON s.payee_id = q.id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (*Settlement, error) {
	s := &Settlement{}
	var method sql.NullString
	var confirmedAt sql.NullTime
	err := row.Scan(
		&s.ID,
		&s.TripID,
		&s.PayerID,
		&s.PayeeID,
		&s.Amount,
		&s.Currency,
		&method,
		&s.Status,
		&s.InitiatedAt,
		&confirmedAt,
		&s.PayerName,
		&s.PayeeName,
	)
	if err != nil {
		return nil, err
	}
	if method.Valid {
		m := payment.Method(method.String)
		s.PaymentMethod = &m
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		s.ConfirmedAt = &t
	}
	return s, nil
}

// Create inserts a new initiated settlement, assigning its ID
func (r *Repository) Create(ctx context.Context, s *Settlement) error {
	query := `
		INSERT INTO settlements (id, trip_id, payer_id, payee_id, amount_cents, currency, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING initiated_at
	`

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	var method sql.NullString
	if s.PaymentMethod != nil {
		method = sql.NullString{String: string(*s.PaymentMethod), Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		s.ID,
		s.TripID,
		s.PayerID,
		s.PayeeID,
		s.Amount,
		s.Currency,
		method,
		s.Status,
	).Scan(&s.InitiatedAt)
	if err != nil {
		return fmt.Errorf("failed to create settlement: %w", err)
	}

	return nil
}

// GetByID retrieves a settlement by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Settlement, error) {
	s, err := scanSettlement(r.db.QueryRowContext(ctx, selectSettlement+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return s, nil
}

// UpdateStatus moves an initiated settlement to next. It reports false when
// the row was no longer initiated, meaning another request got there first.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, next Status, confirmedAt *time.Time) (bool, error) {
	query := `
		UPDATE settlements
		SET status = $2, confirmed_at = $3
		WHERE id = $1 AND status = 'initiated'
	`

	res, err := r.db.ExecContext(ctx, query, id, next, confirmedAt)
	if err != nil {
		return false, fmt.Errorf("failed to update settlement status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update settlement status: %w", err)
	}
	return n == 1, nil
}

// ListPendingForPayee returns initiated settlements awaiting userID, newest first
func (r *Repository) ListPendingForPayee(ctx context.Context, userID int64) ([]*Settlement, error) {
	return r.list(ctx, selectSettlement+`
		WHERE s.payee_id = $1 AND s.status = 'initiated'
		ORDER BY s.initiated_at DESC, s.id
	`, userID)
}

// ListByTrip returns every settlement of a trip, newest first
func (r *Repository) ListByTrip(ctx context.Context, tripID int64) ([]*Settlement, error) {
	return r.list(ctx, selectSettlement+`
		WHERE s.trip_id = $1
		ORDER BY s.initiated_at DESC, s.id
	`, tripID)
}

// ListConfirmedTransfers returns the confirmed settlements of a trip as
// ledger transfers
func (r *Repository) ListConfirmedTransfers(ctx context.Context, tripID int64) ([]ledger.Transfer, error) {
	query := `
		SELECT id, payer_id, payee_id, amount_cents
		FROM settlements
		WHERE trip_id = $1 AND status = 'confirmed'
		ORDER BY confirmed_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed settlements: %w", err)
	}
	defer rows.Close()

	var transfers []ledger.Transfer
	for rows.Next() {
		var id uuid.UUID
		var t ledger.Transfer
		if err := rows.Scan(&id, &t.PayerID, &t.PayeeID, &t.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan confirmed settlement: %w", err)
		}
		t.ID = id.String()
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate confirmed settlements: %w", err)
	}

	return transfers, nil
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]*Settlement, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}
