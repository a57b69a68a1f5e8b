package expense

import (
	"context"
	"log/slog"

	"github.com/fkhayef/tripsettle/internal/apperr"
	"github.com/fkhayef/tripsettle/internal/expense/split"
	"github.com/fkhayef/tripsettle/internal/money"
	"github.com/fkhayef/tripsettle/internal/trip"
)

// Common errors
var (
	ErrExpenseNotFound = apperr.NotFound("expense not found")
	ErrSplitNotFound   = apperr.NotFound("split not found")
	ErrNotPayer        = apperr.Authorization("only the expense payer may mark a split paid")
	ErrPayerNotMember  = apperr.Validation("payer is not a member of this trip")
)

// Store is the persistence the expense service needs
type Store interface {
	CreateExpense(ctx context.Context, e *Expense, splits []*Split) error
	GetExpenseByID(ctx context.Context, id int64) (*Expense, error)
	ListExpenses(ctx context.Context, tripID int64) ([]*Expense, error)
	GetSplitsByExpenseID(ctx context.Context, expenseID int64) ([]*Split, error)
	GetSplitByID(ctx context.Context, id int64) (*Split, error)
	MarkSplitPaid(ctx context.Context, splitID int64) (bool, error)
}

// Roster answers trip membership questions
type Roster interface {
	GetByID(ctx context.Context, tripID int64) (*trip.Trip, error)
	GetMember(ctx context.Context, tripID, userID int64) (*trip.Member, error)
}

// BalanceInvalidator drops any cached balances of a trip
type BalanceInvalidator interface {
	Invalidate(ctx context.Context, tripID int64) error
}

// Service handles expense business logic
type Service struct {
	repo         Store
	roster       Roster
	invalidator  BalanceInvalidator
	splitFactory *split.Factory
	logger       *slog.Logger
}

// NewService creates a new expense service with dependencies injected
func NewService(repo Store, roster Roster, invalidator BalanceInvalidator, splitFactory *split.Factory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		roster:       roster,
		invalidator:  invalidator,
		splitFactory: splitFactory,
		logger:       logger,
	}
}

// CreateExpense validates the roster, calculates the splits and stores both
func (s *Service) CreateExpense(ctx context.Context, payerID int64, req *CreateExpenseRequest) (*ExpenseWithSplits, error) {
	t, err := s.roster.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	payer, err := s.roster.GetMember(ctx, req.TripID, payerID)
	if err != nil {
		return nil, err
	}
	if payer == nil {
		return nil, ErrPayerNotMember
	}

	currency := req.Currency
	if currency == "" {
		currency = t.Currency
	}
	if err := money.ValidateCurrency(currency); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	strategy, err := s.splitFactory.CreateFromString(req.SplitType)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	inputs := make([]split.SplitInput, len(req.Participants))
	for i, p := range req.Participants {
		member, err := s.roster.GetMember(ctx, req.TripID, p.UserID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, apperr.Validation("participant is not a member of this trip")
		}
		inputs[i] = p.ToSplitInput()
	}

	outputs, err := strategy.Calculate(req.Amount, inputs)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	expense := &Expense{
		TripID:        req.TripID,
		PayerID:       payerID,
		Description:   req.Description,
		Amount:        req.Amount,
		Currency:      currency,
		SplitType:     string(strategy.Type()),
		PayerUsername: payer.Name,
	}
	splits := make([]*Split, len(outputs))
	for i, o := range outputs {
		splits[i] = &Split{UserID: o.UserID, OwedAmount: o.AmountOwed}
	}

	if err := s.repo.CreateExpense(ctx, expense, splits); err != nil {
		return nil, err
	}

	s.invalidate(ctx, expense.TripID)

	s.logger.InfoContext(ctx, "expense created",
		slog.Int64("trip_id", expense.TripID),
		slog.Int64("expense_id", expense.ID),
		slog.String("amount", expense.Amount.String()),
		slog.Int("splits", len(splits)),
	)

	return &ExpenseWithSplits{Expense: expense, Splits: splits}, nil
}

// GetExpenseByID retrieves an expense with its splits
func (s *Service) GetExpenseByID(ctx context.Context, id int64) (*ExpenseWithSplits, error) {
	expense, err := s.repo.GetExpenseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, ErrExpenseNotFound
	}

	splits, err := s.repo.GetSplitsByExpenseID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ExpenseWithSplits{Expense: expense, Splits: splits}, nil
}

// ListByTrip retrieves every expense of a trip
func (s *Service) ListByTrip(ctx context.Context, tripID int64) ([]*Expense, error) {
	if _, err := s.roster.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, tripID)
}

// MarkSplitPaid lets the expense payer record that a participant paid their share.
// Only the creditor may do this; marking an already paid split is a no-op.
func (s *Service) MarkSplitPaid(ctx context.Context, splitID, actorID int64) (*Split, error) {
	sp, err := s.repo.GetSplitByID(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, ErrSplitNotFound
	}

	expense, err := s.repo.GetExpenseByID(ctx, sp.ExpenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, apperr.DataIntegrity("split %d references missing expense %d", sp.ID, sp.ExpenseID)
	}
	if expense.PayerID != actorID {
		return nil, ErrNotPayer
	}

	changed, err := s.repo.MarkSplitPaid(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.invalidate(ctx, expense.TripID)
	}

	return s.repo.GetSplitByID(ctx, splitID)
}

func (s *Service) invalidate(ctx context.Context, tripID int64) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, tripID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cached balances",
			slog.Int64("trip_id", tripID),
			slog.Any("error", err),
		)
	}
}
