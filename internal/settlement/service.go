package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fkhayef/tripsettle/internal/apperr"
	"github.com/fkhayef/tripsettle/internal/ledger"
	"github.com/fkhayef/tripsettle/internal/money"
	"github.com/fkhayef/tripsettle/internal/optimizer"
	"github.com/fkhayef/tripsettle/internal/payment"
	"github.com/fkhayef/tripsettle/internal/trip"
)

// Store is the persistence the workflow needs. UpdateStatus must be a
// compare-and-set on status = initiated.
type Store interface {
	Create(ctx context.Context, s *Settlement) error
	GetByID(ctx context.Context, id uuid.UUID) (*Settlement, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next Status, confirmedAt *time.Time) (bool, error)
	ListPendingForPayee(ctx context.Context, userID int64) ([]*Settlement, error)
	ListByTrip(ctx context.Context, tripID int64) ([]*Settlement, error)
}

// Roster answers trip membership questions
type Roster interface {
	GetByID(ctx context.Context, tripID int64) (*trip.Trip, error)
	GetMember(ctx context.Context, tripID, userID int64) (*trip.Member, error)
	ListMembers(ctx context.Context, tripID int64) ([]*trip.Member, error)
}

// Balances is the ledger as seen by the workflow
type Balances interface {
	ComputeBalances(ctx context.Context, tripID int64) ([]*ledger.UserBalance, error)
	Invalidate(ctx context.Context, tripID int64) error
}

// Notifier tells a member about a settlement
type Notifier interface {
	NotifySettlement(ctx context.Context, recipientID int64, message string, settlementID string) error
}

// Metrics receives workflow counters
type Metrics interface {
	SettlementTransition(status string)
	OptimizedTransactions(count int)
}

type nopMetrics struct{}

func (nopMetrics) SettlementTransition(string) {}
func (nopMetrics) OptimizedTransactions(int)   {}

// Service drives the settlement lifecycle
type Service struct {
	repo     Store
	roster   Roster
	balances Balances
	resolver *payment.Resolver
	notifier Notifier
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new settlement service. notifier and metrics may be nil.
func NewService(repo Store, roster Roster, balances Balances, resolver *payment.Resolver, notifier Notifier, metrics Metrics, logger *slog.Logger) *Service {
	if resolver == nil {
		resolver = payment.NewResolver()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		roster:   roster,
		balances: balances,
		resolver: resolver,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Initiate records that payerID paid payeeID outside the app. The new
// settlement has no effect on balances until the payee confirms it.
func (s *Service) Initiate(ctx context.Context, tripID, payerID int64, req *InitiateSettlementRequest) (*Settlement, error) {
	if payerID == req.PayeeID {
		return nil, apperr.Validation("cannot settle with yourself")
	}
	if req.Amount <= 0 {
		return nil, apperr.Validation("amount must be greater than zero")
	}

	var method *payment.Method
	if req.PaymentMethod != "" {
		m := payment.Method(strings.ToLower(req.PaymentMethod))
		if !m.Valid() {
			return nil, apperr.Validation("unknown payment method " + req.PaymentMethod)
		}
		method = &m
	}

	t, err := s.roster.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = t.Currency
	}
	if err := money.ValidateCurrency(currency); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	payer, err := s.roster.GetMember(ctx, tripID, payerID)
	if err != nil {
		return nil, err
	}
	if payer == nil {
		return nil, apperr.Validation("payer is not a member of this trip")
	}
	payee, err := s.roster.GetMember(ctx, tripID, req.PayeeID)
	if err != nil {
		return nil, err
	}
	if payee == nil {
		return nil, apperr.Validation("payee is not a member of this trip")
	}

	st := &Settlement{
		TripID:        tripID,
		PayerID:       payerID,
		PayeeID:       req.PayeeID,
		Amount:        req.Amount,
		Currency:      currency,
		PaymentMethod: method,
		Status:        StatusInitiated,
		PayerName:     payer.Name,
		PayeeName:     payee.Name,
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}

	s.metrics.SettlementTransition(string(StatusInitiated))
	s.notify(ctx, st.PayeeID, fmt.Sprintf("%s says they paid you %s %s. Please confirm.", payer.Name, st.Amount, st.Currency), st.ID)
	s.logger.InfoContext(ctx, "settlement initiated",
		slog.String("settlement_id", st.ID.String()),
		slog.Int64("trip_id", tripID),
		slog.Int64("payer_id", payerID),
		slog.Int64("payee_id", st.PayeeID),
		slog.String("amount", st.Amount.String()),
	)

	return st, nil
}

// Confirm is called by the payee once the money has arrived. Confirming twice
// returns the confirmed settlement again; confirming a declined one conflicts.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actorID int64) (*Settlement, error) {
	return s.transition(ctx, id, actorID, ActionConfirm)
}

// Decline is called by the payee when the money never arrived
func (s *Service) Decline(ctx context.Context, id uuid.UUID, actorID int64) (*Settlement, error) {
	return s.transition(ctx, id, actorID, ActionDecline)
}

// transition applies action with a compare-and-set. A request that loses the
// race reloads and is judged against the winner's terminal state, so side
// effects run exactly once.
func (s *Service) transition(ctx context.Context, id uuid.UUID, actorID int64, action Action) (*Settlement, error) {
	for attempt := 0; attempt < 2; attempt++ {
		st, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if st == nil {
			return nil, ErrSettlementNotFound
		}

		next, noop, err := Transition(st, action, actorID)
		if err != nil {
			return nil, err
		}
		if noop {
			return st, nil
		}

		var confirmedAt *time.Time
		if next == StatusConfirmed {
			now := s.now().UTC()
			confirmedAt = &now
		}

		won, err := s.repo.UpdateStatus(ctx, id, next, confirmedAt)
		if err != nil {
			return nil, err
		}
		if !won {
			continue
		}

		st.Status = next
		st.ConfirmedAt = confirmedAt
		s.afterTransition(ctx, st)
		return st, nil
	}

	return nil, apperr.Conflict("settlement changed concurrently, retry")
}

func (s *Service) afterTransition(ctx context.Context, st *Settlement) {
	s.metrics.SettlementTransition(string(st.Status))

	switch st.Status {
	case StatusConfirmed:
		if err := s.balances.Invalidate(ctx, st.TripID); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate cached balances",
				slog.Int64("trip_id", st.TripID),
				slog.Any("error", err),
			)
		}
		s.notify(ctx, st.PayerID, fmt.Sprintf("%s confirmed your payment of %s %s", st.PayeeName, st.Amount, st.Currency), st.ID)
	case StatusDeclined:
		s.notify(ctx, st.PayerID, fmt.Sprintf("%s declined your payment of %s %s", st.PayeeName, st.Amount, st.Currency), st.ID)
	}

	s.logger.InfoContext(ctx, "settlement "+string(st.Status),
		slog.String("settlement_id", st.ID.String()),
		slog.Int64("trip_id", st.TripID),
	)
}

func (s *Service) notify(ctx context.Context, recipientID int64, message string, id uuid.UUID) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifySettlement(ctx, recipientID, message, id.String()); err != nil {
		s.logger.WarnContext(ctx, "failed to send settlement notification",
			slog.String("settlement_id", id.String()),
			slog.Int64("recipient_id", recipientID),
			slog.Any("error", err),
		)
	}
}

// Get retrieves a settlement by its ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Settlement, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrSettlementNotFound
	}
	return st, nil
}

// ListPendingFor returns settlements waiting on userID to confirm or decline
func (s *Service) ListPendingFor(ctx context.Context, userID int64) ([]*Settlement, error) {
	return s.repo.ListPendingForPayee(ctx, userID)
}

// ListByTrip returns every settlement of a trip, newest first
func (s *Service) ListByTrip(ctx context.Context, tripID int64) ([]*Settlement, error) {
	if _, err := s.roster.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.repo.ListByTrip(ctx, tripID)
}

// Options lists the ways the payer of a settlement can pay its payee
func (s *Service) Options(ctx context.Context, id uuid.UUID) ([]payment.SettlementOption, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	payee, err := s.roster.GetMember(ctx, st.TripID, st.PayeeID)
	if err != nil {
		return nil, err
	}
	if payee == nil {
		return nil, apperr.DataIntegrity("settlement %s: payee %d is not in the trip roster", st.ID, st.PayeeID)
	}

	return s.resolver.ResolveSettlementOptions(toPayee(payee), st.Amount, st.Currency, "Trip settlement"), nil
}

// RecommendedSettlements runs the optimizer over current balances and attaches
// payment options for each suggested payee
func (s *Service) RecommendedSettlements(ctx context.Context, tripID int64) ([]*Recommendation, error) {
	var (
		t        *trip.Trip
		members  []*trip.Member
		balances []*ledger.UserBalance
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = s.roster.GetByID(gctx, tripID)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = s.roster.ListMembers(gctx, tripID)
		return err
	})
	g.Go(func() error {
		var err error
		balances, err = s.balances.ComputeBalances(gctx, tripID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[int64]*trip.Member, len(members))
	for _, m := range members {
		byID[m.UserID] = m
	}

	txns := optimizer.Optimize(balances)
	s.metrics.OptimizedTransactions(len(txns))

	note := "Settle up: " + t.Name
	out := make([]*Recommendation, 0, len(txns))
	for _, tx := range txns {
		from, to := byID[tx.FromUserID], byID[tx.ToUserID]
		if from == nil || to == nil {
			return nil, apperr.DataIntegrity("optimizer suggested a transfer between %d and %d outside the roster", tx.FromUserID, tx.ToUserID)
		}
		options := s.resolver.ResolveSettlementOptions(toPayee(to), tx.Amount, t.Currency, note)
		out = append(out, newRecommendation(tx, from.Name, to.Name, t.Currency, options))
	}

	return out, nil
}

func toPayee(m *trip.Member) payment.Payee {
	return payment.Payee{
		Name:          m.Name,
		VenmoUsername: m.VenmoUsername,
		PaypalEmail:   m.PaypalEmail,
	}
}
