package ledger

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/fkhayef/tripsettle/internal/expense"
	"github.com/fkhayef/tripsettle/internal/trip"
)

// Snapshot is everything the ledger reads for one trip, taken at one instant
type Snapshot struct {
	Members   []*trip.Member
	Expenses  []*expense.Expense
	Splits    []*expense.Split
	Transfers []Transfer // confirmed settlements only
}

// SnapshotSource loads a consistent Snapshot. Settlements that are not
// confirmed must never appear in Transfers.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, tripID int64) (*Snapshot, error)
}

// Cache is an optional read-through cache for computed balances. Bump must make
// every previously cached value for scope unreachable.
type Cache interface {
	FetchJSON(ctx context.Context, scope string, dest any, loader func(context.Context) (any, error)) error
	Bump(ctx context.Context, scope string) error
}

// Service computes balances on demand
type Service struct {
	source SnapshotSource
	cache  Cache
	logger *slog.Logger
}

// NewService wires the ledger to its source. cache may be nil.
func NewService(source SnapshotSource, cache Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger}
}

// ComputeBalances returns every member's balance for tripID
func (s *Service) ComputeBalances(ctx context.Context, tripID int64) ([]*UserBalance, error) {
	if s.cache == nil {
		return s.compute(ctx, tripID)
	}

	var (
		balances  []*UserBalance
		loaderErr error
	)
	err := s.cache.FetchJSON(ctx, scope(tripID), &balances, func(ctx context.Context) (any, error) {
		b, err := s.compute(ctx, tripID)
		loaderErr = err
		return b, err
	})
	if loaderErr != nil {
		return nil, loaderErr
	}
	if err != nil {
		// Cache trouble never blocks a read
		s.logger.WarnContext(ctx, "balance cache unavailable, computing directly",
			slog.Int64("trip_id", tripID),
			slog.Any("error", err),
		)
		return s.compute(ctx, tripID)
	}

	return balances, nil
}

// Invalidate drops cached balances for tripID
func (s *Service) Invalidate(ctx context.Context, tripID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Bump(ctx, scope(tripID))
}

func (s *Service) compute(ctx context.Context, tripID int64) ([]*UserBalance, error) {
	snap, err := s.source.LoadSnapshot(ctx, tripID)
	if err != nil {
		return nil, err
	}

	balances, err := Compute(snap.Members, snap.Expenses, snap.Splits, snap.Transfers)
	if err != nil {
		s.logger.ErrorContext(ctx, "ledger integrity check failed",
			slog.Int64("trip_id", tripID),
			slog.Any("error", err),
		)
		return nil, err
	}

	return balances, nil
}

func scope(tripID int64) string {
	return "ledger:trip:" + strconv.FormatInt(tripID, 10)
}
