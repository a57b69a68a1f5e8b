package ledger

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/tripsettle/internal/apperr"
	"github.com/fkhayef/tripsettle/internal/expense"
	"github.com/fkhayef/tripsettle/internal/expense/split"
	"github.com/fkhayef/tripsettle/internal/money"
	"github.com/fkhayef/tripsettle/internal/platform/cache"
	"github.com/fkhayef/tripsettle/internal/trip"
)

func roster(ids ...int64) []*trip.Member {
	names := map[int64]string{1: "Alice", 2: "Bob", 3: "Carol", 4: "Dan"}
	members := make([]*trip.Member, len(ids))
	for i, id := range ids {
		members[i] = &trip.Member{UserID: id, Name: names[id]}
	}
	return members
}

func netOf(balances []*UserBalance) map[int64]money.Cents {
	out := make(map[int64]money.Cents, len(balances))
	for _, b := range balances {
		out[b.UserID] = b.NetBalance
	}
	return out
}

func sumNet(balances []*UserBalance) money.Cents {
	var total money.Cents
	for _, b := range balances {
		total += b.NetBalance
	}
	return total
}

func TestComputeDinnerForThree(t *testing.T) {
	expenses := []*expense.Expense{{ID: 10, PayerID: 1, Amount: 9000}}
	splits := []*expense.Split{
		{ID: 100, ExpenseID: 10, UserID: 1, OwedAmount: 3000},
		{ID: 101, ExpenseID: 10, UserID: 2, OwedAmount: 3000},
		{ID: 102, ExpenseID: 10, UserID: 3, OwedAmount: 3000},
	}

	balances, err := Compute(roster(1, 2, 3), expenses, splits, nil)
	require.NoError(t, err)
	require.Len(t, balances, 3)

	assert.Equal(t, "Alice", balances[0].Name)
	assert.Equal(t, money.Cents(9000), balances[0].TotalPaidOut)
	assert.Equal(t, money.Cents(3000), balances[0].TotalOwed)
	assert.Equal(t, map[int64]money.Cents{1: 6000, 2: -3000, 3: -3000}, netOf(balances))
	assert.Zero(t, sumNet(balances))
}

func TestComputePaidSplitLeavesBothSides(t *testing.T) {
	expenses := []*expense.Expense{{ID: 10, PayerID: 1, Amount: 9000}}
	splits := []*expense.Split{
		{ID: 100, ExpenseID: 10, UserID: 1, OwedAmount: 3000},
		{ID: 101, ExpenseID: 10, UserID: 2, OwedAmount: 3000, IsPaid: true},
		{ID: 102, ExpenseID: 10, UserID: 3, OwedAmount: 3000},
	}

	balances, err := Compute(roster(1, 2, 3), expenses, splits, nil)
	require.NoError(t, err)

	assert.Equal(t, map[int64]money.Cents{1: 3000, 2: 0, 3: -3000}, netOf(balances))
	assert.Zero(t, sumNet(balances))
}

func TestComputeConfirmedTransfer(t *testing.T) {
	expenses := []*expense.Expense{{ID: 10, PayerID: 1, Amount: 9000}}
	splits := []*expense.Split{
		{ID: 100, ExpenseID: 10, UserID: 1, OwedAmount: 3000},
		{ID: 101, ExpenseID: 10, UserID: 2, OwedAmount: 3000},
		{ID: 102, ExpenseID: 10, UserID: 3, OwedAmount: 3000},
	}
	transfers := []Transfer{{ID: "s1", PayerID: 3, PayeeID: 1, Amount: 3000}}

	balances, err := Compute(roster(1, 2, 3), expenses, splits, transfers)
	require.NoError(t, err)

	assert.Equal(t, map[int64]money.Cents{1: 3000, 2: -3000, 3: 0}, netOf(balances))
	assert.Zero(t, sumNet(balances))
}

func TestComputeDataIntegrity(t *testing.T) {
	tests := []struct {
		name      string
		expenses  []*expense.Expense
		splits    []*expense.Split
		transfers []Transfer
	}{
		{
			name:     "split references missing expense",
			expenses: []*expense.Expense{{ID: 10, PayerID: 1, Amount: 100}},
			splits: []*expense.Split{
				{ID: 100, ExpenseID: 10, UserID: 1, OwedAmount: 100},
				{ID: 101, ExpenseID: 99, UserID: 2, OwedAmount: 50},
			},
		},
		{
			name:     "payer not in roster",
			expenses: []*expense.Expense{{ID: 10, PayerID: 4, Amount: 100}},
		},
		{
			name:     "split user not in roster",
			expenses: []*expense.Expense{{ID: 10, PayerID: 1, Amount: 100}},
			splits:   []*expense.Split{{ID: 100, ExpenseID: 10, UserID: 4, OwedAmount: 100}},
		},
		{
			name:      "settlement party not in roster",
			transfers: []Transfer{{ID: "s1", PayerID: 4, PayeeID: 1, Amount: 100}},
		},
		{
			name:     "splits do not add up to expense",
			expenses: []*expense.Expense{{ID: 10, PayerID: 1, Amount: 100}},
			splits:   []*expense.Split{{ID: 100, ExpenseID: 10, UserID: 2, OwedAmount: 99}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(roster(1, 2, 3), tt.expenses, tt.splits, tt.transfers)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindDataIntegrity), "got %v", err)
		})
	}
}

// randomTrip builds expenses whose splits are produced by the real split
// strategies, so the expense invariant holds by construction.
func randomTrip(r *rand.Rand, members []*trip.Member) ([]*expense.Expense, []*expense.Split, []Transfer) {
	even := &split.EvenStrategy{}
	var expenses []*expense.Expense
	var splits []*expense.Split
	var transfers []Transfer
	splitID := int64(1)

	for i := 0; i < 1+r.Intn(12); i++ {
		payer := members[r.Intn(len(members))].UserID
		amount := money.Cents(1 + r.Intn(50000))
		var inputs []split.SplitInput
		for _, m := range members {
			if r.Intn(3) > 0 || m.UserID == payer {
				inputs = append(inputs, split.SplitInput{UserID: m.UserID})
			}
		}
		outputs, err := even.Calculate(amount, inputs)
		if err != nil {
			panic(err)
		}
		e := &expense.Expense{ID: int64(i + 1), PayerID: payer, Amount: amount}
		expenses = append(expenses, e)
		for _, o := range outputs {
			splits = append(splits, &expense.Split{
				ID:         splitID,
				ExpenseID:  e.ID,
				UserID:     o.UserID,
				OwedAmount: o.AmountOwed,
				IsPaid:     r.Intn(5) == 0,
			})
			splitID++
		}
	}

	for i := 0; i < r.Intn(4); i++ {
		from := members[r.Intn(len(members))].UserID
		to := members[r.Intn(len(members))].UserID
		if from == to {
			continue
		}
		transfers = append(transfers, Transfer{ID: "t", PayerID: from, PayeeID: to, Amount: money.Cents(1 + r.Intn(10000))})
	}

	return expenses, splits, transfers
}

func TestComputeIsZeroSum(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	members := roster(1, 2, 3, 4)

	for i := 0; i < 500; i++ {
		expenses, splits, transfers := randomTrip(r, members)
		balances, err := Compute(members, expenses, splits, transfers)
		require.NoError(t, err)
		require.Zero(t, sumNet(balances), "iteration %d", i)
	}
}

type fakeSource struct {
	snap  *Snapshot
	err   error
	calls int
}

func (f *fakeSource) LoadSnapshot(ctx context.Context, tripID int64) (*Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func dinnerSnapshot() *Snapshot {
	return &Snapshot{
		Members:  roster(1, 2),
		Expenses: []*expense.Expense{{ID: 1, PayerID: 1, Amount: 2000}},
		Splits: []*expense.Split{
			{ID: 1, ExpenseID: 1, UserID: 1, OwedAmount: 1000},
			{ID: 2, ExpenseID: 1, UserID: 2, OwedAmount: 1000},
		},
	}
}

func TestServiceWithoutCache(t *testing.T) {
	src := &fakeSource{snap: dinnerSnapshot()}
	svc := NewService(src, nil, nil)

	balances, err := svc.ComputeBalances(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, map[int64]money.Cents{1: 1000, 2: -1000}, netOf(balances))
	require.NoError(t, svc.Invalidate(context.Background(), 7))
}

func TestServicePropagatesSourceErrors(t *testing.T) {
	boom := errors.New("db down")
	svc := NewService(&fakeSource{err: boom}, nil, nil)

	_, err := svc.ComputeBalances(context.Background(), 7)
	require.ErrorIs(t, err, boom)
}

func newRedisCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewCache(client, time.Minute), mr
}

func TestServiceCachesUntilInvalidated(t *testing.T) {
	c, _ := newRedisCache(t)
	src := &fakeSource{snap: dinnerSnapshot()}
	svc := NewService(src, c, nil)
	ctx := context.Background()

	first, err := svc.ComputeBalances(ctx, 7)
	require.NoError(t, err)
	second, err := svc.ComputeBalances(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, netOf(first), netOf(second))
	assert.Equal(t, 1, src.calls)

	// A confirmed settlement lands; invalidation must expose it
	src.snap.Transfers = []Transfer{{ID: "s1", PayerID: 2, PayeeID: 1, Amount: 1000}}
	require.NoError(t, svc.Invalidate(ctx, 7))

	third, err := svc.ComputeBalances(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, map[int64]money.Cents{1: 0, 2: 0}, netOf(third))
	assert.Equal(t, 2, src.calls)
}

func TestServiceDoesNotCacheIntegrityErrors(t *testing.T) {
	c, _ := newRedisCache(t)
	snap := dinnerSnapshot()
	snap.Splits = snap.Splits[:1]
	src := &fakeSource{snap: snap}
	svc := NewService(src, c, nil)

	_, err := svc.ComputeBalances(context.Background(), 7)
	require.True(t, apperr.IsKind(err, apperr.KindDataIntegrity))

	_, err = svc.ComputeBalances(context.Background(), 7)
	require.True(t, apperr.IsKind(err, apperr.KindDataIntegrity))
	assert.Equal(t, 2, src.calls)
}

func TestServiceFallsBackWhenCacheIsDown(t *testing.T) {
	c, mr := newRedisCache(t)
	mr.Close()
	src := &fakeSource{snap: dinnerSnapshot()}
	svc := NewService(src, c, nil)

	balances, err := svc.ComputeBalances(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, map[int64]money.Cents{1: 1000, 2: -1000}, netOf(balances))
}
