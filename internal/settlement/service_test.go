package settlement

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/tripsettle/internal/apperr"
	"github.com/fkhayef/tripsettle/internal/expense"
	"github.com/fkhayef/tripsettle/internal/ledger"
	"github.com/fkhayef/tripsettle/internal/money"
	"github.com/fkhayef/tripsettle/internal/payment"
	"github.com/fkhayef/tripsettle/internal/trip"
)

const (
	tripID = int64(1)
	alice  = int64(1)
	bob    = int64(2)
	carol  = int64(3)
	dave   = int64(4) // not on the trip
)

// memStore implements Store with the same compare-and-set as the SQL version
type memStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Settlement
	seq  int
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[uuid.UUID]*Settlement)}
}

func (m *memStore) Create(ctx context.Context, s *Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.seq++
	s.InitiatedAt = time.Date(2026, 1, 1, 0, 0, m.seq, 0, time.UTC)
	c := *s
	m.rows[s.ID] = &c
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id uuid.UUID, next Status, confirmedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || s.Status != StatusInitiated {
		return false, nil
	}
	s.Status = next
	s.ConfirmedAt = confirmedAt
	return true, nil
}

func (m *memStore) filter(keep func(*Settlement) bool) []*Settlement {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Settlement
	for _, s := range m.rows {
		if keep(s) {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.After(out[j].InitiatedAt) })
	return out
}

func (m *memStore) ListPendingForPayee(ctx context.Context, userID int64) ([]*Settlement, error) {
	return m.filter(func(s *Settlement) bool { return s.PayeeID == userID && s.Status == StatusInitiated }), nil
}

func (m *memStore) ListByTrip(ctx context.Context, id int64) ([]*Settlement, error) {
	return m.filter(func(s *Settlement) bool { return s.TripID == id }), nil
}

func (m *memStore) confirmedTransfers(id int64) []ledger.Transfer {
	var out []ledger.Transfer
	for _, s := range m.filter(func(s *Settlement) bool { return s.TripID == id && s.Status == StatusConfirmed }) {
		out = append(out, ledger.Transfer{ID: s.ID.String(), PayerID: s.PayerID, PayeeID: s.PayeeID, Amount: s.Amount})
	}
	return out
}

type fakeRoster struct {
	trip    *trip.Trip
	members []*trip.Member
}

func newRoster() *fakeRoster {
	return &fakeRoster{
		trip: &trip.Trip{ID: tripID, Name: "Lisbon", Currency: "EUR"},
		members: []*trip.Member{
			{UserID: alice, Name: "Alice", VenmoUsername: "@alice-w", PaypalEmail: "alice@example.com"},
			{UserID: bob, Name: "Bob"},
			{UserID: carol, Name: "Carol", PaypalEmail: "carol@example.com"},
		},
	}
}

func (f *fakeRoster) GetByID(ctx context.Context, id int64) (*trip.Trip, error) {
	if id != f.trip.ID {
		return nil, trip.ErrTripNotFound
	}
	return f.trip, nil
}

func (f *fakeRoster) GetMember(ctx context.Context, id, userID int64) (*trip.Member, error) {
	if id != f.trip.ID {
		return nil, nil
	}
	for _, m := range f.members {
		if m.UserID == userID {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeRoster) ListMembers(ctx context.Context, id int64) ([]*trip.Member, error) {
	if id != f.trip.ID {
		return nil, trip.ErrTripNotFound
	}
	return f.members, nil
}

// tripSource serves a fixed dinner (Alice paid 90.00 for three) plus whatever
// the store has confirmed
type tripSource struct {
	roster *fakeRoster
	store  *memStore
}

func (s *tripSource) LoadSnapshot(ctx context.Context, id int64) (*ledger.Snapshot, error) {
	return &ledger.Snapshot{
		Members:  s.roster.members,
		Expenses: []*expense.Expense{{ID: 1, TripID: tripID, PayerID: alice, Amount: 9000}},
		Splits: []*expense.Split{
			{ID: 1, ExpenseID: 1, UserID: alice, OwedAmount: 3000},
			{ID: 2, ExpenseID: 1, UserID: bob, OwedAmount: 3000},
			{ID: 3, ExpenseID: 1, UserID: carol, OwedAmount: 3000},
		},
		Transfers: s.store.confirmedTransfers(id),
	}, nil
}

type countingBalances struct {
	*ledger.Service
	invalidations atomic.Int32
}

func (c *countingBalances) Invalidate(ctx context.Context, id int64) error {
	c.invalidations.Add(1)
	return c.Service.Invalidate(ctx, id)
}

type sentNotification struct {
	recipient int64
	message   string
	id        string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) NotifySettlement(ctx context.Context, recipientID int64, message, settlementID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{recipientID, message, settlementID})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fixture struct {
	svc      *Service
	store    *memStore
	balances *countingBalances
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	roster := newRoster()
	balances := &countingBalances{Service: ledger.NewService(&tripSource{roster: roster, store: store}, nil, nil)}
	notifier := &recordingNotifier{}
	svc := NewService(store, roster, balances, payment.NewResolver(), notifier, nil, nil)
	return &fixture{svc: svc, store: store, balances: balances, notifier: notifier}
}

func (f *fixture) netOf(t *testing.T) map[int64]money.Cents {
	t.Helper()
	balances, err := f.balances.ComputeBalances(context.Background(), tripID)
	require.NoError(t, err)
	out := make(map[int64]money.Cents)
	for _, b := range balances {
		out[b.UserID] = b.NetBalance
	}
	return out
}

func (f *fixture) initiate(t *testing.T, payer, payee int64, amount money.Cents) *Settlement {
	t.Helper()
	st, err := f.svc.Initiate(context.Background(), tripID, payer, &InitiateSettlementRequest{
		PayeeID:       payee,
		Amount:        amount,
		PaymentMethod: "venmo",
	})
	require.NoError(t, err)
	return st
}

func TestInitiateValidation(t *testing.T) {
	tests := []struct {
		name  string
		payer int64
		req   InitiateSettlementRequest
	}{
		{"negative amount", bob, InitiateSettlementRequest{PayeeID: alice, Amount: -500}},
		{"zero amount", bob, InitiateSettlementRequest{PayeeID: alice, Amount: 0}},
		{"self payment", alice, InitiateSettlementRequest{PayeeID: alice, Amount: 100}},
		{"unknown method", bob, InitiateSettlementRequest{PayeeID: alice, Amount: 100, PaymentMethod: "wire"}},
		{"bad currency", bob, InitiateSettlementRequest{PayeeID: alice, Amount: 100, Currency: "EURO"}},
		{"payer off trip", dave, InitiateSettlementRequest{PayeeID: alice, Amount: 100}},
		{"payee off trip", bob, InitiateSettlementRequest{PayeeID: dave, Amount: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.Initiate(context.Background(), tripID, tt.payer, &tt.req)

			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
			assert.Empty(t, f.store.rows)
			assert.Zero(t, f.notifier.count())
		})
	}
}

func TestInitiateUnknownTrip(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Initiate(context.Background(), 99, bob, &InitiateSettlementRequest{PayeeID: alice, Amount: 100})

	require.ErrorIs(t, err, trip.ErrTripNotFound)
}

func TestInitiateDoesNotMoveBalances(t *testing.T) {
	f := newFixture(t)
	before := f.netOf(t)

	st := f.initiate(t, bob, alice, 3000)

	assert.Equal(t, StatusInitiated, st.Status)
	assert.Equal(t, "EUR", st.Currency)
	require.NotNil(t, st.PaymentMethod)
	assert.Equal(t, payment.MethodVenmo, *st.PaymentMethod)
	assert.Equal(t, before, f.netOf(t))
	assert.Zero(t, f.balances.invalidations.Load())

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, alice, f.notifier.sent[0].recipient)
	assert.Equal(t, st.ID.String(), f.notifier.sent[0].id)
}

func TestConfirmByPayerIsForbidden(t *testing.T) {
	f := newFixture(t)
	st := f.initiate(t, bob, alice, 3000)

	_, err := f.svc.Confirm(context.Background(), st.ID, bob)

	require.ErrorIs(t, err, ErrNotPayeeConfirm)
	assert.Equal(t, "only the payee may confirm this settlement", err.Error())
	stored, _ := f.store.GetByID(context.Background(), st.ID)
	assert.Equal(t, StatusInitiated, stored.Status)
}

func TestConfirmByPayeeSettlesBalances(t *testing.T) {
	f := newFixture(t)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	st := f.initiate(t, bob, alice, 3000)

	confirmed, err := f.svc.Confirm(context.Background(), st.ID, alice)

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), *confirmed.ConfirmedAt)
	assert.Equal(t, int32(1), f.balances.invalidations.Load())
	assert.Equal(t, map[int64]money.Cents{alice: 3000, bob: 0, carol: -3000}, f.netOf(t))

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, bob, f.notifier.sent[1].recipient)
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newFixture(t)
	st := f.initiate(t, bob, alice, 3000)

	first, err := f.svc.Confirm(context.Background(), st.ID, alice)
	require.NoError(t, err)
	second, err := f.svc.Confirm(context.Background(), st.ID, alice)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, int32(1), f.balances.invalidations.Load())
	assert.Equal(t, 2, f.notifier.count())
	assert.Equal(t, map[int64]money.Cents{alice: 3000, bob: 0, carol: -3000}, f.netOf(t))
}

func TestConfirmConcurrentlyRunsSideEffectsOnce(t *testing.T) {
	f := newFixture(t)
	st := f.initiate(t, bob, alice, 3000)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Confirm(context.Background(), st.ID, alice)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.balances.invalidations.Load())
	assert.Equal(t, 2, f.notifier.count())
}

func TestDeclineThenConfirmConflicts(t *testing.T) {
	f := newFixture(t)
	st := f.initiate(t, bob, alice, 3000)
	before := f.netOf(t)

	declined, err := f.svc.Decline(context.Background(), st.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, declined.Status)
	assert.Nil(t, declined.ConfirmedAt)

	again, err := f.svc.Decline(context.Background(), st.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, again.Status)

	_, err = f.svc.Confirm(context.Background(), st.ID, alice)
	require.ErrorIs(t, err, ErrAlreadyDeclined)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	assert.Equal(t, before, f.netOf(t))
	assert.Zero(t, f.balances.invalidations.Load())
}

func TestDeclineAfterConfirmConflicts(t *testing.T) {
	f := newFixture(t)
	st := f.initiate(t, bob, alice, 3000)
	_, err := f.svc.Confirm(context.Background(), st.ID, alice)
	require.NoError(t, err)

	_, err = f.svc.Decline(context.Background(), st.ID, alice)

	require.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestDeclineByOtherMemberIsForbidden(t *testing.T) {
	f := newFixture(t)
	st := f.initiate(t, bob, alice, 3000)

	_, err := f.svc.Decline(context.Background(), st.ID, carol)

	require.ErrorIs(t, err, ErrNotPayeeDecline)
}

func TestConfirmUnknownSettlement(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Confirm(context.Background(), uuid.New(), alice)

	require.ErrorIs(t, err, ErrSettlementNotFound)
}

func TestListPendingForNewestFirst(t *testing.T) {
	f := newFixture(t)
	first := f.initiate(t, bob, alice, 1000)
	second := f.initiate(t, carol, alice, 2000)
	done := f.initiate(t, carol, alice, 500)
	f.initiate(t, alice, bob, 700)
	_, err := f.svc.Confirm(context.Background(), done.ID, alice)
	require.NoError(t, err)

	pending, err := f.svc.ListPendingFor(context.Background(), alice)

	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, first.ID, pending[1].ID)
}

func TestRecommendedSettlements(t *testing.T) {
	f := newFixture(t)

	recs, err := f.svc.RecommendedSettlements(context.Background(), tripID)

	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, alice, r.ToUserID)
		assert.Equal(t, money.Cents(3000), r.Amount)
		assert.Equal(t, "EUR", r.Currency)
		require.Len(t, r.Options, 3)
		assert.Equal(t, payment.MethodVenmo, r.Options[0].Method)
		assert.Contains(t, r.Options[0].Link, "amount=30.00")
		assert.Equal(t, payment.MethodCash, r.Options[2].Method)
	}
	assert.Equal(t, bob, recs[0].FromUserID)
	assert.Equal(t, carol, recs[1].FromUserID)
}

func TestRecommendedSettlementsShrinkAfterConfirm(t *testing.T) {
	f := newFixture(t)
	st := f.initiate(t, carol, alice, 3000)
	_, err := f.svc.Confirm(context.Background(), st.ID, alice)
	require.NoError(t, err)

	recs, err := f.svc.RecommendedSettlements(context.Background(), tripID)

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, bob, recs[0].FromUserID)
	assert.Equal(t, "Bob", recs[0].FromName)
	assert.Equal(t, "Alice", recs[0].ToName)
}

func TestOptionsForSettlement(t *testing.T) {
	f := newFixture(t)
	st := f.initiate(t, alice, carol, 1250)

	options, err := f.svc.Options(context.Background(), st.ID)

	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, payment.MethodPayPal, options[0].Method)
	assert.Contains(t, options[0].Link, "currency_code=EUR")
	assert.Contains(t, options[0].Link, "amount=12.50")
	assert.Equal(t, payment.MethodCash, options[1].Method)
}

func TestTransitionTable(t *testing.T) {
	base := Settlement{PayerID: bob, PayeeID: alice}

	tests := []struct {
		status Status
		action Action
		actor  int64
		next   Status
		noop   bool
		err    error
	}{
		{StatusInitiated, ActionConfirm, alice, StatusConfirmed, false, nil},
		{StatusInitiated, ActionDecline, alice, StatusDeclined, false, nil},
		{StatusConfirmed, ActionConfirm, alice, StatusConfirmed, true, nil},
		{StatusDeclined, ActionDecline, alice, StatusDeclined, true, nil},
		{StatusDeclined, ActionConfirm, alice, "", false, ErrAlreadyDeclined},
		{StatusConfirmed, ActionDecline, alice, "", false, ErrAlreadyConfirmed},
		{StatusInitiated, ActionConfirm, bob, "", false, ErrNotPayeeConfirm},
		{StatusConfirmed, ActionConfirm, bob, "", false, ErrNotPayeeConfirm},
		{StatusInitiated, ActionDecline, carol, "", false, ErrNotPayeeDecline},
		{StatusInitiated, Action("reopen"), alice, "", false, ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(string(tt.status)+"/"+string(tt.action), func(t *testing.T) {
			s := base
			s.Status = tt.status

			next, noop, err := Transition(&s, tt.action, tt.actor)

			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.next, next)
			assert.Equal(t, tt.noop, noop)
		})
	}
}
