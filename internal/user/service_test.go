package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	users map[int64]*User
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (m *memStore) UpdatePaymentHandles(ctx context.Context, id int64, venmo, paypal *string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	u.VenmoUsername, u.PaypalEmail = venmo, paypal
	c := *u
	return &c, nil
}

func ptr(s string) *string { return &s }

func newService() (*Service, *memStore) {
	store := &memStore{users: map[int64]*User{
		1: {ID: 1, Username: "alice", Email: "alice@example.com", PaypalEmail: ptr("alice@example.com")},
	}}
	return NewService(store), store
}

func TestUpdatePaymentHandlesNormalizesVenmo(t *testing.T) {
	svc, _ := newService()

	u, err := svc.UpdatePaymentHandles(context.Background(), 1, &UpdatePaymentHandlesRequest{VenmoUsername: ptr("@alice-w")})

	require.NoError(t, err)
	require.NotNil(t, u.VenmoUsername)
	assert.Equal(t, "alice-w", *u.VenmoUsername)
	require.NotNil(t, u.PaypalEmail, "untouched handle must survive")
	assert.Equal(t, "alice@example.com", *u.PaypalEmail)
}

func TestUpdatePaymentHandlesClears(t *testing.T) {
	svc, store := newService()

	_, err := svc.UpdatePaymentHandles(context.Background(), 1, &UpdatePaymentHandlesRequest{PaypalEmail: ptr("")})

	require.NoError(t, err)
	assert.Nil(t, store.users[1].PaypalEmail)
}

func TestUpdatePaymentHandlesRejectsMalformed(t *testing.T) {
	svc, store := newService()

	_, err := svc.UpdatePaymentHandles(context.Background(), 1, &UpdatePaymentHandlesRequest{VenmoUsername: ptr("@al")})
	require.ErrorIs(t, err, ErrInvalidVenmo)

	_, err = svc.UpdatePaymentHandles(context.Background(), 1, &UpdatePaymentHandlesRequest{PaypalEmail: ptr("not-an-email")})
	require.ErrorIs(t, err, ErrInvalidPaypalMail)

	assert.Nil(t, store.users[1].VenmoUsername)
	assert.Equal(t, "alice@example.com", *store.users[1].PaypalEmail)
}

func TestUpdatePaymentHandlesUnknownUser(t *testing.T) {
	svc, _ := newService()

	_, err := svc.UpdatePaymentHandles(context.Background(), 9, &UpdatePaymentHandlesRequest{})

	require.ErrorIs(t, err, ErrUserNotFound)
}
