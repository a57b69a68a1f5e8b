package ledger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/tripsettle/internal/trip"
)

func serveBalances(t *testing.T, src SnapshotSource, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Mount("/trips/{tripId}/balances", NewHandler(NewService(src, nil, nil)).Routes())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestGetBalances(t *testing.T) {
	rr := serveBalances(t, &fakeSource{snap: dinnerSnapshot()}, "/trips/7/balances")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Success bool `json:"success"`
		Data    []struct {
			UserID     int64  `json:"user_id"`
			NetBalance string `json:"net_balance"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "10.00", body.Data[0].NetBalance)
	assert.Equal(t, "-10.00", body.Data[1].NetBalance)
}

func TestGetBalancesErrors(t *testing.T) {
	broken := dinnerSnapshot()
	broken.Splits = broken.Splits[:1]

	tests := []struct {
		name string
		src  SnapshotSource
		path string
		code int
	}{
		{"bad trip id", &fakeSource{snap: dinnerSnapshot()}, "/trips/abc/balances", http.StatusBadRequest},
		{"unknown trip", &fakeSource{err: trip.ErrTripNotFound}, "/trips/7/balances", http.StatusNotFound},
		{"integrity failure", &fakeSource{snap: broken}, "/trips/7/balances", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, serveBalances(t, tt.src, tt.path).Code)
		})
	}
}
