package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/fkhayef/tripsettle/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the acting user ID
	UserIDKey ContextKey = "user_id"

	// UserIDHeader carries the acting user, set by the upstream auth gateway
	UserIDHeader = "X-User-ID"
)

// Identity reads the acting user from the X-User-ID header. Session handling
// lives in the gateway in front of this service. Requests without a valid
// identity are rejected.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userIDStr := r.Header.Get(UserIDHeader)
		if userIDStr == "" {
			response.Unauthorized(w, "X-User-ID header required")
			return
		}

		userID, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil || userID <= 0 {
			response.Unauthorized(w, "Invalid X-User-ID header")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WithUserID stores the acting user in ctx
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
