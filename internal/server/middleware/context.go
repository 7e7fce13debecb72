package middleware

import "context"

type contextKey struct{ name string }

var (
	userIDKey    = contextKey{"user_id"}
	accountIDKey = contextKey{"account_id"}
)

// WithUser returns a context carrying the authenticated user and account.
// The instrumentation reads these via UserID and AccountID to tag telemetry.
func WithUser(ctx context.Context, userID, accountID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, accountIDKey, accountID)
}

// UserID returns the user_id from context and true if set; otherwise "", false.
func UserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// AccountID returns the account_id from context and true if set; otherwise "", false.
func AccountID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(accountIDKey).(string)
	return v, ok
}
