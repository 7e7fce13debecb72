package middleware

import (
	"context"
	"testing"
)

func TestWithUser_RoundTrip(t *testing.T) {
	ctx := WithUser(context.Background(), "user-1", "acct-1")

	if got, ok := UserID(ctx); !ok || got != "user-1" {
		t.Errorf("UserID = %q, %v", got, ok)
	}
	if got, ok := AccountID(ctx); !ok || got != "acct-1" {
		t.Errorf("AccountID = %q, %v", got, ok)
	}
}

func TestUserID_Unset(t *testing.T) {
	if _, ok := UserID(context.Background()); ok {
		t.Error("UserID on bare context should report unset")
	}
	if _, ok := AccountID(context.Background()); ok {
		t.Error("AccountID on bare context should report unset")
	}
}
