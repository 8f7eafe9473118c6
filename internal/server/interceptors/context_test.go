package interceptors

import (
	"context"
	"testing"
)

func TestWithIdentity(t *testing.T) {
	ctx := WithIdentity(context.Background(), "user-1")
	got, ok := GetUserID(ctx)
	if !ok || got != "user-1" {
		t.Errorf("GetUserID = %q, %v; want user-1, true", got, ok)
	}
}

func TestGetUserID_NotSet(t *testing.T) {
	if got, ok := GetUserID(context.Background()); ok || got != "" {
		t.Errorf("GetUserID = %q, %v; want \"\", false", got, ok)
	}
}

func TestGetUserID_Empty(t *testing.T) {
	if _, ok := GetUserID(WithIdentity(context.Background(), "")); ok {
		t.Error("empty user id should report not set")
	}
}

func TestWithIdentity_Override(t *testing.T) {
	ctx := WithIdentity(WithIdentity(context.Background(), "user-1"), "user-2")
	if got, _ := GetUserID(ctx); got != "user-2" {
		t.Errorf("GetUserID = %q, want user-2", got)
	}
}
