package common

import (
	"context"
	"testing"
)

func TestUserContext_RoundTrip(t *testing.T) {
	ctx := context.Background()

	if uc := UserContextFromContext(ctx); uc != nil {
		t.Error("Expected nil UserContext from empty context")
	}

	uc := &UserContext{
		UserID:      "alice",
		Username:    "alice",
		AccountType: "email",
		TokenHash:   "abc",
	}
	ctx = WithUserContext(ctx, uc)

	got := UserContextFromContext(ctx)
	if got == nil {
		t.Fatal("Expected non-nil UserContext")
	}
	if got.UserID != "alice" || got.AccountType != "email" || got.TokenHash != "abc" {
		t.Errorf("unexpected user context: %+v", got)
	}
}

func TestResolveUserID(t *testing.T) {
	ctx := context.Background()
	if id := ResolveUserID(ctx); id != "" {
		t.Errorf("Expected empty user id, got %q", id)
	}

	ctx = WithUserContext(ctx, &UserContext{UserID: "bob"})
	if id := ResolveUserID(ctx); id != "bob" {
		t.Errorf("Expected bob, got %q", id)
	}
}
