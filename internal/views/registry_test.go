package views

import (
	"context"
	"testing"
	"time"

	"exptracker/internal/core"
	"exptracker/internal/expenses/memory"
	"exptracker/internal/session"
)

func newRegistry(t *testing.T, max int) *Registry {
	t.Helper()
	store := memory.New(core.Expense{
		ID: 1, Title: "Rent", Amount: core.Money{Cents: 90000}, Category: "Home", Date: core.NewDate(2024, 1, 1),
	})
	return NewRegistry(store, Config{MaxViews: max, TTL: time.Minute}, nil)
}

var owner = session.MapStorage{session.TokenKey: "tok"}

func TestRegistry_MountAndGet(t *testing.T) {
	r := newRegistry(t, 10)

	id, m := r.Mount(context.Background(), owner)
	if id == "" {
		t.Fatal("expected view id")
	}
	got, ok := r.Get(id, owner)
	if !ok || got != m {
		t.Fatal("expected mounted manager to be retrievable")
	}
	if v := got.View(); !v.LoggedIn || len(v.Expenses) != 1 {
		t.Fatalf("unexpected view: %+v", v)
	}
}

func TestRegistry_MountWithoutToken(t *testing.T) {
	r := newRegistry(t, 10)
	_, m := r.Mount(context.Background(), session.MapStorage{})
	if m.View().LoggedIn {
		t.Fatal("expected logged out view")
	}
}

func TestRegistry_GetUnknownOrMalformed(t *testing.T) {
	r := newRegistry(t, 10)
	if _, ok := r.Get("not-a-uuid", owner); ok {
		t.Fatal("malformed id must miss")
	}
	if _, ok := r.Get("6f1c0c8e-3a8f-4d0e-9b1a-2f0a1c9d8e7b", owner); ok {
		t.Fatal("unknown id must miss")
	}
}

func TestRegistry_EvictsOldestBeyondCapacity(t *testing.T) {
	r := newRegistry(t, 2)
	ctx := context.Background()
	first, _ := r.Mount(ctx, session.MapStorage{})
	r.Mount(ctx, session.MapStorage{})
	r.Mount(ctx, session.MapStorage{})

	if r.Len() != 2 {
		t.Fatalf("Len = %d", r.Len())
	}
	if _, ok := r.Get(first, session.MapStorage{}); ok {
		t.Fatal("oldest view should have been evicted")
	}
}

func TestRegistry_Drop(t *testing.T) {
	r := newRegistry(t, 10)
	id, _ := r.Mount(context.Background(), owner)

	r.Drop(id, session.MapStorage{session.TokenKey: "other"})
	if _, ok := r.Get(id, owner); !ok {
		t.Fatal("another session must not drop the view")
	}

	r.Drop(id, owner)
	if _, ok := r.Get(id, owner); ok {
		t.Fatal("dropped view must miss")
	}
}

func TestRegistry_GetRequiresMountingSession(t *testing.T) {
	r := newRegistry(t, 10)
	id, _ := r.Mount(context.Background(), owner)

	tests := []struct {
		name    string
		storage session.Storage
		want    bool
	}{
		{"same token", session.MapStorage{session.TokenKey: "tok"}, true},
		{"no token", session.MapStorage{}, false},
		{"nil storage", nil, false},
		{"other token", session.MapStorage{session.TokenKey: "tok-other"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := r.Get(id, tt.storage); ok != tt.want {
				t.Fatalf("Get ok = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestRegistry_LoggedOutViewNotReachableAfterLogin(t *testing.T) {
	r := newRegistry(t, 10)
	id, _ := r.Mount(context.Background(), session.MapStorage{})

	if _, ok := r.Get(id, session.MapStorage{}); !ok {
		t.Fatal("tokenless view must be reachable without a token")
	}
	if _, ok := r.Get(id, owner); ok {
		t.Fatal("tokenless view must miss once a token is present")
	}
}
