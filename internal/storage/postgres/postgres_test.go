package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"exptracker/internal/core"
)

func TestNew_MissingDSN(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestNew_ConnectionFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := New(ctx, Config{DSN: "postgres://nobody:pw@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"}, nil)
	if err == nil {
		t.Fatal("expected error when connecting to a closed port")
	}
}

func TestNumericToCents(t *testing.T) {
	cases := map[string]int64{"0.00": 0, "12.34": 1234, "900.00": 90000, "-5.10": -510}
	for in, want := range cases {
		got, err := numericToCents(in)
		if err != nil || got != want {
			t.Errorf("numericToCents(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
}

func TestRepository_AddAndList(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set, skipping integration test")
	}
	ctx := context.Background()

	repo, err := New(ctx, Config{DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer repo.Close()

	before, err := repo.GetExpenses(ctx)
	if err != nil {
		t.Fatalf("GetExpenses: %v", err)
	}

	created, err := repo.AddExpense(ctx, core.Expense{
		Title: "Integration", Amount: core.Money{Cents: 1234}, Category: "Test", Date: core.NewDate(2024, 6, 1),
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if created.ID == 0 || created.CreatedAt.IsZero() {
		t.Fatalf("expected server-assigned fields, got %+v", created)
	}

	after, err := repo.GetExpenses(ctx)
	if err != nil {
		t.Fatalf("GetExpenses: %v", err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("expected %d rows, got %d", len(before)+1, len(after))
	}
	last := after[len(after)-1]
	if last.ID != created.ID || last.Amount.Cents != 1234 || last.Date.String() != "2024-06-01" {
		t.Fatalf("unexpected last row: %+v", last)
	}
}
