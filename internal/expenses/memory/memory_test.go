package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"exptracker/internal/core"
)

func TestMemoryStoreAddAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.AddExpense(ctx, core.Expense{
		Title: " Lunch ", Amount: core.Money{Cents: 1200}, Category: "Food", Date: core.NewDate(2024, 5, 1),
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if first.ID != 1 || first.Title != "Lunch" || first.CreatedAt.IsZero() {
		t.Fatalf("unexpected record: %+v", first)
	}

	second, err := s.AddExpense(ctx, core.Expense{
		Title: "Train", Amount: core.Money{Cents: 450}, Category: "Transport", Date: core.NewDate(2024, 5, 2),
	})
	if err != nil || second.ID != 2 {
		t.Fatalf("second add: %+v, %v", second, err)
	}

	items, err := s.GetExpenses(ctx)
	if err != nil || len(items) != 2 || items[0].ID != 1 || items[1].ID != 2 {
		t.Fatalf("unexpected list: %+v, %v", items, err)
	}

	items[0].Title = "mutated"
	again, _ := s.GetExpenses(ctx)
	if again[0].Title != "Lunch" {
		t.Fatal("GetExpenses must return a copy")
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := New()
	_, err := s.AddExpense(context.Background(), core.Expense{Title: "x", Category: "y", Date: core.NewDate(2024, 1, 1)})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	items, _ := s.GetExpenses(context.Background())
	if len(items) != 0 {
		t.Fatalf("invalid expense stored: %+v", items)
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()

	s := NewFromFiles(dir)
	if items, _ := s.GetExpenses(context.Background()); len(items) != 0 {
		t.Fatalf("expected empty store without seed file, got %d", len(items))
	}

	content := "# seed\ntitle,amount,category,date\nRent,900.00,Home,2024-01-01\nbroken,abc,Home,2024-01-02\nCoffee,\"3,50\",Food,2024-01-03\n"
	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	s = NewFromFiles(dir)
	items, _ := s.GetExpenses(context.Background())
	if len(items) != 2 {
		t.Fatalf("expected 2 seeded expenses, got %d: %+v", len(items), items)
	}
	if items[0].Title != "Rent" || items[0].Amount.Cents != 90000 || items[0].ID != 1 {
		t.Fatalf("unexpected first row: %+v", items[0])
	}
	if items[1].Title != "Coffee" || items[1].Amount.Cents != 350 || items[1].ID != 2 {
		t.Fatalf("unexpected second row: %+v", items[1])
	}
}
