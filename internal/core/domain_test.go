package core

import (
	"errors"
	"strings"
	"testing"
)

func validExpense() Expense {
	return Expense{
		Title:    "Groceries",
		Amount:   Money{Cents: 1250},
		Category: "Food",
		Date:     NewDate(2024, 3, 14),
	}
}

func TestExpenseValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"valid", func(*Expense) {}, nil},
		{"empty title", func(e *Expense) { e.Title = "   " }, ErrEmptyTitle},
		{"long title", func(e *Expense) { e.Title = strings.Repeat("x", 101) }, ErrTitleTooLong},
		{"zero amount", func(e *Expense) { e.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		{"largest amount", func(e *Expense) { e.Amount = Money{Cents: MaxAmountCents} }, nil},
		{"amount over ten digits", func(e *Expense) { e.Amount = Money{Cents: MaxAmountCents + 1} }, ErrAmountTooHigh},
		{"empty category", func(e *Expense) { e.Category = "" }, ErrEmptyCategory},
		{"long category", func(e *Expense) { e.Category = strings.Repeat("c", 51) }, ErrCategoryLong},
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validExpense()
			tt.mutate(&e)
			err := e.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("got %q", d.String())
	}

	if _, err := ParseDate("29/02/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	if (Date{}).String() != "" {
		t.Fatalf("zero date should render empty")
	}
}
