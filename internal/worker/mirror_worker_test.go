package worker

import (
	"context"
	"errors"
	"testing"

	"exptracker/internal/amqp"
	"exptracker/internal/core"
	"exptracker/internal/expenses/memory"
)

type brokenAdder struct{}

func (brokenAdder) AddExpense(context.Context, core.Expense) (core.Expense, error) {
	return core.Expense{}, errors.New("sheet unavailable")
}

func event() *amqp.ExpenseAddedMessage {
	return amqp.NewExpenseAddedMessage(core.Expense{
		ID: 12, Title: "Lunch", Amount: core.Money{Cents: 1200}, Category: "Food", Date: core.NewDate(2024, 4, 5),
	})
}

func TestMirrorWorker_AppendsToMirror(t *testing.T) {
	mirror := memory.New()
	w := NewMirrorWorker(mirror, nil)

	if err := w.HandleExpenseAdded(context.Background(), event()); err != nil {
		t.Fatalf("HandleExpenseAdded: %v", err)
	}

	items, _ := mirror.GetExpenses(context.Background())
	if len(items) != 1 || items[0].Title != "Lunch" || items[0].Amount.Cents != 1200 {
		t.Fatalf("unexpected mirror contents: %+v", items)
	}
}

func TestMirrorWorker_MirrorFailureRequeues(t *testing.T) {
	w := NewMirrorWorker(brokenAdder{}, nil)
	if err := w.HandleExpenseAdded(context.Background(), event()); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}

func TestMirrorWorker_BadPayloadIsDropped(t *testing.T) {
	mirror := memory.New()
	w := NewMirrorWorker(mirror, nil)

	msg := event()
	msg.Date = "not-a-date"
	if err := w.HandleExpenseAdded(context.Background(), msg); err != nil {
		t.Fatalf("expected bad payload to be acknowledged, got %v", err)
	}
	if items, _ := mirror.GetExpenses(context.Background()); len(items) != 0 {
		t.Fatalf("bad payload mirrored: %+v", items)
	}
}
