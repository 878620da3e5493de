// Package worker consumes expense events and mirrors them into a secondary
// store.
package worker

import (
	"context"
	"fmt"

	"exptracker/internal/amqp"
	"exptracker/internal/expenses"
	"exptracker/internal/log"
)

// MirrorWorker appends every expense.added event to a mirror store, such as
// a spreadsheet kept for reporting.
type MirrorWorker struct {
	mirror expenses.Adder
	logger *log.Logger
}

func NewMirrorWorker(mirror expenses.Adder, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{mirror: mirror, logger: logger.WithComponent(log.ComponentSheets)}
}

// HandleExpenseAdded processes a single expense event. A returned error
// requeues the message.
func (w *MirrorWorker) HandleExpenseAdded(ctx context.Context, msg *amqp.ExpenseAddedMessage) error {
	e, err := msg.Expense()
	if err != nil {
		// Requeueing cannot fix a bad payload.
		w.logger.ErrorContext(ctx, "Skipping expense event with invalid date",
			log.FieldExpenseID, msg.ID, log.FieldError, err.Error())
		return nil
	}

	mirrored, err := w.mirror.AddExpense(ctx, e)
	if err != nil {
		return fmt.Errorf("mirror expense %d: %w", msg.ID, err)
	}

	w.logger.InfoContext(ctx, "Mirrored expense",
		log.NewFields().
			WithOperation(log.OpAdd).
			WithExpense(msg.ID, e.Title, e.Amount.Cents, e.Category).
			ToSlice()...,
	)
	w.logger.DebugContext(ctx, "Mirror assigned id", "mirror_id", mirrored.ID)
	return nil
}
