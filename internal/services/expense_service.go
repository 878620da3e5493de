// Package services composes expense stores with side effects such as event
// publishing.
package services

import (
	"context"

	"exptracker/internal/core"
	"exptracker/internal/expenses"
	"exptracker/internal/log"
)

// EventPublisher announces created expenses.
type EventPublisher interface {
	PublishExpenseAdded(ctx context.Context, e core.Expense) error
}

// ExpenseService wraps an expense store and publishes an expense.added event
// after every successful add.
type ExpenseService struct {
	api       expenses.API
	publisher EventPublisher
	logger    *log.Logger
}

var _ expenses.API = (*ExpenseService)(nil)

func NewExpenseService(api expenses.API, publisher EventPublisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		api:       api,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentAMQP),
	}
}

// GetExpenses delegates to the wrapped store.
func (s *ExpenseService) GetExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.api.GetExpenses(ctx)
}

// AddExpense stores e and then publishes the event. A publish failure is
// logged and does not fail the add; the expense is already stored.
func (s *ExpenseService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	created, err := s.api.AddExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	if s.publisher == nil {
		s.logger.WarnContext(ctx, "Event publisher not available, skipping expense event")
		return created, nil
	}
	if err := s.publisher.PublishExpenseAdded(ctx, created); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithError(err).
				WithExpense(created.ID, created.Title, created.Amount.Cents, created.Category).
				ToSlice()...)
	}
	return created, nil
}
