package expenses

import (
	"context"
	"errors"

	"exptracker/internal/core"
)

// Ports for outbound adapters. The caller's session token, when one is
// needed, travels in ctx (see session.WithToken).
type (
	// Lister returns the caller's expense collection in insertion order.
	Lister interface {
		GetExpenses(ctx context.Context) ([]core.Expense, error)
	}

	// Adder submits a new expense and returns the record as created by the store.
	Adder interface {
		AddExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	}

	API interface {
		Lister
		Adder
	}

	// Authenticator exchanges credentials for a session token.
	Authenticator interface {
		Login(ctx context.Context, username, password string) (token string, err error)
	}
)

// ErrInvalidCredentials is returned by an Authenticator that rejected the login.
var ErrInvalidCredentials = errors.New("invalid credentials")
