// Package storage keeps expenses in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"exptracker/internal/core"
	"exptracker/internal/expenses"
	"exptracker/internal/log"

	_ "modernc.org/sqlite"
)

const (
	listExpenses = `SELECT id, title, amount_cents, category, date, created_at
FROM expenses ORDER BY id`

	insertExpense = `INSERT INTO expenses (title, amount_cents, category, date, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ expenses.API = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetExpenses implements expenses.Lister
func (r *SQLiteRepository) GetExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e               core.Expense
			date, createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Amount.Cents, &e.Category, &date, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("expense %d: date %q: %w", e.ID, date, err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// AddExpense implements expenses.Adder
func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validation failed: %w", err)
	}
	e.Title = strings.TrimSpace(e.Title)
	e.Category = strings.TrimSpace(e.Category)
	e.CreatedAt = time.Now().UTC()

	err := r.db.QueryRowContext(ctx, insertExpense,
		e.Title, e.Amount.Cents, e.Category, e.Date.String(),
		e.CreatedAt.Format(time.RFC3339Nano),
	).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		log.NewFields().
			WithOperation(log.OpAdd).
			WithExpense(e.ID, e.Title, e.Amount.Cents, e.Category).
			ToSlice()...)
	return e, nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
