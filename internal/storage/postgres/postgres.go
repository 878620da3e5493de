// Package postgres keeps expenses in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"exptracker/internal/core"
	"exptracker/internal/expenses"
	"exptracker/internal/log"
)

//go:embed 001_create_expenses.sql
var migrationSQL string

const (
	listExpenses = `SELECT id, title, amount::text, category, date, created_at
FROM expenses ORDER BY id`

	insertExpense = `INSERT INTO expenses (title, amount, category, date)
VALUES ($1, $2::numeric, $3, $4)
RETURNING id, created_at`
)

// Config holds the PostgreSQL connection settings.
type Config struct {
	DSN         string
	MaxPoolSize int
}

// Repository stores expenses in PostgreSQL.
type Repository struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

var _ expenses.API = (*Repository)(nil)

// New connects, pings and applies the schema.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("missing postgres dsn")
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	r := &Repository{pool: pool, logger: logger.WithComponent(log.ComponentStorage)}
	if _, err := pool.Exec(ctx, migrationSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("executing migration: %w", err)
	}

	r.logger.InfoContext(ctx, "Connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database)
	return r, nil
}

// Close releases the pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// GetExpenses implements expenses.Lister
func (r *Repository) GetExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.pool.Query(ctx, listExpenses)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}

	out, err := pgx.CollectRows(rows, scanExpense)
	if err != nil {
		return nil, fmt.Errorf("scan expenses: %w", err)
	}
	return out, nil
}

func scanExpense(row pgx.CollectableRow) (core.Expense, error) {
	var (
		e      core.Expense
		amount string
		date   time.Time
	)
	if err := row.Scan(&e.ID, &e.Title, &amount, &e.Category, &date, &e.CreatedAt); err != nil {
		return core.Expense{}, err
	}
	cents, err := numericToCents(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d amount %q: %w", e.ID, amount, err)
	}
	e.Amount = core.Money{Cents: cents}
	e.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
	return e, nil
}

// AddExpense implements expenses.Adder
func (r *Repository) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validation failed: %w", err)
	}
	e.Title = strings.TrimSpace(e.Title)
	e.Category = strings.TrimSpace(e.Category)

	err := r.pool.QueryRow(ctx, insertExpense,
		e.Title, e.Amount.String(), e.Category, e.Date.Time,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved to PostgreSQL",
		log.NewFields().
			WithOperation(log.OpAdd).
			WithExpense(e.ID, e.Title, e.Amount.Cents, e.Category).
			ToSlice()...)
	return e, nil
}

// numericToCents converts a NUMERIC(10,2) text rendering to cents.
func numericToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if strings.Trim(s, "0.") == "" {
		return 0, nil
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return 0, err
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}
