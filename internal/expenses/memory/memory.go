// Package memory is an in-process expense store for development and tests.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"exptracker/internal/core"
	"exptracker/internal/expenses"
)

// SeedFile is the file NewFromFiles reads from its base directory.
const SeedFile = "seed_expenses.csv"

type Store struct {
	mu     sync.Mutex
	items  []core.Expense
	nextID int64
	now    func() time.Time
}

var _ expenses.API = (*Store)(nil)

func New(seed ...core.Expense) *Store {
	s := &Store{now: time.Now}
	for _, e := range seed {
		s.insert(e)
	}
	return s
}

// NewFromFiles seeds the store from base/seed_expenses.csv when that file
// exists. Rows that do not parse are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	f, err := os.Open(filepath.Join(base, SeedFile))
	if err != nil {
		return s
	}
	defer f.Close()
	for _, e := range readSeed(f) {
		s.insert(e)
	}
	return s
}

// GetExpenses returns every stored expense in insertion order.
func (s *Store) GetExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...), nil
}

// AddExpense validates e, assigns it the next ID and stores it.
func (s *Store) AddExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(e), nil
}

// insert must be called with mu held or before the store is shared.
func (s *Store) insert(e core.Expense) core.Expense {
	s.nextID++
	e.ID = s.nextID
	e.Title = strings.TrimSpace(e.Title)
	e.Category = strings.TrimSpace(e.Category)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	s.items = append(s.items, e)
	return e
}

// readSeed parses rows of title,amount,category,date. A first row whose
// amount column does not parse is treated as a header.
func readSeed(r io.Reader) []core.Expense {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []core.Expense
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		e, err := parseSeedRow(rec)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

func parseSeedRow(rec []string) (core.Expense, error) {
	if len(rec) < 4 {
		return core.Expense{}, fmt.Errorf("want 4 columns, got %d", len(rec))
	}
	cents, err := core.ParseDecimalToCents(rec[1])
	if err != nil {
		return core.Expense{}, err
	}
	date, err := core.ParseDate(rec[3])
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		Title:    rec[0],
		Amount:   core.Money{Cents: cents},
		Category: rec[2],
		Date:     date,
	}
	return e, e.Validate()
}
