// Package manager implements the ExpenseManager view-controller: it gates on
// the session token, loads the expense collection once per mount, switches
// between the list and the add-expense form, and keeps a single error banner.
package manager

import (
	"context"
	"sync"

	"exptracker/internal/core"
	"exptracker/internal/expenses"
	"exptracker/internal/log"
	"exptracker/internal/session"
)

// User-facing messages. Every failure of an operation collapses to the same text.
const (
	MsgLoadFailed  = "Error fetching expenses. Please try again later."
	MsgAddFailed   = "Error adding expense. Please try again."
	MsgLoginNotice = "Please log in to access your expenses."
)

// Mode selects which child view is shown.
type Mode int

const (
	ModeList Mode = iota
	ModeForm
)

func (m Mode) String() string {
	if m == ModeForm {
		return "form"
	}
	return "list"
}

// View is a snapshot of the manager state handed to the renderer.
type View struct {
	LoggedIn bool
	Error    string
	Mode     Mode
	Expenses []core.Expense
}

// ShowForm reports whether the add-expense form replaces the list.
func (v View) ShowForm() bool {
	return v.Mode == ModeForm
}

// Manager holds the state of one mounted expense page.
//
// State slots are only written by the manager's own handlers. API calls run
// without the lock held; results are applied to whatever state is current
// when the call returns.
type Manager struct {
	api    expenses.API
	logger *log.Logger

	mountOnce sync.Once

	mu           sync.Mutex
	loggedIn     bool
	expenses     []core.Expense
	errorMessage string
	mode         Mode
}

// New returns an unmounted manager in list mode.
func New(api expenses.API, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		api:      api,
		logger:   logger.WithComponent(log.ComponentManager),
		loggedIn: true,
		mode:     ModeList,
	}
}

// Mount checks storage for a session token and, when one is present, loads
// the expense collection. Only the first call on a manager does anything.
func (m *Manager) Mount(ctx context.Context, storage session.Storage) {
	m.mountOnce.Do(func() {
		if !session.HasToken(storage) {
			m.mu.Lock()
			m.loggedIn = false
			m.mu.Unlock()
			return
		}
		m.load(ctx)
	})
}

func (m *Manager) load(ctx context.Context) {
	items, err := m.api.GetExpenses(context.WithoutCancel(ctx))
	if err != nil {
		m.logger.ErrorContext(ctx, "Error fetching expenses",
			log.NewFields().WithError(err).WithOperation(log.OpLoad).ToSlice()...)
		m.mu.Lock()
		m.errorMessage = MsgLoadFailed
		m.mu.Unlock()
		return
	}

	loaded := make([]core.Expense, len(items))
	copy(loaded, items)

	m.mu.Lock()
	m.expenses = loaded
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "Expenses loaded", log.FieldCount, len(loaded))
}

// HandleAddExpense submits e and appends the created record to the end of the
// current collection. On failure the collection is left as it was. It reports
// whether the record was added.
func (m *Manager) HandleAddExpense(ctx context.Context, e core.Expense) bool {
	created, err := m.api.AddExpense(context.WithoutCancel(ctx), e)
	if err != nil {
		m.logger.ErrorContext(ctx, "Error adding expense",
			log.NewFields().
				WithError(err).
				WithOperation(log.OpAdd).
				WithExpense(0, e.Title, e.Amount.Cents, e.Category).
				ToSlice()...)
		m.mu.Lock()
		m.errorMessage = MsgAddFailed
		m.mu.Unlock()
		return false
	}

	m.mu.Lock()
	m.expenses = append(m.expenses, created)
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Expense added",
		log.NewFields().
			WithOperation(log.OpAdd).
			WithExpense(created.ID, created.Title, created.Amount.Cents, created.Category).
			ToSlice()...)
	return true
}

// HandleNewExpenseClick switches to the add-expense form.
func (m *Manager) HandleNewExpenseClick() {
	m.setMode(ModeForm)
}

// HandleFormCancel switches back to the expense list.
func (m *Manager) HandleFormCancel() {
	m.setMode(ModeList)
}

func (m *Manager) setMode(mode Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

// View returns a copy of the current state.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]core.Expense, len(m.expenses))
	copy(items, m.expenses)

	return View{
		LoggedIn: m.loggedIn,
		Error:    m.errorMessage,
		Mode:     m.mode,
		Expenses: items,
	}
}
