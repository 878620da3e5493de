package amqp

import (
	"encoding/json"
	"time"

	"exptracker/internal/core"
)

// EventExpenseAdded is the message type of ExpenseAddedMessage.
const EventExpenseAdded = "expense.added"

// ExpenseAddedMessage announces an expense that the expense store accepted.
type ExpenseAddedMessage struct {
	Type        string    `json:"type"`
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseAddedMessage builds the event for a created expense.
func NewExpenseAddedMessage(e core.Expense) *ExpenseAddedMessage {
	return &ExpenseAddedMessage{
		Type:        EventExpenseAdded,
		ID:          e.ID,
		Title:       e.Title,
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		Date:        e.Date.String(),
		Timestamp:   time.Now().UTC(),
	}
}

// Expense converts the message back into a domain expense.
func (m *ExpenseAddedMessage) Expense() (core.Expense, error) {
	date, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:       m.ID,
		Title:    m.Title,
		Amount:   core.Money{Cents: m.AmountCents},
		Category: m.Category,
		Date:     date,
	}, nil
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseAddedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseAddedMessageFromJSON creates a message from JSON bytes
func ExpenseAddedMessageFromJSON(data []byte) (*ExpenseAddedMessage, error) {
	var msg ExpenseAddedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
