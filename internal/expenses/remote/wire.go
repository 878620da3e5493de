package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"exptracker/internal/core"
)

// decimal is an amount as sent by the API. The API renders decimals as
// strings ("12.34") but plain JSON numbers are accepted too.
type decimal string

func (d *decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = decimal(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*d = decimal(n.String())
	return nil
}

type expenseDTO struct {
	ID        int64   `json:"id,omitempty"`
	Title     string  `json:"title"`
	Amount    decimal `json:"amount"`
	Category  string  `json:"category"`
	Date      string  `json:"date"`
	CreatedAt string  `json:"created_at,omitempty"`
}

func fromExpense(e core.Expense) expenseDTO {
	return expenseDTO{
		Title:    e.Title,
		Amount:   decimal(e.Amount.String()),
		Category: e.Category,
		Date:     e.Date.String(),
	}
}

func (d expenseDTO) toExpense() (core.Expense, error) {
	e := core.Expense{
		ID:       d.ID,
		Title:    d.Title,
		Category: d.Category,
	}

	amount := strings.TrimSpace(string(d.Amount))
	if amount != "" {
		cents, err := parseSignedCents(amount)
		if err != nil {
			return core.Expense{}, fmt.Errorf("expense %d amount %q: %w", d.ID, amount, err)
		}
		e.Amount = core.Money{Cents: cents}
	}

	if d.Date != "" {
		date, err := core.ParseDate(d.Date)
		if err != nil {
			return core.Expense{}, fmt.Errorf("expense %d date %q: %w", d.ID, d.Date, err)
		}
		e.Date = date
	}

	if d.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, d.CreatedAt)
		if err != nil {
			return core.Expense{}, fmt.Errorf("expense %d created_at %q: %w", d.ID, d.CreatedAt, err)
		}
		e.CreatedAt = t
	}
	return e, nil
}

// parseSignedCents accepts whatever the store holds, zero and refunds included.
func parseSignedCents(s string) (int64, error) {
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

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Error string `json:"error"`
}
