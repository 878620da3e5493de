package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"exptracker/internal/core"
)

// maxBodyBytes caps form and JSON bodies.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body of r once, up to maxBodyBytes.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(p.body, &p.jsonData)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a trimmed, sanitized value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Raw returns the value for key exactly as submitted.
func (p *RequestBodyParser) Raw(key string) string {
	if p.jsonData != nil {
		return stringValue(p.jsonData[key])
	}
	return p.formData.Get(key)
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ExpenseForm echoes the submitted values back into the form.
type ExpenseForm struct {
	Title    string
	Amount   string
	Category string
	Date     string
}

// ParseExpenseForm turns submitted fields into an expense. When the input
// cannot be used, problem holds a message for the user.
func ParseExpenseForm(p *RequestBodyParser) (e core.Expense, form ExpenseForm, problem string) {
	form = ExpenseForm{
		Title:    p.Get("title"),
		Amount:   p.Get("amount"),
		Category: p.Get("category"),
		Date:     p.Get("date"),
	}

	cents, err := core.ParseDecimalToCents(form.Amount)
	if err != nil {
		return core.Expense{}, form, "Please enter a positive amount, e.g. 12.50."
	}
	date, err := core.ParseDate(form.Date)
	if err != nil {
		return core.Expense{}, form, "Please enter a date as YYYY-MM-DD."
	}

	e = core.Expense{
		Title:    form.Title,
		Amount:   core.Money{Cents: cents},
		Category: form.Category,
		Date:     date,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, form, validationMessage(err)
	}
	return e, form, ""
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrAmountTooHigh):
		return fmt.Sprintf("Amount must be at most %s.", core.Money{Cents: core.MaxAmountCents})
	case errors.Is(err, core.ErrEmptyTitle):
		return "Title is required."
	case errors.Is(err, core.ErrTitleTooLong):
		return fmt.Sprintf("Title must be at most %d characters.", core.MaxTitleLength)
	case errors.Is(err, core.ErrEmptyCategory):
		return "Category is required."
	case errors.Is(err, core.ErrCategoryLong):
		return fmt.Sprintf("Category must be at most %d characters.", core.MaxCategoryLength)
	default:
		return "Please check the expense details."
	}
}

// wantsPartial reports whether the request came from htmx and expects a fragment.
func wantsPartial(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}
