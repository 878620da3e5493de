package core

import (
	"errors"
	"strings"
	"time"
)

const (
	MaxTitleLength    = 100
	MaxCategoryLength = 50

	// MaxAmountCents is the largest amount the API stores: ten digits, two of
	// them decimals.
	MaxAmountCents = 99_999_999_99

	// DateLayout is the wire and form format of an expense date.
	DateLayout = "2006-01-02"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is a single spending entry as stored by the expense API.
	Expense struct {
		ID        int64
		Title     string
		Amount    Money
		Category  string
		Date      Date
		CreatedAt time.Time
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrAmountTooHigh = errors.New("amount too large (max 99999999.99)")
	ErrEmptyTitle    = errors.New("empty title")
	ErrEmptyCategory = errors.New("empty category")
	ErrTitleTooLong  = errors.New("title too long (max 100 characters)")
	ErrCategoryLong  = errors.New("category too long (max 50 characters)")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String renders the date in YYYY-MM-DD format, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmountCents {
		return ErrAmountTooHigh
	}
	return nil
}

func (e Expense) Validate() error {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len([]rune(title)) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	category := strings.TrimSpace(e.Category)
	if category == "" {
		return ErrEmptyCategory
	}
	if len([]rune(category)) > MaxCategoryLength {
		return ErrCategoryLong
	}
	return e.Date.Validate()
}
