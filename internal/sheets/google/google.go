package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"exptracker/internal/core"
	"exptracker/internal/expenses"
	"exptracker/internal/log"
)

// Column layout of the expenses sheet. Row 1 is a header.
const (
	colID = iota
	colTitle
	colAmount
	colCategory
	colDate
	colCreatedAt
	numCols
)

var header = []any{"ID", "Title", "Amount", "Category", "Date", "CreatedAt"}

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string

	// RateLimitDelay is the wait before retrying a write the API rejected
	// with 429. Defaults to 2s.
	RateLimitDelay time.Duration
}

const writeAttempts = 3

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	logger        *log.Logger
	retryDelay    time.Duration

	// Appends read the sheet to find the next row and ID, so they must not interleave.
	appendMu sync.Mutex
}

var _ expenses.API = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger)
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Expenses"
	}
	delay := cfg.RateLimitDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Client{
		retryDelay:    delay,
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		expensesSheet: sheet,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

func credentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// GetExpenses lists every data row of the expenses sheet in sheet order.
func (c *Client) GetExpenses(ctx context.Context) ([]core.Expense, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rows, err := c.readRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(rows))
	for i, row := range rows {
		e, ok := parseRow(toStrings(row))
		if !ok {
			if i > 0 {
				c.logger.DebugContext(ctx, "Skipping unparsable row", "row", i+1)
			}
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// AddExpense writes e to the first empty row and returns it with its new ID.
func (c *Client) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return core.Expense{}, errors.New("sheets service not initialized")
	}

	c.appendMu.Lock()
	defer c.appendMu.Unlock()

	rows, err := c.readRows(ctx)
	if err != nil {
		return core.Expense{}, err
	}

	var maxID int64
	for _, row := range rows {
		cols := toStrings(row)
		if len(cols) == 0 {
			continue
		}
		if id, err := strconv.ParseInt(cols[colID], 10, 64); err == nil && id > maxID {
			maxID = id
		}
	}

	nextRow := len(rows) + 1
	values := [][]any{}
	if len(rows) == 0 {
		values = append(values, header)
		nextRow = 2
	}

	e.ID = maxID + 1
	e.Title = strings.TrimSpace(e.Title)
	e.Category = strings.TrimSpace(e.Category)
	e.CreatedAt = time.Now().UTC().Truncate(time.Second)
	values = append(values, []any{
		e.ID, e.Title, e.Amount.String(), e.Category, e.Date.String(), e.CreatedAt.Format(time.RFC3339),
	})

	first := nextRow - len(values) + 1
	rng := fmt.Sprintf("%s!A%d:F%d", c.expensesSheet, first, nextRow)
	err = retry.Do(
		func() error {
			_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
				ValueInputOption("RAW").Context(ctx).Do()
			return err
		},
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				c.logger.WarnContext(ctx, "Rate limited by Sheets API, will retry", log.FieldError, err.Error())
				return true
			}
			return false
		}),
		retry.Attempts(writeAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("failed to update %s: %w", rng, err)
	}

	c.logger.InfoContext(ctx, "Expense appended to sheet",
		log.NewFields().
			WithOperation(log.OpAdd).
			WithExpense(e.ID, e.Title, e.Amount.Cents, e.Category).
			ToSlice()...)
	return e, nil
}

func (c *Client) readRows(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:F", c.expensesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}
