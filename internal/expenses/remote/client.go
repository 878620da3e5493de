// Package remote implements the expense ports against the expense tracker's
// REST API using token authentication.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"exptracker/internal/core"
	"exptracker/internal/expenses"
	"exptracker/internal/log"
	"exptracker/internal/session"
)

const (
	expensesPath = "/expenses/"
	loginPath    = "/login/"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 4 << 10
)

// ErrNoToken is returned when ctx carries no session token.
var ErrNoToken = errors.New("no session token in context")

// StatusError reports a non-2xx response from the API.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Code, e.Body)
}

// Client talks to the expense API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
	loads   singleflight.Group
}

var (
	_ expenses.API           = (*Client)(nil)
	_ expenses.Authenticator = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the API rooted at baseURL. A zero timeout leaves
// requests unbounded.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent(log.ComponentRemote)
	return c, nil
}

// GetExpenses lists the caller's expenses. Concurrent calls for the same
// token share one request.
func (c *Client) GetExpenses(ctx context.Context) ([]core.Expense, error) {
	token, ok := session.TokenFromContext(ctx)
	if !ok {
		return nil, ErrNoToken
	}

	v, err, shared := c.loads.Do(token, func() (any, error) {
		return c.fetchExpenses(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	items := v.([]core.Expense)
	if shared {
		c.logger.DebugContext(ctx, "Shared in-flight expense load", log.FieldCount, len(items))
	}
	return append([]core.Expense(nil), items...), nil
}

func (c *Client) fetchExpenses(ctx context.Context, token string) ([]core.Expense, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+expensesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	setToken(req, token)

	var dtos []expenseDTO
	if err := c.do(req, "list expenses", &dtos); err != nil {
		return nil, err
	}

	out := make([]core.Expense, 0, len(dtos))
	for _, d := range dtos {
		e, err := d.toExpense()
		if err != nil {
			return nil, fmt.Errorf("decode expense: %w", err)
		}
		out = append(out, e)
	}

	c.logger.DebugContext(ctx, "Fetched expenses",
		log.FieldOperation, log.OpList,
		log.FieldCount, len(out))
	return out, nil
}

// AddExpense creates e and returns the stored record.
func (c *Client) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	token, ok := session.TokenFromContext(ctx)
	if !ok {
		return core.Expense{}, ErrNoToken
	}

	body, err := json.Marshal(fromExpense(e))
	if err != nil {
		return core.Expense{}, fmt.Errorf("encode expense: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+expensesPath, bytes.NewReader(body))
	if err != nil {
		return core.Expense{}, fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setToken(req, token)

	var dto expenseDTO
	if err := c.do(req, "create expense", &dto); err != nil {
		return core.Expense{}, err
	}
	created, err := dto.toExpense()
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode created expense: %w", err)
	}

	c.logger.DebugContext(ctx, "Created expense",
		log.NewFields().
			WithOperation(log.OpAdd).
			WithExpense(created.ID, created.Title, created.Amount.Cents, created.Category).
			ToSlice()...)
	return created, nil
}

// Login exchanges credentials for an API token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return "", fmt.Errorf("encode login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp loginResponse
	err = c.do(req, "login", &resp)
	var se *StatusError
	if errors.As(err, &se) && (se.Code == http.StatusBadRequest || se.Code == http.StatusUnauthorized) {
		return "", expenses.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", expenses.ErrInvalidCredentials
	}
	return resp.Token, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(req.Context(), "API call",
		log.FieldMethod, req.Method,
		log.FieldPath, req.URL.Path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func setToken(req *http.Request, token string) {
	req.Header.Set("Authorization", "Token "+token)
}
