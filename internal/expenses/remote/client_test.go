package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"exptracker/internal/core"
	"exptracker/internal/expenses"
	"exptracker/internal/session"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api/", 5*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func tokenCtx(token string) context.Context {
	return session.WithToken(context.Background(), token)
}

func TestGetExpenses(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/expenses/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token abc" {
			t.Errorf("authorization = %q", got)
		}
		_, _ = io.WriteString(w, `[
			{"id":1,"title":"Rent","amount":"900.00","category":"Home","date":"2024-01-01","created_at":"2024-01-01T10:00:00Z"},
			{"id":2,"title":"Coffee","amount":3.5,"category":"Food","date":"2024-01-02","created_at":"2024-01-02T08:30:00.123456Z"}
		]`)
	}))

	got, err := c.GetExpenses(tokenCtx("abc"))
	if err != nil {
		t.Fatalf("GetExpenses: %v", err)
	}
	want := []core.Expense{
		{ID: 1, Title: "Rent", Amount: core.Money{Cents: 90000}, Category: "Home", Date: core.NewDate(2024, 1, 1),
			CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{ID: 2, Title: "Coffee", Amount: core.Money{Cents: 350}, Category: "Food", Date: core.NewDate(2024, 1, 2),
			CreatedAt: time.Date(2024, 1, 2, 8, 30, 0, 123456000, time.UTC)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("expenses mismatch (-want +got):\n%s", diff)
	}
}

func TestGetExpensesWithoutToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	if _, err := c.GetExpenses(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestGetExpensesStatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Invalid token."}`)
	}))

	_, err := c.GetExpenses(tokenCtx("bad"))
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusUnauthorized || se.Body != `{"detail":"Invalid token."}` {
		t.Fatalf("unexpected status error: %+v", se)
	}
}

func TestGetExpensesMalformedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"not":"a list"}`)
	}))
	if _, err := c.GetExpenses(tokenCtx("abc")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGetExpensesCoalescesSameToken(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = io.WriteString(w, `[]`)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetExpenses(tokenCtx("same")); err != nil {
				t.Errorf("GetExpenses: %v", err)
			}
		}()
	}
	// Let the goroutines join the in-flight call before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n < 1 || n > 4 {
		t.Fatalf("unexpected request count %d", n)
	}
}

func TestAddExpense(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/expenses/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token abc" {
			t.Errorf("authorization = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		want := map[string]any{"title": "Book", "amount": "12.50", "category": "Fun", "date": "2024-03-04"}
		if diff := cmp.Diff(want, body); diff != "" {
			t.Errorf("body mismatch (-want +got):\n%s", diff)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":42,"title":"Book","amount":"12.50","category":"Fun","date":"2024-03-04","created_at":"2024-03-04T12:00:00Z"}`)
	}))

	created, err := c.AddExpense(tokenCtx("abc"), core.Expense{
		Title: "Book", Amount: core.Money{Cents: 1250}, Category: "Fun", Date: core.NewDate(2024, 3, 4),
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if created.ID != 42 || created.Amount.Cents != 1250 || created.CreatedAt.IsZero() {
		t.Fatalf("unexpected created record: %+v", created)
	}
}

func TestAddExpenseRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"title":["This field is required."]}`)
	}))
	_, err := c.AddExpense(tokenCtx("abc"), core.Expense{})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 StatusError, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req loginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username == "ada" && req.Password == "secret" {
			_, _ = io.WriteString(w, `{"token":"tok-1"}`)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Invalid Credentials"}`)
	}))

	token, err := c.Login(context.Background(), "ada", "secret")
	if err != nil || token != "tok-1" {
		t.Fatalf("Login = %q, %v", token, err)
	}
	if _, err := c.Login(context.Background(), "ada", "wrong"); !errors.Is(err, expenses.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "ftp://example.com", "://bad"} {
		if _, err := New(u, time.Second); err == nil {
			t.Errorf("New(%q) expected error", u)
		}
	}
}

func TestParseSignedCents(t *testing.T) {
	cases := map[string]int64{"0.00": 0, "12.34": 1234, "-2.50": -250, "7": 700}
	for in, want := range cases {
		got, err := parseSignedCents(in)
		if err != nil || got != want {
			t.Errorf("parseSignedCents(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
}
