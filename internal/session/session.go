// Package session models the client-side storage that holds the session
// token. Only presence of the token is checked here; validity is the expense
// API's concern.
package session

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// TokenKey is the storage key holding the session token.
const TokenKey = "token"

const tokenMaxAge = 30 * 24 * time.Hour

// Storage is read-only access to the client's persistent key/value storage.
type Storage interface {
	Get(key string) (string, bool)
}

// CookieStorage exposes a request's cookies as Storage.
type CookieStorage struct {
	r *http.Request
}

func NewCookieStorage(r *http.Request) CookieStorage {
	return CookieStorage{r: r}
}

func (s CookieStorage) Get(key string) (string, bool) {
	if s.r == nil {
		return "", false
	}
	c, err := s.r.Cookie(key)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// MapStorage is an in-memory Storage.
type MapStorage map[string]string

func (m MapStorage) Get(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// HasToken reports whether a session token is present in s.
func HasToken(s Storage) bool {
	if s == nil {
		return false
	}
	_, ok := s.Get(TokenKey)
	return ok
}

// SetToken stores token in the client's cookie jar. The cookie is marked
// Secure when r arrived over HTTPS.
func SetToken(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenKey,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tokenMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearToken removes the token cookie.
func ClearToken(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenKey,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// isHTTPS reports whether r reached us over TLS, directly or through a
// proxy that terminated it.
func isHTTPS(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

type contextKey struct{}

// WithToken returns a context carrying token for outbound API calls.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKey{}, token)
}

// TokenFromContext returns the token stored by WithToken, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(contextKey{}).(string)
	return token, ok && token != ""
}

// Middleware copies the token cookie into the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := NewCookieStorage(r).Get(TokenKey); ok {
			r = r.WithContext(WithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}
