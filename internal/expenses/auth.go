package expenses

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// LocalAuthenticator issues opaque tokens for backends that keep expenses
// locally and have no login endpoint of their own. Any non-empty username
// and password pair is accepted.
type LocalAuthenticator struct{}

var _ Authenticator = LocalAuthenticator{}

func (LocalAuthenticator) Login(_ context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	return uuid.NewString(), nil
}
