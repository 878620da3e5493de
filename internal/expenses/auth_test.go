package expenses

import (
	"context"
	"errors"
	"testing"
)

func TestLocalAuthenticator(t *testing.T) {
	var a LocalAuthenticator

	tok1, err := a.Login(context.Background(), "ada", "pw")
	if err != nil || tok1 == "" {
		t.Fatalf("Login = %q, %v", tok1, err)
	}
	tok2, _ := a.Login(context.Background(), "ada", "pw")
	if tok1 == tok2 {
		t.Fatal("expected a fresh token per login")
	}

	for _, c := range [][2]string{{"", "pw"}, {"  ", "pw"}, {"ada", ""}} {
		if _, err := a.Login(context.Background(), c[0], c[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q, %q) err = %v", c[0], c[1], err)
		}
	}
}
