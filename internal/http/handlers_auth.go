package http

import (
	"errors"
	"net/http"

	"exptracker/internal/expenses"
	"exptracker/internal/log"
	"exptracker/internal/session"
)

const (
	msgInvalidCredentials = "Invalid username or password."
	msgLoginFailed        = "Login failed. Please try again later."
)

func loginPage(username, errMsg string) pageData {
	data := pageData{Title: "Log in", Page: "login", Username: username}
	data.Error = errMsg
	return data
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, NewHTMXResponse(), loginPage("", ""))
}

// handleLogin exchanges credentials for a token and stores it in the cookie
// the manager's session gate reads.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format.").Write(w)
		return
	}
	username := parser.Get("username")
	password := parser.Raw("password")

	token, err := s.auth.Login(r.Context(), username, password)
	if err != nil {
		logger := log.FromContext(r.Context())
		if errors.Is(err, expenses.ErrInvalidCredentials) {
			logger.InfoContext(r.Context(), "Login rejected", log.FieldOperation, log.OpLogin)
			s.respond(w, r, NewHTMXResponse().Status(http.StatusUnauthorized), loginPage(username, msgInvalidCredentials))
			return
		}
		logger.ErrorContext(r.Context(), "Login failed",
			log.NewFields().WithError(err).WithOperation(log.OpLogin).ToSlice()...)
		s.respond(w, r, NewHTMXResponse().Status(http.StatusBadGateway), loginPage(username, msgLoginFailed))
		return
	}

	session.SetToken(w, r, token)
	log.FromContext(r.Context()).InfoContext(r.Context(), "User logged in", log.FieldOperation, log.OpLogin)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout clears the token cookie and forgets the caller's view.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		if id := r.PostForm.Get("view"); id != "" {
			s.views.Drop(id, session.NewCookieStorage(r))
		}
	}
	session.ClearToken(w, r)
	log.FromContext(r.Context()).InfoContext(r.Context(), "User logged out", log.FieldOperation, log.OpLogout)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
