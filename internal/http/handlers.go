package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"exptracker/internal/log"
	"exptracker/internal/manager"
	"exptracker/internal/session"
)

// handleIndex mounts a fresh manager and renders it.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id, m := s.views.Mount(r.Context(), session.NewCookieStorage(r))
	s.respond(w, r, NewHTMXResponse(), s.managerPage(id, m.View()))
}

// handleView re-renders a mounted manager without refetching.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id, m, ok := s.lookupView(w, r)
	if !ok {
		return
	}
	s.respond(w, r, NewHTMXResponse(), s.managerPage(id, m.View()))
}

func (s *Server) handleNewExpense(w http.ResponseWriter, r *http.Request) {
	s.handleModeChange(w, r, (*manager.Manager).HandleNewExpenseClick)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.handleModeChange(w, r, (*manager.Manager).HandleFormCancel)
}

func (s *Server) handleModeChange(w http.ResponseWriter, r *http.Request, change func(*manager.Manager)) {
	id, m, ok := s.lookupView(w, r)
	if !ok {
		return
	}
	if m.View().LoggedIn {
		change(m)
	}
	s.afterAction(w, r, id, m, NewHTMXResponse())
}

// handleAddExpense validates the submitted form and hands the expense to the
// manager. Input that cannot form an expense never reaches the API.
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	id, m, ok := s.lookupView(w, r)
	if !ok {
		return
	}
	if !m.View().LoggedIn {
		s.afterAction(w, r, id, m, NewHTMXResponse())
		return
	}

	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Invalid expense request body",
			log.NewFields().WithError(err).WithOperation(log.OpParse).ToSlice()...)
		BadRequestError("Invalid request format.").Write(w)
		return
	}

	e, form, problem := ParseExpenseForm(parser)
	if problem != "" {
		data := s.managerPage(id, m.View())
		data.Form = form
		data.FormError = problem
		s.respond(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), data)
		return
	}

	b := NewHTMXResponse()
	if m.HandleAddExpense(r.Context(), e) {
		b.TriggerExpensesChanged(len(m.View().Expenses))
	}
	s.afterAction(w, r, id, m, b)
}

// afterAction answers htmx with the re-rendered manager and plain browsers
// with a redirect back to the view.
func (s *Server) afterAction(w http.ResponseWriter, r *http.Request, id string, m *manager.Manager, b *HTMXResponseBuilder) {
	if wantsPartial(r) {
		s.respond(w, r, b, s.managerPage(id, m.View()))
		return
	}
	http.Redirect(w, r, "/views/"+id, http.StatusSeeOther)
}

// lookupView resolves the {id} path value. A missing view is answered with a
// redirect to / where a new one is mounted.
func (s *Server) lookupView(w http.ResponseWriter, r *http.Request) (string, *manager.Manager, bool) {
	id := r.PathValue("id")
	m, ok := s.views.Get(id, session.NewCookieStorage(r))
	if ok {
		return id, m, true
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "View not found, remounting", log.FieldViewID, id)
	if wantsPartial(r) {
		NewHTMXResponse().Header("HX-Redirect", "/").TriggerViewExpired().Write(w)
	} else {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
	return "", nil, false
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	})
}

// handleReady checks templates and the configured backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ready == nil:
		checks["backend"] = "not_checked"
	default:
		if err := s.ready(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	checks["views"] = map[string]any{"mounted": s.views.Len()}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.GetMetrics().ClientCount}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request, security and view metrics in plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP views_mounted Currently mounted expense views\n")
	fmt.Fprintf(w, "# TYPE views_mounted gauge\n")
	fmt.Fprintf(w, "views_mounted %d\n\n", s.views.Len())

	fmt.Fprintf(w, "# HELP rate_limit_rejected_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_rejected_total counter\n")
	fmt.Fprintf(w, "rate_limit_rejected_total %d\n\n", rateLimitMetrics.Rejected)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Requests rejected as suspicious\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Seconds since the server started\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.startedAt).Seconds())
}
