// Package http serves the expense manager UI: a server-rendered page whose
// actions post back to the mounted view and get the re-rendered view in return.
package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"exptracker/internal/cache"
	"exptracker/internal/core"
	"exptracker/internal/expenses"
	"exptracker/internal/log"
	"exptracker/internal/manager"
	"exptracker/internal/middleware/ratelimit"
	"exptracker/internal/middleware/security"
	"exptracker/internal/middleware/trace"
	"exptracker/internal/session"
	"exptracker/internal/views"
	appweb "exptracker/web"
)

const viewCleanupInterval = time.Minute

// Options configures NewServer.
type Options struct {
	Addr               string
	Authenticator      expenses.Authenticator
	Ready              func(ctx context.Context) error
	Views              views.Config
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	views     *views.Registry
	auth      expenses.Authenticator
	ready     func(ctx context.Context) error
	logger    *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(api expenses.API, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	auth := opts.Authenticator
	if auth == nil {
		auth = expenses.LocalAuthenticator{}
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"euros": formatEuros,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:           opts.Addr,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16,
		},
		templates:    tmpl,
		views:        views.NewRegistry(api, opts.Views, logger),
		auth:         auth,
		ready:        opts.Ready,
		logger:       logger.WithComponent(log.ComponentHTTP),
		cacheManager: cache.NewManager(logger),
		startedAt:    time.Now(),
	}
	s.securityDetector = security.NewDetector(logger)
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}, logger)

	s.cacheManager.Register(s.views.Cleaner())
	s.cacheManager.StartCleanup(viewCleanupInterval)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /views/{id}", s.handleView)
	mux.HandleFunc("POST /views/{id}/new", s.handleNewExpense)
	mux.HandleFunc("POST /views/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /views/{id}/expenses", s.handleAddExpense)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.Handler = chain(mux,
		s.traceMiddleware.Middleware,
		s.securityDetector.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		postOnly(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP)),
		session.Middleware,
	)
	return s, nil
}

// chain wraps h so that the first middleware runs first.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// postOnly applies mw to POST requests and passes everything else straight through.
func postOnly(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// pageData is what the templates render. The embedded View drives the manager
// templates; the login page reuses LoggedIn and Error.
type pageData struct {
	manager.View
	Title       string
	Page        string
	ID          string
	LoginNotice string
	FormError   string
	Form        ExpenseForm
	Username    string
}

func (s *Server) managerPage(id string, v manager.View) pageData {
	return pageData{
		View:        v,
		Title:       "Expenses",
		Page:        "manager",
		ID:          id,
		LoginNotice: manager.MsgLoginNotice,
		Form:        ExpenseForm{Date: time.Now().Format(core.DateLayout)},
	}
}

// renderHTML executes the full layout, or just the page fragment for htmx requests.
func (s *Server) renderHTML(r *http.Request, data pageData) ([]byte, error) {
	name := "layout"
	if wantsPartial(r) {
		name = data.Page
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// respond renders data and writes it through b. Rendering failures become a 500.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, data pageData) {
	body, err := s.renderHTML(r, data)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.NewFields().WithError(err).WithOperation(log.OpRender).ToSlice()...)
		InternalServerError("Something went wrong rendering this page.").Write(w)
		return
	}
	b.BodyHTML(body).Write(w)
}
