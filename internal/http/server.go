package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"neuralbudget/internal/budgetpage"
	"neuralbudget/internal/cache"
	"neuralbudget/internal/core"
	"neuralbudget/internal/log"
	appweb "neuralbudget/web"
)

// UserHeader carries the acting user. Requests without it act as the
// configured default user.
const UserHeader = "X-User-ID"

// BudgetAPI is the application surface the handlers drive.
type BudgetAPI interface {
	SetBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
	DeleteBudget(ctx context.Context, userID string, id int64) error
	Analysis(ctx context.Context, userID string) (core.Analysis, error)
	Categories(ctx context.Context, userID string) ([]core.DropdownOption, error)
	AddExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	Ping(ctx context.Context) error
}

type Options struct {
	Addr          string
	DefaultUserID string
	Logger        *log.Logger

	// RateLimit is the number of state-changing requests allowed per client
	// per minute.
	RateLimit int

	// MaxPageSessions and PageSessionTTL bound the open budgets pages kept
	// in memory.
	MaxPageSessions int
	PageSessionTTL  time.Duration
}

type Server struct {
	http.Server
	api         BudgetAPI
	templates   *template.Template
	defaultUser string
	limiter     *rateLimiter
	metrics     securityMetrics
	sessions    *budgetpage.Sessions
	logger      *log.Logger

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

// NewServer parses the embedded templates and configures routes, returning a
// ready-to-run server.
func NewServer(opts Options, api BudgetAPI) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 60
	}
	if opts.MaxPageSessions <= 0 {
		opts.MaxPageSessions = 1000
	}
	if opts.PageSessionTTL <= 0 {
		opts.PageSessionTTL = 30 * time.Minute
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		api:         api,
		templates:   tmpl,
		defaultUser: opts.DefaultUserID,
		limiter:     newRateLimiter(opts.RateLimit, time.Minute),
		sessions:    budgetpage.NewSessions(opts.MaxPageSessions, opts.PageSessionTTL),
		logger:      opts.Logger.WithComponent(log.ComponentHTTP),
	}

	r := chi.NewRouter()
	r.Use(log.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.securityMiddleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(static)))
	r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/budgets/set-budget/", http.StatusFound)
	})
	r.Route("/budgets", func(r chi.Router) {
		r.Get("/set-budget/", s.handleSetBudgetPage)
		r.Post("/set-budget/", s.handleSetBudget)
		r.Get("/get_budgets/", s.handleGetBudgets)
		r.HandleFunc("/delete_budget/", s.handleDeleteBudget)
		r.Post("/expenses/", s.handleAddExpense)
		r.Post("/smart-saver/", s.handleSmartSaver)

		r.Post("/session/", s.handleOpenSession)
		r.Get("/progress", s.handleProgress)
		r.Post("/progress/reset", s.handleProgressReset)
		r.Get("/progress/edit", s.handleProgressEdit)
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go s.limiter.run(ctx, 5*time.Minute)
	go cache.NewJanitor(time.Minute, s.logger.Logger, s.sessions).Run(ctx)

	return s, nil
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		hits, suspicious := s.securityCounts()
		s.logger.Info("HTTP server stopping",
			"rate_limit_hits", hits,
			"suspicious_requests", suspicious,
			"open_page_sessions", s.sessions.Len(),
		)
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) securityCounts() (rateLimitHits, suspicious int64) {
	return atomic.LoadInt64(&s.metrics.rateLimitHits), atomic.LoadInt64(&s.metrics.suspiciousRequests)
}

func (s *Server) userID(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get(UserHeader)); u != "" {
		return u
	}
	return s.defaultUser
}

var templateFuncs = template.FuncMap{
	"money": core.FormatRupees,
	"tier":  core.TierFor,
}
