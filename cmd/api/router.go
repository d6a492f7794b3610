package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crucial707/spend-ledger/internal/cache"
	"github.com/crucial707/spend-ledger/internal/config"
	"github.com/crucial707/spend-ledger/internal/handlers"
	"github.com/crucial707/spend-ledger/internal/middleware"
	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/notify"
	"github.com/crucial707/spend-ledger/internal/repo"
	"github.com/crucial707/spend-ledger/internal/scheduler"
)

const (
	reportCacheItems = 10_000
	limiterIdle      = 10 * time.Minute
)

// newRouter wires stores, handlers and middleware. The returned jobs keep the in-memory
// state of the router bounded and must be scheduled by the caller.
func newRouter(db *sql.DB, cfg config.Config) (http.Handler, []scheduler.Job) {
	secret := []byte(cfg.JWTSecret)

	// Repos
	audit := repo.NewAuditRepo(db)
	companies := repo.NewCompanyRepo(db)
	users := repo.NewUserRepo(db)
	categories := repo.NewCategoryRepo(db, audit)
	expenses := repo.NewExpenseRepo(db, audit)
	apiKeys := repo.NewApiKeyRepo(db)
	history := cache.New[string, []models.CategoryTotal](cfg.ReportCacheTTL, reportCacheItems)
	reports := repo.NewReportRepo(db, history)
	expenses.Changed = reports.InvalidateCompany
	categories.Changed = reports.InvalidateCompany
	if cfg.MaxPageSize > 0 {
		audit.MaxPageSize = cfg.MaxPageSize
		users.MaxPageSize = cfg.MaxPageSize
		expenses.MaxPageSize = cfg.MaxPageSize
	}

	// Handlers
	authHandler := &handlers.AuthHandler{
		Companies: companies,
		Users:     users,
		Secret:    secret,
		TokenTTL:  time.Duration(cfg.JWTExpireHours) * time.Hour,
	}
	companyHandler := &handlers.CompanyHandler{Repo: companies}
	mailer := notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		AppURL:   cfg.AppURL,
	})
	userHandler := &handlers.UserHandler{Repo: users, Companies: companies, Notifier: mailer}
	categoryHandler := &handlers.CategoryHandler{Repo: categories}
	expenseHandler := &handlers.ExpenseHandler{Repo: expenses}
	reportHandler := &handlers.ReportHandler{Repo: reports, Now: time.Now}
	auditHandler := &handlers.AuditHandler{Repo: audit}
	apiKeyHandler := &handlers.ApiKeyHandler{Repo: apiKeys}

	authLimiter := middleware.AuthRateLimiter()
	keyLimiter := middleware.APIKeyRateLimiter()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	r.Get("/health", handlers.Health)
	r.Get("/ready", handlers.Ready(db))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
	})

	// JWT only
	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTMiddleware(secret, users))

		r.Get("/auth/me", authHandler.Me)
		r.Put("/auth/me", authHandler.UpdateMe)

		r.Get("/companies/me", companyHandler.Get)
		r.With(middleware.RequireAdmin).Put("/companies/me", companyHandler.Update)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers)
			r.With(middleware.RequireAdmin).Post("/", userHandler.CreateUser)
			r.With(middleware.RequireAdmin).Delete("/{id}", userHandler.DeactivateUser)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", categoryHandler.CreateCategory)
			r.Get("/", categoryHandler.ListCategories)
			r.Get("/{id}", categoryHandler.GetCategory)
			r.Put("/{id}", categoryHandler.UpdateCategory)
			r.Delete("/{id}", categoryHandler.DeleteCategory)
		})

		// Report paths are static and take precedence over /expenses/{id}.
		r.Get("/expenses/top-categories", reportHandler.TopCategories)
		r.Get("/expenses/monthly-summary", reportHandler.MonthlySummary)
		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", expenseHandler.CreateExpense)
			r.Get("/", expenseHandler.ListExpenses)
			r.Get("/{id}", expenseHandler.GetExpense)
			r.Put("/{id}", expenseHandler.UpdateExpense)
			r.Delete("/{id}", expenseHandler.DeleteExpense)
		})

		r.Route("/api-keys", func(r chi.Router) {
			r.Post("/", apiKeyHandler.CreateKey)
			r.Get("/", apiKeyHandler.ListKeys)
			r.Delete("/{id}", apiKeyHandler.DeleteKey)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/", auditHandler.ListAudit)
			r.Get("/actions", auditHandler.ListActions)
			r.Get("/entity-types", auditHandler.ListEntityTypes)
			r.Get("/{id}", auditHandler.GetAudit)
		})
	})

	// JWT or api key
	r.With(middleware.DualAuth(secret, users, apiKeys)).
		Get("/expenses/by-category", reportHandler.ByCategory)

	// Api key only
	r.With(middleware.APIKeyMiddleware(apiKeys), keyLimiter.Middleware).
		Get("/expenses/top-categories-history", reportHandler.TopCategoriesHistory)

	jobs := []scheduler.Job{
		scheduler.SweepJob("report-cache", scheduler.Every(time.Minute), history.CleanExpired),
		scheduler.SweepJob("auth-limiter", scheduler.Every(time.Minute), func() int { return authLimiter.Sweep(limiterIdle) }),
		scheduler.SweepJob("api-key-limiter", scheduler.Every(time.Minute), func() int { return keyLimiter.Sweep(limiterIdle) }),
	}
	return r, jobs
}
