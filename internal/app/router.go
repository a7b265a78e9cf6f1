package app

import (
	"database/sql"
	"net/http"
	"time"

	"examscore/internal/app/observability"
	"examscore/internal/auth"
	"examscore/internal/exam"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(cfg Config, db *sql.DB, store exam.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", csrfHeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(CSRFMiddleware(cfg.CSRFEnforced, cfg.CookieSecure))

	authSvc := auth.NewService(db, auth.ServiceConfig{
		SessionTTL: time.Duration(cfg.SessionTTLMinutes) * time.Minute,
	})
	authHandler := auth.NewHandler(authSvc, cfg.CookieSecure)

	examHandler := exam.NewHandler(exam.NewService(store))

	authLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			public.Use(RateLimitMiddleware(authLimiter))
			public.Post("/auth/signup", authHandler.Signup)
			public.Post("/auth/login", authHandler.Login)
		})

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Get("/auth/me", authHandler.Me)
			secure.Post("/auth/logout", authHandler.Logout)

			secure.Get("/exams", examHandler.List)
			secure.Get("/exams/{code}", examHandler.GetByCode)
			secure.Post("/exams/{code}/submit", examHandler.SubmitByCode)
			secure.Post("/submissions", examHandler.Submit)

			secure.Group(func(lecturer chi.Router) {
				lecturer.Use(authHandler.RequireRoles(auth.RoleLecturer))
				lecturer.Post("/exams", examHandler.Create)
				lecturer.Post("/exams/import", examHandler.Import)
				lecturer.Get("/exams/{code}/export", examHandler.Export)
				lecturer.Get("/questions", examHandler.Questions)
			})
		})
	})

	return r
}
