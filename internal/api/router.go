package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rmoldovan/taskgate/internal/auth"
	"github.com/rmoldovan/taskgate/internal/metrics"
	"github.com/rmoldovan/taskgate/internal/task"
)

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Users          UserStore
	Tasks          *task.Service
	Tokens         TokenService
	Metrics        *metrics.Metrics
	DB             Pinger
	AllowedOrigins []string
}

// TokenService combines issuing (login) and verification (identity
// resolution) of bearer tokens.
type TokenService interface {
	TokenIssuer
	auth.TokenVerifier
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware. Identity resolution runs on every request and
	// never rejects by itself; handlers decide what anonymity means.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	r.Use(auth.Middleware(deps.Tokens, deps.Users))

	authH := newAuthHandler(deps.Users, deps.Tokens, deps.Metrics)
	tasksH := newTasksHandler(deps.Tasks, deps.Metrics)

	r.Get("/health", healthHandler(deps.DB))
	if deps.Metrics != nil {
		r.Get("/metrics", deps.Metrics.Handler())
	}

	r.Route("/api/auth", func(ar chi.Router) {
		ar.Post("/login", authH.Login)
		ar.Post("/register", authH.Register)
	})

	r.Route("/api/tasks", func(tr chi.Router) {
		tr.Get("/", tasksH.List)
		tr.Post("/", tasksH.Create)
		tr.Get("/assignable-users", tasksH.AssignableUsers)
		tr.Get("/stats", tasksH.Stats)
		tr.Get("/{id}", tasksH.Get)
		tr.Put("/{id}", tasksH.Update)
		tr.Delete("/{id}", tasksH.Delete)
		tr.Patch("/{id}/complete", tasksH.UpdateCompletion)
	})

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "connected"
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				status = "unreachable"
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"database": status,
		})
	}
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}
