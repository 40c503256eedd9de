package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	mw "github.com/wardscope/wardscope/internal/api/middleware"
	"github.com/wardscope/wardscope/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	AdminAuth *mw.AdminAuth
	// RateLimit throttles uploads. Nil disables throttling.
	RateLimit      *mw.RateLimit
	AllowedOrigins []string

	HealthHandler      http.HandlerFunc
	UploadHandler      http.HandlerFunc
	UploadConfig       http.HandlerFunc
	QueueStatsHandler  http.HandlerFunc
	GetJobHandler      http.HandlerFunc
	CancelJobHandler   http.HandlerFunc
	ListReplays        http.HandlerFunc
	GetReplay          http.HandlerFunc
	CleanupHandler     http.HandlerFunc
	UploadStatsHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.ClientIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(corsHandler(deps.AllowedOrigins))

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Get("/api/v1/upload", orNotImplemented(deps.UploadConfig))
	r.With(rateLimited(deps.RateLimit)).Post("/api/v1/upload", orNotImplemented(deps.UploadHandler))

	// stats must be registered before the {id} pattern reads it as a job id
	r.Get("/api/v1/queue/stats", orNotImplemented(deps.QueueStatsHandler))
	r.Get("/api/v1/queue/{id}", orNotImplemented(deps.GetJobHandler))
	r.Delete("/api/v1/queue/{id}", orNotImplemented(deps.CancelJobHandler))

	r.Get("/api/v1/replays", orNotImplemented(deps.ListReplays))
	r.Get("/api/v1/replays/{matchId}", orNotImplemented(deps.GetReplay))

	admin := deps.AdminAuth
	if admin == nil {
		admin = mw.NewAdminAuth("")
	}

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(admin.Authenticate)

		r.Post("/api/v1/admin/cleanup", orNotImplemented(deps.CleanupHandler))
		r.Get("/api/v1/admin/cleanup", orNotImplemented(deps.UploadStatsHandler))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, response.CodeNotFound, "Route not found")
	})

	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}).Handler
}

func rateLimited(rl *mw.RateLimit) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Limit
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
