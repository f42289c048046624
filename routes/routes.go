package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/newsroom-api/app"
	"github.com/upb/newsroom-api/middleware"
	"github.com/upb/newsroom-api/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// Credentials are allowed so the session cookie travels cross-origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.StatelessHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	r.Group(func(r chi.Router) {
		r.Use(deps.SessionMiddleware.LoadSession)
		r.Use(deps.AuthMiddleware.ResolveAuth)

		r.Method(http.MethodGet, "/graphql", deps.GraphQLHandler)
		r.Method(http.MethodPost, "/graphql", deps.GraphQLHandler)
		r.Get("/auth/session", deps.AuthHandler.HandleSession)
	})

	// Logout skips token resolution so expired or revoked tokens can still
	// clear their session
	r.With(deps.SessionMiddleware.LoadSession).Post("/auth/logout", deps.AuthHandler.HandleLogout)

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "endpoint not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
