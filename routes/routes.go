package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/orders-backend/app"
	"github.com/upb/orders-backend/handlers"
	"github.com/upb/orders-backend/middleware"
	"github.com/upb/orders-backend/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(deps.TrustedProxies))
	r.Use(middleware.Instrument(deps.Metrics, deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Logger)
	authHandler := handlers.NewAuthHandler(deps.AccountService, deps.Logger)
	orderHandler := handlers.NewOrderHandler(deps.OrderService, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		// Password accounts
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.Throttle(deps.RateLimiter, "signup", deps.Metrics, deps.Logger)).
				Post("/signup", authHandler.HandleSignup)
			r.With(middleware.Throttle(deps.RateLimiter, "login", deps.Metrics, deps.Logger)).
				Post("/login", authHandler.HandleLogin)
		})

		// Bearer token required
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/me", authHandler.HandleMe)
			r.Get("/orders", orderHandler.HandleListOrders)
			r.Post("/orders", orderHandler.HandleCreateOrder)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}

// MetricsHandler serves the Prometheus registry on its own listener
func MetricsHandler(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Handle("/metrics", deps.Metrics.Handler())
	return r
}
