package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/NgKhai/product-manager/internal/api/auth"
	"github.com/NgKhai/product-manager/internal/api/product"
	"github.com/NgKhai/product-manager/internal/api/user"
)

// Config carries the wired handlers and middleware the router mounts.
// Server-wide middleware (request id, logging, recoverer) is applied in
// main before this router is mounted.
type Config struct {
	Logger         *slog.Logger
	AuthHandler    *auth.AuthHandler
	ProductHandler *product.ProductHandler
	UserHandler    *user.UserHandler

	Authenticate func(http.Handler) http.Handler
	OptionalAuth func(http.Handler) http.Handler
	RequireAdmin func(http.Handler) http.Handler
}

// SetupRouter wires the API surface: public auth routes behind rate
// limits, product reads behind optional auth, everything else behind the
// mandatory gate.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/docs/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "docs/swagger.json")
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {

		// Public auth routes. Registration gets the tightest bucket, the
		// credential endpoints a slightly looser one, keyed by client IP.
		r.Group(func(r chi.Router) {
			r.With(httprate.LimitByIP(5, time.Minute)).
				Post("/auth/register", cfg.AuthHandler.Register)
			r.With(httprate.LimitByIP(10, time.Minute)).
				Post("/auth/login", cfg.AuthHandler.Login)
			r.With(httprate.LimitByIP(20, time.Minute)).
				Post("/auth/refresh", cfg.AuthHandler.Refresh)
		})

		// Protected auth routes.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)

			r.Post("/auth/logout", cfg.AuthHandler.Logout)
			r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)
			r.Get("/auth/me", cfg.AuthHandler.Me)
		})

		// Product reads are public, but an identified admin sees more.
		r.Group(func(r chi.Router) {
			r.Use(cfg.OptionalAuth)

			r.Get("/products", cfg.ProductHandler.List)
			r.Get("/products/{productID}", cfg.ProductHandler.Get)
		})

		// Product writes need an authenticated caller; ownership is
		// enforced in the service.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)

			r.Post("/products", cfg.ProductHandler.Create)
			r.Put("/products/{productID}", cfg.ProductHandler.Update)
			r.Delete("/products/{productID}", cfg.ProductHandler.Delete)
		})

		// Account management, self-or-admin rules in the service.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)

			r.Get("/users/{userID}", cfg.UserHandler.Get)
			r.Put("/users/{userID}", cfg.UserHandler.Update)
			r.Delete("/users/{userID}", cfg.UserHandler.Delete)
		})

		// Admin surface.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)
			r.Use(cfg.RequireAdmin)

			r.Get("/users", cfg.UserHandler.List)
			r.Delete("/products/{productID}/permanent", cfg.ProductHandler.HardDelete)
		})
	})

	return r
}
