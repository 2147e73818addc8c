package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/company-management/internal/auth"
	"github.com/frahmantamala/company-management/internal/company"
	"github.com/frahmantamala/company-management/internal/transport/middleware"
	"github.com/frahmantamala/company-management/internal/transport/swagger"
	"github.com/frahmantamala/company-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, userHandler *user.Handler, companyHandler *company.Handler, binder *company.TenantBinder, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	adminOnly := company.RequireRole(logger, company.RoleAdmin)
	adminOrFinancial := company.RequireRole(logger, company.RoleAdmin, company.RoleFinancial)

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check routes
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/signup", userHandler.Signup)
			sr.Post("/login", authHandler.Login)
			sr.Post("/refresh", authHandler.RefreshToken)
			sr.Post("/logout", authHandler.Logout)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			// Company onboarding and session routes stay outside the tenant
			// binder: they must work when the caller has no usable company.
			pr.Post("/companies", companyHandler.Create)
			pr.Post("/companies/switch", companyHandler.Switch)
			pr.Post("/companies/{id}/reactivate", companyHandler.Reactivate)

			// Tenant-bound routes
			pr.Group(func(br chi.Router) {
				br.Use(binder.Middleware)

				br.Get("/users/me", userHandler.GetCurrentUser)

				br.Route("/companies/current", func(cr chi.Router) {
					cr.With(adminOrFinancial).Get("/", companyHandler.GetCurrent)
					cr.With(adminOrFinancial).Put("/", companyHandler.UpdateCurrent)
					cr.With(adminOnly).Delete("/", companyHandler.DeactivateCurrent)

					cr.Group(func(mr chi.Router) {
						mr.Use(adminOnly)
						mr.Get("/members", companyHandler.ListMembers)
						mr.Post("/members", companyHandler.AddMember)
						mr.Patch("/members/{id}/deactivate", companyHandler.DeactivateMember)
						mr.Patch("/members/{id}/reactivate", companyHandler.ReactivateMember)
					})
				})
			})
		})
	})
}
