package api

import (
	"net/http"
	"time"

	"accounts_api/internal/api/handler"
	"accounts_api/internal/app/service"
	"accounts_api/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	accountService *service.AccountService,
	tokenService *service.TokenService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies the bearer token when present and puts claims in context.
	// Routes that require authentication add middleware.Authenticator on top.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Registration, login, refresh, own profile
	accountHandler := handler.NewAccountHandler(accountService, tokenService)
	accountHandler.RegisterRoutes(r)

	// Staff-gated account management
	adminHandler := handler.NewAdminHandler(accountService)
	r.Route("/admin/users", adminHandler.RegisterRoutes)

	// One-time first-admin bootstrap (public, self-gated)
	setupHandler := handler.NewSetupHandler(accountService)
	setupHandler.RegisterRoutes(r)

	return r
}
