package handlers

import (
	"context"
	"net/http"

	"github.com/shantanuk7/prism-film-observatory/internal/handlers/middleware"
	"github.com/shantanuk7/prism-film-observatory/internal/logger"
	"github.com/shantanuk7/prism-film-observatory/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// AuthService is everything the router needs from the auth core
type AuthService interface {
	authService
	adminService

	// Verify an access token, used by the session middleware
	Authenticate(ctx context.Context, access string) (models.Principal, error)
}

// NewRouter wires the auth surface
//
// The middleware chain is an explicit ordered list: logging wraps
// everything, authentication runs per protected route and the role guard
// strictly after it
func NewRouter(auth AuthService, l logger.Logger) http.Handler {
	withAuth := middleware.AuthMiddleware(auth)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	mux := http.NewServeMux()

	mux.Handle("POST /auth/signup", handleSignup(auth, l))
	mux.Handle("POST /auth/login", handleLogin(auth, l))
	mux.Handle("POST /auth/refresh", handleTokenRefresh(auth, l))
	mux.Handle("POST /auth/verify-email", handleVerifyEmail(auth, l))

	mux.Handle("POST /auth/logout", chain(handleLogout(auth, l), withAuth))
	mux.Handle("POST /auth/password", chain(handleChangePassword(auth, l), withAuth))
	mux.Handle("GET /auth/me", chain(handleUserMe(auth, l), withAuth))

	mux.Handle("GET /admin/users", chain(handleListUsers(auth, l), withAuth, adminOnly))

	return chain(mux,
		middleware.LoggerMiddleware(l),
	)
}
