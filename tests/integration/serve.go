package integration

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/shantanuk7/prism-film-observatory/internal/handlers"
	"github.com/shantanuk7/prism-film-observatory/internal/logger"
	"github.com/shantanuk7/prism-film-observatory/internal/repository/postgres"
	"github.com/shantanuk7/prism-film-observatory/internal/service/auth"
	"github.com/shantanuk7/prism-film-observatory/internal/service/auth/tokenmanager"
)

type Services struct {
	AuthService *auth.AuthService
	Mailer      *CaptureMailer
}

// Run the whole auth stack against the given pool and serve it over httptest
// The pool is shared, so tests have to use unique usernames and emails
func Serve(dbpool *pgxpool.Pool, t *testing.T, cfg auth.Config, fn func(srvURL string, s Services)) {
	t.Helper()

	userRepo := &postgres.UserRepo{DB: dbpool}
	refreshRepo := &postgres.RefreshTokenRepo{DB: dbpool}

	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"}, refreshRepo)
	require.NoError(t, err, "token manager should be created without errors")

	mail := &CaptureMailer{}
	cfg.Mailer = mail
	cfg.Logger = logger.NewNoOp()

	authService, err := auth.NewService(cfg, tokenManager, userRepo, refreshRepo)
	require.NoError(t, err, "auth service starting error")

	router := handlers.NewRouter(authService, logger.NewNoOp())

	srv := httptest.NewServer(router)
	defer srv.Close()

	fn(srv.URL, Services{AuthService: authService, Mailer: mail})
}
