package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/shantanuk7/prism-film-observatory/internal/handlers/userctx"
	"github.com/shantanuk7/prism-film-observatory/internal/models"
)

func TestRequireRoles(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Put principal with given role into the request context, like AuthMiddleware would
	withPrincipal := func(role models.Role, next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := userctx.New(r.Context(), models.Principal{UserID: uuid.New(), Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	do := func(t *testing.T, h http.Handler) *http.Response {
		t.Helper()

		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() }) // nolint:errcheck
		return resp
	}

	t.Run("allowed role passes", func(t *testing.T) {
		guard := RequireRoles(models.RoleAdmin, models.RoleContributor)

		resp := do(t, withPrincipal(models.RoleAdmin, guard(okHandler)))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "ok", string(body))
	})

	t.Run("excluded role gets 403", func(t *testing.T) {
		guard := RequireRoles(models.RoleAdmin)

		resp := do(t, withPrincipal(models.RoleObserver, guard(okHandler)))

		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("empty set allows any authenticated principal", func(t *testing.T) {
		guard := RequireRoles()

		resp := do(t, withPrincipal(models.RoleObserver, guard(okHandler)))

		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("no principal in context gets 401", func(t *testing.T) {
		guard := RequireRoles(models.RoleAdmin)

		resp := do(t, guard(okHandler))

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unrecognized role fails at construction", func(t *testing.T) {
		require.Panics(t, func() {
			RequireRoles(models.Role("superuser"))
		})
	})
}
