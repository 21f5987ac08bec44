package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shantanuk7/prism-film-observatory/internal/handlers/render"
	"github.com/shantanuk7/prism-film-observatory/internal/handlers/userctx"
	"github.com/shantanuk7/prism-film-observatory/internal/models"
)

type authService interface {
	// Verify the access token and return the principal encoded in it
	Authenticate(ctx context.Context, access string) (models.Principal, error)
}

// AuthMiddleware verifies the bearer access token and puts the principal
// into the request context
// Every failure (missing header, malformed, expired, bad signature) answers
// with the same 401, the cause is not distinguishable from outside
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			principal, err := as.Authenticate(r.Context(), token)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	const scheme = "Bearer "
	if !strings.HasPrefix(header, scheme) {
		return "", false
	}

	token := header[len(scheme):]
	if token == "" {
		return "", false
	}

	return token, true
}
