package middleware

import (
	"fmt"
	"net/http"

	"github.com/shantanuk7/prism-film-observatory/internal/handlers/render"
	"github.com/shantanuk7/prism-film-observatory/internal/handlers/userctx"
	"github.com/shantanuk7/prism-film-observatory/internal/models"
)

// RequireRoles lets a request through only when the principal's role is in
// the allowed set. An empty set allows any authenticated principal.
// Must be chained strictly after AuthMiddleware.
//
// Panics at construction on a role outside the closed set: a misspelled role
// is a programming error at wiring time, not a runtime condition to deny
// requests on silently
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	for _, role := range roles {
		if !role.Valid() {
			panic(fmt.Sprintf("middleware: unrecognized role %q", role))
		}
	}

	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := userctx.FromContext(r.Context())
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if _, ok := allowed[principal.Role]; len(allowed) > 0 && !ok {
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
