package middleware

import (
	"net/http"
	"slices"

	apierrors "github.com/edubloom/edubloom-api/internal/errors"
	"github.com/edubloom/edubloom-api/internal/models"
	"github.com/edubloom/edubloom-api/internal/service"
)

// RequireRoles — Role Gate: пропускает вызывающих с одной из ролей allowed.
// SUPER_ADMIN проходит всегда. Без личности в контексте — 401, чужая роль — 403.
func RequireRoles(allowed ...models.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				apierrors.WriteError(w, r, service.ErrUnauthorized)
				return
			}

			if id.Role != models.RoleSuperAdmin && !slices.Contains(allowed, id.Role) {
				apierrors.WriteError(w, r, service.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
