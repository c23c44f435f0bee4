package middleware

import (
	"context"
	"net/http"
	"strings"

	apierrors "github.com/edubloom/edubloom-api/internal/errors"
	"github.com/edubloom/edubloom-api/internal/models"
	logctx "github.com/edubloom/edubloom-api/internal/pkg/log"
	"github.com/edubloom/edubloom-api/internal/service"
)

// Authenticator восстанавливает личность по access-токену.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.Identity, error)
}

type identityKey struct{}

// WithIdentity кладёт личность вызывающего в контекст.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom достаёт личность вызывающего из контекста.
func IdentityFrom(ctx context.Context) (*models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*models.Identity)
	return id, ok && id != nil
}

// RequireAuth — Access Guard: требует "Authorization: Bearer <accessToken>".
// Отсутствующий или битый заголовок, невалидный, истёкший или отозванный
// токен дают одинаковый 401 unauthorized.
func RequireAuth(auth Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				apierrors.WriteError(w, r, service.ErrUnauthorized)
				return
			}

			id, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				apierrors.WriteError(w, r, service.ErrUnauthorized)
				return
			}

			ctx := WithIdentity(r.Context(), id)
			ctx = logctx.With(ctx, "user_id", id.UserID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
