package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORS разрешает браузерные запросы с перечисленных источников.
// Refresh-токен ходит в cookie, поэтому credentials разрешены и "*" как
// источник не выставляется: "*" в списке означает эхо любого Origin.
// Пустой список отключает CORS-заголовки.
func CORS(allowedOrigins []string) Middleware {
	if len(allowedOrigins) == 0 {
		return noop
	}

	opts := cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", HeaderRequestID, "X-Refresh-Token"},
		ExposedHeaders:   []string{HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if slices.Contains(allowedOrigins, "*") {
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	}

	return cors.Handler(opts)
}
