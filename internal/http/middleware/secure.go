package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureOptions — заголовки безопасности для JSON API.
// В dev-окружении unrolled/secure пропускает HSTS и проверки хоста.
func SecureOptions(isDevelopment bool) secure.Options {
	return secure.Options{
		IsDevelopment:         isDevelopment,
		ContentTypeNosniff:    true,
		FrameDeny:             true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
	}
}

// Secure добавляет заголовки безопасности к каждому ответу.
func Secure(opts secure.Options) Middleware {
	s := secure.New(opts)
	return func(next http.Handler) http.Handler {
		return s.Handler(next)
	}
}
