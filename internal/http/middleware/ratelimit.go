package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ulule/limiter/v3"
	stdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	apierrors "github.com/edubloom/edubloom-api/internal/errors"
	logctx "github.com/edubloom/edubloom-api/internal/pkg/log"
)

// RateLimit ограничивает частоту запросов с одного IP (in-memory store).
// rate в формате ulule/limiter: "100-M", "1000-H", "50-S". Пустая строка отключает лимитер.
func RateLimit(rate string) (Middleware, error) {
	const op = "middleware.RateLimit"

	if rate == "" {
		return noop, nil
	}

	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	instance := limiter.New(memory.NewStore(), parsed)
	mw := stdlib.NewMiddleware(instance,
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			logctx.From(r.Context()).Warn("rate_limited", slog.String("path", r.URL.Path))
			apierrors.WriteError(w, r, apierrors.ErrRateLimited)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logctx.From(r.Context()).Error("rate_limiter_failed", slog.String("err", err.Error()))
			apierrors.WriteError(w, r, err)
		}),
	)

	return mw.Handler, nil
}

func noop(next http.Handler) http.Handler {
	return next
}
