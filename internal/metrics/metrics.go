// metrics — Prometheus-коллекторы сервиса. Регистрируются в default registry
// и отдаются через promhttp.Handler() на /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы auth-событий.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edubloom_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	authEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edubloom_auth_events_total",
			Help: "Auth events by kind and outcome",
		},
		[]string{"event", "outcome"},
	)

	janitorDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edubloom_sessions_janitor_deleted_total",
			Help: "Expired sessions removed by the background janitor",
		},
	)
)

// ObserveHTTP фиксирует длительность обработки запроса.
// route — шаблон маршрута chi, а не сырой путь, чтобы не раздувать кардинальность.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// AuthEvent увеличивает счётчик события (login/refresh/logout/register/...).
func AuthEvent(event string, ok bool) {
	outcome := OutcomeFailure
	if ok {
		outcome = OutcomeSuccess
	}
	authEvents.WithLabelValues(event, outcome).Inc()
}

// JanitorDeleted учитывает число удалённых janitor'ом сессий.
func JanitorDeleted(n int64) {
	if n > 0 {
		janitorDeleted.Add(float64(n))
	}
}
