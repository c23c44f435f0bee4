package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// Коллекторы глобальные, поэтому тесты сравнивают приращения, а не абсолютные значения.

func TestAuthEvent_CountsByOutcome(t *testing.T) {
	okBefore := testutil.ToFloat64(authEvents.WithLabelValues("metrics_test", OutcomeSuccess))
	failBefore := testutil.ToFloat64(authEvents.WithLabelValues("metrics_test", OutcomeFailure))

	AuthEvent("metrics_test", true)
	AuthEvent("metrics_test", false)
	AuthEvent("metrics_test", false)

	require.Equal(t, okBefore+1, testutil.ToFloat64(authEvents.WithLabelValues("metrics_test", OutcomeSuccess)))
	require.Equal(t, failBefore+2, testutil.ToFloat64(authEvents.WithLabelValues("metrics_test", OutcomeFailure)))
}

func TestJanitorDeleted_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(janitorDeleted)

	JanitorDeleted(0)
	JanitorDeleted(-3)
	JanitorDeleted(4)

	require.Equal(t, before+4, testutil.ToFloat64(janitorDeleted))
}

func TestObserveHTTP_RegistersSeries(t *testing.T) {
	ObserveHTTP(http.MethodGet, "/metrics-test/{id}", http.StatusOK, 10*time.Millisecond)

	require.GreaterOrEqual(t, testutil.CollectAndCount(httpRequestDuration), 1)
}
