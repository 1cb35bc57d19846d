package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/rallyauth/internal/metrics"
)

// counterValue finds the value of a counter series by name and, when
// outcome is set, by its outcome label.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if outcome == "" {
				return m.GetCounter().GetValue()
			}
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{outcome=%q} not found", name, outcome)
	return 0
}

func TestCollector_CountsOutcomes(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.ObserveLogin(metrics.OutcomeSuccess)
	c.ObserveLogin(metrics.OutcomeSuccess)
	c.ObserveLogin(metrics.OutcomeRejected)
	c.ObserveRefresh(metrics.OutcomeError)
	c.ObserveVerify(metrics.OutcomeSuccess)
	c.UserCreated()

	// one series per outcome
	count, err := testutil.GatherAndCount(reg, "rallyauth_logins_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	count, err = testutil.GatherAndCount(reg, "rallyauth_refreshes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// counter values
	assert.Equal(t, float64(2), counterValue(t, reg, "rallyauth_logins_total", metrics.OutcomeSuccess))
	assert.Equal(t, float64(1), counterValue(t, reg, "rallyauth_logins_total", metrics.OutcomeRejected))
	assert.Equal(t, float64(1), counterValue(t, reg, "rallyauth_refreshes_total", metrics.OutcomeError))
	assert.Equal(t, float64(1), counterValue(t, reg, "rallyauth_verifications_total", metrics.OutcomeSuccess))
	assert.Equal(t, float64(1), counterValue(t, reg, "rallyauth_users_created_total", ""))
}

func TestCollector_NilIsNoop(t *testing.T) {
	t.Parallel()
	var c *metrics.Collector

	// every method tolerates a nil collector
	assert.NotPanics(t, func() {
		c.ObserveLogin(metrics.OutcomeSuccess)
		c.ObserveRefresh(metrics.OutcomeSuccess)
		c.ObserveVerify(metrics.OutcomeSuccess)
		c.UserCreated()
		c.ObserveHTTP("/health", http.MethodGet, http.StatusOK, time.Millisecond)
	})
}

func TestHandler_ServesMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.ObserveHTTP("/api/v1/auth/login", http.MethodPost, http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// scrape output includes the histogram
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rallyauth_http_request_duration_seconds")
	assert.Contains(t, string(body), `route="/api/v1/auth/login"`)
}
