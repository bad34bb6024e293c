package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Logins.WithLabelValues(Outcome(nil)).Inc()
	m.Logins.WithLabelValues(Outcome(errors.New("x"))).Add(2)
	m.Revocations.Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Logins.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Logins.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Revocations))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := New()
	m.Refreshes.WithLabelValues(OutcomeSuccess).Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `tekxchange_auth_refreshes_total{outcome="success"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.Revocations.Inc()
	assert.Equal(t, float64(0), testutil.ToFloat64(b.Revocations))
}
