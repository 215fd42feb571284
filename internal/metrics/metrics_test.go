package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinshukkush/smartsplit/internal/metrics"
)

func TestMetrics(t *testing.T) {
	m := metrics.New()

	m.CommandApplied("addExpense", "ok")
	m.CommandApplied("addExpense", "ok")
	m.CommandApplied("addExpense", "validation")
	m.PersistenceFailed()
	m.SetEntities(map[string]int{"expenses": 3, "users": 2})

	count, err := testutil.GatherAndCount(m.Registry(), "smartsplit_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `smartsplit_commands_total{kind="addExpense",result="ok"} 2`)
	assert.Contains(t, body, "smartsplit_persistence_failures_total 1")
	assert.Contains(t, body, `smartsplit_snapshot_entities{kind="expenses"} 3`)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := metrics.New(), metrics.New()

	a.PersistenceFailed()

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Contains(t, rec.Body.String(), "smartsplit_persistence_failures_total 0")
}
