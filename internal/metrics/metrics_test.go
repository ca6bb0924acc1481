package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lomoval/sharedcal/internal/metrics"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.Applied(metrics.SourceFeed, "insert", true)
	m.Applied(metrics.SourceFeed, "insert", false)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.ObserveRequest("http", "GET /calendars/{id}", "200", 10*time.Millisecond)
	m.PublishFailed("delete")
	m.RetentionRemoved(3)

	body := scrape(t, m.Handler())
	require.Contains(t, body, `sharedcal_store_applies_total{kind="insert",result="applied",source="feed"} 1`)
	require.Contains(t, body, `sharedcal_store_applies_total{kind="insert",result="ignored",source="feed"} 1`)
	require.Contains(t, body, "sharedcal_open_sessions 1")
	require.Contains(t, body, `sharedcal_feed_publish_failures_total{kind="delete"} 1`)
	require.Contains(t, body, "sharedcal_retention_removed_events_total 3")
	require.Contains(t, body, "sharedcal_request_duration_seconds_bucket")
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics
	m.Applied(metrics.SourceLocal, "delete", true)
	m.SessionOpened()
	m.SessionClosed()
	m.ObserveRequest("grpc", "/sharedcal.Calendar/GetDay", "OK", time.Second)
	m.PublishFailed("insert")
	m.RetentionRemoved(1)
	require.NotNil(t, m.Handler())
}
