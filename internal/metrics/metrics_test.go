package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEntry(t *testing.T) {
	m := New()
	m.RecordEntry("photometry", "insert", "applied")
	m.RecordEntry("photometry", "insert", "applied")
	m.RecordEntry("target", "delete", "skipped")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Entries.WithLabelValues("photometry", "insert", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Entries.WithLabelValues("target", "delete", "skipped")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Entries))
}

func TestObserveRun(t *testing.T) {
	m := New()
	finished := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	m.ObserveRun(90*time.Second, 3, finished, false)
	assert.Equal(t, 90.0, testutil.ToFloat64(m.LastDuration))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Deferred))
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(m.LastSuccess))

	m.ObserveRun(time.Second, 0, finished.Add(time.Hour), true)
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(m.LastSuccess))
}

func TestRegistryExposition(t *testing.T) {
	m := New()
	m.RecordEntry("spectroscopy", "update", "deferred")

	expected := `
# HELP snexsync_entries_total Change-log entries processed, by entity, action and outcome
# TYPE snexsync_entries_total counter
snexsync_entries_total{action="update",entity="spectroscopy",outcome="deferred"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "snexsync_entries_total"))
}

type pushed struct {
	method, path, body string
}

func newGateway(t *testing.T) (*httptest.Server, *pushed) {
	t.Helper()
	got := &pushed{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got.method, got.path, got.body = r.Method, r.URL.Path, string(b)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestPush(t *testing.T) {
	srv, got := newGateway(t)

	m := New()
	m.RecordEntry("target", "insert", "applied")
	m.ObserveRun(time.Second, 0, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), false)
	require.NoError(t, m.Push(context.Background(), srv.URL, "snexsync"))

	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/metrics/job/snexsync", got.path)
	assert.Contains(t, got.body, "snexsync_entries_total")
	assert.Contains(t, got.body, "snexsync_last_success_timestamp_seconds")
}

func TestPush_AbortedRunKeepsLastSuccess(t *testing.T) {
	srv, got := newGateway(t)

	m := New()
	m.RecordEntry("target", "insert", "applied")
	m.ObserveRun(time.Second, 0, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), true)
	require.NoError(t, m.Push(context.Background(), srv.URL, "snexsync"))

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/metrics/job/snexsync", got.path)
	assert.Contains(t, got.body, "snexsync_last_run_duration_seconds")
	assert.NotContains(t, got.body, "snexsync_last_success_timestamp_seconds")
}

func TestPush_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "snexsync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}
