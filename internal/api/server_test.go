package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pricefeed/fixprice-crawler/internal/progress"
)

func newTestServer(t *testing.T) (*Server, *progress.Tracker) {
	t.Helper()
	tracker := progress.NewTracker(time.Unix(1700000000, 0).UTC())
	return NewServer(tracker, zaptest.NewLogger(t)), tracker
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProgressEndpoint(t *testing.T) {
	t.Parallel()

	srv, tracker := newTestServer(t)
	tracker.CategoryStarted("posuda")
	tracker.PageFetched("posuda")
	tracker.RecordsExtracted("posuda", 24)
	tracker.CategoryFinished("posuda", "completed")
	tracker.CategoryStarted("igrushki")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap progress.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Categories, 2)
	// Sorted by slug.
	assert.Equal(t, "igrushki", snap.Categories[0].Slug)
	assert.Equal(t, "running", snap.Categories[0].Status)
	assert.Equal(t, "posuda", snap.Categories[1].Slug)
	assert.Equal(t, 1, snap.Categories[1].Pages)
	assert.Equal(t, 24, snap.Categories[1].Records)
	assert.Equal(t, "completed", snap.Categories[1].Status)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
