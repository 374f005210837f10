// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/docdor/preview/internal/metrics"
	"github.com/docdor/preview/internal/testutil"
	"github.com/docdor/preview/internal/ui/notifier"
)

// SampleMetricsJSON is the backend response used throughout the UI tests.
const SampleMetricsJSON = `{
	"totals": {"appointments": 42, "completed": 10},
	"upcoming": [{"patient_id": "abcdef1234", "visit_count": 5, "visit_kind": "consultation", "type": "clinic"}]
}`

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Backend      *httptest.Server
	Fetcher      *CountingFetcher
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
	Logger       *slog.Logger
}

// SetupTestFixture starts a fake metrics backend served by backend and wires
// a real metrics client to it.
func SetupTestFixture(t *testing.T, backend http.Handler) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client := metrics.NewClient(metrics.ClientConfig{
		BaseURL: srv.URL,
		Logger:  logger,
	})

	return &TestFixture{
		Backend:      srv,
		Fetcher:      &CountingFetcher{Next: client},
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
		Logger:       logger,
	}
}

// RespondWith returns a backend handler answering every request with status and body.
func RespondWith(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// CountingFetcher counts DoctorMetrics calls before delegating to Next.
type CountingFetcher struct {
	Next  metrics.Fetcher
	calls atomic.Int32
	last  atomic.Value
}

// DoctorMetrics implements metrics.Fetcher.
func (f *CountingFetcher) DoctorMetrics(ctx context.Context, doctorID string) (*metrics.Metrics, error) {
	f.calls.Add(1)
	f.last.Store(doctorID)
	return f.Next.DoctorMetrics(ctx, doctorID)
}

// Calls returns how many fetches were made.
func (f *CountingFetcher) Calls() int {
	return int(f.calls.Load())
}

// LastDoctorID returns the doctor of the most recent fetch.
func (f *CountingFetcher) LastDoctorID() string {
	id, _ := f.last.Load().(string)
	return id
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
