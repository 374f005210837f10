package ui

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdor/preview/internal/ui/features"
)

func newTestServer(t *testing.T, backend http.Handler, dev bool) (*Server, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t, backend)
	s := NewServer(Config{
		Fetcher:       fixture.Fetcher,
		DoctorID:      "mock-doctor",
		Dev:           dev,
		SessionSecret: "test-secret-key-32-bytes-long!!",
		Logger:        fixture.Logger,
	})
	return s, fixture
}

func newExpect(t *testing.T, s *Server) *httpexpect.Expect {
	t.Helper()

	handler, err := s.Handler()
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return httpexpect.Default(t, srv.URL)
}

func TestServer_PageThenMount(t *testing.T) {
	s, fixture := newTestServer(t, features.RespondWith(http.StatusOK, features.SampleMetricsJSON), false)
	e := newExpect(t, s)

	page := e.GET("/").Expect().Status(http.StatusOK)
	page.Header("Content-Type").Contains("text/html")
	body := page.Body()
	body.Contains("Doctor — Home")
	body.Contains("/doctor/mock-doctor/metrics")
	body.Contains("Patient: sample")
	body.NotContains("/reload")
	assert.Equal(t, 0, fixture.Fetcher.Calls())

	mount := e.GET("/doctor/mock-doctor/metrics").Expect().Status(http.StatusOK)
	mount.Header("Content-Type").Contains("text/event-stream")
	mount.Body().Contains("Patient: abcdef").Contains("Visit 5 • consultation • clinic").NotContains("data-init")
	assert.Equal(t, 1, fixture.Fetcher.Calls())
}

func TestServer_MountFailureSendsNoPatch(t *testing.T) {
	s, fixture := newTestServer(t, features.RespondWith(http.StatusNotFound, `{"detail":"Not Found"}`), false)
	e := newExpect(t, s)

	e.GET("/doctor/mock-doctor/metrics").Expect().
		Status(http.StatusOK).
		Body().NotContains("event:")
	assert.Equal(t, 1, fixture.Fetcher.Calls())
}

func TestServer_SessionRemembersDoctor(t *testing.T) {
	s, _ := newTestServer(t, features.RespondWith(http.StatusOK, "{}"), false)
	e := newExpect(t, s)

	first := e.GET("/").WithQuery("doctor", "dr-house").Expect().Status(http.StatusOK)
	cookie := first.Cookie("docdor").Value().Raw()

	e.GET("/").WithCookie("docdor", cookie).Expect().
		Status(http.StatusOK).
		Body().Contains("/doctor/dr-house/metrics")
}

func TestServer_StaticAssets(t *testing.T) {
	s, _ := newTestServer(t, features.RespondWith(http.StatusOK, "{}"), false)
	e := newExpect(t, s)

	e.GET("/static/app.css").Expect().
		Status(http.StatusOK).
		Body().Contains(".doctor")
}

func TestServer_DevRoutes(t *testing.T) {
	prod, _ := newTestServer(t, features.RespondWith(http.StatusOK, "{}"), false)
	newExpect(t, prod).GET("/hotreload").Expect().Status(http.StatusNotFound)

	dev, _ := newTestServer(t, features.RespondWith(http.StatusOK, "{}"), true)
	assert.True(t, dev.IsDev())

	e := newExpect(t, dev)
	e.GET("/").Expect().Status(http.StatusOK).Body().Contains("/reload")
	e.GET("/hotreload").Expect().Status(http.StatusOK).Body().IsEqual("OK")
}

func TestServer_HotReloadPingsSubscribers(t *testing.T) {
	s, _ := newTestServer(t, features.RespondWith(http.StatusOK, "{}"), true)
	e := newExpect(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := s.Notifier().Subscribe(ctx)

	e.GET("/hotreload").Expect().Status(http.StatusOK)

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("hot reload did not reach subscribers")
	}
}

func TestServer_ServeListenerShutsDown(t *testing.T) {
	s, _ := newTestServer(t, features.RespondWith(http.StatusOK, "{}"), false)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_WatchFilesBroadcasts(t *testing.T) {
	s, _ := newTestServer(t, features.RespondWith(http.StatusOK, "{}"), true)
	s.watchDir = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := s.Notifier().Subscribe(ctx)

	done := make(chan error, 1)
	go func() { done <- s.watchFiles(ctx) }()

	// Give the watcher a moment to register the directory.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(s.watchDir, "app.css"), []byte("body{}"), 0o600)
		select {
		case <-updates:
			return true
		default:
			return false
		}
	}, 3*time.Second, 150*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
