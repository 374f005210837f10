package home

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdor/preview/internal/ui/features"
	"github.com/docdor/preview/internal/ui/features/home/pages"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

const defaultDoctor = "mock-doctor"

func setupTestHandlers(t *testing.T, backend http.Handler) (*Handlers, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t, backend)

	handlers := NewHandlers(Options{
		Fetcher:      fixture.Fetcher,
		SessionStore: fixture.SessionStore,
		DoctorID:     defaultDoctor,
		Logger:       fixture.Logger,
		IsDev:        true,
	})

	return handlers, fixture
}

func mountRequest(ctx context.Context, doctorID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, MetricsPath(doctorID), nil).WithContext(ctx)
	return features.RequestWithPathParam(req, "doctorID", doctorID)
}

// =============================================================================
// HomePage Tests - full HTML with placeholder dashboard
// =============================================================================

func TestHomePage(t *testing.T) {
	h, fixture := setupTestHandlers(t, features.RespondWith(http.StatusOK, features.SampleMetricsJSON))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.HomePage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<!doctype html>",
		"<title>Preview - DocDor</title>",
		"Introducing",
		"DocDor — Unified Healthcare Platform",
		pages.HeroSceneURL,
		`id="doctor"`,
		"data-init",
		"/doctor/mock-doctor/metrics",
		"Total Appointments",
		"Patient: sample",
		"Visit 1 • consultation • clinic",
		"Visit 3 • consultation • clinic",
		`id="reception"`,
		`id="patient"`,
		"Prescription Workflow",
		`href="/test"`,
		`href="https://docs.google.com" target="_blank"`,
		"/reload",
	} {
		assert.Contains(t, body, want, "response should contain %q", want)
	}

	assert.Equal(t, 0, fixture.Fetcher.Calls(), "page render must not fetch metrics")
}

func TestHomePage_SectionOrder(t *testing.T) {
	h, _ := setupTestHandlers(t, features.RespondWith(http.StatusOK, "{}"))

	rec := httptest.NewRecorder()
	h.HomePage(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	hero := strings.Index(body, `class="hero"`)
	doctor := strings.Index(body, `id="doctor"`)
	grid := strings.Index(body, `class="wireframes"`)
	footer := strings.Index(body, `class="footer-links"`)

	require.True(t, hero >= 0 && doctor >= 0 && grid >= 0 && footer >= 0)
	assert.Less(t, hero, doctor)
	assert.Less(t, doctor, grid)
	assert.Less(t, grid, footer)
}

func TestHomePage_DoctorResolution(t *testing.T) {
	h, _ := setupTestHandlers(t, features.RespondWith(http.StatusOK, "{}"))

	// First visit picks the doctor from the query string.
	rec := httptest.NewRecorder()
	h.HomePage(rec, httptest.NewRequest(http.MethodGet, "/?doctor=dr-house", nil))
	assert.Contains(t, rec.Body.String(), "/doctor/dr-house/metrics")

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "resolved doctor should be stored in the session")

	// Second visit without the query string reuses the session.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.HomePage(rec, req)
	assert.Contains(t, rec.Body.String(), "/doctor/dr-house/metrics")

	// The query string wins over the session.
	req = httptest.NewRequest(http.MethodGet, "/?doctor=dr-who", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.HomePage(rec, req)
	assert.Contains(t, rec.Body.String(), "/doctor/dr-who/metrics")
	assert.NotContains(t, rec.Body.String(), "/doctor/dr-house/metrics")
}

func TestHomePage_UnreadableSessionFallsBackToDefault(t *testing.T) {
	h, _ := setupTestHandlers(t, features.RespondWith(http.StatusOK, "{}"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionName, Value: "not-a-valid-cookie"})
	rec := httptest.NewRecorder()

	h.HomePage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/doctor/mock-doctor/metrics")
}

// =============================================================================
// DoctorMetrics Tests - SSE mount
// =============================================================================

func TestDoctorMetrics_Loaded(t *testing.T) {
	h, fixture := setupTestHandlers(t, features.RespondWith(http.StatusOK, features.SampleMetricsJSON))

	rec := httptest.NewRecorder()
	h.DoctorMetrics(rec, mountRequest(context.Background(), defaultDoctor))

	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event:"), "exactly one patch expected")
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, `id="doctor"`)
	assert.Contains(t, body, ">42<")
	assert.Contains(t, body, ">10<")
	assert.Contains(t, body, "Patient: abcdef")
	assert.NotContains(t, body, "abcdef1")
	assert.Contains(t, body, "Visit 5 • consultation • clinic")
	assert.NotContains(t, body, "data-init", "patched fragment must not trigger another fetch")

	assert.Equal(t, 1, fixture.Fetcher.Calls())
	assert.Equal(t, defaultDoctor, fixture.Fetcher.LastDoctorID())
}

func TestDoctorMetrics_PartialResponse(t *testing.T) {
	h, _ := setupTestHandlers(t, features.RespondWith(http.StatusOK, `{"totals":{"appointments":3}}`))

	rec := httptest.NewRecorder()
	h.DoctorMetrics(rec, mountRequest(context.Background(), defaultDoctor))

	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event:"))
	assert.Contains(t, body, ">3<")
	assert.Contains(t, body, ">--<")
	assert.Contains(t, body, "Patient: sample")
	assert.Contains(t, body, "Visit 2 • consultation • clinic")
}

func TestDoctorMetrics_WrongTypedTotalKeepsUpcoming(t *testing.T) {
	body := `{
		"totals": {"appointments": "42", "completed": 10.0},
		"upcoming": [{"patient_id": "abcdef1234", "visit_count": 5, "visit_kind": "consultation", "type": "clinic"}]
	}`
	h, _ := setupTestHandlers(t, features.RespondWith(http.StatusOK, body))

	rec := httptest.NewRecorder()
	h.DoctorMetrics(rec, mountRequest(context.Background(), defaultDoctor))

	out := rec.Body.String()
	assert.Equal(t, 1, strings.Count(out, "event:"))
	assert.Contains(t, out, ">--<")
	assert.Contains(t, out, ">10<")
	assert.Contains(t, out, "Patient: abcdef")
	assert.Contains(t, out, "Visit 5 • consultation • clinic")
	assert.NotContains(t, out, "Patient: sample")
}

func TestDoctorMetrics_FailuresPatchNothing(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"detail":"Not Found"}`},
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
		{name: "malformed json", status: http.StatusOK, body: `{"totals":`},
		{name: "null body", status: http.StatusOK, body: "null"},
		{name: "trailing garbage", status: http.StatusOK, body: `{"totals":{"appointments":42}} not json at all`},
		{name: "two objects", status: http.StatusOK, body: `{"totals":{"appointments":42}}{"x":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fixture := setupTestHandlers(t, features.RespondWith(tt.status, tt.body))

			rec := httptest.NewRecorder()
			h.DoctorMetrics(rec, mountRequest(context.Background(), defaultDoctor))

			assert.Equal(t, 0, strings.Count(rec.Body.String(), "event:"))
			assert.Equal(t, 1, fixture.Fetcher.Calls(), "failed fetch is never retried")
		})
	}
}

func TestDoctorMetrics_CancelledMount(t *testing.T) {
	h, _ := setupTestHandlers(t, features.RespondWith(http.StatusOK, features.SampleMetricsJSON))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	h.DoctorMetrics(rec, mountRequest(ctx, defaultDoctor))

	assert.Equal(t, 0, strings.Count(rec.Body.String(), "event:"), "torn down mount must not be patched")
}

func TestDoctorMetrics_EscapedDoctorID(t *testing.T) {
	h, fixture := setupTestHandlers(t, features.RespondWith(http.StatusOK, features.SampleMetricsJSON))

	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r, h))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctor/dr%2Fwho/metrics", nil))

	assert.Equal(t, 1, strings.Count(rec.Body.String(), "event:"))
	assert.Equal(t, "dr/who", fixture.Fetcher.LastDoctorID())
}

func TestMetricsPath(t *testing.T) {
	assert.Equal(t, "/doctor/mock-doctor/metrics", MetricsPath("mock-doctor"))
	assert.Equal(t, "/doctor/dr%2Fwho/metrics", MetricsPath("dr/who"))
}
