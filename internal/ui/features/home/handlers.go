package home

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/docdor/preview/internal/dashboard"
	"github.com/docdor/preview/internal/metrics"
	"github.com/docdor/preview/internal/ui/features/home/pages"
)

// Handlers provides HTTP handlers for the home feature.
type Handlers struct {
	fetcher       metrics.Fetcher
	sessionStore  sessions.Store
	defaultDoctor string
	logger        *slog.Logger
	isDev         bool
}

// Options configures the home handlers.
type Options struct {
	Fetcher      metrics.Fetcher
	SessionStore sessions.Store
	// DoctorID is used when neither the query string nor the session names a doctor.
	DoctorID string
	Logger   *slog.Logger
	IsDev    bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		fetcher:       opts.Fetcher,
		sessionStore:  opts.SessionStore,
		defaultDoctor: opts.DoctorID,
		logger:        logger,
		isDev:         opts.IsDev,
	}
}

// HomePage renders the full page with placeholder dashboard content.
// The dashboard section carries the mount trigger; no metrics are fetched here.
func (h *Handlers) HomePage(w http.ResponseWriter, r *http.Request) {
	doctorID := h.resolveDoctor(w, r)

	data := pages.PageData{
		Title:    pageTitle,
		IsDev:    h.isDev,
		MountURL: MetricsPath(doctorID),
		View:     dashboard.BuildView(nil),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.HomePage(data).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// DoctorMetrics is the dashboard mount. Each request owns one preview, fetches
// at most once and patches #doctor only when real metrics arrived. Failures
// leave the placeholders in place and send nothing.
func (h *Handlers) DoctorMetrics(w http.ResponseWriter, r *http.Request) {
	doctorID := doctorParam(r)
	logger := h.logger.With("mount", uuid.NewString(), "doctor", doctorID)

	preview := dashboard.NewPreview(h.fetcher, doctorID)
	defer preview.Dispose()

	sse := datastar.NewSSE(w, r)

	view, loaded := preview.Load(r.Context())
	if !loaded {
		result := preview.Result()
		logger.Debug("dashboard kept placeholders", "state", result.State.String(), "error", result.Err)
		return
	}

	// Rendered without a mount trigger so the morph never starts a second fetch.
	if err := sse.PatchElementTempl(pages.DoctorHome(view, "")); err != nil {
		logger.Debug("dashboard patch failed", "error", err)
		_ = sse.ConsoleError(err)
		return
	}
	logger.Debug("dashboard loaded")
}

// resolveDoctor picks the doctor for this visit: query parameter, then
// session, then the configured default. The choice is remembered in the session.
func (h *Handlers) resolveDoctor(w http.ResponseWriter, r *http.Request) string {
	doctorID := strings.TrimSpace(r.URL.Query().Get(doctorQueryParam))

	var session *sessions.Session
	if h.sessionStore != nil {
		var err error
		session, err = h.sessionStore.Get(r, sessionName)
		if err != nil {
			h.logger.Debug("discarding unreadable session", "error", err)
		}
	}

	if doctorID == "" && session != nil {
		if v, ok := session.Values[sessionDoctorID].(string); ok {
			doctorID = v
		}
	}
	if doctorID == "" {
		doctorID = h.defaultDoctor
	}

	if session != nil {
		session.Values[sessionDoctorID] = doctorID
		if err := session.Save(r, w); err != nil {
			h.logger.Debug("failed to save session", "error", err)
		}
	}

	return doctorID
}

// doctorParam returns the decoded {doctorID} route parameter.
func doctorParam(r *http.Request) string {
	id := chi.URLParam(r, "doctorID")
	if r.URL.RawPath == "" {
		return id
	}
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}
