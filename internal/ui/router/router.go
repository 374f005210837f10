// Package router sets up HTTP routes for the UI server.
package router

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	homeFeature "github.com/docdor/preview/internal/ui/features/home"
	"github.com/docdor/preview/internal/ui/notifier"
	"github.com/docdor/preview/internal/ui/resources"
)

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(
	router chi.Router,
	home *homeFeature.Handlers,
	notify *notifier.Notifier,
	isDev bool,
) error {
	// Hot reload endpoints for dev mode
	if isDev {
		setupReload(router, notify)
	}

	router.Handle("/static/*", resources.Handler())

	return homeFeature.SetupRoutes(router, home)
}

// setupReload wires the browser reload channel. Every open page holds a
// /reload stream; a broadcast (file watcher or GET /hotreload) reloads them.
// The first stream after a server start reloads immediately so pages pick
// up a rebuilt binary.
func setupReload(router chi.Router, notify *notifier.Notifier) {
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)

		updates := notify.Subscribe(r.Context())
		if _, ok := <-updates; ok {
			reload()
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		notify.Broadcast()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
