//go:build dev

package resources

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// staticDir resolves the static directory next to this source file so the
// dev binary finds it regardless of the working directory.
func staticDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return StaticDirectoryPath
	}
	return filepath.Join(filepath.Dir(filename), "static")
}

// Handler serves static files straight from disk so edits show up on reload.
func Handler() http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.FS(os.DirFS(staticDir()))))
}

// WatchDir returns the directory the dev watcher should observe.
func WatchDir() string {
	return staticDir()
}
