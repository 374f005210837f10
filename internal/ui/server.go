// Package ui serves the DocDor preview page.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/docdor/preview/internal/metrics"
	homeFeature "github.com/docdor/preview/internal/ui/features/home"
	"github.com/docdor/preview/internal/ui/notifier"
	"github.com/docdor/preview/internal/ui/resources"
	"github.com/docdor/preview/internal/ui/router"
)

const (
	sessionMaxAge   = 86400 * 30 // 30 days
	shutdownTimeout = 5 * time.Second
	watchDebounce   = 100 * time.Millisecond
)

// Server is the preview HTTP server.
type Server struct {
	fetcher      metrics.Fetcher
	doctorID     string
	sessionStore *sessions.CookieStore
	port         int
	watch        bool
	dev          bool
	watchDir     string
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the preview server.
type Config struct {
	Fetcher metrics.Fetcher
	// DoctorID is shown when the visitor has not picked a doctor.
	DoctorID string
	Port     int
	Watch    bool
	Dev      bool
	// SessionSecret signs the session cookie. A random key is used when empty,
	// which invalidates sessions on restart.
	SessionSecret string
	Logger        *slog.Logger
}

// NewServer creates a new preview server instance.
func NewServer(cfg Config) *Server {
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
	}
	sessionStore := sessions.NewCookieStore(secret)
	sessionStore.MaxAge(sessionMaxAge)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		fetcher:      cfg.Fetcher,
		doctorID:     cfg.DoctorID,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watch:        cfg.Watch,
		dev:          cfg.Dev,
		watchDir:     resources.WatchDir(),
		logger:       logger,
		notifier:     notifier.New(),
	}
}

// Handler builds the router with middleware and all routes.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	home := homeFeature.NewHandlers(homeFeature.Options{
		Fetcher:      s.fetcher,
		SessionStore: s.sessionStore,
		DoctorID:     s.doctorID,
		Logger:       s.logger,
		IsDev:        s.IsDev(),
	})

	if err := router.SetupRoutes(r, home, s.notifier, s.IsDev()); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve listens on the configured port and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	handler, err := s.Handler()
	if err != nil {
		_ = ln.Close()
		return err
	}

	s.logger.Info("starting preview server", "addr", ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		if s.watchDir == "" {
			s.logger.Warn("asset watching needs a dev build; assets are embedded")
		} else {
			eg.Go(func() error {
				return s.watchFiles(egctx)
			})
		}
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down preview server")
		s.notifier.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev reports whether dev-only routes (live reload) are enabled.
func (s *Server) IsDev() bool {
	return s.dev || s.watch
}

// Notifier returns the server's reload notifier.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// watchFiles reloads open pages whenever a static asset changes.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.watchDir); err != nil {
		s.logger.Error("failed to watch static directory", "dir", s.watchDir, "error", err)
		return nil
	}
	s.logger.Debug("watching static assets", "dir", s.watchDir)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				n := s.notifier.Broadcast()
				s.logger.Debug("asset changed, reloading pages", "file", name, "pages", n)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
