package commands

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/docdor/preview/internal/ui"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
}

// browserOpener is replaced in tests.
var browserOpener = openBrowser

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the DocDor preview server",
		Long: `Start a local web server with the DocDor preview page.

The page renders immediately with placeholder metrics. Each page load opens
one mount request that fetches the doctor's metrics from the backend and
swaps them in when they arrive.`,
		Example: `  # Start on the default port
  docdor serve

  # Start on a custom port without opening a browser
  docdor serve --port 3000 --no-browser

  # Point at a different backend
  VITE_BACKEND_URL=https://api.example.com docdor serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Reload open pages when static assets change (dev builds)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	// CLI flags override config file
	port := cfg.UI.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	autoOpen := cfg.UI.AutoOpen
	if opts.NoBrowser {
		autoOpen = false
	}

	watch := cfg.UI.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	server := ui.NewServer(ui.Config{
		Fetcher:       cmdCtx.MetricsClient(),
		DoctorID:      cfg.DoctorID,
		Port:          port,
		Watch:         watch,
		SessionSecret: cfg.UI.SessionSecret,
		Logger:        cmdCtx.Logger,
	})

	url := fmt.Sprintf("http://localhost:%d", port)
	if autoOpen {
		go browserOpener(url)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Serving DocDor preview on %s\n", url)
	_, _ = fmt.Fprintf(out, "Metrics backend: %s\n", cfg.BackendURL)
	_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop")

	return server.Serve(cmd.Context())
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
