package commands

import (
	"bytes"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/spf13/cobra"

	"github.com/docdor/preview/internal/dashboard"
	homeFeature "github.com/docdor/preview/internal/ui/features/home"
	"github.com/docdor/preview/internal/ui/features/home/pages"
)

// Render formats.
const (
	RenderHTML     = "html"
	RenderMarkdown = "markdown"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	Format string
	Fetch  bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render [doctor-id]",
		Short: "Render the preview page to stdout",
		Long: `Render the preview page once without starting a server.

By default the page is rendered as the browser first receives it: placeholder
dashboard plus the mount trigger. With --fetch the metrics are fetched once
and the dashboard is rendered in its final state.`,
		Example: `  # HTML as served
  docdor render > preview.html

  # Readable text with live numbers
  docdor render --fetch --format markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", RenderHTML, "Output format: html, markdown")
	cmd.Flags().BoolVar(&opts.Fetch, "fetch", false, "Fetch metrics once and render the loaded dashboard")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{RenderHTML, RenderMarkdown}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRender(cmd *cobra.Command, args []string, opts *RenderOptions) error {
	format := strings.ToLower(opts.Format)
	if format != RenderHTML && format != RenderMarkdown && format != "md" {
		return fmt.Errorf("unknown render format %q (expected html or markdown)", opts.Format)
	}

	cmdCtx := NewCommandContext(cmd)
	doctorID := doctorFromArgs(cmdCtx.Cfg, args)

	data := pages.PageData{
		Title:    "Preview",
		MountURL: homeFeature.MetricsPath(doctorID),
		View:     dashboard.BuildView(nil),
	}

	if opts.Fetch {
		preview := dashboard.NewPreview(cmdCtx.MetricsClient(), doctorID)
		view, loaded := preview.Load(cmd.Context())
		preview.Dispose()
		if loaded {
			data.View = view
			data.MountURL = ""
		} else {
			cmdCtx.Logger.Debug("render keeps placeholders", "error", preview.Result().Err)
		}
	}

	var buf bytes.Buffer
	if err := pages.HomePage(data).Render(cmd.Context(), &buf); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}

	out := buf.String()
	if format != RenderHTML {
		md, err := htmltomarkdown.ConvertString(out)
		if err != nil {
			return fmt.Errorf("failed to convert page to markdown: %w", err)
		}
		out = md
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
