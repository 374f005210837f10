package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docdor/preview/internal/cli/config"
	"github.com/docdor/preview/internal/cli/output"
	"github.com/docdor/preview/internal/metrics"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the loaded config, logger and a renderer for
// the configured output mode.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), output.Mode(cfg.OutputFormat)),
	}
}

// MetricsClient returns a backend client for the configured base URL.
func (c *CommandContext) MetricsClient() *metrics.Client {
	return metrics.NewClient(metrics.ClientConfig{
		BaseURL: c.Cfg.BackendURL,
		Logger:  c.Logger,
	})
}

// doctorFromArgs returns the optional positional doctor id, or the configured one.
func doctorFromArgs(cfg *config.Config, args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.DoctorID
}
