package commands

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/docdor/preview/internal/cli/output"
	"github.com/docdor/preview/internal/dashboard"
)

// MetricsReport is what `docdor metrics` prints.
type MetricsReport struct {
	DoctorID string         `json:"doctor_id"`
	Endpoint string         `json:"endpoint"`
	State    string         `json:"state"`
	View     dashboard.View `json:"view"`
}

// Live reports whether the view came from the backend.
func (r MetricsReport) Live() bool {
	return r.State == dashboard.StateLoaded.String()
}

// NewMetricsCommand creates the metrics command.
func NewMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics [doctor-id]",
		Short: "Fetch doctor metrics once and print the dashboard view",
		Long: `Fetch the doctor dashboard metrics from the backend, exactly once, and print
the view the preview page would show.

A failed fetch is not an error: the placeholder view is printed instead,
just as the page keeps its placeholders.`,
		Example: `  # Metrics for the configured doctor
  docdor metrics

  # A specific doctor against another backend, as JSON
  docdor metrics dr-house --backend-url https://api.example.com -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(cmd, args)
		},
	}
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	doctorID := doctorFromArgs(cmdCtx.Cfg, args)
	client := cmdCtx.MetricsClient()

	preview := dashboard.NewPreview(client, doctorID)
	defer preview.Dispose()

	view, _ := preview.Load(cmd.Context())
	result := preview.Result()
	if result.Err != nil {
		cmdCtx.Logger.Debug("showing placeholders", "error", result.Err)
	}

	report := MetricsReport{
		DoctorID: doctorID,
		Endpoint: client.Endpoint(doctorID),
		State:    result.State.String(),
		View:     view,
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return renderMetricsJSON(r, report)
	case output.ModeMarkdown:
		renderMetricsMarkdown(r, report)
	default:
		renderMetricsText(r, report)
	}
	return nil
}

func renderMetricsJSON(r *output.Renderer, report MetricsReport) error {
	enc := json.NewEncoder(r.Writer())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func renderMetricsText(r *output.Renderer, report MetricsReport) {
	styles := r.Styles()

	status := styles.Warning.Render("placeholder")
	if report.Live() {
		status = styles.Success.Render("live")
	}

	r.Println(styles.Header1.Render("Doctor — Home") + " " + styles.Muted.Render(report.DoctorID))
	r.Printf("%s %s\n", status, styles.Muted.Render(report.Endpoint))
	r.Println("")

	totals := totalsTable(r, report.View)
	totals.SetStyle(table.StyleLight)
	totals.Render()

	r.Println("")
	r.Println(styles.Bold.Render("Upcoming"))
	if len(report.View.Upcoming) == 0 {
		r.Println(styles.Muted.Render("(none)"))
		return
	}
	upcoming := upcomingTable(r, report.View)
	upcoming.SetStyle(table.StyleLight)
	upcoming.Render()
}

func renderMetricsMarkdown(r *output.Renderer, report MetricsReport) {
	status := "placeholder"
	if report.Live() {
		status = "live"
	}

	r.Printf("## Doctor — Home (%s)\n\n", report.DoctorID)
	r.Printf("Status: %s  \nSource: `%s`\n\n", status, report.Endpoint)

	totalsTable(r, report.View).RenderMarkdown()
	r.Println("")

	r.Println("### Upcoming")
	r.Println("")
	if len(report.View.Upcoming) == 0 {
		r.Println("_none_")
		return
	}
	upcomingTable(r, report.View).RenderMarkdown()
}

func totalsTable(r *output.Renderer, view dashboard.View) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.AppendHeader(table.Row{"Total Appointments", "Completed"})
	t.AppendRow(table.Row{view.Appointments, view.Completed})
	return t
}

func upcomingTable(r *output.Renderer, view dashboard.View) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.AppendHeader(table.Row{"Patient", "Visit", "Kind", "Type"})
	for _, row := range view.Upcoming {
		t.AppendRow(table.Row{row.Patient, row.Visit, row.Kind, row.Type})
	}
	return t
}
