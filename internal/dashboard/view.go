// Package dashboard derives the doctor dashboard preview from fetched metrics.
package dashboard

import (
	"strconv"

	"github.com/docdor/preview/internal/metrics"
)

// Placeholder is shown for any total the backend did not provide.
const Placeholder = "--"

// patientPrefixLen is how many characters of a patient id are shown.
const patientPrefixLen = 6

const placeholderRows = 3

// View is the display model of the dashboard section.
type View struct {
	Appointments string           `json:"appointments"`
	Completed    string           `json:"completed"`
	Upcoming     []AppointmentRow `json:"upcoming"`
	// Synthetic is true when Upcoming holds generated placeholder rows.
	Synthetic bool `json:"synthetic"`
}

// AppointmentRow is one rendered entry of the upcoming list.
type AppointmentRow struct {
	Patient string `json:"patient"`
	Visit   string `json:"visit"`
	Kind    string `json:"visit_kind"`
	Type    string `json:"type"`
}

// Line returns the secondary text of a row, e.g. "Visit 5 • consultation • clinic".
func (r AppointmentRow) Line() string {
	return "Visit " + r.Visit + " • " + r.Kind + " • " + r.Type
}

// BuildView derives the display values from m. A nil m yields the
// placeholder view. Missing fields degrade one at a time.
func BuildView(m *metrics.Metrics) View {
	v := View{
		Appointments: Placeholder,
		Completed:    Placeholder,
	}

	if m != nil && m.Totals != nil {
		v.Appointments = countOrPlaceholder(m.Totals.Appointments)
		v.Completed = countOrPlaceholder(m.Totals.Completed)
	}

	var upcoming []metrics.AppointmentSummary
	if m != nil && m.Upcoming != nil {
		upcoming = m.Upcoming
	} else {
		upcoming = PlaceholderAppointments()
		v.Synthetic = true
	}

	v.Upcoming = make([]AppointmentRow, 0, len(upcoming))
	for _, a := range upcoming {
		v.Upcoming = append(v.Upcoming, toRow(a))
	}

	return v
}

// PlaceholderAppointments returns the synthetic rows used until real data arrives.
func PlaceholderAppointments() []metrics.AppointmentSummary {
	out := make([]metrics.AppointmentSummary, 0, placeholderRows)
	for i := 1; i <= placeholderRows; i++ {
		count := i
		out = append(out, metrics.AppointmentSummary{
			PatientID:  "sample",
			VisitCount: &count,
			VisitKind:  "consultation",
			Type:       "clinic",
		})
	}
	return out
}

// ShortPatientID returns the first six characters of id, or id unchanged
// when it is shorter. No ellipsis is added.
func ShortPatientID(id string) string {
	runes := []rune(id)
	if len(runes) > patientPrefixLen {
		return string(runes[:patientPrefixLen])
	}
	return id
}

func toRow(a metrics.AppointmentSummary) AppointmentRow {
	visit := ""
	if a.VisitCount != nil {
		visit = strconv.Itoa(*a.VisitCount)
	}
	return AppointmentRow{
		Patient: ShortPatientID(a.PatientID),
		Visit:   visit,
		Kind:    a.VisitKind,
		Type:    a.Type,
	}
}

func countOrPlaceholder(n *int) string {
	if n == nil {
		return Placeholder
	}
	return strconv.Itoa(*n)
}
