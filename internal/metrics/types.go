package metrics

import (
	"bytes"
	"encoding/json"
	"math"
)

// maxExactCount bounds counts to integers a float64 represents exactly.
const maxExactCount = 1 << 53

// Metrics is the dashboard payload served for a single doctor.
// Every field is optional; absent fields are rendered as placeholders.
type Metrics struct {
	Totals *Totals `json:"totals,omitempty"`
	// Upcoming is nil when the backend omitted the field. A present but
	// empty list decodes to a non-nil empty slice.
	Upcoming []AppointmentSummary `json:"upcoming,omitempty"`
}

// Totals holds aggregate appointment counts.
type Totals struct {
	Appointments *int `json:"appointments,omitempty"`
	Completed    *int `json:"completed,omitempty"`
}

// AppointmentSummary is one upcoming appointment as shown on the dashboard.
// It has no identity beyond its position in the list.
type AppointmentSummary struct {
	PatientID  string `json:"patient_id,omitempty"`
	VisitCount *int   `json:"visit_count,omitempty"`
	VisitKind  string `json:"visit_kind,omitempty"`
	Type       string `json:"type,omitempty"`
}

// UnmarshalJSON requires a JSON object but decodes its fields one at a time.
// A field of the wrong shape is left absent rather than failing the payload,
// and integral floats such as 42.0 are accepted as counts.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*m = Metrics{}

	var totals map[string]json.RawMessage
	if json.Unmarshal(fields["totals"], &totals) == nil && totals != nil {
		m.Totals = &Totals{
			Appointments: decodeCount(totals["appointments"]),
			Completed:    decodeCount(totals["completed"]),
		}
	}

	var upcoming []json.RawMessage
	if json.Unmarshal(fields["upcoming"], &upcoming) == nil && upcoming != nil {
		m.Upcoming = make([]AppointmentSummary, 0, len(upcoming))
		for _, item := range upcoming {
			m.Upcoming = append(m.Upcoming, decodeSummary(item))
		}
	}

	return nil
}

func decodeSummary(data json.RawMessage) AppointmentSummary {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return AppointmentSummary{}
	}
	return AppointmentSummary{
		PatientID:  decodeString(fields["patient_id"]),
		VisitCount: decodeCount(fields["visit_count"]),
		VisitKind:  decodeString(fields["visit_kind"]),
		Type:       decodeString(fields["type"]),
	}
}

// decodeCount returns nil unless data is an integral JSON number.
func decodeCount(data json.RawMessage) *int {
	if isNull(data) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	if f != math.Trunc(f) || math.Abs(f) > maxExactCount {
		return nil
	}
	n := int(f)
	return &n
}

func decodeString(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ""
	}
	return s
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
