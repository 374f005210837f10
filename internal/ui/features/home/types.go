// Package home serves the DocDor preview page and its dashboard mount.
package home

import "net/url"

const (
	pageTitle = "Preview"

	sessionName     = "docdor"
	sessionDoctorID = "doctor_id"

	// doctorQueryParam overrides the session and configured doctor for one visit.
	doctorQueryParam = "doctor"
)

// MetricsPath returns the mount endpoint the page subscribes to for doctorID.
func MetricsPath(doctorID string) string {
	return "/doctor/" + url.PathEscape(doctorID) + "/metrics"
}
