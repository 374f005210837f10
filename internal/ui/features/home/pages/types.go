// Package pages holds the templ components of the DocDor preview page.
package pages

import "github.com/docdor/preview/internal/dashboard"

// HeroSceneURL is the embedded 3D scene. It is an opaque third-party widget;
// nothing is exchanged with it beyond its URL.
const HeroSceneURL = "https://prod.spline.design/2fSS9b44gtYBt4RI/scene.splinecode"

// mountOptions keep the mount request open while the tab is hidden and
// disable reconnects, so a page mount reaches the server once.
const mountOptions = "{openWhenHidden: true, retry: 'never', retryMaxCount: 0}"

// PageData holds everything the home page needs to render.
type PageData struct {
	Title string
	IsDev bool
	// MountURL is the SSE endpoint the dashboard section calls once when
	// it is initialized in the browser. Empty for fragments that must not
	// trigger another fetch.
	MountURL string
	View     dashboard.View
}

// WireframePanel is one static checklist card.
type WireframePanel struct {
	Anchor string
	Title  string
	Items  []string
}

// WireframePanels is the fixed content of the wireframe grid.
var WireframePanels = []WireframePanel{
	{
		Anchor: "reception",
		Title:  "Reception — Book Appointment",
		Items: []string{
			"Search existing by phone/name",
			"Capture new patient: personal info, vitals, history",
			"Select Clinic or Online, pick time",
		},
	},
	{
		Anchor: "patient",
		Title:  "Patient — Home",
		Items: []string{
			"Story-like health feed",
			"Global search: Medicine, Doctor, Lab",
			"Quick tiles: Clinic, Online, Surgery, Medical, Lab",
		},
	},
	{
		Title: "Prescription Workflow",
		Items: []string{
			"Symptoms with suggestions",
			"Medications: drug, dosage, frequency, duration, notes",
			"Lab Investigations",
			"Advice & Follow‑up date",
		},
	},
}

// MountTrigger returns the datastar expression that opens the mount request.
func MountTrigger(mountURL string) string {
	return "@get('" + mountURL + "', " + mountOptions + ")"
}
