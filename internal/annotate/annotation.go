// Package annotate holds the annotation model: the action categories a coach
// can tag, the annotation records themselves, and the ordered in-memory store.
package annotate

import (
	"fmt"
	"math"
)

// NotAvailable is recorded as the game clock when none was entered or read.
const NotAvailable = "N/A"

// CustomType is the category tag of annotations with a user-supplied label.
const CustomType = "Other"

// Action is one non-verbal-communication category.
type Action struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Color string `yaml:"color"` // presentation only, never exported
}

// DefaultActions are the built-in categories, in button order.
var DefaultActions = []Action{
	{ID: "Eye Contact", Label: "Eye Contact", Color: "blue"},
	{ID: "Screen", Label: "Screen", Color: "green"},
	{ID: "Direct", Label: "Directing", Color: "red"},
	{ID: "Call for Ball", Label: "Call for Ball", Color: "purple"},
	{ID: "Defensive Switch", Label: "Defensive Switch", Color: "yellow"},
	{ID: "Nod", Label: "Nod", Color: "indigo"},
}

// CustomColor is the color tag given to custom-label annotations.
const CustomColor = "gray"

// Annotation is a timestamped tagged event. It is immutable once created.
type Annotation struct {
	ID        int64
	Type      string
	Label     string
	Color     string
	Timestamp float64 // seconds into the source video
	GameClock string
	Team      string
}

// FormattedTime returns the video timestamp as M:SS.
func (a Annotation) FormattedTime() string {
	return FormatTime(a.Timestamp)
}

// FormatTime converts seconds to M:SS. Minutes are not padded and can exceed 59.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	mins := int64(seconds / 60)
	secs := int64(math.Mod(seconds, 60))
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// FindAction returns the action with the given id.
func FindAction(actions []Action, id string) (Action, bool) {
	for _, a := range actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}
