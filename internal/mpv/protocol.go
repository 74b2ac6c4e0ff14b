// Package mpv drives an mpv process over its JSON IPC unix socket. It is the
// media element behind the playback controller.
package mpv

import "encoding/json"

// Command is sent from a client to mpv.
type Command struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

// Response is returned by mpv after processing a command.
type Response struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID int             `json:"request_id"`
}

// OK reports whether mpv accepted the command.
func (r Response) OK() bool { return r.Error == "success" }

// Event is pushed by mpv to every connected client. Property observations
// arrive as "property-change" events carrying the observer id and name.
type Event struct {
	Event  string          `json:"event"`
	ID     int             `json:"id,omitempty"`
	Name   string          `json:"name,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// message is the union of a response and an event line.
type message struct {
	Event
	Error     string `json:"error"`
	RequestID int    `json:"request_id"`
}

// Float decodes the event data as a number. ok is false for a missing or
// null value (mpv sends null while a property is unavailable).
func (e Event) Float() (v float64, ok bool) {
	if len(e.Data) == 0 {
		return 0, false
	}
	var f *float64
	if err := json.Unmarshal(e.Data, &f); err != nil || f == nil {
		return 0, false
	}
	return *f, true
}

// Bool decodes the event data as a boolean.
func (e Event) Bool() (v bool, ok bool) {
	if len(e.Data) == 0 {
		return false, false
	}
	var b *bool
	if err := json.Unmarshal(e.Data, &b); err != nil || b == nil {
		return false, false
	}
	return *b, true
}

// Observed property names.
const (
	PropTimePos    = "time-pos"
	PropDuration   = "duration"
	PropPause      = "pause"
	PropSpeed      = "speed"
	PropVolume     = "volume"
	PropWidth      = "width"
	PropHeight     = "height"
	PropEOFReached = "eof-reached"
)

// ObservedProperties are the properties the playback controller mirrors.
var ObservedProperties = []string{
	PropTimePos, PropDuration, PropPause, PropSpeed,
	PropVolume, PropWidth, PropHeight, PropEOFReached,
}
