package app

import (
	"github.com/jwulff/sideline/internal/export"
	"github.com/jwulff/sideline/internal/mpv"
	"github.com/jwulff/sideline/internal/session"
)

// MpvConnectedMsg is sent when both mpv connections are established.
type MpvConnectedMsg struct {
	Client   *mpv.Client // for commands
	EvClient *mpv.Client // for property-change events
}

// MpvConnectErrorMsg is sent when connecting to mpv fails.
type MpvConnectErrorMsg struct {
	Err error
}

// MpvObservingMsg is sent once property observation is set up on the event
// client.
type MpvObservingMsg struct{}

// MpvEventMsg wraps an event pushed by mpv.
type MpvEventMsg struct {
	Event mpv.Event
}

// MpvEventErrorMsg is sent when the event stream fails.
type MpvEventErrorMsg struct {
	Err error
}

// ReconnectTickMsg triggers a reconnection attempt.
type ReconnectTickMsg struct{}

// SessionChangedMsg is sent after the session changed outside Update, for
// example when a periodic clock read finishes.
type SessionChangedMsg struct {
	Change session.Change
}

// OpenedMsg carries the result of opening a video file or folder.
type OpenedMsg struct {
	Path   string
	Folder bool
	Err    error
}

// PlaybackDoneMsg carries the result of a playback command.
type PlaybackDoneMsg struct {
	Err error
}

// ClockReadMsg carries the result of an on-demand clock read.
type ClockReadMsg struct {
	Err error
}

// ExportedMsg carries the result of an export.
type ExportedMsg struct {
	Format export.Format
	Path   string
	Err    error
}

// CopiedMsg carries the result of copying the CSV export to the clipboard.
type CopiedMsg struct {
	Count int
	Err   error
}

// ClearFlashMsg clears a transient message after a timeout.
type ClearFlashMsg struct {
	Seq int
}
