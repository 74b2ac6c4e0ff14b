// Package db provides SQLite storage for exported annotation sessions.
package db

import "time"

// Session represents one exported review session of a single video.
type Session struct {
	ID         string
	Source     string
	ExportName string
	HomeTeam   string
	AwayTeam   string
	CreatedAt  time.Time
}

// Annotation represents an exported annotation row.
type Annotation struct {
	ID            int64
	SessionID     string
	Type          string
	Label         string
	Timestamp     float64
	FormattedTime string
	GameClockTime string
	Team          string
}
