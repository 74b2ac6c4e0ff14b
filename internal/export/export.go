// Package export serializes annotations to the downloadable formats: a JSON
// document, a fully quoted CSV table, or a SQLite file.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jwulff/sideline/internal/annotate"
	"github.com/jwulff/sideline/internal/db"
)

// Format is an export file format.
type Format string

const (
	JSON   Format = "json"
	CSV    Format = "csv"
	SQLite Format = "sqlite"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat maps a format name (case-insensitive) to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, CSV, SQLite:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// Columns is the fixed CSV column order.
var Columns = []string{"id", "type", "label", "timestamp", "formattedTime", "gameClockTime", "team"}

// Record is the exported shape of an annotation. Presentation fields such as
// the color tag are not part of it.
type Record struct {
	ID            int64   `json:"id"`
	Type          string  `json:"type"`
	Label         string  `json:"label"`
	Timestamp     float64 `json:"timestamp"`
	FormattedTime string  `json:"formattedTime"`
	GameClockTime string  `json:"gameClockTime"`
	Team          string  `json:"team,omitempty"`
}

// Records converts annotations to export records, keeping their order.
func Records(anns []annotate.Annotation) []Record {
	out := make([]Record, 0, len(anns))
	for _, a := range anns {
		out = append(out, Record{
			ID:            a.ID,
			Type:          a.Type,
			Label:         a.Label,
			Timestamp:     a.Timestamp,
			FormattedTime: a.FormattedTime(),
			GameClockTime: a.GameClock,
			Team:          a.Team,
		})
	}
	return out
}

// WriteJSON writes the annotations as an indented JSON array.
func WriteJSON(w io.Writer, anns []annotate.Annotation) error {
	data, err := json.MarshalIndent(Records(anns), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal annotations: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteCSV writes a header row followed by one row per annotation. Every
// data field is wrapped in double quotes with embedded quotes doubled.
func WriteCSV(w io.Writer, anns []annotate.Annotation) error {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(Columns, ","))
	buf.WriteByte('\n')
	for _, r := range Records(anns) {
		fields := []string{
			strconv.FormatInt(r.ID, 10),
			r.Type,
			r.Label,
			strconv.FormatFloat(r.Timestamp, 'f', -1, 64),
			r.FormattedTime,
			r.GameClockTime,
			r.Team,
		}
		for i, f := range fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(quote(f))
		}
		buf.WriteByte('\n')
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// CSVString renders the CSV export in memory.
func CSVString(anns []annotate.Annotation) string {
	var b strings.Builder
	_ = WriteCSV(&b, anns)
	return b.String()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Meta describes the session an export belongs to.
type Meta struct {
	Source     string
	ExportName string
	HomeTeam   string
	AwayTeam   string
}

// ToFile writes the annotations to dir/<name>.<ext> and returns the path.
// JSON and CSV are written to a temp file and renamed into place; SQLite
// exports are appended to an existing file of the same name.
func ToFile(dir, name string, format Format, meta Meta, anns []annotate.Annotation) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(name, format))

	switch format {
	case JSON, CSV:
		var buf bytes.Buffer
		var err error
		if format == JSON {
			err = WriteJSON(&buf, anns)
		} else {
			err = WriteCSV(&buf, anns)
		}
		if err != nil {
			return "", err
		}
		if err := writeFileAtomic(path, buf.Bytes(), 0o644); err != nil {
			return "", err
		}
	case SQLite:
		if err := writeSQLite(path, meta, anns); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return path, nil
}

func writeSQLite(path string, meta Meta, anns []annotate.Annotation) error {
	store, err := db.Create(path)
	if err != nil {
		return err
	}
	defer store.Close()

	rows := make([]db.Annotation, 0, len(anns))
	for _, r := range Records(anns) {
		rows = append(rows, db.Annotation{
			ID:            r.ID,
			Type:          r.Type,
			Label:         r.Label,
			Timestamp:     r.Timestamp,
			FormattedTime: r.FormattedTime,
			GameClockTime: r.GameClockTime,
			Team:          r.Team,
		})
	}
	_, err = store.WriteSession(db.Session{
		Source:     meta.Source,
		ExportName: meta.ExportName,
		HomeTeam:   meta.HomeTeam,
		AwayTeam:   meta.AwayTeam,
	}, rows)
	return err
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename export: %w", err)
	}
	return nil
}
